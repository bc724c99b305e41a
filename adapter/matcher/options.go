package matcher

import "github.com/webbestmaster/nedb/domain"

// WithDocumentFactory sets the document factory for creating documents during
// matching.
func WithDocumentFactory(d domain.DocumentFactory) Option {
	return func(mo *Matcher) {
		mo.docFactory = d
	}
}

// WithComparer sets the comparer implementation for value comparisons during
// matching.
func WithComparer(c domain.Comparer) Option {
	return func(mo *Matcher) {
		mo.cmp = c
	}
}

// WithFieldNavigator sets the field getter for accessing document fields during
// matching.
func WithFieldNavigator(f domain.FieldNavigator) Option {
	return func(mo *Matcher) {
		mo.nav = f
	}
}

// Option configures matcher behavior through the functional options pattern.
type Option func(*Matcher)
