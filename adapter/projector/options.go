package projector

import "github.com/webbestmaster/nedb/domain"

// WithFieldNavigator sets the [domain.FieldNavigator] that will be used by
// [Projector].
func WithFieldNavigator(fn domain.FieldNavigator) Option {
	return func(p *Projector) {
		p.nav = fn
	}
}

// WithDocumentFactory sets the [domain.Document] factory function that will be
// used by [Projector].
func WithDocumentFactory(df domain.DocumentFactory) Option {
	return func(p *Projector) {
		p.newDoc = df
	}
}

// Option configures projector behavior through the functional options pattern.
type Option func(*Projector)
