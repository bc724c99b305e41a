package querier

import "github.com/webbestmaster/nedb/domain"

// WithDocumentFactory sets the factory function for creating documents.
func WithDocumentFactory(df domain.DocumentFactory) Option {
	return func(q *Querier) {
		q.newDoc = df
	}
}

// WithMatcher sets the matcher implementation for querier evaluations.
func WithMatcher(m domain.Matcher) Option {
	return func(q *Querier) {
		q.matcher = m
	}
}

// WithComparer sets the comparer implementation for sorting operations.
func WithComparer(c domain.Comparer) Option {
	return func(q *Querier) {
		q.cmp = c
	}
}

// WithFieldNavigator sets the field navigator used to read document
// fields by dot path.
func WithFieldNavigator(f domain.FieldNavigator) Option {
	return func(q *Querier) {
		q.nav = f
	}
}

// WithProjector sets the projector used to shape query results before
// they're returned to the caller.
func WithProjector(p domain.Projector) Option {
	return func(q *Querier) {
		q.project = p
	}
}

// Option configures querier behavior through the functional options
// pattern.
type Option func(*Querier)
