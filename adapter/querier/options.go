package querier

import "github.com/vinicius-lino-figueiredo/godm/domain"

// WithMatcher sets the matcher implementation for querier evaluations.
func WithMatcher(m domain.Matcher) Option {
	return func(q *Querier) {
		q.mtchr = m
	}
}

// WithComparer sets the comparer implementation for sorting operations.
func WithComparer(c domain.Comparer) Option {
	return func(q *Querier) {
		if c != nil {
			q.cmpr = c
		}
	}
}

// WithFieldNavigator sets the field getter for accessing document
// fields.
func WithFieldNavigator(f domain.FieldNavigator) Option {
	return func(q *Querier) {
		q.fn = f
	}
}

// WithProjector sets the implementation what will be used to project
// the resultant documents.
func WithProjector(p domain.Projector) Option {
	return func(q *Querier) {
		q.proj = p
	}
}

// WithCapacity sets the initial capacity of result slices.
func WithCapacity(n int) Option {
	return func(q *Querier) {
		if n >= 0 {
			q.cap = n
		}
	}
}

// Option configures querier behavior through the functional options
// pattern.
type Option func(*Querier)
