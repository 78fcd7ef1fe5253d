package matcher

import "github.com/vinicius-lino-figueiredo/godm/domain"

// WithComparer sets the comparer implementation for value comparisons during
// matching.
func WithComparer(c domain.Comparer) Option {
	return func(m *Matcher) {
		if c != nil {
			m.comparer = c
		}
	}
}

// WithFieldNavigator sets the navigator used to read document fields during
// matching.
func WithFieldNavigator(f domain.FieldNavigator) Option {
	return func(m *Matcher) {
		if f != nil {
			m.fieldNavigator = f
		}
	}
}

// Option configures matcher behavior through the functional options pattern.
type Option func(*Matcher)
