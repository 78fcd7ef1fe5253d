package modifier

import "github.com/vinicius-lino-figueiredo/godm/domain"

// WithComparer sets the comparer used by $addToSet, $pull, $max and $min.
func WithComparer(c domain.Comparer) Option {
	return func(m *Modifier) {
		if c != nil {
			m.comp = c
		}
	}
}

// WithFieldNavigator sets the navigator used to reach updated fields.
func WithFieldNavigator(f domain.FieldNavigator) Option {
	return func(m *Modifier) {
		if f != nil {
			m.fieldNavigator = f
		}
	}
}

// Option configures modifier behavior through the functional options pattern.
type Option func(*Modifier)
