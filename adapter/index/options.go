package index

import "github.com/vinicius-lino-figueiredo/godm/domain"

// WithComparer sets the comparer that orders the index keys.
func WithComparer(c domain.Comparer) Option {
	return func(i *Index) {
		if c != nil {
			i.comparer = c
		}
	}
}

// WithFieldNavigator sets the navigator used to read the indexed fields.
func WithFieldNavigator(f domain.FieldNavigator) Option {
	return func(i *Index) {
		if f != nil {
			i.fieldNavigator = f
		}
	}
}

// WithNamespace sets the "<database>.<collection>" reported in duplicate key
// errors.
func WithNamespace(ns string) Option {
	return func(i *Index) {
		i.ns = ns
	}
}

// Option configures an [Index].
type Option func(*Index)
