package memdriver

import (
	"log/slog"

	"github.com/vinicius-lino-figueiredo/godm/adapter/storage"
	"github.com/vinicius-lino-figueiredo/godm/domain"
)

// Option configures a [MemDriver].
type Option func(*MemDriver)

// WithDatabase sets the database name reported in duplicate key errors.
// Defaults to "test".
func WithDatabase(name string) Option {
	return func(d *MemDriver) {
		if name != "" {
			d.database = name
		}
	}
}

// WithComparer sets the comparer used for sorting, matching and indexing.
func WithComparer(c domain.Comparer) Option {
	return func(d *MemDriver) {
		if c != nil {
			d.comparer = c
		}
	}
}

// WithHasher sets the hasher bucketing $group keys. It must agree with the
// comparer on equal values.
func WithHasher(h domain.Hasher) Option {
	return func(d *MemDriver) {
		if h != nil {
			d.hasher = h
		}
	}
}

// WithFieldNavigator sets the navigator used to read dotted paths.
func WithFieldNavigator(fn domain.FieldNavigator) Option {
	return func(d *MemDriver) {
		d.fieldNavigator = fn
	}
}

// WithModifier sets the implementation applying update documents.
func WithModifier(m domain.Modifier) Option {
	return func(d *MemDriver) {
		d.modifier = m
	}
}

// WithProjector sets the implementation applying projections.
func WithProjector(p domain.Projector) Option {
	return func(d *MemDriver) {
		d.projector = p
	}
}

// WithIDGenerator sets the generator of the ids of documents inserted
// without one.
func WithIDGenerator(g domain.IDGenerator) Option {
	return func(d *MemDriver) {
		if g != nil {
			d.idGenerator = g
		}
	}
}

// WithDecoder sets the decoder used by cursors to scan rows into structs.
func WithDecoder(dec domain.Decoder) Option {
	return func(d *MemDriver) {
		if dec != nil {
			d.decoder = dec
		}
	}
}

// WithLogger sets the logger receiving a debug entry per write and find.
func WithLogger(l *slog.Logger) Option {
	return func(d *MemDriver) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithStorage sets the storage used by [MemDriver.SaveFile] and
// [MemDriver.LoadFile].
func WithStorage(s *storage.Storage) Option {
	return func(d *MemDriver) {
		if s != nil {
			d.storage = s
		}
	}
}
