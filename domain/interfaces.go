// Package domain contains domain-specific interfaces, entities, errors and
// option types for godm.
//
// This package defines the contracts implemented by adapters: the document
// store [Driver] and its optional capabilities, the [FieldType] contract that
// every field kind fulfills, and the small helper interfaces used by the
// in-memory driver.
package domain

import (
	"context"
	"time"
)

// Driver is the document store the mapper talks to. Every method blocks until
// the store answers or ctx is done. Errors are returned as produced by the
// store; the mapper never retries.
type Driver interface {
	// Find returns a cursor over the documents of collection matching
	// filter.
	Find(ctx context.Context, collection string, filter M, options ...FindOption) (Cursor, error)
	// Insert stores docs in collection and returns their ids, in order.
	Insert(ctx context.Context, collection string, docs ...M) ([]any, error)
	// Update applies update to the documents matching filter.
	Update(ctx context.Context, collection string, filter M, update M, options ...UpdateOption) (UpdateResult, error)
	// Remove deletes the documents matching filter and returns how many
	// were removed.
	Remove(ctx context.Context, collection string, filter M, options ...RemoveOption) (int64, error)
}

// Counter is implemented by drivers that can count documents without
// returning them.
type Counter interface {
	Count(ctx context.Context, collection string, filter M) (int64, error)
}

// Indexer is implemented by drivers that can create indexes.
type Indexer interface {
	// EnsureIndex creates the index if it does not exist and returns its
	// name.
	EnsureIndex(ctx context.Context, collection string, model IndexModel) (string, error)
}

// Aggregator is implemented by drivers that run aggregation pipelines.
type Aggregator interface {
	Aggregate(ctx context.Context, collection string, pipeline []M) (Cursor, error)
}

// Cursor provides iteration over query results.
type Cursor interface {
	// Next advances the cursor to the next document, returning true if
	// available.
	Next(ctx context.Context) bool
	// Scan decodes the current document into target.
	Scan(ctx context.Context, target any) error
	// Err returns any error that occurred during iteration.
	Err() error
	// Close releases cursor resources and should be called when done.
	Close(ctx context.Context) error
}

// FieldType is the contract of a field kind: emptiness, validation and the
// conversion between Go values and wire values.
type FieldType interface {
	// Kind reports how the mapper walks values of this type.
	Kind() Kind
	// IsEmpty reports whether v counts as unset for required checks.
	IsEmpty(v any) bool
	// Validate reports whether v is acceptable. nil is always valid,
	// requiredness is checked separately.
	Validate(v any) bool
	// Encode converts a Go value into its wire representation.
	Encode(v any) (any, error)
	// Decode converts a wire value back into a Go value.
	Decode(w any) (any, error)
}

// ItemTyper is implemented by list field types.
type ItemTyper interface {
	ItemType() FieldType
}

// AutoValuer is implemented by field types that fill values by themselves
// right before a record is written, such as timestamps.
type AutoValuer interface {
	// AutoValue returns the value to be stored and true if current should
	// be replaced. insert tells whether the record is being created.
	AutoValue(current any, insert bool) (any, bool)
}

// Decoder converts between different data representations.
type Decoder interface {
	// Decode converts from one data format to another.
	Decode(source any, target any) error
}

// IDGenerator creates identifiers for documents inserted without one.
type IDGenerator interface {
	GenerateID() (string, error)
}

// TimeGetter provides current time for timestamping operations.
type TimeGetter interface {
	// GetTime returns the current time.
	GetTime() time.Time
}

// Comparer provides ordering and comparison operations for wire values.
type Comparer interface {
	// Compare returns -1, 0, or 1 based on the comparison of two values.
	Compare(any, any) (int, error)
	// Comparable returns true if two values can be ordered against each
	// other by range operators.
	Comparable(any, any) bool
}

// Hasher hashes wire values. Values a [Comparer] considers equal must have
// the same hash.
type Hasher interface {
	Hash(any) (uint64, error)
}

// Getter represents a value that can be treated as undefined.
type Getter interface {
	// Get returns the value and a bool telling whether it is defined. A
	// missing key or an out of bounds index is undefined, an explicit nil
	// is not.
	Get() (value any, defined bool)
}

// GetSetter represents an address inside a wire document, returned by
// [FieldNavigator]. It is not concurrency safe.
type GetSetter interface {
	Getter
	// Set will set a new value for the address.
	Set(any)
	// Unset removes the value from its parent document or list.
	Unset()
}

// FieldNavigator provides dotted path access to wire documents.
type FieldNavigator interface {
	// GetField returns every value reached by addr. The bool reports
	// whether a list was expanded on the way.
	GetField(doc any, addr ...string) ([]GetSetter, bool, error)
	// EnsureField works as GetField but creates missing documents.
	EnsureField(doc any, addr ...string) ([]GetSetter, error)
	// GetAddress splits a dotted path.
	GetAddress(field string) ([]string, error)
}

// Matcher evaluates wire filters against wire documents.
type Matcher interface {
	// SetQuery compiles a wire filter for the next calls to Match.
	SetQuery(filter M) error
	// Match returns true if the document matches the current filter.
	Match(doc M) (bool, error)
}

// Projector applies a wire projection to documents.
type Projector interface {
	Project(docs []M, projection M) ([]M, error)
}

// Modifier applies wire update documents.
type Modifier interface {
	// Modify returns a modified copy of doc.
	Modify(doc M, update M) (M, error)
}
