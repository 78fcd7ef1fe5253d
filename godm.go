// Package godm maps typed records onto a MongoDB-style document store.
//
// Schemas are declared in a [Registry]. A [RecordSet] over a schema builds
// filters, sorts and projections fluently, and each terminal method compiles
// them into wire documents sent to a [Driver] in exactly one call. Rows come
// back as [Record] values, whose references can be resolved concurrently.
//
// Two drivers are available: [NewMemDriver] keeps everything in memory and
// the mongodriver package talks to a MongoDB server.
package godm

import (
	"context"

	"github.com/vinicius-lino-figueiredo/godm/adapter/memdriver"
	"github.com/vinicius-lino-figueiredo/godm/adapter/mongodriver"
	"github.com/vinicius-lino-figueiredo/godm/adapter/query"
	"github.com/vinicius-lino-figueiredo/godm/adapter/record"
	"github.com/vinicius-lino-figueiredo/godm/adapter/recordset"
	"github.com/vinicius-lino-figueiredo/godm/adapter/schema"
	"github.com/vinicius-lino-figueiredo/godm/domain"
)

var (
	// ErrNotFound is returned by [RecordSet.Get] and [RecordSet.GetBy]
	// when no record matches.
	ErrNotFound = domain.ErrNotFound
	// ErrPartlyLoaded is returned when saving a record fetched with a
	// restricting projection.
	ErrPartlyLoaded = domain.ErrPartlyLoaded
	// ErrCursorClosed is returned when trying to perform operations on a
	// closed [Cursor].
	ErrCursorClosed = domain.ErrCursorClosed
	// ErrScanBeforeNext is returned when calling [Cursor.Scan] before
	// calling [Cursor.Next].
	ErrScanBeforeNext = domain.ErrScanBeforeNext
	// ErrTargetNil is returned when a nil target is given to a scan.
	ErrTargetNil = domain.ErrTargetNil
	// ErrNoID is returned when deleting a record that was never saved.
	ErrNoID = domain.ErrNoID
	// ErrAggregationUnsupported is returned when aggregating over a driver
	// that cannot run pipelines.
	ErrAggregationUnsupported = domain.ErrAggregationUnsupported
	// ErrIndexUnsupported is returned when creating indexes on a driver
	// that has none.
	ErrIndexUnsupported = domain.ErrIndexUnsupported
)

// ErrSchema is returned when a schema cannot be declared.
type ErrSchema = domain.ErrSchema

// ErrValidation is returned before any I/O when a record holds an empty
// required field or a value its type rejects.
type ErrValidation = domain.ErrValidation

// ErrInvalidFilter is returned when a filter, sort or projection cannot be
// compiled.
type ErrInvalidFilter = domain.ErrInvalidFilter

// ErrUnknownField is returned when a name does not belong to a closed
// schema.
type ErrUnknownField = domain.ErrUnknownField

// ErrLoadReferencesRequired is returned when reading a reference that was
// fetched lazily and never resolved.
type ErrLoadReferencesRequired = domain.ErrLoadReferencesRequired

// ErrUniqueViolation is returned when a write breaks a unique index.
type ErrUniqueViolation = domain.ErrUniqueViolation

// M is a wire document.
type M = domain.M

// A is a wire list.
type A = domain.A

// Sort represents an ordered list of fields which should be used, respectively,
// to sort the results of a query.
type Sort = domain.Sort

// SortName represents a single field and the order which should be used to sort
// it, a positive value meaning ascending order and a negative value meaning
// descending order.
type SortName = domain.SortName

// Driver is the document store godm talks to.
type Driver = domain.Driver

// Cursor provides iteration over driver results.
type Cursor = domain.Cursor

// FieldType is the contract of every field kind.
type FieldType = domain.FieldType

// Registry builds and keeps schemas by name.
type Registry = schema.Registry

// Schema describes the fields of a record kind.
type Schema = schema.Schema

// Record is one typed document.
type Record = record.Record

// RecordSet is a lazily compiled query over the records of a schema.
type RecordSet = recordset.RecordSet

// Node is a filter expression.
type Node = query.Node

// NewRegistry returns an empty [Registry].
func NewRegistry() *Registry {
	return schema.NewRegistry()
}

// NewMemDriver returns an in-memory driver. See the memdriver package for
// its options.
func NewMemDriver(options ...memdriver.Option) *memdriver.MemDriver {
	return memdriver.NewMemDriver(options...)
}

// ConnectMongo loads the connection settings from the environment variables
// with the [mongodriver.DefaultPrefix] prefix and connects to the server.
func ConnectMongo(ctx context.Context, options ...mongodriver.Option) (*mongodriver.Driver, error) {
	cfg, err := mongodriver.LoadConfig(mongodriver.DefaultPrefix, "")
	if err != nil {
		return nil, err
	}
	return mongodriver.Connect(ctx, cfg, options...)
}

// Records returns the set of every record of s stored through driver.
func Records(driver Driver, s *Schema, options ...recordset.Option) *RecordSet {
	return recordset.New(driver, s, options...)
}

// Q builds a filter from lookup keys such as "name__icontains" or
// "author__name".
func Q(lookups map[string]any) Node {
	return query.Q(lookups)
}
