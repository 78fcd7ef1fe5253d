package domain

// M is a wire document: a filter, a projection, an update or a result row
// exchanged with the document store.
type M = map[string]any

// A is a wire list.
type A = []any

// IDField is the wire name of the document identifier.
const IDField = "_id"

// Sort represents an ordered list of fields which should be used to sort query
// results, applied in sequence.
type Sort = []SortName

// SortName represents a single field and the order which should be used to sort
// it. A positive Order value means ascending order and a negative value means
// descending order.
type SortName struct {
	Key   string
	Order int64
}

// Sort directions accepted by [SortName].
const (
	Ascending  int64 = 1
	Descending int64 = -1
)

// Kind classifies a field type by how the mapper has to walk its values.
type Kind uint8

// Supported field kinds.
const (
	KindScalar Kind = iota
	KindList
	KindEmbedded
	KindReference
	KindDynamic
)

// String implements [fmt.Stringer].
func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindList:
		return "list"
	case KindEmbedded:
		return "embedded"
	case KindReference:
		return "reference"
	case KindDynamic:
		return "dynamic"
	default:
		return "unknown"
	}
}

// UpdateResult holds the counters reported by [Driver.Update].
type UpdateResult struct {
	Matched  int64
	Modified int64
	// UpsertedID is the id of the document inserted by an upsert, nil
	// otherwise.
	UpsertedID any
}

// IndexModel describes an index that should exist in a collection.
type IndexModel struct {
	// Name is the index name. Drivers derive one from Keys when empty.
	Name string
	// Keys lists the indexed wire fields and their order.
	Keys Sort
	// Unique rejects two documents with the same key.
	Unique bool
	// Sparse skips documents that do not have the indexed fields.
	Sparse bool
}
