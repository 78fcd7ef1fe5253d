package schema

import (
	"reflect"

	"github.com/vinicius-lino-figueiredo/godm/domain"
)

// Field describes one declared field of a [Schema]. It is immutable once the
// schema is declared.
type Field struct {
	name        string
	wireName    string
	typ         domain.FieldType
	required    bool
	dflt        any
	hasDefault  bool
	defaultFunc func() any
	unique      bool
	sparse      bool
	order       uint64
}

// NewField returns a field descriptor named name, of type typ. The wire name is
// the logical name unless [WithWireName] is given.
func NewField(name string, typ domain.FieldType, options ...FieldOption) *Field {
	f := &Field{name: name, wireName: name, typ: typ}
	for _, option := range options {
		option(f)
	}
	return f
}

// Name returns the logical name.
func (f *Field) Name() string { return f.name }

// WireName returns the name used in wire documents.
func (f *Field) WireName() string { return f.wireName }

// Type returns the field type.
func (f *Field) Type() domain.FieldType { return f.typ }

// Kind returns the kind of the field type.
func (f *Field) Kind() domain.Kind { return f.typ.Kind() }

// Required reports whether empty values are rejected by validation.
func (f *Field) Required() bool { return f.required }

// Unique reports whether a unique index should exist for this field.
func (f *Field) Unique() bool { return f.unique }

// Sparse reports whether the index of this field skips missing values.
func (f *Field) Sparse() bool { return f.sparse }

// Order returns the creation order stamped by the [Registry].
func (f *Field) Order() uint64 { return f.order }

// Default returns a fresh default value. Factories are called on every call,
// so records never share a default.
func (f *Field) Default() (any, bool) {
	if f.defaultFunc != nil {
		return f.defaultFunc(), true
	}
	return f.dflt, f.hasDefault
}

// ItemType returns the item type of list fields.
func (f *Field) ItemType() (domain.FieldType, bool) {
	it, ok := f.typ.(domain.ItemTyper)
	if !ok {
		return nil, false
	}
	return it.ItemType(), true
}

// Embedded returns the schema of an embedded field, or of the items of a list
// of embedded documents.
func (f *Field) Embedded() (*Schema, bool) {
	return embeddedOf(f.typ)
}

// Target returns the referenced schema of a reference field, or of the items
// of a list of references.
func (f *Field) Target() (*Schema, bool) {
	return targetOf(f.typ)
}

func (f *Field) stamp(order uint64) *Field {
	cp := *f
	cp.order = order
	return &cp
}

// sameAs compares everything but the creation order. Types are compared by
// value, and default factories can only be told apart by presence.
func (f *Field) sameAs(other *Field) bool {
	if f == nil || other == nil || f.typ == nil || other.typ == nil {
		return false
	}
	return f.name == other.name &&
		f.wireName == other.wireName &&
		f.required == other.required &&
		f.unique == other.unique &&
		f.sparse == other.sparse &&
		f.hasDefault == other.hasDefault &&
		(f.defaultFunc == nil) == (other.defaultFunc == nil) &&
		reflect.DeepEqual(f.dflt, other.dflt) &&
		reflect.DeepEqual(f.typ, other.typ)
}

// Embedder is implemented by field types holding documents of another schema.
type Embedder interface {
	EmbeddedSchema() *Schema
}

// Referrer is implemented by field types pointing at records of another
// schema.
type Referrer interface {
	TargetSchema() *Schema
}

func embeddedOf(t domain.FieldType) (*Schema, bool) {
	switch t.Kind() {
	case domain.KindEmbedded:
		if e, ok := t.(Embedder); ok {
			return e.EmbeddedSchema(), true
		}
	case domain.KindList:
		if it, ok := t.(domain.ItemTyper); ok {
			return embeddedOf(it.ItemType())
		}
	}
	return nil, false
}

func targetOf(t domain.FieldType) (*Schema, bool) {
	switch t.Kind() {
	case domain.KindReference:
		if r, ok := t.(Referrer); ok {
			return r.TargetSchema(), true
		}
	case domain.KindList:
		if it, ok := t.(domain.ItemTyper); ok {
			return targetOf(it.ItemType())
		}
	}
	return nil, false
}
