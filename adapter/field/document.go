package field

import (
	"github.com/vinicius-lino-figueiredo/godm/adapter/record"
	"github.com/vinicius-lino-figueiredo/godm/adapter/schema"
	"github.com/vinicius-lino-figueiredo/godm/domain"
	"github.com/vinicius-lino-figueiredo/godm/pkg/structure"
)

func encodeAny(v any) (any, error) {
	return record.EncodeDynamic(v)
}

// List implements [domain.FieldType] for lists whose items share a type.
type List struct {
	item domain.FieldType
}

// NewList returns a [List] field type of items of type item.
func NewList(item domain.FieldType) *List {
	return &List{item: item}
}

// Kind implements [domain.FieldType].
func (l *List) Kind() domain.Kind { return domain.KindList }

// ItemType implements [domain.ItemTyper].
func (l *List) ItemType() domain.FieldType { return l.item }

// IsEmpty implements [domain.FieldType].
func (l *List) IsEmpty(v any) bool {
	items, ok := structure.List(v)
	return !ok || len(items) == 0
}

// Validate implements [domain.FieldType].
func (l *List) Validate(v any) bool {
	if v == nil {
		return true
	}
	items, ok := structure.List(v)
	if !ok {
		return false
	}
	for _, item := range items {
		if !l.item.Validate(item) {
			return false
		}
	}
	return true
}

// Encode implements [domain.FieldType].
func (l *List) Encode(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	items, ok := structure.List(v)
	if !ok {
		return nil, domain.ErrEncode{Value: v, Type: "list"}
	}
	res := make([]any, len(items))
	for n, item := range items {
		enc, err := l.item.Encode(item)
		if err != nil {
			return nil, err
		}
		res[n] = enc
	}
	return res, nil
}

// Decode implements [domain.FieldType].
func (l *List) Decode(w any) (any, error) {
	if w == nil {
		return nil, nil
	}
	items, ok := structure.List(w)
	if !ok {
		return nil, domain.ErrDecode{Source: w, Target: []any{}}
	}
	res := make([]any, len(items))
	for n, item := range items {
		dec, err := l.item.Decode(item)
		if err != nil {
			return nil, err
		}
		res[n] = dec
	}
	return res, nil
}

// Embedded implements [domain.FieldType] for documents of another schema
// stored inside the record. Values are records; plain maps are accepted and
// built into records.
type Embedded struct {
	schema *schema.Schema
}

// NewEmbedded returns an [Embedded] field type holding records of s.
func NewEmbedded(s *schema.Schema) *Embedded {
	return &Embedded{schema: s}
}

// Kind implements [domain.FieldType].
func (e *Embedded) Kind() domain.Kind { return domain.KindEmbedded }

// EmbeddedSchema implements [schema.Embedder].
func (e *Embedded) EmbeddedSchema() *schema.Schema { return e.schema }

// IsEmpty implements [domain.FieldType].
func (e *Embedded) IsEmpty(v any) bool {
	rec, ok := v.(*record.Record)
	return v == nil || (ok && rec == nil)
}

// Validate implements [domain.FieldType].
func (e *Embedded) Validate(v any) bool {
	if v == nil {
		return true
	}
	rec, err := e.toRecord(v)
	return err == nil && rec.Validate() == nil
}

// Encode implements [domain.FieldType].
func (e *Embedded) Encode(v any) (any, error) {
	if e.IsEmpty(v) {
		return nil, nil
	}
	rec, err := e.toRecord(v)
	if err != nil {
		return nil, err
	}
	return rec.ToWire()
}

// Decode implements [domain.FieldType].
func (e *Embedded) Decode(w any) (any, error) {
	if w == nil {
		return nil, nil
	}
	doc, ok := structure.Map(w)
	if !ok {
		return nil, domain.ErrDecode{Source: w, Target: &record.Record{}}
	}
	return record.FromWire(e.schema, doc, false)
}

func (e *Embedded) toRecord(v any) (*record.Record, error) {
	switch t := v.(type) {
	case *record.Record:
		if t == nil {
			return nil, domain.ErrEncode{Value: v, Type: e.schema.Name()}
		}
		if !t.Schema().IsA(e.schema) {
			return nil, domain.ErrRecordType{Want: e.schema.Name(), Got: t.Schema().Name()}
		}
		return t, nil
	case domain.M:
		return record.New(e.schema, t)
	default:
		return nil, domain.ErrEncode{Value: v, Type: e.schema.Name()}
	}
}

// Reference implements [domain.FieldType] for links to records stored in
// another collection. Only the foreign id is stored. Values are either loaded
// records or [record.Ref] placeholders; decoding always yields a placeholder
// until the reference is resolved.
type Reference struct {
	target   *schema.Schema
	registry *schema.Registry
	name     string
}

// NewReference returns a [Reference] field type pointing at records of s.
func NewReference(s *schema.Schema) *Reference {
	return &Reference{target: s}
}

// NewReferenceTo returns a [Reference] field type pointing at the schema named
// name in reg, looked up on use. It allows schemas to reference themselves or
// schemas declared later.
func NewReferenceTo(reg *schema.Registry, name string) *Reference {
	return &Reference{registry: reg, name: name}
}

// Kind implements [domain.FieldType].
func (r *Reference) Kind() domain.Kind { return domain.KindReference }

// TargetSchema implements [schema.Referrer].
func (r *Reference) TargetSchema() *schema.Schema {
	if r.target != nil {
		return r.target
	}
	s, _ := r.registry.Get(r.name)
	return s
}

// IsEmpty implements [domain.FieldType].
func (r *Reference) IsEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case *record.Record:
		return t == nil
	case record.Ref:
		return t.ID == nil
	default:
		return false
	}
}

// Validate implements [domain.FieldType].
func (r *Reference) Validate(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case *record.Record:
		target := r.TargetSchema()
		return t != nil && t.ID() != nil && (target == nil || t.Schema().IsA(target))
	case record.Ref:
		return t.ID != nil
	default:
		return true
	}
}

// Encode implements [domain.FieldType].
func (r *Reference) Encode(v any) (any, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case *record.Record:
		if t == nil {
			return nil, nil
		}
		if t.ID() == nil {
			return nil, domain.ErrNoID
		}
		return t.ID(), nil
	case record.Ref:
		return t.ID, nil
	default:
		return v, nil
	}
}

// Decode implements [domain.FieldType].
func (r *Reference) Decode(w any) (any, error) {
	if w == nil {
		return nil, nil
	}
	return record.Ref{Schema: r.TargetSchema(), ID: w}, nil
}
