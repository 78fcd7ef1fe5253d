// Package record contains schema-backed record instances. Values are kept by
// wire name and only reached through accessors that consult the schema.
package record

import (
	"slices"
	"sort"

	"github.com/vinicius-lino-figueiredo/godm/adapter/decoder"
	"github.com/vinicius-lino-figueiredo/godm/adapter/schema"
	"github.com/vinicius-lino-figueiredo/godm/domain"
	"github.com/vinicius-lino-figueiredo/godm/pkg/structure"
)

// Ref is an unresolved reference: the id of a record of Schema that was not
// loaded yet.
type Ref struct {
	Schema *schema.Schema
	ID     any
}

// Record is an instance of a [schema.Schema]. A record must not be changed
// from more than one goroutine at a time.
type Record struct {
	schema  *schema.Schema
	id      any
	values  map[string]any
	dynamic []string
	partly  bool
}

// New creates a record of s. Fields missing from values receive their
// defaults, factories being called once per record. Keys may be logical or
// wire names, "id" and "_id" set the id. Undeclared keys become dynamic fields
// in open schemas and fail with [domain.ErrUnknownField] otherwise.
func New(s *schema.Schema, values map[string]any) (*Record, error) {
	r := &Record{schema: s, values: make(map[string]any, len(values))}
	for _, f := range s.Fields() {
		if dflt, ok := f.Default(); ok {
			r.values[f.WireName()] = dflt
		}
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if err := r.Set(k, values[k]); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// FromWire builds a record of s from a wire row, decoding every declared
// field. partly marks records fetched with a restricting projection. Unknown
// keys are kept as dynamic fields by open schemas and ignored otherwise.
func FromWire(s *schema.Schema, row domain.M, partly bool) (*Record, error) {
	r := &Record{schema: s, values: make(map[string]any, len(row)), partly: partly}
	var dynamic []string
	for k, w := range row {
		if k == domain.IDField {
			r.id = w
			continue
		}
		f, ok := s.FieldByWire(k)
		if !ok {
			if s.Open() {
				r.values[k] = w
				dynamic = append(dynamic, k)
			}
			continue
		}
		v, err := f.Type().Decode(w)
		if err != nil {
			return nil, err
		}
		r.values[k] = v
	}
	sort.Strings(dynamic)
	r.dynamic = dynamic
	return r, nil
}

// Schema returns the schema of the record.
func (r *Record) Schema() *schema.Schema { return r.schema }

// ID returns the record id, nil until the record is inserted.
func (r *Record) ID() any { return r.id }

// SetID sets the record id.
func (r *Record) SetID(id any) { r.id = id }

// PartlyLoaded reports whether the record was fetched with a projection
// restricting its fields.
func (r *Record) PartlyLoaded() bool { return r.partly }

// DynamicFields returns the names of the undeclared fields of the record.
func (r *Record) DynamicFields() []string { return slices.Clone(r.dynamic) }

// Get returns the value of the field named name. Reading a reference that was
// not loaded yet from a record of a lazy schema fails with
// [domain.ErrLoadReferencesRequired].
func (r *Record) Get(name string) (any, error) {
	if name == "id" || name == domain.IDField {
		return r.id, nil
	}
	f, ok := r.field(name)
	if !ok {
		if v, ok := r.values[name]; ok && slices.Contains(r.dynamic, name) {
			return v, nil
		}
		return nil, domain.ErrUnknownField{Schema: r.schema.Name(), Field: name}
	}
	v := r.values[f.WireName()]
	if r.schema.Lazy() && Unresolved(f.Type(), v) {
		return nil, domain.ErrLoadReferencesRequired{Schema: r.schema.Name(), Field: f.Name()}
	}
	return v, nil
}

// Set changes the value of the field named name.
func (r *Record) Set(name string, v any) error {
	if name == "id" || name == domain.IDField {
		r.id = v
		return nil
	}
	if f, ok := r.field(name); ok {
		r.values[f.WireName()] = v
		return nil
	}
	if !r.schema.Open() {
		return domain.ErrUnknownField{Schema: r.schema.Name(), Field: name}
	}
	if !slices.Contains(r.dynamic, name) {
		r.dynamic = append(r.dynamic, name)
	}
	r.values[name] = v
	return nil
}

// Raw returns the value stored under a wire name without the reference check
// done by [Record.Get].
func (r *Record) Raw(wire string) (any, bool) {
	v, ok := r.values[wire]
	return v, ok
}

// SetRaw stores v under a wire name.
func (r *Record) SetRaw(wire string, v any) {
	r.values[wire] = v
}

func (r *Record) field(name string) (*schema.Field, bool) {
	if f, ok := r.schema.Field(name); ok {
		return f, true
	}
	return r.schema.FieldByWire(name)
}

// Validate checks every declared field in declaration order and returns a
// [domain.ErrValidation] for the first one that is required and empty or
// holds a value its type rejects.
func (r *Record) Validate() error {
	for _, f := range r.schema.Fields() {
		v := r.values[f.WireName()]
		if f.Required() && f.Type().IsEmpty(v) {
			return domain.ErrValidation{Schema: r.schema.Name(), Field: f.Name(), Required: true}
		}
		if !f.Type().Validate(v) {
			return domain.ErrValidation{Schema: r.schema.Name(), Field: f.Name(), Value: v}
		}
	}
	return nil
}

// ApplyAutoValues lets auto filled fields, such as timestamps, set their
// values before a write. insert tells whether the record is being created.
func (r *Record) ApplyAutoValues(insert bool) {
	for _, f := range r.schema.Fields() {
		av, ok := f.Type().(domain.AutoValuer)
		if !ok {
			continue
		}
		if v, ok := av.AutoValue(r.values[f.WireName()], insert); ok {
			r.values[f.WireName()] = v
		}
	}
}

// ToWire encodes the record into a wire document. Fields never set are left
// out.
func (r *Record) ToWire() (domain.M, error) {
	doc := make(domain.M, len(r.values)+1)
	if r.id != nil {
		doc[domain.IDField] = r.id
	}
	for _, f := range r.schema.Fields() {
		v, ok := r.values[f.WireName()]
		if !ok {
			continue
		}
		w, err := f.Type().Encode(v)
		if err != nil {
			return nil, err
		}
		doc[f.WireName()] = w
	}
	for _, k := range r.dynamic {
		w, err := EncodeDynamic(r.values[k])
		if err != nil {
			return nil, err
		}
		doc[k] = w
	}
	return doc, nil
}

// Map returns the record as a plain document keyed by logical names, with the
// id under both "_id" and "id". Embedded and loaded records are converted too
// and unresolved references become their ids.
func (r *Record) Map() domain.M {
	doc := make(domain.M, len(r.values)+2)
	if r.id != nil {
		doc[domain.IDField] = r.id
		doc["id"] = r.id
	}
	for _, f := range r.schema.Fields() {
		if v, ok := r.values[f.WireName()]; ok {
			doc[f.Name()] = plain(v)
		}
	}
	for _, k := range r.dynamic {
		doc[k] = plain(r.values[k])
	}
	return doc
}

func plain(v any) any {
	switch t := v.(type) {
	case *Record:
		if t == nil {
			return nil
		}
		return t.Map()
	case Ref:
		return t.ID
	case []any:
		res := make([]any, len(t))
		for n, item := range t {
			res[n] = plain(item)
		}
		return res
	default:
		return v
	}
}

// Scan decodes the record into target, a pointer to a struct or a map. Struct
// fields are matched by their `godm` tag or their name.
func (r *Record) Scan(target any) error {
	return decoder.NewDecoder().Decode(r, target)
}

// Unresolved reports whether v, held by a field of type t, contains a
// reference that was not loaded.
func Unresolved(t domain.FieldType, v any) bool {
	switch t.Kind() {
	case domain.KindReference:
		_, ok := v.(Ref)
		return ok
	case domain.KindList:
		it, ok := t.(domain.ItemTyper)
		if !ok {
			return false
		}
		items, ok := structure.List(v)
		if !ok {
			return false
		}
		for _, item := range items {
			if Unresolved(it.ItemType(), item) {
				return true
			}
		}
	}
	return false
}

// EncodeDynamic encodes a value without a declared type: records become
// documents, references their ids, and lists and documents are walked.
func EncodeDynamic(v any) (any, error) {
	switch t := v.(type) {
	case *Record:
		if t == nil {
			return nil, nil
		}
		return t.ToWire()
	case Ref:
		return t.ID, nil
	case []any:
		res := make([]any, len(t))
		for n, item := range t {
			enc, err := EncodeDynamic(item)
			if err != nil {
				return nil, err
			}
			res[n] = enc
		}
		return res, nil
	case domain.M:
		res := make(domain.M, len(t))
		for k, item := range t {
			enc, err := EncodeDynamic(item)
			if err != nil {
				return nil, err
			}
			res[k] = enc
		}
		return res, nil
	default:
		return v, nil
	}
}
