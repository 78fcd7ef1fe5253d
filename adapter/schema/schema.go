// Package schema contains the schema registry: the ordered, typed field tables
// of every record type, merged across inheritance and built once.
package schema

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/vinicius-lino-figueiredo/godm/domain"
)

// Schema is the declared field contract of a record type. It is immutable and
// safe to share between goroutines.
type Schema struct {
	name       string
	collection string
	own        []*Field
	bases      []*Schema
	fields     []*Field
	byName     map[string]*Field
	byWire     map[string]*Field
	lazy       bool
	open       bool
}

// Name returns the record type name.
func (s *Schema) Name() string { return s.name }

// Collection returns the collection records are stored in.
func (s *Schema) Collection() string { return s.collection }

// Lazy reports whether references must be loaded explicitly before being
// read.
func (s *Schema) Lazy() bool { return s.lazy }

// Open reports whether undeclared keys are kept as dynamic fields.
func (s *Schema) Open() bool { return s.open }

// Bases returns the direct bases, in the order they were given.
func (s *Schema) Bases() []*Schema { return slices.Clone(s.bases) }

// Fields returns every field, inherited ones first, in declaration order.
func (s *Schema) Fields() []*Field { return slices.Clone(s.fields) }

// Field looks a field up by its logical name.
func (s *Schema) Field(name string) (*Field, bool) {
	f, ok := s.byName[name]
	return f, ok
}

// FieldByWire looks a field up by its wire name.
func (s *Schema) FieldByWire(wire string) (*Field, bool) {
	f, ok := s.byWire[wire]
	return f, ok
}

func (s *Schema) lookup(name string) (*Field, bool) {
	if f, ok := s.byName[name]; ok {
		return f, true
	}
	return s.FieldByWire(name)
}

// IsA reports whether s is other or inherits from it.
func (s *Schema) IsA(other *Schema) bool {
	if s == other {
		return true
	}
	for _, b := range s.bases {
		if b.IsA(other) {
			return true
		}
	}
	return false
}

// Indexes returns one index model for each unique field.
func (s *Schema) Indexes() []domain.IndexModel {
	var res []domain.IndexModel
	for _, f := range s.fields {
		if !f.unique {
			continue
		}
		res = append(res, domain.IndexModel{
			Name:   f.wireName + "_1",
			Keys:   domain.Sort{{Key: f.wireName, Order: domain.Ascending}},
			Unique: true,
			Sparse: f.sparse,
		})
	}
	return res
}

// Path is a field path resolved against a schema.
type Path struct {
	// Wire is the dotted wire path.
	Wire string
	// Field is the last declared field reached. It is nil for the id and
	// for dynamic paths.
	Field *Field
	// Type is the type of the values found at Wire. It differs from the
	// type of Field when the path ends at a list index.
	Type domain.FieldType
	// Rest holds the logical remainder of a path continuing past a
	// reference field, in which case Field is that reference.
	Rest string
	// Dynamic is set when part of the path is not declared.
	Dynamic bool
}

// Resolve maps a dotted logical path to its wire path, walking embedded
// documents and lists of embedded documents. "id" and "_id" name the record
// id. Numeric segments after a list address its items. Undeclared names are
// accepted as dynamic in open schemas and after dynamic fields.
func (s *Schema) Resolve(path string) (Path, error) {
	invalid := func(reason string, args ...any) error {
		return domain.ErrInvalidFilter{Filter: path, Reason: fmt.Sprintf(reason, args...)}
	}

	segs := strings.Split(path, ".")
	wire := make([]string, 0, len(segs))
	var res Path

	cur := s
	var typ domain.FieldType
	passthrough := false

walk:
	for i := 0; i < len(segs); i++ {
		seg := segs[i]
		if seg == "" {
			return Path{}, invalid("empty path segment")
		}
		if passthrough {
			wire = append(wire, seg)
			continue
		}
		if cur == nil {
			switch typ.Kind() {
			case domain.KindList:
				it, ok := typ.(domain.ItemTyper)
				if !ok {
					return Path{}, invalid("%q has no item type", segs[i-1])
				}
				typ = it.ItemType()
				if isIndex(seg) {
					wire = append(wire, seg)
					res.Type = typ
					continue
				}
				i--
			case domain.KindEmbedded:
				sch, ok := embeddedOf(typ)
				if !ok {
					return Path{}, invalid("%q has no embedded schema", segs[i-1])
				}
				cur = sch
				i--
			case domain.KindReference:
				res.Rest = strings.Join(segs[i:], ".")
				break walk
			case domain.KindDynamic:
				passthrough = true
				res.Dynamic = true
				i--
			default:
				return Path{}, invalid("%q cannot hold sub-fields", segs[i-1])
			}
			continue
		}

		if i == 0 && (seg == "id" || seg == domain.IDField) {
			wire = append(wire, domain.IDField)
			passthrough = true
			continue
		}
		f, ok := cur.lookup(seg)
		if !ok {
			if !cur.open {
				return Path{}, invalid("%q has no field %q", cur.name, seg)
			}
			wire = append(wire, seg)
			passthrough = true
			res.Dynamic = true
			res.Field = nil
			res.Type = nil
			continue
		}
		wire = append(wire, f.wireName)
		res.Field = f
		res.Type = f.typ
		typ = f.typ
		cur = nil
	}

	res.Wire = strings.Join(wire, ".")
	if passthrough {
		res.Field = nil
		res.Type = nil
	}
	return res, nil
}

func isIndex(seg string) bool {
	n, err := strconv.Atoi(seg)
	return err == nil && n >= 0
}

// Registry builds and keeps schemas by name.
type Registry struct {
	mu      sync.RWMutex
	schemas map[string]*Schema
	order   uint64
}

// NewRegistry returns an empty [Registry].
func NewRegistry() *Registry {
	return &Registry{schemas: make(map[string]*Schema)}
}

// Declare builds the schema named name. Own fields get a creation order
// stamped in the order they are given, and inherited fields come first. A
// wire name used twice, own or inherited, fails with [domain.ErrSchema].
// Declaring an existing name again returns the schema already built when the
// declaration is the same, and fails otherwise.
func (r *Registry) Declare(name string, options ...Option) (*Schema, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if name == "" {
		return nil, domain.ErrSchema{Reason: "empty schema name"}
	}

	s := &Schema{name: name, collection: name, lazy: true}
	for _, option := range options {
		option(s)
	}

	if prev, ok := r.schemas[name]; ok {
		if !prev.sameDeclaration(s) {
			return nil, domain.ErrSchema{Schema: name, Reason: "schema already declared"}
		}
		return prev, nil
	}

	order := r.order
	for n, f := range s.own {
		if f == nil || f.typ == nil {
			return nil, domain.ErrSchema{Schema: name, Reason: "field without type"}
		}
		if f.name == "" || f.wireName == "" {
			return nil, domain.ErrSchema{Schema: name, Reason: "empty field name"}
		}
		s.own[n] = f.stamp(order)
		order++
	}

	for _, b := range linearize(s.bases) {
		s.fields = append(s.fields, b.own...)
	}
	s.fields = append(s.fields, s.own...)

	if err := s.index(); err != nil {
		return nil, err
	}

	r.order = order
	r.schemas[name] = s
	return s, nil
}

// sameDeclaration reports whether other, not yet built, declares what s was
// built from.
func (s *Schema) sameDeclaration(other *Schema) bool {
	if s.collection != other.collection || s.lazy != other.lazy || s.open != other.open {
		return false
	}
	if !slices.Equal(s.bases, other.bases) {
		return false
	}
	return slices.EqualFunc(s.own, other.own, (*Field).sameAs)
}

// MustDeclare is like [Registry.Declare] but panics on error. It is meant for
// package level declarations.
func (r *Registry) MustDeclare(name string, options ...Option) *Schema {
	s, err := r.Declare(name, options...)
	if err != nil {
		panic(err)
	}
	return s
}

// Get returns the schema declared as name.
func (r *Registry) Get(name string) (*Schema, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.schemas[name]
	return s, ok
}

func (s *Schema) index() error {
	s.byName = make(map[string]*Field, len(s.fields))
	s.byWire = make(map[string]*Field, len(s.fields))
	var dupWire, dupName []string
	for _, f := range s.fields {
		if _, ok := s.byWire[f.wireName]; ok || f.wireName == domain.IDField {
			dupWire = append(dupWire, f.wireName)
		}
		if _, ok := s.byName[f.name]; ok {
			dupName = append(dupName, f.name)
		}
		s.byWire[f.wireName] = f
		s.byName[f.name] = f
	}
	if len(dupWire) > 0 {
		return domain.ErrSchema{Schema: s.name, Fields: dupWire, Reason: "duplicate wire name"}
	}
	if len(dupName) > 0 {
		return domain.ErrSchema{Schema: s.name, Fields: dupName, Reason: "duplicate field name"}
	}
	return nil
}

// linearize flattens the base graph depth first, each base after its own
// bases, keeping the first occurrence of every schema.
func linearize(bases []*Schema) []*Schema {
	var res []*Schema
	seen := make(map[*Schema]bool)
	var visit func(*Schema)
	visit = func(b *Schema) {
		for _, bb := range b.bases {
			visit(bb)
		}
		if !seen[b] {
			seen[b] = true
			res = append(res, b)
		}
	}
	for _, b := range bases {
		visit(b)
	}
	return res
}
