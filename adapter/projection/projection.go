// Package projection contains the combinable field projection directives used
// by record sets and their compilation into wire projection documents.
//
// A [Spec] is built by merging directives left to right:
//
//	spec := projection.Only("name", "email").
//		Merge(projection.Exclude("email")).
//		Merge(projection.Slice("numbers", 10))
//
// Merging never changes its operands.
package projection

import (
	"maps"
	"slices"
	"strings"

	"github.com/vinicius-lino-figueiredo/godm/adapter/schema"
	"github.com/vinicius-lino-figueiredo/godm/domain"
)

// Mode tells whether the fields of a spec are included or excluded.
type Mode int8

// Projection modes, valued as in the wire grammar.
const (
	ModeExclude Mode = 0
	ModeInclude Mode = 1
)

// Spec is a set of projection directives. The zero value restricts nothing.
type Spec struct {
	mode       Mode
	fields     map[string]struct{}
	slices     map[string]any
	always     map[string]struct{}
	bound      any
	id         *Mode
	onlyCalled bool
}

// Only returns a directive including fields. Merging two Only directives
// keeps the fields of both.
func Only(fields ...string) Spec {
	return Spec{mode: ModeInclude, fields: set(fields), onlyCalled: true}
}

// Include returns a directive including fields. Unlike [Only], merging
// another inclusion into it replaces its fields.
func Include(fields ...string) Spec {
	return Spec{mode: ModeInclude, fields: set(fields)}
}

// Exclude returns a directive excluding fields. Exclusion matches exact paths
// only, so excluding "name" leaves "name.first" untouched.
func Exclude(fields ...string) Spec {
	return Spec{mode: ModeExclude, fields: set(fields)}
}

// Slice returns a directive limiting the list at field to its first count
// items, or its last -count items when count is negative.
func Slice(field string, count int) Spec {
	return Spec{mode: ModeInclude, fields: set([]string{field}), bound: count}
}

// SliceRange returns a directive limiting the list at field to count items
// after skipping skip of them. A negative skip counts from the end.
func SliceRange(field string, skip, count int) Spec {
	return Spec{mode: ModeInclude, fields: set([]string{field}), bound: []any{skip, count}}
}

// AlwaysInclude returns a spec whose fields are added to every inclusion
// merged into it, or removed from every exclusion.
func AlwaysInclude(fields ...string) Spec {
	return Spec{mode: ModeInclude, always: set(fields)}
}

func set(fields []string) map[string]struct{} {
	res := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if f == "id" {
			f = domain.IDField
		}
		res[f] = struct{}{}
	}
	return res
}

func (s Spec) clone() Spec {
	res := s
	res.fields = maps.Clone(s.fields)
	res.slices = maps.Clone(s.slices)
	res.always = maps.Clone(s.always)
	if s.id != nil {
		id := *s.id
		res.id = &id
	}
	if res.fields == nil {
		res.fields = make(map[string]struct{})
	}
	if res.slices == nil {
		res.slices = make(map[string]any)
	}
	return res
}

// Merge returns the combination of s followed by f.
func (s Spec) Merge(f Spec) Spec {
	res := s.clone()

	if len(f.fields) == 0 && f.bound == nil {
		for k := range f.always {
			if res.always == nil {
				res.always = make(map[string]struct{})
			}
			res.always[k] = struct{}{}
		}
		res.applyAlways()
		return res
	}

	switch {
	case f.bound != nil:
		for k := range f.fields {
			res.slices[k] = f.bound
		}
		if len(res.fields) == 0 {
			res.fields = maps.Clone(f.fields)
			res.mode = ModeInclude
		}
	case len(res.fields) == 0:
		res.fields = maps.Clone(f.fields)
		res.mode = f.mode
		res.slices = make(map[string]any)
	case res.mode == ModeInclude && f.mode == ModeInclude:
		res.cleanSlices()
		if res.onlyCalled {
			maps.Copy(res.fields, f.fields)
		} else {
			res.fields = maps.Clone(f.fields)
		}
	case res.mode == ModeExclude && f.mode == ModeExclude:
		maps.Copy(res.fields, f.fields)
		res.cleanSlices()
	case res.mode == ModeInclude && f.mode == ModeExclude:
		for k := range f.fields {
			delete(res.fields, k)
		}
		res.cleanSlices()
	case res.mode == ModeExclude && f.mode == ModeInclude:
		fields := make(map[string]struct{}, len(f.fields))
		for k := range f.fields {
			if _, ok := res.fields[k]; !ok {
				fields[k] = struct{}{}
			}
		}
		res.mode = ModeInclude
		res.fields = fields
		res.cleanSlices()
	}

	if _, ok := f.fields[domain.IDField]; ok && f.bound == nil {
		mode := f.mode
		res.id = &mode
	}

	res.applyAlways()

	if f.onlyCalled {
		res.onlyCalled = true
	}
	return res
}

// applyAlways adds the always included fields to an inclusion, unless it only
// holds slices, and removes them from anything else.
func (s *Spec) applyAlways() {
	if len(s.always) == 0 {
		return
	}
	if s.mode == ModeInclude && len(s.fields) > 0 {
		if !sameKeys(s.slices, s.fields) {
			maps.Copy(s.fields, s.always)
		}
		return
	}
	for k := range s.always {
		delete(s.fields, k)
	}
}

func (s *Spec) cleanSlices() {
	for k := range s.slices {
		if _, ok := s.fields[k]; !ok {
			delete(s.slices, k)
		}
	}
}

func sameKeys(a map[string]any, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}

// Reset drops every directive but the always included fields.
func (s Spec) Reset() Spec {
	return Spec{mode: ModeInclude, always: maps.Clone(s.always)}
}

// Restricts reports whether rows fetched with s may miss fields.
func (s Spec) Restricts() bool {
	return len(s.fields) > 0
}

// Mode returns the current mode of s.
func (s Spec) Mode() Mode { return s.mode }

// Fields returns the logical paths of s, sorted.
func (s Spec) Fields() []string {
	return slices.Sorted(maps.Keys(s.fields))
}

// Document returns s as a projection document keyed by logical paths, or nil
// when s restricts nothing.
func (s Spec) Document() domain.M {
	doc := make(domain.M, len(s.fields)+len(s.slices)+1)
	for k := range s.fields {
		doc[k] = int(s.mode)
	}
	for k, b := range s.slices {
		doc[k] = domain.M{"$slice": b}
	}
	if s.id != nil {
		doc[domain.IDField] = int(*s.id)
	}
	if len(doc) == 0 {
		return nil
	}
	return doc
}

// Compile maps the logical paths of s to wire paths of records of sch and
// returns the wire projection, nil when nothing is restricted. Paths
// continuing past a reference field are not sent to the store: the reference
// itself is kept and the remainders are compiled against the referenced
// schema into the returned sub-projections, keyed by the logical path of the
// reference.
func (s Spec) Compile(sch *schema.Schema) (domain.M, map[string]domain.M, error) {
	doc := make(domain.M, len(s.fields)+len(s.slices)+1)
	var rests map[string][]string
	targets := make(map[string]*schema.Schema)

	for _, k := range s.Fields() {
		path, err := sch.Resolve(k)
		if err != nil {
			return nil, nil, err
		}
		if path.Rest == "" {
			doc[path.Wire] = int(s.mode)
			continue
		}
		prefix := strings.TrimSuffix(k, "."+path.Rest)
		if s.mode == ModeInclude {
			doc[path.Wire] = int(ModeInclude)
		}
		if rests == nil {
			rests = make(map[string][]string)
		}
		rests[prefix] = append(rests[prefix], path.Rest)
		targets[prefix], _ = path.Field.Target()
	}

	for _, k := range slices.Sorted(maps.Keys(s.slices)) {
		path, err := sch.Resolve(k)
		if err != nil {
			return nil, nil, err
		}
		doc[path.Wire] = domain.M{"$slice": s.slices[k]}
	}
	if s.id != nil {
		doc[domain.IDField] = int(*s.id)
	}

	var refs map[string]domain.M
	for prefix, paths := range rests {
		target := targets[prefix]
		if target == nil {
			continue
		}
		sub, _, err := Spec{mode: s.mode, fields: set(paths)}.Compile(target)
		if err != nil {
			return nil, nil, err
		}
		if refs == nil {
			refs = make(map[string]domain.M, len(rests))
		}
		refs[prefix] = sub
	}

	if len(doc) == 0 {
		doc = nil
	}
	return doc, refs, nil
}
