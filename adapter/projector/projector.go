// Package projector contains the default [domain.Projector] implementation,
// used by the in-memory driver to shape result rows.
package projector

import (
	"maps"
	"slices"

	"github.com/vinicius-lino-figueiredo/godm/adapter/fieldnavigator"
	"github.com/vinicius-lino-figueiredo/godm/domain"
	"github.com/vinicius-lino-figueiredo/godm/pkg/structure"
)

// node is a projection path tree. A leaf covers the whole value.
type node struct {
	leaf     bool
	children map[string]*node
}

func (n *node) add(addr []string) {
	for _, part := range addr {
		if n.leaf {
			return
		}
		if n.children == nil {
			n.children = make(map[string]*node)
		}
		child, ok := n.children[part]
		if !ok {
			child = &node{}
			n.children[part] = child
		}
		n = child
	}
	n.leaf = true
	n.children = nil
}

type slice struct {
	addr  []string
	skip  int
	limit int
	// last is true for a single negative count
	last bool
}

// Projector implements [domain.Projector].
type Projector struct {
	fn domain.FieldNavigator
}

// NewProjector returns a new implementation of [domain.Projector].
func NewProjector(options ...Option) domain.Projector {
	p := &Projector{fn: fieldnavigator.NewFieldNavigator()}
	for _, option := range options {
		option(p)
	}
	return p
}

// Project implements [domain.Projector]. Values are 1 or 0 (or booleans) and
// {"$slice": n} or {"$slice": [skip, n]}. Fields are either all kept or all
// omitted, except for _id, which is kept unless set to 0. Returned documents
// never share values with docs.
func (p *Projector) Project(docs []domain.M, projection domain.M) ([]domain.M, error) {
	res := make([]domain.M, len(docs))
	if len(projection) == 0 {
		for n, doc := range docs {
			res[n] = structure.CloneDoc(doc)
		}
		return res, nil
	}

	tree := &node{}
	var slcs []slice
	keepID, onlyID := true, false
	include, exclude := false, false

	// sorted so that errors do not depend on map order
	for _, field := range slices.Sorted(maps.Keys(projection)) {
		value := projection[field]
		addr, err := p.fn.GetAddress(field)
		if err != nil {
			return nil, err
		}
		if op, ok := value.(domain.M); ok {
			slc, err := p.slice(field, addr, op)
			if err != nil {
				return nil, err
			}
			slcs = append(slcs, slc)
			continue
		}
		keep, ok := p.truthy(value)
		if !ok {
			return nil, domain.ErrInvalidFilter{Filter: field, Reason: "projection values must be 0, 1 or $slice"}
		}
		if field == domain.IDField {
			keepID, onlyID = keep, keep
			continue
		}
		if keep {
			include = true
		} else {
			exclude = true
		}
		tree.add(addr)
	}
	// {_id: 1} alone keeps nothing else
	if onlyID && !exclude && len(slcs) == 0 {
		include = true
	}
	if include && exclude {
		return nil, domain.ErrInvalidFilter{Filter: "projection", Reason: "cannot both keep and omit fields except for _id"}
	}
	if include {
		for _, slc := range slcs {
			tree.add(slc.addr)
		}
	}

	for n, doc := range docs {
		var projected domain.M
		if include {
			projected = p.keep(doc, tree)
			if id, ok := doc[domain.IDField]; ok && keepID {
				projected[domain.IDField] = structure.Clone(id)
			}
		} else {
			projected = structure.CloneDoc(doc)
			p.omit(projected, tree)
			if !keepID {
				delete(projected, domain.IDField)
			}
		}
		for _, slc := range slcs {
			if err := p.applySlice(projected, slc); err != nil {
				return nil, err
			}
		}
		res[n] = projected
	}
	return res, nil
}

func (p *Projector) truthy(v any) (bool, bool) {
	if b, ok := v.(bool); ok {
		return b, true
	}
	if f, ok := structure.AsFloat64(v); ok {
		return f != 0, true
	}
	return false, false
}

func (p *Projector) slice(field string, addr []string, op domain.M) (slice, error) {
	invalid := domain.ErrInvalidFilter{Filter: field, Reason: "$slice expects a number or [skip, limit]"}
	arg, ok := op["$slice"]
	if !ok || len(op) != 1 {
		return slice{}, invalid
	}
	if n, ok := structure.AsInt64(arg); ok {
		if n < 0 {
			return slice{addr: addr, limit: int(-n), last: true}, nil
		}
		return slice{addr: addr, limit: int(n)}, nil
	}
	bounds, ok := structure.List(arg)
	if !ok || len(bounds) != 2 {
		return slice{}, invalid
	}
	skip, ok1 := structure.AsInt64(bounds[0])
	limit, ok2 := structure.AsInt64(bounds[1])
	if !ok1 || !ok2 || limit <= 0 {
		return slice{}, invalid
	}
	return slice{addr: addr, skip: int(skip), limit: int(limit)}, nil
}

func (p *Projector) applySlice(doc domain.M, slc slice) error {
	fields, _, err := p.fn.GetField(doc, slc.addr...)
	if err != nil {
		return err
	}
	for _, f := range fields {
		v, _ := f.Get()
		list, ok := v.([]any)
		if !ok {
			continue
		}
		f.Set(p.cut(list, slc))
	}
	return nil
}

func (p *Projector) cut(list []any, slc slice) []any {
	if slc.last {
		return list[max(0, len(list)-slc.limit):]
	}
	start := slc.skip
	if start < 0 {
		start = max(0, len(list)+start)
	}
	start = min(start, len(list))
	end := min(len(list), start+slc.limit)
	return list[start:end]
}

// keep copies the parts of doc covered by tree. Lists are walked item by
// item, and only document items are kept when the tree goes deeper.
func (p *Projector) keep(doc domain.M, tree *node) domain.M {
	res := domain.M{}
	for key, child := range tree.children {
		v, ok := doc[key]
		if !ok {
			continue
		}
		if child.leaf {
			res[key] = structure.Clone(v)
			continue
		}
		if kept, ok := p.keepValue(v, child); ok {
			res[key] = kept
		}
	}
	return res
}

func (p *Projector) keepValue(v any, tree *node) (any, bool) {
	switch t := v.(type) {
	case domain.M:
		return p.keep(t, tree), true
	case []any:
		res := make([]any, 0, len(t))
		for _, item := range t {
			if kept, ok := p.keepValue(item, tree); ok {
				res = append(res, kept)
			}
		}
		return res, true
	default:
		return nil, false
	}
}

// omit removes the parts of doc covered by tree, in place.
func (p *Projector) omit(doc domain.M, tree *node) {
	for key, child := range tree.children {
		if child.leaf {
			delete(doc, key)
			continue
		}
		p.omitValue(doc[key], child)
	}
}

func (p *Projector) omitValue(v any, tree *node) {
	switch t := v.(type) {
	case domain.M:
		p.omit(t, tree)
	case []any:
		for _, item := range t {
			p.omitValue(item, tree)
		}
	}
}
