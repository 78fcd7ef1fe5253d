// Package fieldnavigator resolves dotted paths inside wire documents. A path
// part that is not a number, applied to a list, is applied to every item of
// the list instead, which is how the document store matches "tags.name"
// against a list of embedded documents.
package fieldnavigator

import (
	"strconv"
	"strings"

	"github.com/vinicius-lino-figueiredo/godm/domain"
)

// FieldNavigator implements [domain.FieldNavigator].
type FieldNavigator struct{}

// NewFieldNavigator returns a new instance of [domain.FieldNavigator].
func NewFieldNavigator() domain.FieldNavigator {
	return &FieldNavigator{}
}

// GetAddress implements [domain.FieldNavigator].
func (fn *FieldNavigator) GetAddress(field string) ([]string, error) {
	parts := strings.Split(field, ".")
	for _, part := range parts {
		if part == "" {
			return nil, domain.ErrFieldPath{Path: field, Reason: "empty path part"}
		}
	}
	return parts, nil
}

// GetField implements [domain.FieldNavigator]. A path that cannot be followed
// results in a single undefined value.
func (fn *FieldNavigator) GetField(obj any, fieldParts ...string) ([]domain.GetSetter, bool, error) {
	if obj == nil || len(fieldParts) == 0 {
		return []domain.GetSetter{NewGetSetterEmpty()}, false, nil
	}
	w := walker{}
	w.get(obj, fieldParts, nil, true)
	if len(w.res) == 0 {
		w.res = append(w.res, NewGetSetterEmpty())
	}
	return w.res, w.expanded, nil
}

// EnsureField implements [domain.FieldNavigator]. Missing documents along the
// path are created and lists are grown up to a numeric part. Paths that go
// through lists without an index, or through scalar values, are rejected.
func (fn *FieldNavigator) EnsureField(obj any, fieldParts ...string) ([]domain.GetSetter, error) {
	doc, ok := obj.(domain.M)
	if !ok || len(fieldParts) == 0 {
		return nil, domain.ErrFieldPath{Path: strings.Join(fieldParts, "."), Reason: "not a document"}
	}

	var gs domain.GetSetter
	var curr any = doc
	for n, part := range fieldParts {
		last := n == len(fieldParts)-1
		switch t := curr.(type) {
		case domain.M:
			if _, ok := t[part]; !ok || (!last && t[part] == nil) {
				if last {
					t[part] = nil
				} else {
					t[part] = domain.M{}
				}
			}
			gs = NewGetSetterWithDoc(t, part)
			curr = t[part]
		case []any:
			i, err := strconv.Atoi(part)
			if err != nil || i < 0 {
				return nil, domain.ErrFieldPath{Path: part, Reason: "list items can only be reached by index"}
			}
			if i >= len(t) {
				grown := make([]any, i+1)
				copy(grown, t)
				gs.Set(grown)
				t = grown
			}
			if t[i] == nil && !last {
				t[i] = domain.M{}
			}
			gs = NewGetSetterWithArrayIndex(t, i)
			curr = t[i]
		default:
			return nil, domain.ErrFieldPath{Path: part, Reason: "value cannot hold fields"}
		}
	}
	return []domain.GetSetter{gs}, nil
}

type walker struct {
	res      []domain.GetSetter
	expanded bool
}

// get follows parts from v, reached through gs. Items of an expanded list
// are not expandable themselves.
func (w *walker) get(v any, parts []string, gs domain.GetSetter, expandable bool) {
	if len(parts) == 0 {
		w.res = append(w.res, gs)
		return
	}
	part, rest := parts[0], parts[1:]

	switch t := v.(type) {
	case domain.M:
		item, ok := t[part]
		if !ok {
			w.res = append(w.res, NewGetSetterWithDoc(t, part))
			return
		}
		w.get(item, rest, NewGetSetterWithDoc(t, part), true)
	case []any:
		if i, err := strconv.Atoi(part); err == nil {
			if i < 0 || i >= len(t) {
				w.res = append(w.res, NewGetSetterEmpty())
				return
			}
			w.get(t[i], rest, NewGetSetterWithArrayIndex(t, i), true)
			return
		}
		if !expandable {
			w.res = append(w.res, NewGetSetterEmpty())
			return
		}
		w.expanded = true
		for _, item := range t {
			w.get(item, parts, NewGetSetterEmpty(), false)
		}
	default:
		w.res = append(w.res, NewGetSetterEmpty())
	}
}
