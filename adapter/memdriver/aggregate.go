package memdriver

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/vinicius-lino-figueiredo/godm/adapter/cursor"
	"github.com/vinicius-lino-figueiredo/godm/domain"
	"github.com/vinicius-lino-figueiredo/godm/pkg/structure"
	"github.com/vinicius-lino-figueiredo/godm/pkg/uncomparable"
)

// Aggregate implements [domain.Aggregator]. The supported stages are $match,
// $project, $sort, $skip, $limit, $unwind and $group. Group accumulators are
// $sum, $avg, $min, $max, $first, $last, $push and $addToSet.
func (d *MemDriver) Aggregate(ctx context.Context, name string, pipeline []domain.M) (domain.Cursor, error) {
	docs, err := d.snapshot(ctx, name)
	if err != nil {
		return nil, err
	}
	for n, stage := range pipeline {
		if len(stage) != 1 {
			return nil, domain.ErrInvalidFilter{
				Filter: fmt.Sprintf("stage %d", n),
				Reason: "a stage must have exactly one operator",
			}
		}
		for op, arg := range stage {
			if docs, err = d.stage(op, arg, docs); err != nil {
				return nil, err
			}
		}
	}
	d.logger.DebugContext(ctx, "aggregate", "collection", name, "stages", len(pipeline), "results", len(docs))
	return cursor.NewCursor(ctx, docs, cursor.WithDecoder(d.decoder))
}

// snapshot copies the documents of a collection.
func (d *MemDriver) snapshot(ctx context.Context, name string) ([]domain.M, error) {
	if err := d.lock.acquire(ctx); err != nil {
		return nil, err
	}
	defer d.lock.release()
	c, _ := d.collection(name, false)
	if c == nil {
		return nil, nil
	}
	docs := make([]domain.M, len(c.entries))
	for n, e := range c.entries {
		docs[n] = structure.CloneDoc(e.Doc)
	}
	return docs, nil
}

func invalidStage(op string, reason string, args ...any) error {
	return domain.ErrInvalidFilter{Filter: op, Reason: fmt.Sprintf(reason, args...)}
}

func (d *MemDriver) stage(op string, arg any, docs []domain.M) ([]domain.M, error) {
	switch op {
	case "$match":
		filter, ok := arg.(domain.M)
		if !ok {
			return nil, invalidStage(op, "expected a document, got %T", arg)
		}
		return d.matchDocs(docs, filter)
	case "$project":
		projection, ok := arg.(domain.M)
		if !ok {
			return nil, invalidStage(op, "expected a document, got %T", arg)
		}
		return d.projector.Project(docs, projection)
	case "$sort":
		sort, err := d.sortArg(arg)
		if err != nil {
			return nil, err
		}
		return d.newQuerier().Sort(docs, sort)
	case "$skip", "$limit":
		n, ok := structure.AsInt64(arg)
		if !ok || n < 0 {
			return nil, invalidStage(op, "expected a non negative integer, got %v", arg)
		}
		n = min(n, int64(len(docs)))
		if op == "$skip" {
			return docs[n:], nil
		}
		return docs[:n], nil
	case "$unwind":
		return d.unwind(arg, docs)
	case "$group":
		spec, ok := arg.(domain.M)
		if !ok {
			return nil, invalidStage(op, "expected a document, got %T", arg)
		}
		return d.group(spec, docs)
	default:
		return nil, invalidStage(op, "unknown stage")
	}
}

func (d *MemDriver) matchDocs(docs []domain.M, filter domain.M) ([]domain.M, error) {
	mtchr := d.newMatcher()
	if err := mtchr.SetQuery(filter); err != nil {
		return nil, err
	}
	res := make([]domain.M, 0, len(docs))
	for _, doc := range docs {
		ok, err := mtchr.Match(doc)
		if err != nil {
			return nil, err
		}
		if ok {
			res = append(res, doc)
		}
	}
	return res, nil
}

// sortArg reads a $sort argument. A document is only accepted with a single
// key, since its keys have no order.
func (d *MemDriver) sortArg(arg any) (domain.Sort, error) {
	switch t := arg.(type) {
	case domain.Sort:
		return t, nil
	case domain.M:
		if len(t) != 1 {
			return nil, invalidStage("$sort", "a document can only sort by one field, use domain.Sort")
		}
		for k, v := range t {
			order, ok := structure.AsInt64(v)
			if !ok || (order != 1 && order != -1) {
				return nil, invalidStage("$sort", "order must be 1 or -1, got %v", v)
			}
			return domain.Sort{{Key: k, Order: order}}, nil
		}
	}
	return nil, invalidStage("$sort", "unexpected argument %T", arg)
}

// fieldRef reads "$field" references.
func fieldRef(v any) (string, bool) {
	s, ok := v.(string)
	if !ok || !strings.HasPrefix(s, "$") || len(s) == 1 {
		return "", false
	}
	return s[1:], true
}

// unwind outputs one document per item of a list field. Documents where the
// field is missing, nil or an empty list are dropped. Other values are kept
// as they are.
func (d *MemDriver) unwind(arg any, docs []domain.M) ([]domain.M, error) {
	if spec, ok := arg.(domain.M); ok {
		arg = spec["path"]
	}
	field, ok := fieldRef(arg)
	if !ok {
		return nil, invalidStage("$unwind", "expected a field path starting with $, got %v", arg)
	}
	addr, err := d.fieldNavigator.GetAddress(field)
	if err != nil {
		return nil, err
	}
	res := make([]domain.M, 0, len(docs))
	for _, doc := range docs {
		v, defined, err := d.value(doc, addr)
		if err != nil {
			return nil, err
		}
		if !defined || v == nil {
			continue
		}
		list, ok := v.([]any)
		if !ok {
			res = append(res, doc)
			continue
		}
		for _, item := range list {
			cp := structure.CloneDoc(doc)
			fields, err := d.fieldNavigator.EnsureField(cp, addr...)
			if err != nil {
				return nil, err
			}
			for _, f := range fields {
				f.Set(structure.Clone(item))
			}
			res = append(res, cp)
		}
	}
	return res, nil
}

// value reads a single value at addr. Values reached through lists are
// returned as a list.
func (d *MemDriver) value(doc domain.M, addr []string) (any, bool, error) {
	fields, expanded, err := d.fieldNavigator.GetField(doc, addr...)
	if err != nil {
		return nil, false, err
	}
	if !expanded {
		v, defined := fields[0].Get()
		return v, defined, nil
	}
	res := make([]any, 0, len(fields))
	for _, f := range fields {
		if v, defined := f.Get(); defined {
			res = append(res, v)
		}
	}
	return res, true, nil
}

// expr evaluates a group expression: "$field" references, documents of
// expressions and constants.
func (d *MemDriver) expr(doc domain.M, e any) (any, bool, error) {
	if field, ok := fieldRef(e); ok {
		addr, err := d.fieldNavigator.GetAddress(field)
		if err != nil {
			return nil, false, err
		}
		return d.value(doc, addr)
	}
	if sub, ok := e.(domain.M); ok {
		res := make(domain.M, len(sub))
		for k, v := range sub {
			val, defined, err := d.expr(doc, v)
			if err != nil {
				return nil, false, err
			}
			if !defined {
				val = nil
			}
			res[k] = val
		}
		return res, true, nil
	}
	return e, true, nil
}

type accumulator struct {
	name string
	op   string
	arg  any
}

type group struct {
	id     any
	values [][]any
}

func (d *MemDriver) group(spec domain.M, docs []domain.M) ([]domain.M, error) {
	idExpr, ok := spec[domain.IDField]
	if !ok {
		return nil, invalidStage("$group", "an _id is required")
	}
	var accs []accumulator
	for _, name := range slices.Sorted(maps.Keys(spec)) {
		if name == domain.IDField {
			continue
		}
		def, ok := spec[name].(domain.M)
		if !ok || len(def) != 1 {
			return nil, invalidStage("$group", "the field %q must be an accumulator document", name)
		}
		for op, arg := range def {
			switch op {
			case "$sum", "$avg", "$min", "$max", "$first", "$last", "$push", "$addToSet":
			default:
				return nil, invalidStage("$group", "unknown accumulator %q", op)
			}
			accs = append(accs, accumulator{name: name, op: op, arg: arg})
		}
	}

	groups := uncomparable.New[*group](d.hasher, d.comparer)
	for _, doc := range docs {
		id, defined, err := d.expr(doc, idExpr)
		if err != nil {
			return nil, err
		}
		if !defined {
			id = nil
		}
		g, ok, err := groups.Get(id)
		if err != nil {
			return nil, err
		}
		if !ok {
			g = &group{id: id, values: make([][]any, len(accs))}
			if err := groups.Set(id, g); err != nil {
				return nil, err
			}
		}
		for n, acc := range accs {
			v, defined, err := d.expr(doc, acc.arg)
			if err != nil {
				return nil, err
			}
			if defined {
				g.values[n] = append(g.values[n], v)
			}
		}
	}

	res := make([]domain.M, 0, groups.Len())
	for g := range groups.Values() {
		row := domain.M{domain.IDField: g.id}
		for i, acc := range accs {
			v, err := d.accumulate(acc.op, g.values[i])
			if err != nil {
				return nil, err
			}
			row[acc.name] = v
		}
		res = append(res, row)
	}
	return res, nil
}

func (d *MemDriver) accumulate(op string, values []any) (any, error) {
	switch op {
	case "$sum":
		return sum(values), nil
	case "$avg":
		var total float64
		count := 0
		for _, v := range values {
			if f, ok := structure.AsFloat64(v); ok {
				total += f
				count++
			}
		}
		if count == 0 {
			return nil, nil
		}
		return total / float64(count), nil
	case "$min", "$max":
		var best any
		found := false
		for _, v := range values {
			if v == nil {
				continue
			}
			if !found {
				best, found = v, true
				continue
			}
			c, err := d.comparer.Compare(v, best)
			if err != nil {
				return nil, err
			}
			if (op == "$min" && c < 0) || (op == "$max" && c > 0) {
				best = v
			}
		}
		return best, nil
	case "$first":
		if len(values) == 0 {
			return nil, nil
		}
		return values[0], nil
	case "$last":
		if len(values) == 0 {
			return nil, nil
		}
		return values[len(values)-1], nil
	case "$push":
		return append([]any{}, values...), nil
	default:
		set := uncomparable.New[struct{}](d.hasher, d.comparer)
		for _, v := range values {
			if err := set.Set(v, struct{}{}); err != nil {
				return nil, err
			}
		}
		return slices.AppendSeq(make([]any, 0, set.Len()), set.Keys()), nil
	}
}

// sum adds up the numbers of values, ignoring anything else. Integers add up
// to an int64 until a float shows up.
func sum(values []any) any {
	var ints int64
	var floats float64
	isFloat := false
	for _, v := range values {
		if !structure.IsNumber(v) {
			continue
		}
		if n, ok := v.(float64); ok {
			isFloat = true
			floats += n
			continue
		}
		if n, ok := v.(float32); ok {
			isFloat = true
			floats += float64(n)
			continue
		}
		if n, ok := structure.AsInt64(v); ok {
			ints += n
		}
	}
	if isFloat {
		return floats + float64(ints)
	}
	return ints
}
