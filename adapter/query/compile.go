package query

import (
	"fmt"
	"regexp"

	"github.com/vinicius-lino-figueiredo/godm/adapter/record"
	"github.com/vinicius-lino-figueiredo/godm/adapter/schema"
	"github.com/vinicius-lino-figueiredo/godm/domain"
	"github.com/vinicius-lino-figueiredo/godm/pkg/structure"
)

// Compile simplifies n and lowers it into a wire filter for records of s.
// Values are encoded by the type of the field they are compared with. A nil
// or empty node compiles into an empty filter. Compiling the same node twice
// yields the same document.
func Compile(s *schema.Schema, n Node) (domain.M, error) {
	if IsEmpty(n) {
		return domain.M{}, nil
	}
	return compileNode(s, Simplify(n))
}

func compileNode(s *schema.Schema, n Node) (domain.M, error) {
	switch t := n.(type) {
	case Condition:
		return compileCondition(s, t)
	case Predicate:
		return compilePredicate(s, t)
	case Conjunction:
		return compileLogic(s, "$and", t.Children)
	case Disjunction:
		return compileLogic(s, "$or", t.Children)
	case Negation:
		if IsEmpty(t.Child) {
			return domain.M{}, nil
		}
		child, err := compileNode(s, t.Child)
		if err != nil {
			return nil, err
		}
		return negate(child), nil
	case Raw:
		return structure.CloneDoc(t.Filter), nil
	case nil:
		return domain.M{}, nil
	default:
		return nil, fmt.Errorf("unsupported query node %T", n)
	}
}

func compileLogic(s *schema.Schema, op string, children []Node) (domain.M, error) {
	if len(children) == 0 {
		return domain.M{}, nil
	}
	res := make([]any, 0, len(children))
	for _, c := range children {
		doc, err := compileNode(s, c)
		if err != nil {
			return nil, err
		}
		res = append(res, doc)
	}
	return domain.M{op: res}, nil
}

// compilePredicate merges its conditions into one document. Two logical paths
// may still reach the same wire path, in which case a conjunction is emitted
// instead of overwriting one of them.
func compilePredicate(s *schema.Schema, p Predicate) (domain.M, error) {
	res := make(domain.M, len(p.Conditions))
	docs := make([]any, 0, len(p.Conditions))
	clash := false
	for _, c := range p.Conditions {
		doc, err := compileCondition(s, c)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
		for k, v := range doc {
			if _, ok := res[k]; ok {
				clash = true
			}
			res[k] = v
		}
	}
	if clash {
		return domain.M{"$and": docs}, nil
	}
	return res, nil
}

// negate wraps a compiled document field by field. Logical operators are
// replaced by their negated counterpart.
func negate(doc domain.M) domain.M {
	res := make(domain.M, len(doc))
	for k, v := range doc {
		switch k {
		case "$or":
			res["$nor"] = v
			continue
		case "$nor":
			res["$or"] = v
			continue
		case "$and":
			res["$nor"] = []any{domain.M{"$and": v}}
			continue
		}
		switch t := v.(type) {
		case domain.M:
			res[k] = domain.M{"$not": t}
		case []any:
			res[k] = domain.M{"$nin": t}
		default:
			res[k] = domain.M{"$ne": v}
		}
	}
	return res
}

func compileCondition(s *schema.Schema, c Condition) (domain.M, error) {
	invalid := func(reason string, args ...any) error {
		return domain.ErrInvalidFilter{Filter: c.Field, Reason: fmt.Sprintf(reason, args...)}
	}

	path, err := s.Resolve(c.Field)
	if err != nil {
		return nil, err
	}
	if path.Rest != "" {
		return nil, invalid("cannot filter through reference %q", path.Field.Name())
	}
	typ := path.Type

	var v any
	switch c.Op {
	case OpEq:
		v, err = encodeEq(typ, c.Value)
	case OpNe, OpGt, OpGte, OpLt, OpLte:
		var enc any
		enc, err = encodeValue(typ, c.Value)
		v = domain.M{"$" + string(c.Op): enc}
	case OpIn:
		items, ok := structure.List(c.Value)
		if !ok {
			return nil, invalid("in expects a list, got %T", c.Value)
		}
		encoded := make([]any, len(items))
		for n, item := range items {
			if encoded[n], err = encodeValue(typ, item); err != nil {
				return nil, err
			}
		}
		v = domain.M{"$in": encoded}
	case OpExists, OpIsNull:
		b, ok := c.Value.(bool)
		if !ok {
			return nil, invalid("%s expects a bool, got %T", c.Op, c.Value)
		}
		switch {
		case c.Op == OpIsNull && b:
			v = nil
		case c.Op == OpExists && !b:
			v = domain.M{"$exists": false}
		default:
			v = domain.M{"$exists": true, "$ne": nil}
		}
	case OpContains, OpIContains, OpStartsWith, OpIStartsWith,
		OpEndsWith, OpIEndsWith, OpExact, OpIExact:
		str, ok := c.Value.(string)
		if !ok {
			return nil, invalid("%s expects a string, got %T", c.Op, c.Value)
		}
		v = regexCondition(c.Op, str)
	default:
		return nil, invalid("unknown operator %q", c.Op)
	}
	if err != nil {
		return nil, err
	}
	return domain.M{path.Wire: v}, nil
}

func regexCondition(op Operator, s string) domain.M {
	pattern := regexp.QuoteMeta(s)
	insensitive := false
	switch op {
	case OpIContains:
		insensitive = true
	case OpStartsWith:
		pattern = "^" + pattern
	case OpIStartsWith:
		pattern = "^" + pattern
		insensitive = true
	case OpEndsWith:
		pattern += "$"
	case OpIEndsWith:
		pattern += "$"
		insensitive = true
	case OpExact:
		pattern = "^" + pattern + "$"
	case OpIExact:
		pattern = "^" + pattern + "$"
		insensitive = true
	}
	res := domain.M{"$regex": pattern}
	if insensitive {
		res["$options"] = "i"
	}
	return res
}

// encodeEq encodes an equality value. A list compared with a list field must
// contain all of its items, a single value compared with a list field matches
// lists containing it.
func encodeEq(typ domain.FieldType, v any) (any, error) {
	if typ != nil && typ.Kind() == domain.KindList {
		if _, ok := structure.List(v); ok {
			enc, err := typ.Encode(v)
			if err != nil {
				return nil, err
			}
			return domain.M{"$all": enc}, nil
		}
	}
	return encodeValue(typ, v)
}

// encodeValue encodes a single value compared with a field of type typ. Items
// compared with list fields are encoded by the item type.
func encodeValue(typ domain.FieldType, v any) (any, error) {
	if typ == nil {
		return record.EncodeDynamic(v)
	}
	if typ.Kind() == domain.KindList {
		if _, ok := structure.List(v); !ok {
			if it, ok := typ.(domain.ItemTyper); ok {
				return it.ItemType().Encode(v)
			}
		}
	}
	if v == nil {
		return nil, nil
	}
	return typ.Encode(v)
}
