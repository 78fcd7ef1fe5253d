// Package query contains the boolean query expressions and their compiler into
// wire filter documents.
//
// Expressions are trees of [Condition], [Conjunction], [Disjunction] and
// [Negation] nodes. They are immutable: combining nodes always builds new
// ones, and compiling only reads them. [Compile] runs two passes, a
// simplification that folds conjunctions of conditions on distinct fields into
// a single [Predicate], and the lowering of the simplified tree into a
// [domain.M] filter, resolving logical field paths against a schema.
package query

import (
	"github.com/vinicius-lino-figueiredo/godm/domain"
)

// Operator is a condition operator.
type Operator string

// Supported operators.
const (
	OpEq          Operator = "eq"
	OpNe          Operator = "ne"
	OpGt          Operator = "gt"
	OpGte         Operator = "gte"
	OpLt          Operator = "lt"
	OpLte         Operator = "lte"
	OpIn          Operator = "in"
	OpExists      Operator = "exists"
	OpIsNull      Operator = "is_null"
	OpContains    Operator = "contains"
	OpIContains   Operator = "icontains"
	OpStartsWith  Operator = "startswith"
	OpIStartsWith Operator = "istartswith"
	OpEndsWith    Operator = "endswith"
	OpIEndsWith   Operator = "iendswith"
	OpExact       Operator = "exact"
	OpIExact      Operator = "iexact"
)

var operators = map[Operator]bool{
	OpEq: true, OpNe: true, OpGt: true, OpGte: true, OpLt: true, OpLte: true,
	OpIn: true, OpExists: true, OpIsNull: true,
	OpContains: true, OpIContains: true,
	OpStartsWith: true, OpIStartsWith: true,
	OpEndsWith: true, OpIEndsWith: true,
	OpExact: true, OpIExact: true,
}

// Node is a query expression.
type Node interface {
	node()
}

// Condition compares the values at a logical field path.
type Condition struct {
	Field string
	Op    Operator
	Value any
}

// Conjunction matches documents matching all of its children.
type Conjunction struct {
	Children []Node
}

// Disjunction matches documents matching any of its children.
type Disjunction struct {
	Children []Node
}

// Negation negates its child, field by field.
type Negation struct {
	Child Node
}

// Predicate is a conjunction of conditions on distinct fields, produced by
// [Simplify]. It compiles into a single document.
type Predicate struct {
	Conditions []Condition
}

// Raw is a wire filter used as is.
type Raw struct {
	Filter domain.M
}

func (Condition) node()   {}
func (Conjunction) node() {}
func (Disjunction) node() {}
func (Negation) node()    {}
func (Predicate) node()   {}
func (Raw) node()         {}

// C returns a condition.
func C(field string, op Operator, value any) Condition {
	return Condition{Field: field, Op: op, Value: value}
}

// Eq matches field equal to v. Lists are compared with every item of v.
func Eq(field string, v any) Condition { return C(field, OpEq, v) }

// Ne matches field different from v.
func Ne(field string, v any) Condition { return C(field, OpNe, v) }

// Gt matches field greater than v.
func Gt(field string, v any) Condition { return C(field, OpGt, v) }

// Gte matches field greater than or equal to v.
func Gte(field string, v any) Condition { return C(field, OpGte, v) }

// Lt matches field lower than v.
func Lt(field string, v any) Condition { return C(field, OpLt, v) }

// Lte matches field lower than or equal to v.
func Lte(field string, v any) Condition { return C(field, OpLte, v) }

// In matches field equal to any of values.
func In(field string, values ...any) Condition { return C(field, OpIn, values) }

// Exists matches documents having field set to a non null value, or not
// having it at all when exists is false.
func Exists(field string, exists bool) Condition { return C(field, OpExists, exists) }

// IsNull matches documents where field is null or missing, or set to a non
// null value when isNull is false.
func IsNull(field string, isNull bool) Condition { return C(field, OpIsNull, isNull) }

// Contains matches strings containing s.
func Contains(field, s string) Condition { return C(field, OpContains, s) }

// IContains is the case insensitive version of [Contains].
func IContains(field, s string) Condition { return C(field, OpIContains, s) }

// StartsWith matches strings starting with s.
func StartsWith(field, s string) Condition { return C(field, OpStartsWith, s) }

// IStartsWith is the case insensitive version of [StartsWith].
func IStartsWith(field, s string) Condition { return C(field, OpIStartsWith, s) }

// EndsWith matches strings ending with s.
func EndsWith(field, s string) Condition { return C(field, OpEndsWith, s) }

// IEndsWith is the case insensitive version of [EndsWith].
func IEndsWith(field, s string) Condition { return C(field, OpIEndsWith, s) }

// Exact matches strings equal to s, through a regular expression.
func Exact(field, s string) Condition { return C(field, OpExact, s) }

// IExact is the case insensitive version of [Exact].
func IExact(field, s string) Condition { return C(field, OpIExact, s) }

// And returns the conjunction of nodes. Nested conjunctions are flattened and
// nil or empty nodes skipped. A single remaining node is returned as is.
func And(nodes ...Node) Node {
	var children []Node
	for _, n := range nodes {
		if IsEmpty(n) {
			continue
		}
		if c, ok := n.(Conjunction); ok {
			children = append(children, c.Children...)
			continue
		}
		children = append(children, n)
	}
	if len(children) == 1 {
		return children[0]
	}
	return Conjunction{Children: children}
}

// Or returns the disjunction of nodes, flattened the same way as [And].
func Or(nodes ...Node) Node {
	var children []Node
	for _, n := range nodes {
		if IsEmpty(n) {
			continue
		}
		if d, ok := n.(Disjunction); ok {
			children = append(children, d.Children...)
			continue
		}
		children = append(children, n)
	}
	if len(children) == 1 {
		return children[0]
	}
	return Disjunction{Children: children}
}

// Not returns the negation of n.
func Not(n Node) Node {
	return Negation{Child: n}
}

// IsEmpty reports whether n matches everything.
func IsEmpty(n Node) bool {
	switch t := n.(type) {
	case nil:
		return true
	case Conjunction:
		return len(t.Children) == 0
	case Disjunction:
		return len(t.Children) == 0
	case Predicate:
		return len(t.Conditions) == 0
	case Raw:
		return len(t.Filter) == 0
	default:
		return false
	}
}

// Simplify folds every conjunction whose children are all conditions or
// predicates into a single [Predicate], unless two of them target the same
// field, in which case the conjunction is kept. Disjunctions and negations are
// never folded, only their children are visited.
func Simplify(n Node) Node {
	switch t := n.(type) {
	case Conjunction:
		children := make([]Node, len(t.Children))
		var conds []Condition
		atomic := true
		for i, c := range t.Children {
			children[i] = Simplify(c)
			switch sc := children[i].(type) {
			case Condition:
				conds = append(conds, sc)
			case Predicate:
				conds = append(conds, sc.Conditions...)
			default:
				atomic = false
			}
		}
		if atomic && len(conds) > 0 && distinctFields(conds) {
			return Predicate{Conditions: conds}
		}
		return Conjunction{Children: children}
	case Disjunction:
		children := make([]Node, len(t.Children))
		for i, c := range t.Children {
			children[i] = Simplify(c)
		}
		return Disjunction{Children: children}
	case Negation:
		return Negation{Child: Simplify(t.Child)}
	default:
		return n
	}
}

func distinctFields(conds []Condition) bool {
	seen := make(map[string]bool, len(conds))
	for _, c := range conds {
		if seen[c.Field] {
			return false
		}
		seen[c.Field] = true
	}
	return true
}
