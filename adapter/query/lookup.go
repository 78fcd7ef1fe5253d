package query

import (
	"sort"
	"strings"

	"github.com/vinicius-lino-figueiredo/godm/domain"
)

// Lookup builds a node from a lookup key: a logical field path whose segments
// are separated by "__", optionally followed by an operator, as in
// "embedded__test__lte". A "not" segment right before the operator, or at the
// end, negates the condition. When the last segment is not an operator it is
// part of the path and equality is used.
func Lookup(key string, value any) Node {
	parts := strings.Split(key, "__")
	op := OpEq
	if len(parts) > 1 && operators[Operator(parts[len(parts)-1])] {
		op = Operator(parts[len(parts)-1])
		parts = parts[:len(parts)-1]
	}
	negated := false
	if len(parts) > 1 && parts[len(parts)-1] == "not" {
		negated = true
		parts = parts[:len(parts)-1]
	}
	var n Node = C(strings.Join(parts, "."), op, value)
	if negated {
		n = Not(n)
	}
	return n
}

// Q builds the conjunction of the lookups in q, in key order. The "raw" key
// holds a wire filter used as is.
func Q(q map[string]any) Node {
	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	nodes := make([]Node, 0, len(keys))
	for _, k := range keys {
		if k == "raw" {
			if raw, ok := q[k].(domain.M); ok {
				nodes = append(nodes, Raw{Filter: raw})
				continue
			}
		}
		nodes = append(nodes, Lookup(k, q[k]))
	}
	return And(nodes...)
}
