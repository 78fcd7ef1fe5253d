// Package comparer orders wire values the way the document store does, so
// that the in-memory driver sorts and filters like a real server.
package comparer

import (
	"bytes"
	"cmp"
	"fmt"
	"math"
	"math/big"
	"slices"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vinicius-lino-figueiredo/godm/domain"
)

// Type ranks, lowest first. Undefined values sort before everything else.
const (
	rankUndefined = iota
	rankNil
	rankNumber
	rankString
	rankDoc
	rankList
	rankBinary
	rankBool
	rankTime
	rankUnknown
)

// Comparer implements domain.Comparer.
type Comparer struct{}

// NewComparer returns a new implementation of domain.Comparer.
func NewComparer() domain.Comparer {
	return &Comparer{}
}

// Comparable implements domain.Comparer. Only numbers, strings and times can
// be ordered by range operators, and only against a value of the same rank.
func (c *Comparer) Comparable(a, b any) bool {
	if !c.isSet(a) || !c.isSet(b) {
		return false
	}
	ra, rb := c.rank(c.getVal(a)), c.rank(c.getVal(b))
	if ra != rb {
		return false
	}
	switch ra {
	case rankNumber, rankString, rankTime:
		return true
	default:
		return false
	}
}

// Compare implements domain.Comparer.
func (c *Comparer) Compare(a any, b any) (int, error) {
	if !c.isSet(a) || !c.isSet(b) {
		return cmp.Compare(c.setRank(a), c.setRank(b)), nil
	}
	a, b = c.getVal(a), c.getVal(b)

	ra, rb := c.rank(a), c.rank(b)
	if ra == rankUnknown || rb == rankUnknown {
		return 0, fmt.Errorf("cannot compare unexpected types %T and %T", a, b)
	}
	if ra != rb {
		return cmp.Compare(ra, rb), nil
	}

	switch ra {
	case rankNil:
		return 0, nil
	case rankNumber:
		x, _ := c.asNumber(a)
		y, _ := c.asNumber(b)
		return x.Cmp(y), nil
	case rankString:
		return cmp.Compare(a.(string), b.(string)), nil
	case rankDoc:
		return c.compareDoc(a.(domain.M), b.(domain.M))
	case rankList:
		return c.compareList(a.([]any), b.([]any))
	case rankBinary:
		x, y := a.([]byte), b.([]byte)
		if comp := cmp.Compare(len(x), len(y)); comp != 0 {
			return comp, nil
		}
		return bytes.Compare(x, y), nil
	case rankBool:
		return c.compareBool(a.(bool), b.(bool)), nil
	default:
		return a.(time.Time).Compare(b.(time.Time)), nil
	}
}

func (c *Comparer) setRank(v any) int {
	if c.isSet(v) {
		return rankNil
	}
	return rankUndefined
}

func (c *Comparer) rank(v any) int {
	if _, ok := c.asNumber(v); ok {
		return rankNumber
	}
	switch v.(type) {
	case nil:
		return rankNil
	case string:
		return rankString
	case domain.M:
		return rankDoc
	case []any:
		return rankList
	case []byte:
		return rankBinary
	case bool:
		return rankBool
	case time.Time:
		return rankTime
	default:
		return rankUnknown
	}
}

func (c *Comparer) compareList(a, b []any) (int, error) {
	for i := range min(len(a), len(b)) {
		comp, err := c.Compare(a[i], b[i])
		if err != nil {
			return 0, err
		}
		if comp != 0 {
			return comp, nil
		}
	}

	// Common section was identical, longest one wins
	return cmp.Compare(len(a), len(b)), nil
}

func (c *Comparer) compareBool(a, b bool) int {
	if a == b {
		return 0
	}
	if a {
		return 1
	}
	return -1
}

// Documents are compared key by key in sorted key order, the key name first
// and then its value.
func (c *Comparer) compareDoc(a, b domain.M) (int, error) {
	aKeys := c.keys(a)
	bKeys := c.keys(b)

	for i := range min(len(aKeys), len(bKeys)) {
		if comp := cmp.Compare(aKeys[i], bKeys[i]); comp != 0 {
			return comp, nil
		}
		comp, err := c.Compare(a[aKeys[i]], b[bKeys[i]])
		if err != nil {
			return 0, err
		}
		if comp != 0 {
			return comp, nil
		}
	}
	return cmp.Compare(len(aKeys), len(bKeys)), nil
}

func (c *Comparer) keys(doc domain.M) []string {
	keys := make([]string, 0, len(doc))
	for k := range doc {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func (c *Comparer) asNumber(v any) (Number, bool) {
	return AsNumber(v)
}

// Number is the exact value of a numeric wire value. Inf is -1 or +1 for
// infinities, in which case Rat is nil.
type Number struct {
	Rat *big.Rat
	Inf int
}

// Cmp compares n and o, returning -1, 0 or +1.
func (n Number) Cmp(o Number) int {
	if n.Inf != 0 || o.Inf != 0 {
		return cmp.Compare(n.Inf, o.Inf)
	}
	return n.Rat.Cmp(o.Rat)
}

// String returns the reduced fraction of n, or "+Inf" and "-Inf".
func (n Number) String() string {
	switch n.Inf {
	case 1:
		return "+Inf"
	case -1:
		return "-Inf"
	}
	return n.Rat.RatString()
}

// AsNumber converts a numeric wire value to the [Number] numbers are compared
// as. Every integer, float and decimal is represented exactly, so int64 and
// float64 values past 2^53 or long decimals keep their order. NaN becomes
// -Inf.
func AsNumber(v any) (Number, bool) {
	r := new(big.Rat)
	switch n := v.(type) {
	case int:
		r.SetInt64(int64(n))
	case int8:
		r.SetInt64(int64(n))
	case int16:
		r.SetInt64(int64(n))
	case int32:
		r.SetInt64(int64(n))
	case int64:
		r.SetInt64(n)
	case uint:
		r.SetUint64(uint64(n))
	case uint8:
		r.SetUint64(uint64(n))
	case uint16:
		r.SetUint64(uint64(n))
	case uint32:
		r.SetUint64(uint64(n))
	case uint64:
		r.SetUint64(n)
	case float32:
		return floatNumber(float64(n)), true
	case float64:
		return floatNumber(n), true
	case decimal.Decimal:
		r = n.Rat()
	default:
		return Number{}, false
	}
	return Number{Rat: r}, true
}

func floatNumber(f float64) Number {
	switch {
	case math.IsInf(f, 1):
		return Number{Inf: 1}
	case f != f, math.IsInf(f, -1):
		// NaN sorts before every other number
		return Number{Inf: -1}
	}
	return Number{Rat: new(big.Rat).SetFloat64(f)}
}

func (c *Comparer) isSet(v any) bool {
	if g, ok := v.(domain.Getter); ok {
		_, isSet := g.Get()
		return isSet
	}
	return true
}

func (c *Comparer) getVal(v any) any {
	if g, ok := v.(domain.Getter); ok {
		val, _ := g.Get()
		return val
	}
	return v
}
