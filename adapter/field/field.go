// Package field contains the [domain.FieldType] implementations: emptiness,
// validation and the conversion between Go values and wire values for every
// kind of field a schema can declare.
package field

import (
	"math"
	"unicode/utf8"

	"github.com/vinicius-lino-figueiredo/godm/domain"
	"github.com/vinicius-lino-figueiredo/godm/pkg/structure"
)

// scalar holds the behavior shared by leaf types.
type scalar struct{}

// Kind implements [domain.FieldType].
func (scalar) Kind() domain.Kind { return domain.KindScalar }

// IsEmpty implements [domain.FieldType].
func (scalar) IsEmpty(v any) bool { return v == nil }

// String implements [domain.FieldType] for text.
type String struct {
	scalar
	maxLength int
}

// NewString returns a [String] field type.
func NewString(options ...StringOption) *String {
	s := &String{}
	for _, option := range options {
		option(s)
	}
	return s
}

// IsEmpty implements [domain.FieldType].
func (s *String) IsEmpty(v any) bool { return v == nil || v == "" }

// Validate implements [domain.FieldType].
func (s *String) Validate(v any) bool {
	if v == nil {
		return true
	}
	str, ok := v.(string)
	if !ok {
		return false
	}
	return s.maxLength <= 0 || utf8.RuneCountInString(str) <= s.maxLength
}

// Encode implements [domain.FieldType].
func (s *String) Encode(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	str, ok := v.(string)
	if !ok {
		return nil, domain.ErrEncode{Value: v, Type: "string"}
	}
	return str, nil
}

// Decode implements [domain.FieldType].
func (s *String) Decode(w any) (any, error) {
	if w == nil {
		return nil, nil
	}
	str, ok := w.(string)
	if !ok {
		return nil, domain.ErrDecode{Source: w, Target: ""}
	}
	return str, nil
}

// Int implements [domain.FieldType] for integers. Any Go integer is accepted
// and stored as int64.
type Int struct {
	scalar
	min, max int64
}

// NewInt returns an [Int] field type.
func NewInt(options ...IntOption) *Int {
	i := &Int{min: math.MinInt64, max: math.MaxInt64}
	for _, option := range options {
		option(i)
	}
	return i
}

// Validate implements [domain.FieldType].
func (i *Int) Validate(v any) bool {
	if v == nil {
		return true
	}
	if !isInteger(v) {
		return false
	}
	n, ok := structure.AsInt64(v)
	return ok && n >= i.min && n <= i.max
}

// Encode implements [domain.FieldType].
func (i *Int) Encode(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	n, ok := structure.AsInt64(v)
	if !ok {
		return nil, domain.ErrEncode{Value: v, Type: "int"}
	}
	return n, nil
}

// Decode implements [domain.FieldType]. Wire numbers holding an integer value
// are accepted whatever their Go type.
func (i *Int) Decode(w any) (any, error) {
	if w == nil {
		return nil, nil
	}
	n, ok := structure.AsInt64(w)
	if !ok {
		return nil, domain.ErrDecode{Source: w, Target: int64(0)}
	}
	return n, nil
}

func isInteger(v any) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	default:
		return false
	}
}

// Float implements [domain.FieldType] for floating point numbers. Any Go
// number is accepted and stored as float64.
type Float struct {
	scalar
	min, max float64
}

// NewFloat returns a [Float] field type.
func NewFloat(options ...FloatOption) *Float {
	f := &Float{min: math.Inf(-1), max: math.Inf(1)}
	for _, option := range options {
		option(f)
	}
	return f
}

// Validate implements [domain.FieldType].
func (f *Float) Validate(v any) bool {
	if v == nil {
		return true
	}
	n, ok := structure.AsFloat64(v)
	return ok && !math.IsNaN(n) && n >= f.min && n <= f.max
}

// Encode implements [domain.FieldType].
func (f *Float) Encode(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	n, ok := structure.AsFloat64(v)
	if !ok {
		return nil, domain.ErrEncode{Value: v, Type: "float"}
	}
	return n, nil
}

// Decode implements [domain.FieldType].
func (f *Float) Decode(w any) (any, error) {
	if w == nil {
		return nil, nil
	}
	n, ok := structure.AsFloat64(w)
	if !ok {
		return nil, domain.ErrDecode{Source: w, Target: float64(0)}
	}
	return n, nil
}

// Bool implements [domain.FieldType] for booleans.
type Bool struct {
	scalar
}

// NewBool returns a [Bool] field type.
func NewBool() *Bool { return &Bool{} }

// Validate implements [domain.FieldType].
func (b *Bool) Validate(v any) bool {
	if v == nil {
		return true
	}
	_, ok := v.(bool)
	return ok
}

// Encode implements [domain.FieldType].
func (b *Bool) Encode(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	t, ok := v.(bool)
	if !ok {
		return nil, domain.ErrEncode{Value: v, Type: "bool"}
	}
	return t, nil
}

// Decode implements [domain.FieldType].
func (b *Bool) Decode(w any) (any, error) {
	if w == nil {
		return nil, nil
	}
	t, ok := w.(bool)
	if !ok {
		return nil, domain.ErrDecode{Source: w, Target: false}
	}
	return t, nil
}

// Dynamic implements [domain.FieldType] for undeclared or free form values.
// Values are stored as they are, records are encoded as documents.
type Dynamic struct{}

// NewDynamic returns a [Dynamic] field type.
func NewDynamic() *Dynamic { return &Dynamic{} }

// Kind implements [domain.FieldType].
func (d *Dynamic) Kind() domain.Kind { return domain.KindDynamic }

// IsEmpty implements [domain.FieldType].
func (d *Dynamic) IsEmpty(v any) bool { return v == nil }

// Validate implements [domain.FieldType].
func (d *Dynamic) Validate(any) bool { return true }

// Encode implements [domain.FieldType].
func (d *Dynamic) Encode(v any) (any, error) {
	return encodeAny(v)
}

// Decode implements [domain.FieldType].
func (d *Dynamic) Decode(w any) (any, error) { return w, nil }
