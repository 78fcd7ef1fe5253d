package field

import (
	"github.com/shopspring/decimal"
	"github.com/vinicius-lino-figueiredo/godm/domain"
	"github.com/vinicius-lino-figueiredo/godm/pkg/structure"
)

// Rounding selects how a [Decimal] is quantized to its precision.
type Rounding uint8

// Rounding modes.
const (
	// RoundHalfUp rounds to nearest with ties going away from zero.
	RoundHalfUp Rounding = iota
	// RoundHalfEven rounds to nearest with ties going to the even digit.
	RoundHalfEven
	// RoundCeiling rounds towards positive infinity.
	RoundCeiling
	// RoundFloor rounds towards negative infinity.
	RoundFloor
	// RoundUp rounds away from zero.
	RoundUp
	// RoundDown rounds towards zero.
	RoundDown
)

// Decimal implements [domain.FieldType] for fixed point numbers. Values are
// stored as strings to keep their precision.
type Decimal struct {
	scalar
	min, max  *decimal.Decimal
	precision int32
	rounding  Rounding
}

// NewDecimal returns a [Decimal] field type with two decimal places.
func NewDecimal(options ...DecimalOption) *Decimal {
	d := &Decimal{precision: 2}
	for _, option := range options {
		option(d)
	}
	return d
}

// Validate implements [domain.FieldType].
func (d *Decimal) Validate(v any) bool {
	if v == nil {
		return true
	}
	dec, ok := toDecimal(v)
	if !ok {
		return false
	}
	if d.min != nil && dec.LessThan(*d.min) {
		return false
	}
	if d.max != nil && dec.GreaterThan(*d.max) {
		return false
	}
	return true
}

// Encode implements [domain.FieldType].
func (d *Decimal) Encode(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	dec, ok := toDecimal(v)
	if !ok {
		return nil, domain.ErrEncode{Value: v, Type: "decimal"}
	}
	return d.quantize(dec).StringFixed(d.precision), nil
}

// Decode implements [domain.FieldType].
func (d *Decimal) Decode(w any) (any, error) {
	if w == nil {
		return nil, nil
	}
	dec, ok := toDecimal(w)
	if !ok {
		return nil, domain.ErrDecode{Source: w, Target: decimal.Decimal{}}
	}
	return d.quantize(dec), nil
}

func (d *Decimal) quantize(dec decimal.Decimal) decimal.Decimal {
	switch d.rounding {
	case RoundHalfEven:
		return dec.RoundBank(d.precision)
	case RoundCeiling:
		return dec.RoundCeil(d.precision)
	case RoundFloor:
		return dec.RoundFloor(d.precision)
	case RoundUp:
		return dec.RoundUp(d.precision)
	case RoundDown:
		return dec.RoundDown(d.precision)
	default:
		return dec.Round(d.precision)
	}
}

func toDecimal(v any) (decimal.Decimal, bool) {
	switch t := v.(type) {
	case decimal.Decimal:
		return t, true
	case *decimal.Decimal:
		if t == nil {
			return decimal.Decimal{}, false
		}
		return *t, true
	case string:
		dec, err := decimal.NewFromString(t)
		return dec, err == nil
	}
	if isInteger(v) {
		if n, ok := structure.AsInt64(v); ok {
			return decimal.NewFromInt(n), true
		}
	}
	if f, ok := structure.AsFloat64(v); ok {
		return decimal.NewFromFloat(f), true
	}
	return decimal.Decimal{}, false
}
