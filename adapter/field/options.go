package field

import (
	"github.com/shopspring/decimal"
	"github.com/vinicius-lino-figueiredo/godm/domain"
)

// StringOption configures a [String].
type StringOption func(*String)

// WithMaxLength rejects strings with more than n characters.
func WithMaxLength(n int) StringOption {
	return func(s *String) {
		s.maxLength = n
	}
}

// IntOption configures an [Int].
type IntOption func(*Int)

// WithMinInt rejects integers lower than n.
func WithMinInt(n int64) IntOption {
	return func(i *Int) {
		i.min = n
	}
}

// WithMaxInt rejects integers greater than n.
func WithMaxInt(n int64) IntOption {
	return func(i *Int) {
		i.max = n
	}
}

// FloatOption configures a [Float].
type FloatOption func(*Float)

// WithMinFloat rejects numbers lower than n.
func WithMinFloat(n float64) FloatOption {
	return func(f *Float) {
		f.min = n
	}
}

// WithMaxFloat rejects numbers greater than n.
func WithMaxFloat(n float64) FloatOption {
	return func(f *Float) {
		f.max = n
	}
}

// DecimalOption configures a [Decimal].
type DecimalOption func(*Decimal)

// WithMinDecimal rejects decimals lower than d.
func WithMinDecimal(d decimal.Decimal) DecimalOption {
	return func(dec *Decimal) {
		dec.min = &d
	}
}

// WithMaxDecimal rejects decimals greater than d.
func WithMaxDecimal(d decimal.Decimal) DecimalOption {
	return func(dec *Decimal) {
		dec.max = &d
	}
}

// WithPrecision sets the number of decimal places stored. The default is 2.
func WithPrecision(places int32) DecimalOption {
	return func(dec *Decimal) {
		dec.precision = places
	}
}

// WithRounding sets how values are quantized to the precision. The default is
// [RoundHalfUp].
func WithRounding(r Rounding) DecimalOption {
	return func(dec *Decimal) {
		dec.rounding = r
	}
}

// DateTimeOption configures a [DateTime].
type DateTimeOption func(*DateTime)

// WithAutoNowOnInsert fills empty values with the current time when a record
// is first written.
func WithAutoNowOnInsert() DateTimeOption {
	return func(dt *DateTime) {
		dt.autoNowOnInsert = true
	}
}

// WithAutoNowOnUpdate sets the current time on every write.
func WithAutoNowOnUpdate() DateTimeOption {
	return func(dt *DateTime) {
		dt.autoNowOnUpdate = true
	}
}

// WithTimeGetter sets the clock used by auto filled values.
func WithTimeGetter(tg domain.TimeGetter) DateTimeOption {
	return func(dt *DateTime) {
		dt.timeGetter = tg
	}
}

// BinaryOption configures a [Binary].
type BinaryOption func(*Binary)

// WithMaxBytes rejects values longer than n bytes.
func WithMaxBytes(n int) BinaryOption {
	return func(b *Binary) {
		b.maxBytes = n
	}
}

// JSONOption configures a [JSON].
type JSONOption func(*JSON)

// WithJSONSchema validates values against a JSON Schema document.
func WithJSONSchema(schema string) JSONOption {
	return func(j *JSON) {
		j.schemaSource = schema
	}
}
