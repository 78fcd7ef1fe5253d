package field

import (
	"time"

	"github.com/vinicius-lino-figueiredo/godm/adapter/timegetter"
	"github.com/vinicius-lino-figueiredo/godm/domain"
)

// DateTime implements [domain.FieldType] for instants. Values are stored in
// UTC with millisecond precision, the precision of the document store.
type DateTime struct {
	scalar
	autoNowOnInsert bool
	autoNowOnUpdate bool
	timeGetter      domain.TimeGetter
}

// NewDateTime returns a [DateTime] field type.
func NewDateTime(options ...DateTimeOption) *DateTime {
	dt := &DateTime{timeGetter: timegetter.NewSystem()}
	for _, option := range options {
		option(dt)
	}
	return dt
}

// IsEmpty implements [domain.FieldType].
func (dt *DateTime) IsEmpty(v any) bool {
	if t, ok := v.(time.Time); ok {
		return t.IsZero()
	}
	return v == nil
}

// Validate implements [domain.FieldType].
func (dt *DateTime) Validate(v any) bool {
	if v == nil {
		return true
	}
	_, ok := v.(time.Time)
	return ok
}

// Encode implements [domain.FieldType].
func (dt *DateTime) Encode(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	t, ok := v.(time.Time)
	if !ok {
		return nil, domain.ErrEncode{Value: v, Type: "datetime"}
	}
	return t.UTC().Truncate(time.Millisecond), nil
}

// Decode implements [domain.FieldType]. RFC 3339 strings are accepted, as
// written by JSON encoders.
func (dt *DateTime) Decode(w any) (any, error) {
	switch t := w.(type) {
	case nil:
		return nil, nil
	case time.Time:
		return t.UTC(), nil
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, t)
		if err != nil {
			return nil, domain.ErrDecode{Source: w, Target: time.Time{}}
		}
		return parsed.UTC(), nil
	default:
		return nil, domain.ErrDecode{Source: w, Target: time.Time{}}
	}
}

// AutoValue implements [domain.AutoValuer].
func (dt *DateTime) AutoValue(current any, insert bool) (any, bool) {
	if dt.autoNowOnUpdate || (dt.autoNowOnInsert && insert && dt.IsEmpty(current)) {
		return dt.timeGetter.GetTime().UTC().Truncate(time.Millisecond), true
	}
	return nil, false
}
