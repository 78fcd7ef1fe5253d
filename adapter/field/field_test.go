package field_test

import (
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"github.com/vinicius-lino-figueiredo/godm/adapter/field"
	"github.com/vinicius-lino-figueiredo/godm/adapter/record"
	"github.com/vinicius-lino-figueiredo/godm/adapter/schema"
	"github.com/vinicius-lino-figueiredo/godm/adapter/timegetter"
	"github.com/vinicius-lino-figueiredo/godm/domain"
)

type hexID string

func (h hexID) Hex() string { return string(h) }

type FieldTestSuite struct {
	suite.Suite
	reg *schema.Registry
}

func (s *FieldTestSuite) SetupTest() {
	s.reg = schema.NewRegistry()
}

// roundTrip checks decode(encode(v)) == v.
func (s *FieldTestSuite) roundTrip(t domain.FieldType, v any) {
	s.True(t.Validate(v), "%v should be valid", v)
	w, err := t.Encode(v)
	s.Require().NoError(err)
	got, err := t.Decode(w)
	s.Require().NoError(err)
	s.Equal(v, got)
}

func (s *FieldTestSuite) TestNilIsAlwaysValid() {
	j, err := field.NewJSON()
	s.Require().NoError(err)
	types := []domain.FieldType{
		field.NewString(field.WithMaxLength(1)),
		field.NewInt(field.WithMinInt(1)),
		field.NewFloat(field.WithMinFloat(1)),
		field.NewDecimal(),
		field.NewBool(),
		field.NewDateTime(),
		field.NewUUID(),
		field.NewObjectID(),
		field.NewEmail(),
		field.NewURL(),
		field.NewBinary(),
		j,
		field.NewList(field.NewInt()),
		field.NewDynamic(),
	}
	for _, t := range types {
		s.True(t.Validate(nil), "%T", t)
		s.True(t.IsEmpty(nil), "%T", t)
		w, err := t.Encode(nil)
		s.NoError(err)
		s.Nil(w)
	}
}

func (s *FieldTestSuite) TestString() {
	t := field.NewString(field.WithMaxLength(3))
	s.roundTrip(t, "abc")
	s.True(t.Validate("ção"))
	s.False(t.Validate("abcd"))
	s.False(t.Validate(1))
	s.True(t.IsEmpty(""))
	s.False(t.IsEmpty("a"))
	s.Equal(domain.KindScalar, t.Kind())

	_, err := t.Encode(1)
	s.ErrorAs(err, &domain.ErrEncode{})
	_, err = t.Decode(1)
	s.ErrorAs(err, &domain.ErrDecode{})
}

func (s *FieldTestSuite) TestInt() {
	t := field.NewInt(field.WithMinInt(0), field.WithMaxInt(255))
	s.roundTrip(t, int64(10))
	s.True(t.Validate(uint8(255)))
	s.False(t.Validate(256))
	s.False(t.Validate(-1))
	s.False(t.Validate(1.0))
	s.False(t.Validate("1"))

	w, err := t.Encode(int32(7))
	s.NoError(err)
	s.Equal(int64(7), w)

	v, err := t.Decode(float64(3))
	s.NoError(err)
	s.Equal(int64(3), v)

	_, err = t.Decode(3.5)
	s.ErrorAs(err, &domain.ErrDecode{})
	_, err = t.Encode("x")
	s.ErrorAs(err, &domain.ErrEncode{})
}

func (s *FieldTestSuite) TestFloat() {
	t := field.NewFloat(field.WithMinFloat(0.1), field.WithMaxFloat(255.6))
	s.roundTrip(t, 1.5)
	s.True(t.Validate(3))
	s.False(t.Validate(0.0))
	s.False(t.Validate(255.7))
	s.False(t.Validate(math.NaN()))
	s.False(t.Validate("1.0"))

	w, err := t.Encode(2)
	s.NoError(err)
	s.Equal(2.0, w)
}

func (s *FieldTestSuite) TestDecimal() {
	t := field.NewDecimal(
		field.WithMinDecimal(decimal.NewFromInt(0)),
		field.WithMaxDecimal(decimal.NewFromInt(100)),
	)
	v := decimal.RequireFromString("12.35")
	w, err := t.Encode(v)
	s.NoError(err)
	s.Equal("12.35", w)
	got, err := t.Decode(w)
	s.NoError(err)
	s.True(v.Equal(got.(decimal.Decimal)))

	w, err = t.Encode(decimal.RequireFromString("1.005"))
	s.NoError(err)
	s.Equal("1.01", w)

	w, err = t.Encode(3)
	s.NoError(err)
	s.Equal("3.00", w)

	s.True(t.Validate("99.99"))
	s.False(t.Validate("100.01"))
	s.False(t.Validate(-1))
	s.False(t.Validate("abc"))
	s.False(t.Validate(true))

	down := field.NewDecimal(field.WithPrecision(1), field.WithRounding(field.RoundDown))
	w, err = down.Encode("1.99")
	s.NoError(err)
	s.Equal("1.9", w)

	even := field.NewDecimal(field.WithPrecision(0), field.WithRounding(field.RoundHalfEven))
	w, err = even.Encode("2.5")
	s.NoError(err)
	s.Equal("2", w)

	ceil := field.NewDecimal(field.WithPrecision(0), field.WithRounding(field.RoundCeiling))
	w, err = ceil.Encode("2.1")
	s.NoError(err)
	s.Equal("3", w)
}

func (s *FieldTestSuite) TestBool() {
	t := field.NewBool()
	s.roundTrip(t, true)
	s.roundTrip(t, false)
	s.False(t.Validate(1))
	s.False(t.IsEmpty(false))
}

func (s *FieldTestSuite) TestDateTime() {
	t := field.NewDateTime()
	at := time.Date(2024, 5, 6, 7, 8, 9, 123_000_000, time.UTC)
	s.roundTrip(t, at)

	w, err := t.Encode(time.Date(2024, 5, 6, 7, 8, 9, 123_456_789, time.FixedZone("x", 3600)))
	s.NoError(err)
	s.Equal(time.Date(2024, 5, 6, 6, 8, 9, 123_000_000, time.UTC), w)

	v, err := t.Decode("2024-05-06T07:08:09.123Z")
	s.NoError(err)
	s.Equal(at, v)

	s.False(t.Validate("2024"))
	s.True(t.IsEmpty(time.Time{}))

	_, err = t.Decode(12)
	s.ErrorAs(err, &domain.ErrDecode{})
}

func (s *FieldTestSuite) TestDateTimeAutoNow() {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	before := now.Add(-time.Hour)

	onInsert := field.NewDateTime(field.WithAutoNowOnInsert(), field.WithTimeGetter(timegetter.Fixed(now)))
	v, ok := onInsert.AutoValue(nil, true)
	s.True(ok)
	s.Equal(now, v)
	_, ok = onInsert.AutoValue(before, true)
	s.False(ok)
	_, ok = onInsert.AutoValue(nil, false)
	s.False(ok)

	onUpdate := field.NewDateTime(field.WithAutoNowOnUpdate(), field.WithTimeGetter(timegetter.Fixed(now)))
	v, ok = onUpdate.AutoValue(before, false)
	s.True(ok)
	s.Equal(now, v)

	_, ok = field.NewDateTime().AutoValue(nil, true)
	s.False(ok)
}

func (s *FieldTestSuite) TestUUID() {
	t := field.NewUUID()
	id := uuid.New()
	s.roundTrip(t, id)

	w, err := t.Encode(id.String())
	s.NoError(err)
	s.Equal(id.String(), w)

	s.True(t.Validate(id.String()))
	s.False(t.Validate("not-an-uuid"))
	s.False(t.Validate(12))
	s.True(t.IsEmpty(""))
}

func (s *FieldTestSuite) TestObjectID() {
	t := field.NewObjectID()
	s.roundTrip(t, "507f1f77bcf86cd799439011")
	s.True(t.Validate(hexID("507f1f77bcf86cd799439011")))
	s.False(t.Validate("507f1f77bcf86cd79943901z"))
	s.False(t.Validate("507f"))
	s.False(t.Validate(12))
	_, err := t.Encode("x")
	s.ErrorAs(err, &domain.ErrEncode{})
}

func (s *FieldTestSuite) TestEmailAndURL() {
	e := field.NewEmail()
	s.roundTrip(e, "someone@example.com")
	s.False(e.Validate("someone"))
	s.False(e.Validate(1))
	s.True(e.IsEmpty(""))

	u := field.NewURL()
	s.roundTrip(u, "https://example.com/a?b=c")
	s.True(u.Validate("http://localhost:8080"))
	s.False(u.Validate("ftp://example.com"))
	s.False(u.Validate("example"))
}

func (s *FieldTestSuite) TestBinary() {
	t := field.NewBinary(field.WithMaxBytes(4))
	s.roundTrip(t, []byte("abc"))
	s.False(t.Validate([]byte("abcde")))
	s.False(t.Validate("abc"))
	s.True(t.IsEmpty([]byte{}))

	w, err := t.Encode("xy")
	s.NoError(err)
	s.Equal([]byte("xy"), w)

	v, err := t.Decode("YWJj")
	s.NoError(err)
	s.Equal([]byte("abc"), v)

	_, err = t.Decode("%%%")
	s.ErrorAs(err, &domain.ErrDecode{})
}

func (s *FieldTestSuite) TestJSON() {
	t, err := field.NewJSON()
	s.Require().NoError(err)
	s.roundTrip(t, map[string]any{"a": []any{1.0, "b"}, "c": nil})

	w, err := t.Encode(map[string]any{"a": 1})
	s.NoError(err)
	s.Equal(`{"a":1}`, w)

	s.False(t.Validate(make(chan int)))
	_, err = t.Decode(`{`)
	s.ErrorAs(err, &domain.ErrDecode{})

	withSchema, err := field.NewJSON(field.WithJSONSchema(`{
		"type": "object",
		"required": ["name"],
		"properties": {"name": {"type": "string"}}
	}`))
	s.Require().NoError(err)
	s.True(withSchema.Validate(map[string]any{"name": "x"}))
	s.False(withSchema.Validate(map[string]any{"name": 1}))
	s.False(withSchema.Validate(map[string]any{}))

	_, err = field.NewJSON(field.WithJSONSchema(`{"type": 3}`))
	s.Error(err)
}

func (s *FieldTestSuite) TestList() {
	t := field.NewList(field.NewInt(field.WithMaxInt(10)))
	s.roundTrip(t, []any{int64(1), int64(2)})
	s.Equal(domain.KindList, t.Kind())
	s.IsType(&field.Int{}, t.ItemType())

	s.True(t.Validate([]int{1, 2}))
	s.False(t.Validate([]int{1, 20}))
	s.False(t.Validate(1))
	s.True(t.IsEmpty([]any{}))
	s.False(t.IsEmpty([]any{1}))

	w, err := t.Encode([]int{3})
	s.NoError(err)
	s.Equal([]any{int64(3)}, w)

	_, err = t.Encode([]any{"x"})
	s.ErrorAs(err, &domain.ErrEncode{})
	_, err = t.Decode("x")
	s.ErrorAs(err, &domain.ErrDecode{})
}

func (s *FieldTestSuite) TestEmbedded() {
	inner := s.reg.MustDeclare("Inner", schema.WithFields(
		schema.NewField("test", field.NewString(), schema.WithWireName("other"), schema.WithRequired()),
	))
	other := s.reg.MustDeclare("Other")
	t := field.NewEmbedded(inner)
	s.Equal(inner, t.EmbeddedSchema())
	s.Equal(domain.KindEmbedded, t.Kind())

	rec, err := record.New(inner, map[string]any{"test": "x"})
	s.Require().NoError(err)
	s.roundTrip(t, rec)

	w, err := t.Encode(domain.M{"test": "y"})
	s.NoError(err)
	s.Equal(domain.M{"other": "y"}, w)

	empty, err := record.New(inner, nil)
	s.Require().NoError(err)
	s.False(t.Validate(empty))
	s.False(t.Validate("x"))

	wrong, err := record.New(other, nil)
	s.Require().NoError(err)
	s.False(t.Validate(wrong))
	_, err = t.Encode(wrong)
	s.ErrorAs(err, &domain.ErrRecordType{})

	_, err = t.Decode(3)
	s.ErrorAs(err, &domain.ErrDecode{})
}

func (s *FieldTestSuite) TestReference() {
	user := s.reg.MustDeclare("User", schema.WithFields(schema.NewField("name", field.NewString())))
	t := field.NewReference(user)
	s.Equal(user, t.TargetSchema())
	s.Equal(domain.KindReference, t.Kind())

	s.roundTrip(t, record.Ref{Schema: user, ID: "abc"})

	rec, err := record.New(user, map[string]any{"name": "x"})
	s.Require().NoError(err)
	s.False(t.Validate(rec))
	_, err = t.Encode(rec)
	s.ErrorIs(err, domain.ErrNoID)

	rec.SetID("abc")
	s.True(t.Validate(rec))
	w, err := t.Encode(rec)
	s.NoError(err)
	s.Equal("abc", w)

	s.True(t.IsEmpty(record.Ref{}))
	s.False(t.IsEmpty(rec))

	lazy := field.NewReferenceTo(s.reg, "Later")
	s.Nil(lazy.TargetSchema())
	later := s.reg.MustDeclare("Later")
	s.Equal(later, lazy.TargetSchema())
}

func (s *FieldTestSuite) TestDynamic() {
	user := s.reg.MustDeclare("User", schema.WithFields(schema.NewField("name", field.NewString())))
	rec, err := record.New(user, map[string]any{"name": "x"})
	s.Require().NoError(err)

	t := field.NewDynamic()
	s.Equal(domain.KindDynamic, t.Kind())
	s.True(t.Validate(struct{}{}))
	w, err := t.Encode([]any{rec, record.Ref{ID: 1}, domain.M{"a": 1}})
	s.NoError(err)
	s.Equal([]any{domain.M{"name": "x"}, 1, domain.M{"a": 1}}, w)
	s.roundTrip(t, "x")
}

func TestFieldTestSuite(t *testing.T) {
	suite.Run(t, new(FieldTestSuite))
}
