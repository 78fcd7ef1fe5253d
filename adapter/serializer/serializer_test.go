package serializer

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/vinicius-lino-figueiredo/godm/domain"
)

type M = domain.M

var ctx = context.Background()

type SerializerTestSuite struct {
	suite.Suite
	s *Serializer
}

func (s *SerializerTestSuite) SetupTest() {
	s.s = NewSerializer()
}

func (s *SerializerTestSuite) roundTrip(doc M) map[string]any {
	b, err := s.s.Serialize(ctx, doc)
	s.Require().NoError(err)
	var r map[string]any
	s.Require().NoError(json.Unmarshal(b, &r))
	return r
}

// Can serialize plain values.
func (s *SerializerTestSuite) TestPlainValues() {
	r := s.roundTrip(M{"s": "Some string", "t": true, "n": 5, "f": 6.2, "nil": nil})
	s.Equal(map[string]any{"s": "Some string", "t": true, "n": 5.0, "f": 6.2, "nil": nil}, r)
}

// Can serialize time.Time.
func (s *SerializerTestSuite) TestDate() {
	d := time.Now()
	r := s.roundTrip(M{"test": d})
	s.Equal(map[string]any{"$$date": float64(d.UnixMilli())}, r["test"])
}

func (s *SerializerTestSuite) TestBinary() {
	r := s.roundTrip(M{"b": []byte("hi")})
	s.Equal(map[string]any{"$$binary": "aGk="}, r["b"])
}

// Can serialize sub documents and lists.
func (s *SerializerTestSuite) TestNested() {
	d := time.Now()
	r := s.roundTrip(M{"test": []any{39, d, M{"again": "yes", "also": d}}})
	list := r["test"].([]any)
	s.Equal(39.0, list[0])
	s.Equal(float64(d.UnixMilli()), list[1].(map[string]any)["$$date"])
	s.Equal("yes", list[2].(map[string]any)["again"])
	s.Equal(float64(d.UnixMilli()), list[2].(map[string]any)["also"].(map[string]any)["$$date"])
}

func (s *SerializerTestSuite) TestRejectReservedKeys() {
	_, err := s.s.Serialize(ctx, M{"a": M{"$$date": 1}})
	s.ErrorAs(err, &domain.ErrFieldPath{})
}

// Can serialize strings despite of line breaks.
func (s *SerializerTestSuite) TestStringWithLineBreak() {
	badString := "world\r\nearth\nother\rline"
	b, err := s.s.Serialize(ctx, M{"test": badString})
	s.NoError(err)
	s.NotContains(string(b), "\n")
	var r map[string]any
	s.NoError(json.Unmarshal(b, &r))
	s.Equal(badString, r["test"])
}

func (s *SerializerTestSuite) TestCancelledContext() {
	c, cancel := context.WithCancel(ctx)
	cancel()
	_, err := s.s.Serialize(c, M{})
	s.ErrorIs(err, context.Canceled)
}

func TestSerializerTestSuite(t *testing.T) {
	suite.Run(t, new(SerializerTestSuite))
}
