package hasher

import (
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/vinicius-lino-figueiredo/godm/adapter/comparer"
	"github.com/vinicius-lino-figueiredo/godm/domain"
)

type M = domain.M
type A = domain.A

type undefined struct{}

// Get implements domain.Getter.
func (undefined) Get() (any, bool) { return nil, false }

type defined struct{ v any }

// Get implements domain.Getter.
func (d defined) Get() (any, bool) { return d.v, true }

type HasherTestSuite struct {
	suite.Suite
	hasher *Hasher
}

func (s *HasherTestSuite) SetupTest() {
	s.hasher = NewHasher().(*Hasher)
}

func (s *HasherTestSuite) hash(v any) uint64 {
	h, err := s.hasher.Hash(v)
	s.Require().NoError(err)
	return h
}

// Values the comparer considers equal hash the same.
func (s *HasherTestSuite) TestEqualValues() {
	now := time.Now()
	groups := [][]any{
		{1, int8(1), uint64(1), 1.0, float32(1), decimal.NewFromInt(1)},
		{0.5, decimal.RequireFromString("0.5"), float32(0.5)},
		{math.NaN(), math.Inf(-1)},
		{int64(9007199254740993), decimal.RequireFromString("9007199254740993")},
		{now, now.In(time.UTC)},
		{M{"a": 1, "b": "x"}, M{"b": "x", "a": 1.0}},
		{A{1, M{"c": nil}}, []any{int16(1), M{"c": nil}}},
		{"s", defined{"s"}},
	}
	cmp := comparer.NewComparer()
	for _, group := range groups {
		for _, v := range group[1:] {
			c, err := cmp.Compare(group[0], v)
			s.Require().NoError(err)
			s.Require().Zero(c, "%v and %v", group[0], v)
			s.Equal(s.hash(group[0]), s.hash(v), "%v and %v", group[0], v)
		}
	}
}

// Values of different types must not share a hash just because their JSON
// looks the same.
func (s *HasherTestSuite) TestDistinctTypes() {
	values := []any{
		nil, undefined{}, true, false,
		1, "1", []byte("1"), A{1}, A{"1"},
		M{}, A{}, "", 0,
		time.UnixMilli(1), M{"a": 1}, M{"a": "1"},
		math.Inf(1), 0.1,
		int64(9007199254740993), int64(9007199254740992),
		decimal.RequireFromString("0.1000000000000000000000001"),
		decimal.RequireFromString("0.1"),
	}
	seen := make(map[uint64]any)
	for _, v := range values {
		h := s.hash(v)
		other, ok := seen[h]
		s.False(ok, "%#v and %#v share a hash", v, other)
		seen[h] = v
	}
}

func (s *HasherTestSuite) TestUnknownTypes() {
	type point struct{ X, Y int }
	s.Equal(s.hash(point{1, 2}), s.hash(point{3, 4}))
	s.NotEqual(s.hash(point{1, 2}), s.hash(struct{ X, Y int }{1, 2}))
	s.Equal(s.hash(M{"p": make(chan int)}), s.hash(M{"p": make(chan int)}))
}

func TestHasherTestSuite(t *testing.T) {
	suite.Run(t, new(HasherTestSuite))
}
