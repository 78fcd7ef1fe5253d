package comparer

import (
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"github.com/vinicius-lino-figueiredo/godm/adapter/fieldnavigator"
	"github.com/vinicius-lino-figueiredo/godm/domain"
)

type M = domain.M

type ComparerTestSuite struct {
	suite.Suite
	c *Comparer
}

func (s *ComparerTestSuite) SetupTest() {
	s.c = NewComparer().(*Comparer)
}

// assertOrder checks that every value of lower sorts before every value of
// higher, both ways.
func (s *ComparerTestSuite) assertOrder(lower []any, higher []any) {
	for _, l := range lower {
		for _, h := range higher {
			comp, err := s.c.Compare(l, h)
			s.NoError(err)
			s.Equal(-1, comp, "%#v < %#v", l, h)
			comp, err = s.c.Compare(h, l)
			s.NoError(err)
			s.Equal(1, comp, "%#v > %#v", h, l)
		}
	}
}

func (s *ComparerTestSuite) TestTypeOrder() {
	ranks := [][]any{
		{fieldnavigator.NewGetSetterEmpty()},
		{nil},
		{-12, uint(0), 5.7, decimal.RequireFromString("1.50")},
		{"", "string"},
		{M{}, M{"hello": "world"}},
		{[]any{}, []any{"quite", 5}},
		{[]byte{}, []byte("abc")},
		{false, true},
		{time.UnixMilli(-123), time.UnixMilli(5555)},
	}
	for n := range len(ranks) - 1 {
		for _, higher := range ranks[n+1:] {
			s.assertOrder(ranks[n], higher)
		}
	}
}

func (s *ComparerTestSuite) TestUndefined() {
	undefined := fieldnavigator.NewGetSetterEmpty()
	comp, err := s.c.Compare(undefined, undefined)
	s.NoError(err)
	s.Zero(comp)
}

func (s *ComparerTestSuite) TestNumbers() {
	testCases := []struct {
		arg1 any
		arg2 any
		res  int
	}{
		{arg1: int64(-12), arg2: int16(0), res: -1},
		{arg1: uint8(0), arg2: int8(-3), res: 1},
		{arg1: 5.7, arg2: uint32(2), res: 1},
		{arg1: 5.7, arg2: float32(12.3), res: -1},
		{arg1: uint64(0), arg2: uint16(0), res: 0},
		{arg1: -2.6, arg2: -2.6, res: 0},
		{arg1: int32(5), arg2: 5, res: 0},
		{arg1: decimal.RequireFromString("5.00"), arg2: 5, res: 0},
		{arg1: decimal.RequireFromString("0.10"), arg2: 0.2, res: -1},
		{arg1: int64(9007199254740993), arg2: float64(9007199254740992), res: 1},
		{arg1: uint64(math.MaxUint64), arg2: uint64(math.MaxUint64 - 1), res: 1},
		{arg1: int64(math.MaxInt64), arg2: int64(math.MaxInt64 - 1), res: 1},
		{arg1: decimal.RequireFromString("0.1000000000000000000000001"), arg2: decimal.RequireFromString("0.1"), res: 1},
		{arg1: decimal.RequireFromString("0.1"), arg2: 0.1, res: -1},
		{arg1: decimal.RequireFromString("9007199254740993"), arg2: int64(9007199254740993), res: 0},
		{arg1: math.Inf(1), arg2: uint64(math.MaxUint64), res: 1},
		{arg1: math.NaN(), arg2: math.Inf(-1), res: 0},
		{arg1: math.Inf(-1), arg2: int64(math.MinInt64), res: -1},
	}

	for _, tc := range testCases {
		comp, err := s.c.Compare(tc.arg1, tc.arg2)
		s.NoError(err)
		s.Equal(tc.res, comp, "%v vs %v", tc.arg1, tc.arg2)
	}
}

func (s *ComparerTestSuite) TestStrings() {
	testCases := []struct {
		arg1 string
		arg2 string
		res  int
	}{
		{arg1: "", arg2: "hey", res: -1},
		{arg1: "hey", arg2: "", res: 1},
		{arg1: "hey", arg2: "hew", res: 1},
		{arg1: "hey", arg2: "hey", res: 0},
	}

	for _, tc := range testCases {
		comp, err := s.c.Compare(tc.arg1, tc.arg2)
		s.NoError(err)
		s.Equal(tc.res, comp)
	}
}

func (s *ComparerTestSuite) TestBools() {
	testCases := []struct {
		arg1 bool
		arg2 bool
		res  int
	}{
		{arg1: true, arg2: true, res: 0},
		{arg1: false, arg2: false, res: 0},
		{arg1: true, arg2: false, res: 1},
		{arg1: false, arg2: true, res: -1},
	}

	for _, tc := range testCases {
		comp, err := s.c.Compare(tc.arg1, tc.arg2)
		s.NoError(err)
		s.Equal(tc.res, comp)
	}
}

func (s *ComparerTestSuite) TestTimes() {
	now := time.Now()
	testCases := []struct {
		arg1 time.Time
		arg2 time.Time
		res  int
	}{
		{arg1: now, arg2: now, res: 0},
		{arg1: time.UnixMilli(54341), arg2: now, res: -1},
		{arg1: now, arg2: time.UnixMilli(54341), res: 1},
		{arg1: time.UnixMilli(0), arg2: time.UnixMilli(-54341), res: 1},
	}

	for _, tc := range testCases {
		comp, err := s.c.Compare(tc.arg1, tc.arg2)
		s.NoError(err)
		s.Equal(tc.res, comp)
	}
}

func (s *ComparerTestSuite) TestLists() {
	testCases := []struct {
		arg1 []any
		arg2 []any
		res  int
	}{
		{arg1: []any{}, arg2: []any{}, res: 0},
		{arg1: []any{"hello"}, arg2: []any{}, res: 1},
		{arg1: []any{"hello"}, arg2: []any{"hello", "world"}, res: -1},
		{arg1: []any{"hello", "earth"}, arg2: []any{"hello", "world"}, res: -1},
		{arg1: []any{"hello", "zzz"}, arg2: []any{"hello", "world"}, res: 1},
		{arg1: []any{1, M{"a": 1}}, arg2: []any{1, M{"a": 1}}, res: 0},
	}

	for _, tc := range testCases {
		comp, err := s.c.Compare(tc.arg1, tc.arg2)
		s.NoError(err)
		s.Equal(tc.res, comp)
	}
}

func (s *ComparerTestSuite) TestDocuments() {
	testCases := []struct {
		arg1 M
		arg2 M
		res  int
	}{
		{arg1: M{"a": 42}, arg2: M{"a": 312}, res: -1},
		{arg1: M{"a": "42"}, arg2: M{"a": "312"}, res: 1},
		{arg1: M{"a": 42, "b": 312}, arg2: M{"b": 312, "a": 42}, res: 0},
		{arg1: M{"a": 42, "b": 312, "c": 54}, arg2: M{"b": 313, "a": 42}, res: -1},
		{arg1: M{"a": 1}, arg2: M{"b": 0}, res: -1},
		{arg1: M{"a": 1, "b": 1}, arg2: M{"a": 1}, res: 1},
	}

	for _, tc := range testCases {
		comp, err := s.c.Compare(tc.arg1, tc.arg2)
		s.NoError(err)
		s.Equal(tc.res, comp)
	}
}

func (s *ComparerTestSuite) TestErrorOnUnknownType() {
	testCases := []struct {
		arg1 any
		arg2 any
	}{
		{arg1: struct{}{}, arg2: []byte{}},
		{arg1: M{}, arg2: []string{}},
		{arg1: M{"nested": []string{"invalid"}}, arg2: M{"nested": []int{}}},
		{arg1: []any{map[int]int{}}, arg2: []any{map[int]int{}}},
	}

	for _, tc := range testCases {
		_, err := s.c.Compare(tc.arg1, tc.arg2)
		s.Error(err)
	}
}

func (s *ComparerTestSuite) TestComparable() {
	undefined := fieldnavigator.NewGetSetterEmpty()
	now := time.Now()

	s.True(s.c.Comparable(1, 2.5))
	s.True(s.c.Comparable(uint8(1), decimal.NewFromInt(3)))
	s.True(s.c.Comparable("a", "b"))
	s.True(s.c.Comparable(now, time.UnixMilli(0)))

	s.False(s.c.Comparable(1, "1"))
	s.False(s.c.Comparable("abc", now))
	s.False(s.c.Comparable(nil, nil))
	s.False(s.c.Comparable(true, false))
	s.False(s.c.Comparable([]any{1}, []any{2}))
	s.False(s.c.Comparable(M{"a": 1}, M{"a": 2}))
	s.False(s.c.Comparable(undefined, 1))
	s.False(s.c.Comparable(1, undefined))
}

func (s *ComparerTestSuite) TestGetSetterDefinedValues() {
	a := fieldnavigator.NewGetSetterWithDoc(M{
		"a": M{"a": 1, "b": 2},
	}, "a")
	b := fieldnavigator.NewGetSetterWithDoc(M{
		"a": M{"a": 1, "b": 2, "c": 3},
	}, "a")
	comp, err := s.c.Compare(a, b)
	s.NoError(err)
	s.Less(comp, 0)
	comp, err = s.c.Compare(b, a)
	s.NoError(err)
	s.Greater(comp, 0)
}

func TestComparerTestSuite(t *testing.T) {
	suite.Run(t, new(ComparerTestSuite))
}
