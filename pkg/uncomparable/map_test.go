package uncomparable

import (
	"fmt"
	"maps"
	"slices"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/vinicius-lino-figueiredo/godm/adapter/comparer"
	"github.com/vinicius-lino-figueiredo/godm/adapter/hasher"
	"github.com/vinicius-lino-figueiredo/godm/domain"
)

type hasherMock struct{ mock.Mock }

// Hash implements domain.Hasher.
func (h *hasherMock) Hash(v any) (uint64, error) {
	call := h.Called(v)
	return uint64(call.Int(0)), call.Error(1)
}

type comparerMock struct{ mock.Mock }

// Comparable implements domain.Comparer.
func (c *comparerMock) Comparable(a any, b any) bool {
	return c.Called(a, b).Bool(0)
}

// Compare implements domain.Comparer.
func (c *comparerMock) Compare(a any, b any) (int, error) {
	call := c.Called(a, b)
	return call.Int(0), call.Error(1)
}

type MapTestSuite struct {
	suite.Suite
	m *Map[any]
}

func (s *MapTestSuite) SetupTest() {
	s.m = New[any](hasher.NewHasher(), comparer.NewComparer())
}

func (s *MapTestSuite) fill(n int) []any {
	keys := make([]any, n)
	for i := range n {
		keys[i] = fmt.Sprintf("key%d", i)
		s.Require().NoError(s.m.Set(keys[i], i))
	}
	return keys
}

func (s *MapTestSuite) TestSet() {
	s.NoError(s.m.Set("key", "value"))
	s.NoError(s.m.Set("key", "another"))
	value, ok, err := s.m.Get("key")
	s.NoError(err)
	s.True(ok)
	s.Equal("another", value)
	s.Equal(1, s.m.Len())

	// set depends on comparer to work
	c := new(comparerMock)
	s.m.comparer = c
	comparisonErr := fmt.Errorf("comparison error")
	c.On("Compare", "key", "key").Return(0, comparisonErr).Once()
	s.ErrorIs(s.m.Set("key", "value"), comparisonErr)

	// if cannot hash, does not reach comparison
	h := new(hasherMock)
	s.m.hasher = h
	hashErr := fmt.Errorf("hash error")
	h.On("Hash", "key").Return(0, hashErr).Once()
	s.ErrorIs(s.m.Set("key", "value"), hashErr)
	c.AssertExpectations(s.T())
}

func (s *MapTestSuite) TestEqualWireValues() {
	s.NoError(s.m.Set(int64(1), "one"))
	s.NoError(s.m.Set(domain.M{"a": 1, "b": domain.A{"x", 2.0}}, "doc"))
	s.NoError(s.m.Set(nil, "null"))

	v, ok, err := s.m.Get(1.0)
	s.NoError(err)
	s.True(ok)
	s.Equal("one", v)

	v, ok, err = s.m.Get(domain.M{"b": domain.A{"x", int32(2)}, "a": uint8(1)})
	s.NoError(err)
	s.True(ok)
	s.Equal("doc", v)

	_, ok, err = s.m.Get(domain.M{"a": 1})
	s.NoError(err)
	s.False(ok)

	s.NoError(s.m.Set(1, "uno"))
	s.Equal(3, s.m.Len())
	s.Equal([]any{int64(1), domain.M{"a": 1, "b": domain.A{"x", 2.0}}, nil}, slices.Collect(s.m.Keys()))
	s.Equal([]any{"uno", "doc", "null"}, slices.Collect(s.m.Values()))
}

func (s *MapTestSuite) TestGet() {
	s.NoError(s.m.Set("key", "value"))
	value, exists, err := s.m.Get("key")
	s.NoError(err)
	s.True(exists)
	s.Equal("value", value)

	value, exists, err = s.m.Get("nope")
	s.NoError(err)
	s.False(exists)
	s.Nil(value)

	// get depends on comparer to work
	c := new(comparerMock)
	s.m.comparer = c
	comparisonErr := fmt.Errorf("comparison error")
	c.On("Compare", "key", "key").Return(0, comparisonErr).Once()
	val, ok, err := s.m.Get("key")
	s.ErrorIs(err, comparisonErr)
	s.False(ok)
	s.Nil(val)

	// if cannot hash, does not reach comparison
	h := new(hasherMock)
	s.m.hasher = h
	hashErr := fmt.Errorf("hash error")
	h.On("Hash", "key").Return(0, hashErr).Once()
	val, ok, err = s.m.Get("key")
	s.ErrorIs(err, hashErr)
	s.False(ok)
	s.Nil(val)
}

func (s *MapTestSuite) TestDelete() {
	s.NoError(s.m.Set("key", "value"))
	s.NoError(s.m.Set("another", "value"))

	s.NoError(s.m.Delete("key"))
	value, exists, err := s.m.Get("key")
	s.NoError(err)
	s.False(exists)
	s.Nil(value)
	s.Equal(1, s.m.Len())

	s.NoError(s.m.Delete("nope"))
	s.Equal([]any{"another"}, slices.Collect(s.m.Keys()))

	// colliding keys are told apart by the comparer
	h := new(hasherMock)
	c := new(comparerMock)
	s.m = New[any](h, c)
	h.On("Hash", mock.Anything).Return(7, nil)
	c.On("Compare", "b", "a").Return(1, nil)
	c.On("Compare", "b", "b").Return(0, nil)
	s.NoError(s.m.Set("a", 1))
	s.NoError(s.m.Set("b", 2))
	s.NoError(s.m.Delete("b"))
	s.Equal([]any{"a"}, slices.Collect(s.m.Keys()))

	comparisonErr := fmt.Errorf("comparison error")
	c.On("Compare", "c", "a").Return(0, comparisonErr).Once()
	s.ErrorIs(s.m.Delete("c"), comparisonErr)
}

func (s *MapTestSuite) TestGrow() {
	keys := s.fill(100)
	s.Greater(len(s.m.buckets), initialBuckets)
	s.Equal(100, s.m.Len())
	s.Equal(keys, slices.Collect(s.m.Keys()))
	for n, k := range keys {
		v, ok, err := s.m.Get(k)
		s.NoError(err)
		s.True(ok)
		s.Equal(n, v)
	}
}

func (s *MapTestSuite) TestIter() {
	s.Empty(maps.Collect(s.m.Iter()))
	keys := s.fill(5)

	expected := make(map[any]any)
	for n, k := range keys {
		expected[k] = n
	}
	s.Equal(expected, maps.Collect(s.m.Iter()))
	s.Equal([]any{0, 1, 2, 3, 4}, slices.Collect(s.m.Values()))
}

func (s *MapTestSuite) TestBreakIterations() {
	s.fill(5)

	for range s.m.Keys() {
		break
	}
	for range s.m.Iter() {
		break
	}
	for range s.m.Values() {
		break
	}

	s.Len(slices.Collect(s.m.Keys()), 5)
}

func TestMapTestSuite(t *testing.T) {
	suite.Run(t, new(MapTestSuite))
}
