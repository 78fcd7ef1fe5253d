package matcher

import (
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"github.com/vinicius-lino-figueiredo/godm/domain"
)

type M = domain.M

type A = []any

type comparerMock struct{ mock.Mock }

// Comparable implements [domain.Comparer].
func (c *comparerMock) Comparable(a any, b any) bool {
	return c.Called(a, b).Bool(0)
}

// Compare implements [domain.Comparer].
func (c *comparerMock) Compare(a any, b any) (int, error) {
	call := c.Called(a, b)
	return call.Int(0), call.Error(1)
}

type MatcherTestSuite struct {
	suite.Suite
	mtchr *Matcher
}

func (s *MatcherTestSuite) SetupTest() {
	s.mtchr = NewMatcher().(*Matcher)
}

func (s *MatcherTestSuite) Matches(matches bool, err error) {
	s.T().Helper()
	s.NoError(err)
	s.True(matches)
}

func (s *MatcherTestSuite) NotMatches(matches bool, err error) {
	s.T().Helper()
	s.NoError(err)
	s.False(matches)
}

func (s *MatcherTestSuite) TestNoQuery() {
	s.Matches(s.mtchr.Match(M{"a": 1}))
	s.NoError(s.mtchr.SetQuery(nil))
	s.Matches(s.mtchr.Match(M{"a": 1}))
}

func (s *MatcherTestSuite) TestSimpleFieldEquality() {
	s.NoError(s.mtchr.SetQuery(M{"test": "yeah"}))

	s.NotMatches(s.mtchr.Match(M{"test": "yea"}))
	s.NotMatches(s.mtchr.Match(M{"test": "yeahh"}))
	s.NotMatches(s.mtchr.Match(M{}))
	s.Matches(s.mtchr.Match(M{"test": "yeah"}))
}

func (s *MatcherTestSuite) TestDotNotation() {
	s.NoError(s.mtchr.SetQuery(M{"test.ooo": "yeah"}))

	s.NotMatches(s.mtchr.Match(M{"test": M{"ooo": "yea"}}))
	s.NotMatches(s.mtchr.Match(M{"test": "yeah"}))
	s.Matches(s.mtchr.Match(M{"test": M{"ooo": "yeah"}}))
}

func (s *MatcherTestSuite) TestNestedDocumentsAreDeepEqual() {
	s.NoError(s.mtchr.SetQuery(M{"a": M{"b": 5}}))
	s.Matches(s.mtchr.Match(M{"a": M{"b": 5}}))
	s.NotMatches(s.mtchr.Match(M{"a": M{"b": 5, "c": 3}}))
}

func (s *MatcherTestSuite) TestListContains() {
	s.NoError(s.mtchr.SetQuery(M{"tags": "go"}))
	s.Matches(s.mtchr.Match(M{"tags": A{"rust", "go"}}))
	s.NotMatches(s.mtchr.Match(M{"tags": A{"rust"}}))

	s.NoError(s.mtchr.SetQuery(M{"tags": A{"rust", "go"}}))
	s.Matches(s.mtchr.Match(M{"tags": A{"rust", "go"}}))
	s.NotMatches(s.mtchr.Match(M{"tags": A{"go", "rust"}}))
}

func (s *MatcherTestSuite) TestInsideListDotNotation() {
	s.NoError(s.mtchr.SetQuery(M{"comments.author": "ann"}))
	s.Matches(s.mtchr.Match(M{"comments": A{M{"author": "bob"}, M{"author": "ann"}}}))
	s.NotMatches(s.mtchr.Match(M{"comments": A{M{"author": "bob"}}}))
}

func (s *MatcherTestSuite) TestNullMatchesMissing() {
	s.NoError(s.mtchr.SetQuery(M{"a": nil}))
	s.Matches(s.mtchr.Match(M{}))
	s.Matches(s.mtchr.Match(M{"a": nil}))
	s.NotMatches(s.mtchr.Match(M{"a": 0}))
}

func (s *MatcherTestSuite) TestComparisons() {
	now := time.Now()
	testCases := []struct {
		query   M
		matches []M
		misses  []M
	}{
		{
			query:   M{"a": M{"$lt": 10}},
			matches: []M{{"a": 5}, {"a": 9.99}, {"a": A{12, 3}}},
			misses:  []M{{"a": 10}, {"a": "5"}, {}, {"a": nil}},
		},
		{
			query:   M{"a": M{"$lte": 10}},
			matches: []M{{"a": 10}, {"a": int64(-1)}},
			misses:  []M{{"a": 11}},
		},
		{
			query:   M{"a": M{"$gt": "b"}},
			matches: []M{{"a": "c"}, {"a": A{"a", "z"}}},
			misses:  []M{{"a": "b"}, {"a": 5}},
		},
		{
			query:   M{"a": M{"$gte": now}},
			matches: []M{{"a": now}, {"a": now.Add(time.Hour)}},
			misses:  []M{{"a": now.Add(-time.Hour)}, {"a": "now"}},
		},
		{
			query:   M{"a": M{"$gt": 1, "$lt": 5}},
			matches: []M{{"a": 3}},
			misses:  []M{{"a": 1}, {"a": 5}},
		},
	}

	for _, tc := range testCases {
		s.NoError(s.mtchr.SetQuery(tc.query))
		for _, doc := range tc.matches {
			s.Matches(s.mtchr.Match(doc))
		}
		for _, doc := range tc.misses {
			s.NotMatches(s.mtchr.Match(doc))
		}
	}
}

func (s *MatcherTestSuite) TestNotEqual() {
	s.NoError(s.mtchr.SetQuery(M{"a": M{"$ne": 5}}))
	s.Matches(s.mtchr.Match(M{"a": 4}))
	s.Matches(s.mtchr.Match(M{}))
	s.NotMatches(s.mtchr.Match(M{"a": 5}))
	s.NotMatches(s.mtchr.Match(M{"a": A{1, 5}}))
}

func (s *MatcherTestSuite) TestInAndNin() {
	s.NoError(s.mtchr.SetQuery(M{"a": M{"$in": A{1, "x"}}}))
	s.Matches(s.mtchr.Match(M{"a": "x"}))
	s.Matches(s.mtchr.Match(M{"a": A{9, 1}}))
	s.NotMatches(s.mtchr.Match(M{"a": 2}))
	s.NotMatches(s.mtchr.Match(M{}))

	s.NoError(s.mtchr.SetQuery(M{"a": M{"$nin": A{1, "x"}}}))
	s.NotMatches(s.mtchr.Match(M{"a": "x"}))
	s.Matches(s.mtchr.Match(M{"a": 2}))
	s.Matches(s.mtchr.Match(M{}))

	s.ErrorAs(s.mtchr.SetQuery(M{"a": M{"$in": 1}}), &domain.ErrInvalidFilter{})
}

func (s *MatcherTestSuite) TestAll() {
	s.NoError(s.mtchr.SetQuery(M{"tags": M{"$all": A{"a", "b"}}}))
	s.Matches(s.mtchr.Match(M{"tags": A{"b", "c", "a"}}))
	s.NotMatches(s.mtchr.Match(M{"tags": A{"a"}}))

	s.NoError(s.mtchr.SetQuery(M{"tags": M{"$all": A{}}}))
	s.NotMatches(s.mtchr.Match(M{"tags": A{}}))
}

func (s *MatcherTestSuite) TestExists() {
	s.NoError(s.mtchr.SetQuery(M{"a": M{"$exists": true}}))
	s.Matches(s.mtchr.Match(M{"a": 5}))
	s.Matches(s.mtchr.Match(M{"a": nil}))
	s.NotMatches(s.mtchr.Match(M{"b": 5}))

	s.NoError(s.mtchr.SetQuery(M{"a": M{"$exists": 0}}))
	s.NotMatches(s.mtchr.Match(M{"a": 5}))
	s.Matches(s.mtchr.Match(M{"b": 5}))

	s.NoError(s.mtchr.SetQuery(M{"a": M{"$exists": true, "$ne": nil}}))
	s.Matches(s.mtchr.Match(M{"a": 5}))
	s.NotMatches(s.mtchr.Match(M{"a": nil}))
	s.NotMatches(s.mtchr.Match(M{}))
}

func (s *MatcherTestSuite) TestRegex() {
	s.NoError(s.mtchr.SetQuery(M{"a": M{"$regex": "^hel"}}))
	s.Matches(s.mtchr.Match(M{"a": "hello"}))
	s.Matches(s.mtchr.Match(M{"a": A{"x", "help"}}))
	s.NotMatches(s.mtchr.Match(M{"a": "Hello"}))
	s.NotMatches(s.mtchr.Match(M{"a": 5}))
	s.NotMatches(s.mtchr.Match(M{}))

	s.NoError(s.mtchr.SetQuery(M{"a": M{"$regex": "^hel", "$options": "i"}}))
	s.Matches(s.mtchr.Match(M{"a": "Hello"}))

	s.NoError(s.mtchr.SetQuery(M{"a": regexp.MustCompile("lo$")}))
	s.Matches(s.mtchr.Match(M{"a": "hello"}))
	s.NotMatches(s.mtchr.Match(M{"a": "hell"}))

	s.ErrorAs(s.mtchr.SetQuery(M{"a": M{"$regex": "("}}), &domain.ErrInvalidFilter{})
	s.ErrorAs(s.mtchr.SetQuery(M{"a": M{"$regex": "a", "$options": "x"}}), &domain.ErrInvalidFilter{})
	s.ErrorAs(s.mtchr.SetQuery(M{"a": M{"$options": "i"}}), &domain.ErrInvalidFilter{})
	s.ErrorAs(s.mtchr.SetQuery(M{"a": M{"$regex": 1}}), &domain.ErrInvalidFilter{})
}

func (s *MatcherTestSuite) TestNot() {
	s.NoError(s.mtchr.SetQuery(M{"a": M{"$not": M{"$regex": "^x"}}}))
	s.Matches(s.mtchr.Match(M{"a": "abc"}))
	s.Matches(s.mtchr.Match(M{}))
	s.NotMatches(s.mtchr.Match(M{"a": "xyz"}))

	s.NoError(s.mtchr.SetQuery(M{"a": M{"$not": M{"$gt": 3}}}))
	s.Matches(s.mtchr.Match(M{"a": 3}))
	s.NotMatches(s.mtchr.Match(M{"a": 4}))

	s.ErrorAs(s.mtchr.SetQuery(M{"a": M{"$not": 3}}), &domain.ErrInvalidFilter{})
	s.ErrorAs(s.mtchr.SetQuery(M{"a": M{"$not": M{"b": 3}}}), &domain.ErrInvalidFilter{})
}

func (s *MatcherTestSuite) TestLogicalOperators() {
	s.NoError(s.mtchr.SetQuery(M{"$or": A{M{"a": 1}, M{"b": 2}}}))
	s.Matches(s.mtchr.Match(M{"a": 1}))
	s.Matches(s.mtchr.Match(M{"b": 2}))
	s.NotMatches(s.mtchr.Match(M{"a": 2}))

	s.NoError(s.mtchr.SetQuery(M{"$and": A{M{"a": 1}, M{"b": 2}}}))
	s.Matches(s.mtchr.Match(M{"a": 1, "b": 2}))
	s.NotMatches(s.mtchr.Match(M{"a": 1}))

	s.NoError(s.mtchr.SetQuery(M{"$nor": A{M{"a": 1}, M{"b": 2}}}))
	s.Matches(s.mtchr.Match(M{"a": 2}))
	s.NotMatches(s.mtchr.Match(M{"b": 2}))

	s.NoError(s.mtchr.SetQuery(M{"$or": []domain.M{{"a": 1}}, "c": 3}))
	s.Matches(s.mtchr.Match(M{"a": 1, "c": 3}))
	s.NotMatches(s.mtchr.Match(M{"a": 1}))
}

func (s *MatcherTestSuite) TestSize() {
	s.NoError(s.mtchr.SetQuery(M{"a": M{"$size": 2}}))
	s.Matches(s.mtchr.Match(M{"a": A{1, 2}}))
	s.NotMatches(s.mtchr.Match(M{"a": A{1}}))
	s.NotMatches(s.mtchr.Match(M{"a": "ab"}))

	s.NoError(s.mtchr.SetQuery(M{"a": M{"$size": 0.0}}))
	s.Matches(s.mtchr.Match(M{"a": A{}}))

	s.ErrorAs(s.mtchr.SetQuery(M{"a": M{"$size": 1.5}}), &domain.ErrInvalidFilter{})
}

func (s *MatcherTestSuite) TestElemMatch() {
	s.NoError(s.mtchr.SetQuery(M{"c": M{"$elemMatch": M{"author": "ann", "votes": M{"$gt": 2}}}}))
	s.Matches(s.mtchr.Match(M{"c": A{M{"author": "ann", "votes": 3}}}))
	s.NotMatches(s.mtchr.Match(M{"c": A{M{"author": "ann", "votes": 1}, M{"author": "bob", "votes": 5}}}))

	s.NoError(s.mtchr.SetQuery(M{"n": M{"$elemMatch": M{"$gt": 2, "$lt": 5}}}))
	s.Matches(s.mtchr.Match(M{"n": A{1, 4}}))
	s.NotMatches(s.mtchr.Match(M{"n": A{1, 6}}))
	s.NotMatches(s.mtchr.Match(M{"n": 4}))
}

func (s *MatcherTestSuite) TestInvalidQueries() {
	for _, q := range []M{
		{"$foo": 1},
		{"a": M{"$foo": 1}},
		{"a": M{"$gt": 1, "b": 2}},
		{"$or": 1},
		{"$or": A{}},
		{"$and": A{1}},
	} {
		s.ErrorAs(s.mtchr.SetQuery(q), &domain.ErrInvalidFilter{}, q)
	}
	s.ErrorAs(s.mtchr.SetQuery(M{"a..b": 1}), &domain.ErrFieldPath{})
}

func (s *MatcherTestSuite) TestCompareError() {
	errCmp := errors.New("compare error")
	c := new(comparerMock)
	c.On("Compare", 1, 2).Return(0, errCmp).Once()
	s.mtchr = NewMatcher(WithComparer(c)).(*Matcher)

	s.NoError(s.mtchr.SetQuery(M{"a": 2}))
	_, err := s.mtchr.Match(M{"a": 1})
	s.ErrorIs(err, errCmp)
	c.AssertExpectations(s.T())
}

func TestMatcherTestSuite(t *testing.T) {
	suite.Run(t, new(MatcherTestSuite))
}
