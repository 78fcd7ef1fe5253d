package mongodriver

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/vinicius-lino-figueiredo/godm/adapter/cursor"
	"github.com/vinicius-lino-figueiredo/godm/domain"
)

type M = domain.M
type A = []any

const dupMessage = `E11000 duplicate key error collection: blog.posts index: title_1 dup key: { title: "go" }`

type ConvertTestSuite struct {
	suite.Suite
}

func (s *ConvertTestSuite) TestToBSON() {
	re := regexp.MustCompile(`(?i)^go`)
	v := toBSON(M{
		"a":    A{1, M{"b": "c"}},
		"sort": domain.Sort{{Key: "x", Order: 1}, {Key: "y", Order: -1}},
		"re":   re,
	})
	s.Equal(bson.M{
		"a":    bson.A{1, bson.M{"b": "c"}},
		"sort": bson.D{{Key: "x", Value: int64(1)}, {Key: "y", Value: int64(-1)}},
		"re":   primitive.Regex{Pattern: "^go", Options: "i"},
	}, v)

	s.Equal(primitive.Regex{Pattern: "(?:a)b"}, regexToBSON(regexp.MustCompile(`(?:a)b`)))
	s.Equal(bson.M{}, docToBSON(nil))
}

func (s *ConvertTestSuite) TestFromBSON() {
	now := time.UnixMilli(time.Now().UnixMilli())
	id := primitive.NewObjectID()
	v := fromBSON(bson.M{
		"d":    primitive.NewDateTimeFromTime(now),
		"bin":  primitive.Binary{Data: []byte{1}},
		"list": bson.A{bson.D{{Key: "k", Value: int32(1)}}},
		"id":   id,
	})
	doc := v.(M)
	s.True(now.Equal(doc["d"].(time.Time)))
	s.Equal([]byte{1}, doc["bin"])
	s.Equal(A{M{"k": int32(1)}}, doc["list"])
	s.Equal(id, doc["id"])
}

func (s *ConvertTestSuite) TestHasOperator() {
	s.True(hasOperator(M{"$set": M{}}))
	s.False(hasOperator(M{"a": 1}))
}

func (s *ConvertTestSuite) TestDuplicateKeyErrors() {
	testCases := []struct {
		err   error
		cause func(error) bool
	}{
		{
			err: mongo.WriteException{WriteErrors: mongo.WriteErrors{{Code: 11000, Message: dupMessage}}},
			cause: func(err error) bool {
				var target mongo.WriteException
				return errors.As(err, &target) && target.WriteErrors[0].Code == 11000
			},
		},
		{
			err: mongo.BulkWriteException{WriteErrors: []mongo.BulkWriteError{{WriteError: mongo.WriteError{Code: 11000, Message: dupMessage}}}},
			cause: func(err error) bool {
				var target mongo.BulkWriteException
				return errors.As(err, &target) && target.WriteErrors[0].Code == 11000
			},
		},
		{
			err: mongo.CommandError{Code: 11000, Message: dupMessage},
			cause: func(err error) bool {
				var target mongo.CommandError
				return errors.As(err, &target) && target.Code == 11000
			},
		},
	}
	for _, tc := range testCases {
		wrapped := wrap(tc.err)
		var dup domain.ErrDuplicateKey
		s.Require().ErrorAs(wrapped, &dup)
		s.Equal(11000, dup.Code)
		s.Equal(dupMessage, dup.Message)
		// driver errors hold slices, so they are found by type
		s.True(tc.cause(wrapped), "%T is not kept in the chain", tc.err)

		v, ok := domain.AsUniqueViolation(wrapped, "Post")
		s.True(ok)
		s.Equal("blog.posts.$title_1", v.IndexName)
	}

	other := errors.New("other")
	s.Equal(other, wrap(other))
	s.NoError(wrap(nil))
	s.Equal(mongo.CommandError{Code: 2}, wrap(mongo.CommandError{Code: 2}))
}

func TestConvertTestSuite(t *testing.T) {
	suite.Run(t, new(ConvertTestSuite))
}

type ConfigTestSuite struct {
	suite.Suite
}

func (s *ConfigTestSuite) TestDefaults() {
	cfg, err := LoadConfig("GODM_TEST_DEFAULTS", "")
	s.NoError(err)
	s.Equal(Config{URI: "mongodb://localhost:27017", Database: "test", Timeout: 10 * time.Second}, cfg)
}

func (s *ConfigTestSuite) TestEnvironment() {
	s.T().Setenv("GODM_TEST_URI", "mongodb://db:27017")
	s.T().Setenv("GODM_TEST_TIMEOUT", "3s")
	cfg, err := LoadConfig("GODM_TEST", "")
	s.NoError(err)
	s.Equal(Config{URI: "mongodb://db:27017", Database: "test", Timeout: 3 * time.Second}, cfg)
}

func (s *ConfigTestSuite) TestEnvFile() {
	file := filepath.Join(s.T().TempDir(), ".env")
	content := "GODM_TEST_URI=mongodb://file:27017\nGODM_TEST_DATABASE=blog\nOTHER=1\n"
	s.Require().NoError(os.WriteFile(file, []byte(content), 0o600))
	s.T().Setenv("GODM_TEST_DATABASE", "env")

	cfg, err := LoadConfig("GODM_TEST", file)
	s.NoError(err)
	s.Equal("mongodb://file:27017", cfg.URI)
	s.Equal("env", cfg.Database)

	cfg, err = LoadConfig("GODM_TEST", filepath.Join(s.T().TempDir(), "missing.env"))
	s.NoError(err)
	s.Equal("env", cfg.Database)
}

func TestConfigTestSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}

func TestDriver(t *testing.T) {
	ctx := context.Background()
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("find", func(mt *mtest.T) {
		d := NewDriver(mt.DB)
		ns := mt.DB.Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
			bson.D{{Key: "_id", Value: "a"}, {Key: "title", Value: "go"}},
			bson.D{{Key: "_id", Value: "b"}, {Key: "title", Value: "zig"}},
		))
		cur, err := d.Find(ctx, mt.Coll.Name(), M{"title": M{"$in": A{"go", "zig"}}},
			domain.WithSort(domain.Sort{{Key: "title", Order: 1}}),
			domain.WithLimit(2),
		)
		require.NoError(mt, err)
		rows, err := cursor.All(ctx, cur)
		require.NoError(mt, err)
		assert.Equal(mt, []M{{"_id": "a", "title": "go"}, {"_id": "b", "title": "zig"}}, rows)
	})

	mt.Run("scan struct", func(mt *mtest.T) {
		d := NewDriver(mt.DB)
		ns := mt.DB.Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
			bson.D{{Key: "title", Value: "go"}, {Key: "views", Value: int32(3)}},
		))
		cur, err := d.Find(ctx, mt.Coll.Name(), nil)
		require.NoError(mt, err)
		var post struct {
			Title string `godm:"title"`
			Views int    `godm:"views"`
		}
		assert.ErrorIs(mt, cur.Scan(ctx, &post), domain.ErrScanBeforeNext)
		require.True(mt, cur.Next(ctx))
		require.NoError(mt, cur.Scan(ctx, &post))
		assert.Equal(mt, "go", post.Title)
		assert.Equal(mt, 3, post.Views)
		assert.NoError(mt, cur.Close(ctx))
	})

	mt.Run("insert", func(mt *mtest.T) {
		d := NewDriver(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse())
		ids, err := d.Insert(ctx, mt.Coll.Name(), M{"_id": "a"}, M{"title": "go"})
		require.NoError(mt, err)
		require.Len(mt, ids, 2)
		assert.Equal(mt, "a", ids[0])
		assert.IsType(mt, primitive.ObjectID{}, ids[1])
	})

	mt.Run("insert duplicate", func(mt *mtest.T) {
		d := NewDriver(mt.DB)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{Index: 0, Code: 11000, Message: dupMessage}))
		_, err := d.Insert(ctx, mt.Coll.Name(), M{"title": "go"})
		var dup domain.ErrDuplicateKey
		require.ErrorAs(mt, err, &dup)
		assert.Equal(mt, dupMessage, dup.Message)
	})

	mt.Run("update", func(mt *mtest.T) {
		d := NewDriver(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 2}, bson.E{Key: "nModified", Value: 1}))
		res, err := d.Update(ctx, mt.Coll.Name(), M{"a": 1}, M{"$set": M{"b": 2}}, domain.WithUpdateMulti(true))
		require.NoError(mt, err)
		assert.Equal(mt, domain.UpdateResult{Matched: 2, Modified: 1}, res)

		_, err = d.Update(ctx, mt.Coll.Name(), M{"a": 1}, M{"b": 2}, domain.WithUpdateMulti(true))
		assert.ErrorAs(mt, err, &domain.ErrInvalidFilter{})
	})

	mt.Run("remove", func(mt *mtest.T) {
		d := NewDriver(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 3}))
		n, err := d.Remove(ctx, mt.Coll.Name(), M{"a": 1}, domain.WithRemoveMulti(true))
		require.NoError(mt, err)
		assert.Equal(mt, int64(3), n)
	})

	mt.Run("count", func(mt *mtest.T) {
		d := NewDriver(mt.DB)
		ns := mt.DB.Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{{Key: "n", Value: int32(4)}}))
		n, err := d.Count(ctx, mt.Coll.Name(), M{"a": 1})
		require.NoError(mt, err)
		assert.Equal(mt, int64(4), n)
	})

	mt.Run("ensure index", func(mt *mtest.T) {
		d := NewDriver(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse())
		name, err := d.EnsureIndex(ctx, mt.Coll.Name(), domain.IndexModel{Keys: domain.Sort{{Key: "title", Order: 1}}, Unique: true})
		require.NoError(mt, err)
		assert.Equal(mt, "title_1", name)
	})

	mt.Run("aggregate", func(mt *mtest.T) {
		d := NewDriver(mt.DB)
		ns := mt.DB.Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
			bson.D{{Key: "_id", Value: bson.D{{Key: "shop", Value: "north"}}}, {Key: "total", Value: int64(3)}},
		))
		cur, err := d.Aggregate(ctx, mt.Coll.Name(), []M{
			{"$group": M{"_id": M{"shop": "$shop"}, "total": M{"$sum": "$qty"}}},
			{"$sort": domain.Sort{{Key: "total", Order: -1}}},
		})
		require.NoError(mt, err)
		rows, err := cursor.All(ctx, cur)
		require.NoError(mt, err)
		assert.Equal(mt, []M{{"_id": M{"shop": "north"}, "total": int64(3)}}, rows)
	})
}
