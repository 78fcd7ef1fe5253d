// Package mongodriver adapts the official MongoDB client to [domain.Driver].
package mongodriver

import (
	"context"
	"io"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/vinicius-lino-figueiredo/godm/adapter/decoder"
	"github.com/vinicius-lino-figueiredo/godm/adapter/index"
	"github.com/vinicius-lino-figueiredo/godm/domain"
)

var (
	_ domain.Driver     = (*Driver)(nil)
	_ domain.Counter    = (*Driver)(nil)
	_ domain.Indexer    = (*Driver)(nil)
	_ domain.Aggregator = (*Driver)(nil)
)

// Driver implements [domain.Driver], [domain.Counter], [domain.Indexer] and
// [domain.Aggregator] over a MongoDB database.
type Driver struct {
	client  *mongo.Client
	db      *mongo.Database
	decoder domain.Decoder
	logger  *slog.Logger
}

// NewDriver returns a driver over db. Closing the client stays with the
// caller.
func NewDriver(db *mongo.Database, opts ...Option) *Driver {
	d := &Driver{
		db:      db,
		decoder: decoder.NewDecoder(),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Connect opens a client with cfg and returns a driver over its database.
// The driver owns the client, see [Driver.Disconnect].
func Connect(ctx context.Context, cfg Config, opts ...Option) (*Driver, error) {
	clientOpts := options.Client().ApplyURI(cfg.URI)
	if cfg.Timeout > 0 {
		clientOpts.SetTimeout(cfg.Timeout)
	}
	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, err
	}
	d := NewDriver(client.Database(cfg.Database), opts...)
	d.client = client
	d.logger.DebugContext(ctx, "connected", "database", cfg.Database)
	return d, nil
}

// Disconnect closes the client opened by [Connect]. It does nothing for
// drivers built with [NewDriver].
func (d *Driver) Disconnect(ctx context.Context) error {
	if d.client == nil {
		return nil
	}
	return d.client.Disconnect(ctx)
}

// Database returns the underlying database.
func (d *Driver) Database() *mongo.Database { return d.db }

// Find implements [domain.Driver].
func (d *Driver) Find(ctx context.Context, collection string, filter domain.M, opts ...domain.FindOption) (domain.Cursor, error) {
	fo := domain.NewFindOptions(opts...)
	findOpts := options.Find()
	if len(fo.Projection) > 0 {
		findOpts.SetProjection(toBSON(fo.Projection))
	}
	if fo.Skip > 0 {
		findOpts.SetSkip(fo.Skip)
	}
	if fo.Limit > 0 {
		findOpts.SetLimit(fo.Limit)
	}
	if len(fo.Sort) > 0 {
		findOpts.SetSort(sortToBSON(fo.Sort))
	}
	d.logger.DebugContext(ctx, "find", "collection", collection)
	cur, err := d.db.Collection(collection).Find(ctx, docToBSON(filter), findOpts)
	if err != nil {
		return nil, err
	}
	return &Cursor{cur: cur, decoder: d.decoder}, nil
}

// Insert implements [domain.Driver]. Documents without an _id get an object
// id before being sent.
func (d *Driver) Insert(ctx context.Context, collection string, docs ...domain.M) ([]any, error) {
	if len(docs) == 0 {
		return []any{}, nil
	}
	ids := make([]any, len(docs))
	payload := make([]any, len(docs))
	for n, doc := range docs {
		b := docToBSON(doc)
		if _, ok := b[domain.IDField]; !ok {
			b[domain.IDField] = primitive.NewObjectID()
		}
		ids[n] = b[domain.IDField]
		payload[n] = b
	}
	d.logger.DebugContext(ctx, "insert", "collection", collection, "count", len(docs))
	if _, err := d.db.Collection(collection).InsertMany(ctx, payload); err != nil {
		return nil, wrap(err)
	}
	return ids, nil
}

// Update implements [domain.Driver]. An update without operators replaces
// a single document.
func (d *Driver) Update(ctx context.Context, collection string, filter domain.M, update domain.M, opts ...domain.UpdateOption) (domain.UpdateResult, error) {
	uo := domain.NewUpdateOptions(opts...)
	coll := d.db.Collection(collection)
	d.logger.DebugContext(ctx, "update", "collection", collection, "multi", uo.Multi, "upsert", uo.Upsert)

	var res *mongo.UpdateResult
	var err error
	switch {
	case !hasOperator(update):
		if uo.Multi {
			return domain.UpdateResult{}, domain.ErrInvalidFilter{Filter: "update", Reason: "a replacement can only change one document"}
		}
		res, err = coll.ReplaceOne(ctx, docToBSON(filter), docToBSON(update), options.Replace().SetUpsert(uo.Upsert))
	case uo.Multi:
		res, err = coll.UpdateMany(ctx, docToBSON(filter), docToBSON(update), options.Update().SetUpsert(uo.Upsert))
	default:
		res, err = coll.UpdateOne(ctx, docToBSON(filter), docToBSON(update), options.Update().SetUpsert(uo.Upsert))
	}
	if err != nil {
		return domain.UpdateResult{}, wrap(err)
	}
	return domain.UpdateResult{
		Matched:    res.MatchedCount,
		Modified:   res.ModifiedCount,
		UpsertedID: res.UpsertedID,
	}, nil
}

// Remove implements [domain.Driver].
func (d *Driver) Remove(ctx context.Context, collection string, filter domain.M, opts ...domain.RemoveOption) (int64, error) {
	ro := domain.NewRemoveOptions(opts...)
	coll := d.db.Collection(collection)
	d.logger.DebugContext(ctx, "remove", "collection", collection, "multi", ro.Multi)

	var res *mongo.DeleteResult
	var err error
	if ro.Multi {
		res, err = coll.DeleteMany(ctx, docToBSON(filter))
	} else {
		res, err = coll.DeleteOne(ctx, docToBSON(filter))
	}
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// Count implements [domain.Counter].
func (d *Driver) Count(ctx context.Context, collection string, filter domain.M) (int64, error) {
	d.logger.DebugContext(ctx, "count", "collection", collection)
	return d.db.Collection(collection).CountDocuments(ctx, docToBSON(filter))
}

// EnsureIndex implements [domain.Indexer].
func (d *Driver) EnsureIndex(ctx context.Context, collection string, model domain.IndexModel) (string, error) {
	if model.Name == "" {
		model.Name = index.Name(model.Keys)
	}
	idxOpts := options.Index().SetName(model.Name)
	if model.Unique {
		idxOpts.SetUnique(true)
	}
	if model.Sparse {
		idxOpts.SetSparse(true)
	}
	d.logger.DebugContext(ctx, "ensure index", "collection", collection, "index", model.Name)
	name, err := d.db.Collection(collection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    sortToBSON(model.Keys),
		Options: idxOpts,
	})
	if err != nil {
		return "", wrap(err)
	}
	return name, nil
}

// Aggregate implements [domain.Aggregator].
func (d *Driver) Aggregate(ctx context.Context, collection string, pipeline []domain.M) (domain.Cursor, error) {
	stages := make(bson.A, len(pipeline))
	for n, stage := range pipeline {
		stages[n] = docToBSON(stage)
	}
	d.logger.DebugContext(ctx, "aggregate", "collection", collection, "stages", len(pipeline))
	cur, err := d.db.Collection(collection).Aggregate(ctx, stages)
	if err != nil {
		return nil, err
	}
	return &Cursor{cur: cur, decoder: d.decoder}, nil
}
