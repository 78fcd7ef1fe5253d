package mongodriver

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/vinicius-lino-figueiredo/godm/domain"
)

// Cursor implements [domain.Cursor] over a server cursor.
type Cursor struct {
	cur     *mongo.Cursor
	decoder domain.Decoder
	started bool
}

// Next implements [domain.Cursor].
func (c *Cursor) Next(ctx context.Context) bool {
	if c.cur.Next(ctx) {
		c.started = true
		return true
	}
	return false
}

// Scan implements [domain.Cursor]. A *domain.M target receives the wire
// document, anything else goes through the decoder.
func (c *Cursor) Scan(ctx context.Context, target any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !c.started {
		return domain.ErrScanBeforeNext
	}
	if target == nil {
		return domain.ErrTargetNil
	}
	var raw bson.M
	if err := c.cur.Decode(&raw); err != nil {
		return err
	}
	doc := docFromBSON(raw)
	if m, ok := target.(*domain.M); ok {
		if m == nil {
			return domain.ErrTargetNil
		}
		*m = doc
		return nil
	}
	return c.decoder.Decode(doc, target)
}

// Err implements [domain.Cursor].
func (c *Cursor) Err() error {
	return c.cur.Err()
}

// Close implements [domain.Cursor].
func (c *Cursor) Close(ctx context.Context) error {
	return c.cur.Close(ctx)
}
