// Package cursor contains the [domain.Cursor] over rows already held in
// memory, used by the in-memory driver.
package cursor

import (
	"context"

	"github.com/vinicius-lino-figueiredo/godm/adapter/decoder"
	"github.com/vinicius-lino-figueiredo/godm/domain"
	"github.com/vinicius-lino-figueiredo/godm/pkg/structure"
)

// Cursor implements domain.Cursor.
type Cursor struct {
	data   []domain.M
	ctx    context.Context
	cancel context.CancelCauseFunc
	dec    domain.Decoder
	index  int64
}

// NewCursor returns a cursor over rows. The cursor is done when ctx is.
func NewCursor(ctx context.Context, rows []domain.M, options ...Option) (*Cursor, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	ctx, cancel := context.WithCancelCause(ctx)
	cur := &Cursor{
		ctx:    ctx,
		cancel: cancel,
		index:  -1,
		dec:    decoder.NewDecoder(),
		data:   rows,
	}
	for _, option := range options {
		option(cur)
	}
	return cur, nil
}

// Err implements domain.Cursor. Closing the cursor is not reported.
func (c *Cursor) Err() error {
	err := context.Cause(c.ctx)
	if err == domain.ErrCursorClosed {
		return nil
	}
	return err
}

// Scan implements domain.Cursor. A *domain.M target receives a copy of the
// row, anything else goes through the decoder.
func (c *Cursor) Scan(ctx context.Context, target any) error {
	select {
	case <-c.ctx.Done():
		return context.Cause(c.ctx)
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	if c.index < 0 {
		return domain.ErrScanBeforeNext
	}
	if m, ok := target.(*domain.M); ok {
		if m == nil {
			return domain.ErrTargetNil
		}
		*m = structure.CloneDoc(c.data[c.index])
		return nil
	}
	return c.dec.Decode(c.data[c.index], target)
}

// Close implements domain.Cursor.
func (c *Cursor) Close(context.Context) error {
	select {
	case <-c.ctx.Done():
		return nil
	default:
	}
	c.cancel(domain.ErrCursorClosed)
	c.data = nil
	return nil
}

// Next implements domain.Cursor.
func (c *Cursor) Next(ctx context.Context) bool {
	select {
	case <-c.ctx.Done():
		return false
	case <-ctx.Done():
		return false
	default:
	}
	if c.index+1 < int64(len(c.data)) {
		c.index++
		return true
	}
	return false
}

// Option configures a [Cursor].
type Option func(*Cursor)

// WithDecoder sets the decoder used to scan rows into targets other than
// documents.
func WithDecoder(d domain.Decoder) Option {
	return func(c *Cursor) {
		if d != nil {
			c.dec = d
		}
	}
}

// All reads every remaining row of cur as a document and closes it.
func All(ctx context.Context, cur domain.Cursor) ([]domain.M, error) {
	defer cur.Close(ctx)
	var rows []domain.M
	for cur.Next(ctx) {
		var row domain.M
		if err := cur.Scan(ctx, &row); err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return rows, nil
}
