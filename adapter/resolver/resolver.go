// Package resolver loads the records pointed to by the reference fields of
// other records.
//
// Resolving a record scans its fields, and those of the documents embedded in
// it, into edges: one per reference that was not loaded yet. Every edge is
// looked up concurrently on a goroutine pool and the results are written back
// into their owners at the position they were read from, so list order never
// depends on which lookup finishes first.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/panjf2000/ants/v2"
	"github.com/vinicius-lino-figueiredo/godm/adapter/record"
	"github.com/vinicius-lino-figueiredo/godm/adapter/schema"
	"github.com/vinicius-lino-figueiredo/godm/domain"
	"github.com/vinicius-lino-figueiredo/godm/pkg/structure"
)

// Loader fetches a single record of s by id. projection is nil or a wire
// projection for the fetched record. A missing record is reported with
// [domain.ErrNotFound].
type Loader interface {
	LoadByID(ctx context.Context, s *schema.Schema, id any, projection domain.M) (*record.Record, error)
}

// LoaderFunc adapts a function to [Loader].
type LoaderFunc func(ctx context.Context, s *schema.Schema, id any, projection domain.M) (*record.Record, error)

// LoadByID implements [Loader].
func (f LoaderFunc) LoadByID(ctx context.Context, s *schema.Schema, id any, projection domain.M) (*record.Record, error) {
	return f(ctx, s, id, projection)
}

// Fill tells how a loaded record is written back into its owner.
type Fill uint8

const (
	// Scalar replaces the value of a reference field.
	Scalar Fill = iota
	// ListAppend writes into a list of references at Edge.Index.
	ListAppend
)

// Edge is a reference waiting to be loaded.
type Edge struct {
	Owner  *record.Record
	Field  *schema.Field
	Path   string
	ID     any
	Target *schema.Schema
	Fill   Fill
	Index  int
}

// Result is the outcome of a resolution. Values holds the loaded records in
// edge order, nil for dangling references.
type Result struct {
	Resolved int
	Values   []*record.Record
}

// Resolver resolves references through a [Loader].
type Resolver struct {
	loader   Loader
	pool     *ants.Pool
	ownsPool bool
	size     int
	logger   *slog.Logger
}

// New returns a resolver loading records with loader. Unless a pool is given
// with [WithPool], one is created and freed by [Resolver.Release].
func New(loader Loader, options ...Option) (*Resolver, error) {
	r := &Resolver{
		loader: loader,
		size:   DefaultPoolSize,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, option := range options {
		option(r)
	}
	if r.pool == nil {
		pool, err := ants.NewPool(r.size)
		if err != nil {
			return nil, fmt.Errorf("creating lookup pool: %w", err)
		}
		r.pool = pool
		r.ownsPool = true
	}
	return r, nil
}

// Release frees the pool created by [New]. Pools given with [WithPool] are
// left to their owner.
func (r *Resolver) Release() {
	if r.ownsPool {
		r.pool.Release()
	}
}

// Resolve loads the unresolved references of rec. When fields is not empty
// only the top level fields named there are scanned.
func (r *Resolver) Resolve(ctx context.Context, rec *record.Record, fields ...string) (Result, error) {
	return r.ResolveAll(ctx, []*record.Record{rec}, nil, fields...)
}

// ResolveAsync runs [Resolver.Resolve] in a new goroutine and passes its
// outcome to fn.
func (r *Resolver) ResolveAsync(ctx context.Context, rec *record.Record, fn func(Result, error), fields ...string) {
	go func() {
		fn(r.Resolve(ctx, rec, fields...))
	}()
}

// ResolveAll resolves the references of every record in recs in a single
// fan-out. projections maps the logical path of a reference field to the
// wire projection used when loading its records.
func (r *Resolver) ResolveAll(ctx context.Context, recs []*record.Record, projections map[string]domain.M, fields ...string) (Result, error) {
	var edges []Edge
	for _, rec := range recs {
		if rec == nil {
			continue
		}
		edges = append(edges, Edges(rec, fields...)...)
	}
	if len(edges) == 0 {
		return Result{}, nil
	}
	r.logger.Debug("resolving references", "edges", len(edges))

	values := make([]*record.Record, len(edges))
	done := make(chan struct{})
	var (
		pending   atomic.Int64
		cancelled atomic.Bool
		fill      sync.Mutex
		errs      []error
	)
	pending.Store(int64(len(edges)))

	finish := func() {
		if pending.Add(-1) == 0 {
			close(done)
		}
	}
	fail := func(e Edge, err error) {
		fill.Lock()
		errs = append(errs, fmt.Errorf("loading %s %v: %w", e.Path, e.ID, err))
		fill.Unlock()
	}

	for n, e := range edges {
		task := func() {
			defer finish()
			loaded, err := r.load(ctx, e, projections[e.Path])
			if err != nil {
				fail(e, err)
				return
			}
			fill.Lock()
			defer fill.Unlock()
			if cancelled.Load() {
				return
			}
			values[n] = loaded
			apply(e, loaded)
		}
		if err := r.pool.Submit(task); err != nil {
			fail(e, err)
			finish()
		}
	}

	select {
	case <-done:
	case <-ctx.Done():
		fill.Lock()
		cancelled.Store(true)
		fill.Unlock()
		return Result{}, ctx.Err()
	}

	if len(errs) > 0 {
		r.logger.Warn("reference resolution failed", "edges", len(edges), "errors", len(errs))
		return Result{}, errors.Join(errs...)
	}
	return Result{Resolved: len(edges), Values: values}, nil
}

func (r *Resolver) load(ctx context.Context, e Edge, projection domain.M) (rec *record.Record, err error) {
	defer func() {
		if v := recover(); v != nil {
			err = fmt.Errorf("reference lookup panicked: %v", v)
		}
	}()
	rec, err = r.loader.LoadByID(ctx, e.Target, e.ID, projection)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	return rec, err
}

// apply writes a loaded record into the owner of e. A nil record clears the
// reference.
func apply(e Edge, loaded *record.Record) {
	var v any
	if loaded != nil {
		v = loaded
	}
	switch e.Fill {
	case Scalar:
		e.Owner.SetRaw(e.Field.WireName(), v)
	case ListAppend:
		raw, _ := e.Owner.Raw(e.Field.WireName())
		if items, ok := raw.([]any); ok && e.Index < len(items) {
			items[e.Index] = v
		}
	}
}

// Edges scans rec for references that were not loaded. Lists of references
// are not looked into past their items, embedded documents and lists of them
// are. When fields is not empty only the top level fields named there are
// scanned. Lists holding unresolved references are replaced by copies in rec,
// so filling them never changes a slice shared with the caller.
func Edges(rec *record.Record, fields ...string) []Edge {
	return scan(rec, "", fields)
}

func scan(rec *record.Record, prefix string, only []string) []Edge {
	var edges []Edge
	for _, f := range rec.Schema().Fields() {
		if len(only) > 0 && !slices.Contains(only, f.Name()) {
			continue
		}
		v, ok := rec.Raw(f.WireName())
		if !ok || v == nil {
			continue
		}
		path := f.Name()
		if prefix != "" {
			path = prefix + "." + path
		}
		target, _ := f.Target()

		switch f.Kind() {
		case domain.KindReference:
			if ref, ok := v.(record.Ref); ok {
				edges = append(edges, newEdge(rec, f, path, ref, target, Scalar, 0))
			}
		case domain.KindEmbedded:
			if emb, ok := v.(*record.Record); ok && emb != nil {
				edges = append(edges, scan(emb, path, nil)...)
			}
		case domain.KindList:
			items, ok := structure.List(v)
			if !ok {
				continue
			}
			var list []any
			for n, item := range items {
				switch t := item.(type) {
				case record.Ref:
					if list == nil {
						list = make([]any, len(items))
						copy(list, items)
						rec.SetRaw(f.WireName(), list)
					}
					edges = append(edges, newEdge(rec, f, path, t, target, ListAppend, n))
				case *record.Record:
					if t != nil {
						edges = append(edges, scan(t, path, nil)...)
					}
				}
			}
		}
	}
	return edges
}

func newEdge(owner *record.Record, f *schema.Field, path string, ref record.Ref, target *schema.Schema, fill Fill, index int) Edge {
	if ref.Schema != nil {
		target = ref.Schema
	}
	return Edge{Owner: owner, Field: f, Path: path, ID: ref.ID, Target: target, Fill: fill, Index: index}
}
