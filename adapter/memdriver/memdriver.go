// Package memdriver contains a [domain.Driver] keeping its collections in
// memory. It understands the same filters, updates, projections and
// aggregation stages the mapper sends to a real store, which makes it the
// test backend of the module and an embedded store on its own.
package memdriver

import (
	"context"
	"errors"
	"io"
	"iter"
	"log/slog"
	"regexp"
	"slices"
	"strings"

	"github.com/vinicius-lino-figueiredo/godm/adapter/comparer"
	"github.com/vinicius-lino-figueiredo/godm/adapter/cursor"
	"github.com/vinicius-lino-figueiredo/godm/adapter/decoder"
	"github.com/vinicius-lino-figueiredo/godm/adapter/deserializer"
	"github.com/vinicius-lino-figueiredo/godm/adapter/fieldnavigator"
	"github.com/vinicius-lino-figueiredo/godm/adapter/hasher"
	"github.com/vinicius-lino-figueiredo/godm/adapter/idgenerator"
	"github.com/vinicius-lino-figueiredo/godm/adapter/index"
	"github.com/vinicius-lino-figueiredo/godm/adapter/matcher"
	"github.com/vinicius-lino-figueiredo/godm/adapter/modifier"
	"github.com/vinicius-lino-figueiredo/godm/adapter/projector"
	"github.com/vinicius-lino-figueiredo/godm/adapter/querier"
	"github.com/vinicius-lino-figueiredo/godm/adapter/serializer"
	"github.com/vinicius-lino-figueiredo/godm/adapter/storage"
	"github.com/vinicius-lino-figueiredo/godm/domain"
	"github.com/vinicius-lino-figueiredo/godm/pkg/structure"
)

// IDIndex is the name of the unique index every collection has on _id.
const IDIndex = "_id_"

var (
	_ domain.Driver     = (*MemDriver)(nil)
	_ domain.Counter    = (*MemDriver)(nil)
	_ domain.Indexer    = (*MemDriver)(nil)
	_ domain.Aggregator = (*MemDriver)(nil)
)

type collection struct {
	// entries in insertion order
	entries []*index.Entry
	indexes []*index.Index
}

// MemDriver implements [domain.Driver], [domain.Counter], [domain.Indexer]
// and [domain.Aggregator].
type MemDriver struct {
	lock           *lock
	database       string
	collections    map[string]*collection
	comparer       domain.Comparer
	hasher         domain.Hasher
	fieldNavigator domain.FieldNavigator
	modifier       domain.Modifier
	projector      domain.Projector
	idGenerator    domain.IDGenerator
	decoder        domain.Decoder
	serializer     *serializer.Serializer
	deserializer   *deserializer.Deserializer
	storage        *storage.Storage
	logger         *slog.Logger
}

// NewMemDriver returns an empty in-memory store.
func NewMemDriver(options ...Option) *MemDriver {
	d := &MemDriver{
		lock:        newLock(),
		database:    "test",
		collections: make(map[string]*collection),
		comparer:    comparer.NewComparer(),
		hasher:      hasher.NewHasher(),
		idGenerator: idgenerator.NewIDGenerator(),
		decoder:     decoder.NewDecoder(),
		serializer:  serializer.NewSerializer(),
		storage:     storage.NewStorage(),
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, option := range options {
		option(d)
	}
	if d.fieldNavigator == nil {
		d.fieldNavigator = fieldnavigator.NewFieldNavigator()
	}
	if d.modifier == nil {
		d.modifier = modifier.NewModifier(
			modifier.WithComparer(d.comparer),
			modifier.WithFieldNavigator(d.fieldNavigator),
		)
	}
	if d.projector == nil {
		d.projector = projector.NewProjector(projector.WithFieldNavigator(d.fieldNavigator))
	}
	d.deserializer = deserializer.NewDeserializer(d.decoder)
	return d
}

// Database returns the database name used in index namespaces.
func (d *MemDriver) Database() string { return d.database }

func (d *MemDriver) newMatcher() domain.Matcher {
	return matcher.NewMatcher(
		matcher.WithComparer(d.comparer),
		matcher.WithFieldNavigator(d.fieldNavigator),
	)
}

func (d *MemDriver) newQuerier() *querier.Querier {
	return querier.NewQuerier(
		querier.WithComparer(d.comparer),
		querier.WithFieldNavigator(d.fieldNavigator),
		querier.WithProjector(d.projector),
		querier.WithMatcher(d.newMatcher()),
	)
}

func (d *MemDriver) newIndex(name string, model domain.IndexModel) (*index.Index, error) {
	return index.NewIndex(model,
		index.WithComparer(d.comparer),
		index.WithFieldNavigator(d.fieldNavigator),
		index.WithNamespace(d.database+"."+name),
	)
}

func (d *MemDriver) newCollection(name string) (*collection, error) {
	idIdx, err := d.newIndex(name, domain.IndexModel{
		Name:   IDIndex,
		Keys:   domain.Sort{{Key: domain.IDField, Order: domain.Ascending}},
		Unique: true,
	})
	if err != nil {
		return nil, err
	}
	return &collection{indexes: []*index.Index{idIdx}}, nil
}

// collection returns the collection called name. It is created when create
// is true, otherwise a missing collection is nil.
func (d *MemDriver) collection(name string, create bool) (*collection, error) {
	if c, ok := d.collections[name]; ok || !create {
		return c, nil
	}
	c, err := d.newCollection(name)
	if err != nil {
		return nil, err
	}
	d.collections[name] = c
	return c, nil
}

// insert adds entries to every index of c, or to none of them.
func (c *collection) insert(ctx context.Context, entries ...*index.Entry) error {
	for n, idx := range c.indexes {
		if err := idx.Insert(ctx, entries...); err != nil {
			for _, prev := range c.indexes[:n] {
				if rmErr := prev.Remove(ctx, entries...); rmErr != nil {
					err = errors.Join(err, rmErr)
				}
			}
			return err
		}
	}
	return nil
}

// reindex moves e from the keys of old to the keys of its current document
// in every index of c, or in none of them.
func (c *collection) reindex(ctx context.Context, e *index.Entry, old domain.M) error {
	for n, idx := range c.indexes {
		if err := idx.Update(ctx, e, old); err != nil {
			current := e.Doc
			e.Doc = old
			for _, prev := range c.indexes[:n] {
				if rbErr := prev.Update(ctx, e, current); rbErr != nil {
					err = errors.Join(err, rbErr)
				}
			}
			e.Doc = current
			return err
		}
	}
	return nil
}

func (c *collection) remove(ctx context.Context, entries ...*index.Entry) error {
	var errs []error
	for _, idx := range c.indexes {
		if err := idx.Remove(ctx, entries...); err != nil {
			errs = append(errs, err)
		}
	}
	set := make(map[*index.Entry]struct{}, len(entries))
	for _, e := range entries {
		set[e] = struct{}{}
	}
	c.entries = slices.DeleteFunc(c.entries, func(e *index.Entry) bool {
		_, ok := set[e]
		return ok
	})
	return errors.Join(errs...)
}

// isLookupValue reports whether a filter value is a plain equality the
// indexes can answer.
func isLookupValue(v any) bool {
	switch v.(type) {
	case nil, domain.M, []any, *regexp.Regexp:
		return false
	default:
		return true
	}
}

func isRange(v any) bool {
	ops, ok := v.(domain.M)
	if !ok || len(ops) == 0 {
		return false
	}
	for op := range ops {
		switch op {
		case "$gt", "$gte", "$lt", "$lte":
		default:
			return false
		}
	}
	return true
}

// candidates narrows the entries that can match filter with a single field
// index. A nil set means every entry is a candidate. Candidates still have
// to be matched against filter.
func (d *MemDriver) candidates(c *collection, filter domain.M) (map[*index.Entry]struct{}, error) {
	for _, idx := range c.indexes {
		field, ok := idx.Single()
		if !ok {
			continue
		}
		v, ok := filter[field]
		if !ok {
			continue
		}
		var found []*index.Entry
		switch {
		case isLookupValue(v):
			var err error
			if found, err = idx.Lookup(v); err != nil {
				return nil, err
			}
		case isRange(v):
			for e, err := range idx.Between(v.(domain.M)) {
				if err != nil {
					return nil, err
				}
				found = append(found, e)
			}
		default:
			continue
		}
		set := make(map[*index.Entry]struct{}, len(found))
		for _, e := range found {
			set[e] = struct{}{}
		}
		return set, nil
	}
	return nil, nil
}

// entries yields the candidate entries of c for filter, in insertion order.
func (d *MemDriver) entries(c *collection, filter domain.M) (iter.Seq[*index.Entry], error) {
	cands, err := d.candidates(c, filter)
	if err != nil {
		return nil, err
	}
	return func(yield func(*index.Entry) bool) {
		for _, e := range c.entries {
			if cands != nil {
				if _, ok := cands[e]; !ok {
					continue
				}
			}
			if !yield(e) {
				return
			}
		}
	}, nil
}

// match returns the entries of c matching filter. With one set, it stops at
// the first match.
func (d *MemDriver) match(c *collection, filter domain.M, one bool) ([]*index.Entry, error) {
	if c == nil {
		return nil, nil
	}
	mtchr := d.newMatcher()
	if err := mtchr.SetQuery(filter); err != nil {
		return nil, err
	}
	entries, err := d.entries(c, filter)
	if err != nil {
		return nil, err
	}
	var res []*index.Entry
	for e := range entries {
		ok, err := mtchr.Match(e.Doc)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		res = append(res, e)
		if one {
			break
		}
	}
	return res, nil
}

func (d *MemDriver) ensureID(doc domain.M) error {
	if _, ok := doc[domain.IDField]; ok {
		return nil
	}
	id, err := d.idGenerator.GenerateID()
	if err != nil {
		return err
	}
	doc[domain.IDField] = id
	return nil
}

// Find implements [domain.Driver].
func (d *MemDriver) Find(ctx context.Context, name string, filter domain.M, options ...domain.FindOption) (domain.Cursor, error) {
	if err := d.lock.acquire(ctx); err != nil {
		return nil, err
	}
	defer d.lock.release()

	opts := domain.NewFindOptions(options...)
	var rows []domain.M
	if c, _ := d.collection(name, false); c != nil {
		entries, err := d.entries(c, filter)
		if err != nil {
			return nil, err
		}
		data := func(yield func(domain.M, error) bool) {
			for e := range entries {
				if !yield(e.Doc, nil) {
					return
				}
			}
		}
		if rows, err = d.newQuerier().Query(data, filter, opts); err != nil {
			return nil, err
		}
	}
	d.logger.DebugContext(ctx, "find", "collection", name, "results", len(rows))
	return cursor.NewCursor(ctx, rows, cursor.WithDecoder(d.decoder))
}

// Count implements [domain.Counter].
func (d *MemDriver) Count(ctx context.Context, name string, filter domain.M) (int64, error) {
	if err := d.lock.acquire(ctx); err != nil {
		return 0, err
	}
	defer d.lock.release()

	c, _ := d.collection(name, false)
	matched, err := d.match(c, filter, false)
	if err != nil {
		return 0, err
	}
	return int64(len(matched)), nil
}

// Insert implements [domain.Driver]. Documents without an _id get a
// generated one. If any document violates an index, none is inserted.
func (d *MemDriver) Insert(ctx context.Context, name string, docs ...domain.M) ([]any, error) {
	if err := d.lock.acquire(ctx); err != nil {
		return nil, err
	}
	defer d.lock.release()
	// once started, writes are not interrupted
	ctx = context.WithoutCancel(ctx)

	c, err := d.collection(name, true)
	if err != nil {
		return nil, err
	}
	entries := make([]*index.Entry, len(docs))
	ids := make([]any, len(docs))
	for n, doc := range docs {
		doc = structure.CloneDoc(doc)
		if doc == nil {
			doc = domain.M{}
		}
		if err := d.ensureID(doc); err != nil {
			return nil, err
		}
		ids[n] = doc[domain.IDField]
		entries[n] = &index.Entry{Doc: doc}
	}
	if err := c.insert(ctx, entries...); err != nil {
		return nil, err
	}
	c.entries = append(c.entries, entries...)
	d.logger.DebugContext(ctx, "insert", "collection", name, "count", len(entries))
	return ids, nil
}

// Update implements [domain.Driver]. If a modified document violates an
// index, no document is changed.
func (d *MemDriver) Update(ctx context.Context, name string, filter domain.M, update domain.M, options ...domain.UpdateOption) (domain.UpdateResult, error) {
	if err := d.lock.acquire(ctx); err != nil {
		return domain.UpdateResult{}, err
	}
	defer d.lock.release()
	ctx = context.WithoutCancel(ctx)

	opts := domain.NewUpdateOptions(options...)
	c, err := d.collection(name, opts.Upsert)
	if err != nil {
		return domain.UpdateResult{}, err
	}
	matched, err := d.match(c, filter, !opts.Multi)
	if err != nil {
		return domain.UpdateResult{}, err
	}
	if len(matched) == 0 {
		if !opts.Upsert {
			return domain.UpdateResult{}, nil
		}
		return d.upsert(ctx, c, filter, update)
	}

	var res domain.UpdateResult
	newDocs := make([]domain.M, len(matched))
	for n, e := range matched {
		if newDocs[n], err = d.modifier.Modify(e.Doc, update); err != nil {
			return domain.UpdateResult{}, err
		}
		res.Matched++
		comp, err := d.comparer.Compare(e.Doc, newDocs[n])
		if err != nil {
			return domain.UpdateResult{}, err
		}
		if comp != 0 {
			res.Modified++
		}
	}

	olds := make([]domain.M, len(matched))
	for n, e := range matched {
		olds[n] = e.Doc
		e.Doc = newDocs[n]
		if err := c.reindex(ctx, e, olds[n]); err != nil {
			e.Doc = olds[n]
			for i := n - 1; i >= 0; i-- {
				current := matched[i].Doc
				matched[i].Doc = olds[i]
				if rbErr := c.reindex(ctx, matched[i], current); rbErr != nil {
					err = errors.Join(err, rbErr)
				}
			}
			return domain.UpdateResult{}, err
		}
	}
	d.logger.DebugContext(ctx, "update", "collection", name, "matched", res.Matched, "modified", res.Modified)
	return res, nil
}

// upsert inserts the document built from the equality conditions of filter
// and update.
func (d *MemDriver) upsert(ctx context.Context, c *collection, filter domain.M, update domain.M) (domain.UpdateResult, error) {
	base := domain.M{}
	for k, v := range filter {
		if strings.HasPrefix(k, "$") {
			continue
		}
		if ops, ok := v.(domain.M); ok && hasOperator(ops) {
			continue
		}
		addr, err := d.fieldNavigator.GetAddress(k)
		if err != nil {
			return domain.UpdateResult{}, err
		}
		fields, err := d.fieldNavigator.EnsureField(base, addr...)
		if err != nil {
			return domain.UpdateResult{}, err
		}
		for _, f := range fields {
			f.Set(structure.Clone(v))
		}
	}
	doc, err := d.modifier.Modify(base, update)
	if err != nil {
		return domain.UpdateResult{}, err
	}
	if err := d.ensureID(doc); err != nil {
		return domain.UpdateResult{}, err
	}
	e := &index.Entry{Doc: doc}
	if err := c.insert(ctx, e); err != nil {
		return domain.UpdateResult{}, err
	}
	c.entries = append(c.entries, e)
	return domain.UpdateResult{UpsertedID: doc[domain.IDField]}, nil
}

func hasOperator(doc domain.M) bool {
	for k := range doc {
		if strings.HasPrefix(k, "$") {
			return true
		}
	}
	return false
}

// Remove implements [domain.Driver].
func (d *MemDriver) Remove(ctx context.Context, name string, filter domain.M, options ...domain.RemoveOption) (int64, error) {
	if err := d.lock.acquire(ctx); err != nil {
		return 0, err
	}
	defer d.lock.release()
	ctx = context.WithoutCancel(ctx)

	opts := domain.NewRemoveOptions(options...)
	c, _ := d.collection(name, false)
	matched, err := d.match(c, filter, !opts.Multi)
	if err != nil || len(matched) == 0 {
		return 0, err
	}
	if err := c.remove(ctx, matched...); err != nil {
		return 0, err
	}
	d.logger.DebugContext(ctx, "remove", "collection", name, "count", len(matched))
	return int64(len(matched)), nil
}

// EnsureIndex implements [domain.Indexer]. Creating an index that already
// exists with the same name does nothing.
func (d *MemDriver) EnsureIndex(ctx context.Context, name string, model domain.IndexModel) (string, error) {
	if err := d.lock.acquire(ctx); err != nil {
		return "", err
	}
	defer d.lock.release()
	ctx = context.WithoutCancel(ctx)

	c, err := d.collection(name, true)
	if err != nil {
		return "", err
	}
	if model.Name == "" {
		model.Name = index.Name(model.Keys)
	}
	for _, idx := range c.indexes {
		if idx.Name() == model.Name {
			return model.Name, nil
		}
	}
	idx, err := d.newIndex(name, model)
	if err != nil {
		return "", err
	}
	if err := idx.Insert(ctx, c.entries...); err != nil {
		return "", err
	}
	c.indexes = append(c.indexes, idx)
	d.logger.DebugContext(ctx, "index created", "collection", name, "index", model.Name)
	return model.Name, nil
}

// Indexes returns the indexes of collection, _id_ first.
func (d *MemDriver) Indexes(ctx context.Context, name string) ([]domain.IndexModel, error) {
	if err := d.lock.acquire(ctx); err != nil {
		return nil, err
	}
	defer d.lock.release()

	c, _ := d.collection(name, false)
	if c == nil {
		return nil, nil
	}
	res := make([]domain.IndexModel, len(c.indexes))
	for n, idx := range c.indexes {
		res[n] = idx.Model()
	}
	return res, nil
}

// Drop removes collection with its documents and indexes.
func (d *MemDriver) Drop(ctx context.Context, name string) error {
	if err := d.lock.acquire(ctx); err != nil {
		return err
	}
	defer d.lock.release()
	delete(d.collections, name)
	return nil
}

// Collections returns the names of the existing collections, sorted.
func (d *MemDriver) Collections(ctx context.Context) ([]string, error) {
	if err := d.lock.acquire(ctx); err != nil {
		return nil, err
	}
	defer d.lock.release()
	names := make([]string, 0, len(d.collections))
	for name := range d.collections {
		names = append(names, name)
	}
	slices.Sort(names)
	return names, nil
}
