// Package recordset binds filters, projections, sort and paging to the
// records of a schema and runs them against a [domain.Driver].
//
// A [RecordSet] is immutable: builder methods return modified copies, so a
// base set can be shared and refined freely. Terminal methods compile the
// filter and the projection once and issue a single driver call.
package recordset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/vinicius-lino-figueiredo/godm/adapter/cursor"
	"github.com/vinicius-lino-figueiredo/godm/adapter/projection"
	"github.com/vinicius-lino-figueiredo/godm/adapter/query"
	"github.com/vinicius-lino-figueiredo/godm/adapter/record"
	"github.com/vinicius-lino-figueiredo/godm/adapter/resolver"
	"github.com/vinicius-lino-figueiredo/godm/adapter/schema"
	"github.com/vinicius-lino-figueiredo/godm/domain"
)

type sortKey struct {
	field string
	order int64
}

// RecordSet is a query over the records of a schema.
type RecordSet struct {
	driver   domain.Driver
	schema   *schema.Schema
	filter   query.Node
	proj     projection.Spec
	sort     []sortKey
	skip     int64
	limit    int64
	lazy     *bool
	logger   *slog.Logger
	resolver *resolver.Resolver
	poolSize int
}

// New returns a record set over every record of s stored through driver.
func New(driver domain.Driver, s *schema.Schema, options ...Option) *RecordSet {
	rs := &RecordSet{
		driver: driver,
		schema: s,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, option := range options {
		option(rs)
	}
	return rs
}

func (rs *RecordSet) clone() *RecordSet {
	cp := *rs
	cp.sort = slices.Clone(rs.sort)
	return &cp
}

// Schema returns the schema of the records in the set.
func (rs *RecordSet) Schema() *schema.Schema { return rs.schema }

// Filter narrows the set to records matching every node.
func (rs *RecordSet) Filter(nodes ...query.Node) *RecordSet {
	cp := rs.clone()
	cp.filter = query.And(append([]query.Node{rs.filter}, nodes...)...)
	return cp
}

// FilterNot narrows the set to records not matching n.
func (rs *RecordSet) FilterNot(n query.Node) *RecordSet {
	if query.IsEmpty(n) {
		return rs.clone()
	}
	return rs.Filter(query.Not(n))
}

// Where narrows the set with a lookup such as "age__gt". See [query.Lookup].
func (rs *RecordSet) Where(key string, value any) *RecordSet {
	return rs.Filter(query.Lookup(key, value))
}

// OrderBy appends a sort key. order is [domain.Ascending] or
// [domain.Descending].
func (rs *RecordSet) OrderBy(field string, order int64) *RecordSet {
	cp := rs.clone()
	cp.sort = append(cp.sort, sortKey{field: field, order: order})
	return cp
}

// Limit sets the maximum number of records returned. Zero means no limit.
func (rs *RecordSet) Limit(n int64) *RecordSet {
	cp := rs.clone()
	cp.limit = n
	return cp
}

// Skip sets how many matching records are skipped.
func (rs *RecordSet) Skip(n int64) *RecordSet {
	cp := rs.clone()
	cp.skip = n
	return cp
}

// Only restricts the fetched fields to fields.
func (rs *RecordSet) Only(fields ...string) *RecordSet {
	return rs.project(projection.Only(fields...))
}

// Exclude leaves fields out of fetched records.
func (rs *RecordSet) Exclude(fields ...string) *RecordSet {
	return rs.project(projection.Exclude(fields...))
}

// Slice limits the list at field to count items. See [projection.Slice].
func (rs *RecordSet) Slice(field string, count int) *RecordSet {
	return rs.project(projection.Slice(field, count))
}

// SliceRange limits the list at field to count items after skip of them.
func (rs *RecordSet) SliceRange(field string, skip, count int) *RecordSet {
	return rs.project(projection.SliceRange(field, skip, count))
}

// AllFields drops every projection.
func (rs *RecordSet) AllFields() *RecordSet {
	cp := rs.clone()
	cp.proj = rs.proj.Reset()
	return cp
}

func (rs *RecordSet) project(p projection.Spec) *RecordSet {
	cp := rs.clone()
	cp.proj = rs.proj.Merge(p)
	return cp
}

// Lazy overrides the schema setting telling whether references are left
// unresolved by fetches.
func (rs *RecordSet) Lazy(lazy bool) *RecordSet {
	cp := rs.clone()
	cp.lazy = &lazy
	return cp
}

func (rs *RecordSet) isLazy() bool {
	if rs.lazy != nil {
		return *rs.lazy
	}
	return rs.schema.Lazy()
}

func (rs *RecordSet) collection() string { return rs.schema.Collection() }

func (rs *RecordSet) compileFilter(extra ...query.Node) (domain.M, error) {
	return query.Compile(rs.schema, query.And(append([]query.Node{rs.filter}, extra...)...))
}

func (rs *RecordSet) compileSort() (domain.Sort, error) {
	if len(rs.sort) == 0 {
		return nil, nil
	}
	res := make(domain.Sort, len(rs.sort))
	for n, k := range rs.sort {
		path, err := resolveLocal(rs.schema, k.field, "sort")
		if err != nil {
			return nil, err
		}
		res[n] = domain.SortName{Key: path.Wire, Order: k.order}
	}
	return res, nil
}

// resolveLocal resolves field to a path stored in the records of s. Paths
// continuing past a reference live in another collection.
func resolveLocal(s *schema.Schema, field, op string) (schema.Path, error) {
	path, err := s.Resolve(field)
	if err != nil {
		return schema.Path{}, err
	}
	if path.Rest != "" {
		return schema.Path{}, domain.ErrInvalidFilter{
			Filter: field,
			Reason: fmt.Sprintf("cannot %s through reference %q", op, path.Field.Name()),
		}
	}
	return path, nil
}

func (rs *RecordSet) log(ctx context.Context, op string, args ...any) {
	rs.logger.DebugContext(ctx, "driver call",
		append([]any{"operation", op, "collection", rs.collection()}, args...)...)
}

// wrap turns duplicate key errors into [domain.ErrUniqueViolation].
func (rs *RecordSet) wrap(err error) error {
	if v, ok := domain.AsUniqueViolation(err, rs.schema.Name()); ok {
		return v
	}
	return err
}

// prepare checks rec and encodes it for a write. Nothing is sent to the
// store if this fails.
func (rs *RecordSet) prepare(rec *record.Record) (domain.M, error) {
	if rec == nil {
		return nil, domain.ErrTargetNil
	}
	if !rec.Schema().IsA(rs.schema) {
		return nil, domain.ErrRecordType{Want: rs.schema.Name(), Got: rec.Schema().Name()}
	}
	if rec.PartlyLoaded() {
		return nil, domain.ErrPartlyLoaded
	}
	rec.ApplyAutoValues(rec.ID() == nil)
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	return rec.ToWire()
}

// Create builds a record of the set schema from values and saves it.
func (rs *RecordSet) Create(ctx context.Context, values map[string]any) (*record.Record, error) {
	rec, err := record.New(rs.schema, values)
	if err != nil {
		return nil, err
	}
	if err := rs.Save(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Save validates rec and writes it. Records without id are inserted and
// receive the id chosen by the store, the others replace the stored record
// with the same id, which is created if missing.
func (rs *RecordSet) Save(ctx context.Context, rec *record.Record) error {
	doc, err := rs.prepare(rec)
	if err != nil {
		return err
	}

	if rec.ID() == nil {
		rs.log(ctx, "insert")
		ids, err := rs.driver.Insert(ctx, rs.collection(), doc)
		if err != nil {
			return rs.wrap(err)
		}
		if len(ids) > 0 {
			rec.SetID(ids[0])
		}
		return nil
	}

	delete(doc, domain.IDField)
	rs.log(ctx, "update", "id", rec.ID())
	_, err = rs.driver.Update(ctx, rs.collection(),
		domain.M{domain.IDField: rec.ID()}, doc, domain.WithUpsert(true))
	return rs.wrap(err)
}

// BulkInsert validates every record and inserts them with a single driver
// call. Records receive their ids in order.
func (rs *RecordSet) BulkInsert(ctx context.Context, recs ...*record.Record) error {
	docs := make([]domain.M, len(recs))
	for n, rec := range recs {
		doc, err := rs.prepare(rec)
		if err != nil {
			return fmt.Errorf("record %d: %w", n, err)
		}
		docs[n] = doc
	}
	if len(docs) == 0 {
		return nil
	}
	rs.log(ctx, "insert", "count", len(docs))
	ids, err := rs.driver.Insert(ctx, rs.collection(), docs...)
	if err != nil {
		return rs.wrap(err)
	}
	for n, id := range ids {
		if n < len(recs) {
			recs[n].SetID(id)
		}
	}
	return nil
}

// Delete removes rec from the store.
func (rs *RecordSet) Delete(ctx context.Context, rec *record.Record) error {
	if rec == nil {
		return domain.ErrTargetNil
	}
	if rec.ID() == nil {
		return domain.ErrNoID
	}
	rs.log(ctx, "remove", "id", rec.ID())
	_, err := rs.driver.Remove(ctx, rs.collection(), domain.M{domain.IDField: rec.ID()})
	return err
}

// Get returns the record of the set with the given id. It fails with
// [domain.ErrNotFound] if there is none.
func (rs *RecordSet) Get(ctx context.Context, id any) (*record.Record, error) {
	return rs.GetBy(ctx, query.Eq("id", id))
}

// GetBy returns the first record of the set matching nodes. It fails with
// [domain.ErrNotFound] if there is none.
func (rs *RecordSet) GetBy(ctx context.Context, nodes ...query.Node) (*record.Record, error) {
	recs, err := rs.find(ctx, 1, nodes...)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, domain.ErrNotFound
	}
	return recs[0], nil
}

// FindAll returns every record of the set.
func (rs *RecordSet) FindAll(ctx context.Context) ([]*record.Record, error) {
	return rs.find(ctx, rs.limit)
}

func (rs *RecordSet) find(ctx context.Context, limit int64, extra ...query.Node) ([]*record.Record, error) {
	filter, err := rs.compileFilter(extra...)
	if err != nil {
		return nil, err
	}
	proj, refs, err := rs.proj.Compile(rs.schema)
	if err != nil {
		return nil, err
	}
	sort, err := rs.compileSort()
	if err != nil {
		return nil, err
	}

	rs.log(ctx, "find", "filter", filter)
	cur, err := rs.driver.Find(ctx, rs.collection(), filter,
		domain.WithProjection(proj),
		domain.WithSort(sort),
		domain.WithSkip(rs.skip),
		domain.WithLimit(limit),
	)
	if err != nil {
		return nil, err
	}
	rows, err := cursor.All(ctx, cur)
	if err != nil {
		return nil, err
	}

	partly := rs.proj.Restricts()
	recs := make([]*record.Record, len(rows))
	for n, row := range rows {
		if recs[n], err = record.FromWire(rs.schema, row, partly); err != nil {
			return nil, err
		}
	}

	if !rs.isLazy() && len(recs) > 0 {
		if _, err := rs.resolve(ctx, recs, refs); err != nil {
			return nil, err
		}
	}
	return recs, nil
}

// Count returns how many records the set holds, ignoring skip and limit. It
// uses [domain.Counter] when the driver has it.
func (rs *RecordSet) Count(ctx context.Context) (int64, error) {
	filter, err := rs.compileFilter()
	if err != nil {
		return 0, err
	}
	rs.log(ctx, "count", "filter", filter)
	if c, ok := rs.driver.(domain.Counter); ok {
		return c.Count(ctx, rs.collection(), filter)
	}
	cur, err := rs.driver.Find(ctx, rs.collection(), filter,
		domain.WithProjection(domain.M{domain.IDField: 1}))
	if err != nil {
		return 0, err
	}
	defer cur.Close(ctx)
	var n int64
	for cur.Next(ctx) {
		n++
	}
	return n, cur.Err()
}

// Update sets the fields in values on every record of the set. Values are
// validated and encoded by their field types before anything is sent, and
// fields refreshed on every update, such as modification timestamps, are set
// too.
func (rs *RecordSet) Update(ctx context.Context, values map[string]any) (domain.UpdateResult, error) {
	set, err := rs.updateDoc(values)
	if err != nil {
		return domain.UpdateResult{}, err
	}
	filter, err := rs.compileFilter()
	if err != nil {
		return domain.UpdateResult{}, err
	}
	rs.log(ctx, "update", "filter", filter)
	res, err := rs.driver.Update(ctx, rs.collection(), filter,
		domain.M{"$set": set}, domain.WithUpdateMulti(true))
	if err != nil {
		return domain.UpdateResult{}, rs.wrap(err)
	}
	return res, nil
}

func (rs *RecordSet) updateDoc(values map[string]any) (domain.M, error) {
	set := make(domain.M, len(values))
	for k, v := range values {
		path, err := resolveLocal(rs.schema, k, "update")
		if err != nil {
			return nil, err
		}
		if path.Type == nil {
			if set[path.Wire], err = record.EncodeDynamic(v); err != nil {
				return nil, err
			}
			continue
		}
		f := path.Field
		if f.Required() && path.Type.IsEmpty(v) {
			return nil, domain.ErrValidation{Schema: rs.schema.Name(), Field: k, Required: true}
		}
		if !path.Type.Validate(v) {
			return nil, domain.ErrValidation{Schema: rs.schema.Name(), Field: k, Value: v}
		}
		if set[path.Wire], err = path.Type.Encode(v); err != nil {
			return nil, err
		}
	}
	for _, f := range rs.schema.Fields() {
		av, ok := f.Type().(domain.AutoValuer)
		if !ok {
			continue
		}
		if _, ok := set[f.WireName()]; ok {
			continue
		}
		v, ok := av.AutoValue(nil, false)
		if !ok {
			continue
		}
		enc, err := f.Type().Encode(v)
		if err != nil {
			return nil, err
		}
		set[f.WireName()] = enc
	}
	return set, nil
}

// Remove deletes every record of the set and returns how many were removed.
func (rs *RecordSet) Remove(ctx context.Context) (int64, error) {
	filter, err := rs.compileFilter()
	if err != nil {
		return 0, err
	}
	rs.log(ctx, "remove", "filter", filter)
	return rs.driver.Remove(ctx, rs.collection(), filter, domain.WithRemoveMulti(true))
}

// EnsureIndexes creates the indexes declared by unique fields. The driver must
// implement [domain.Indexer].
func (rs *RecordSet) EnsureIndexes(ctx context.Context) ([]string, error) {
	idx, ok := rs.driver.(domain.Indexer)
	if !ok {
		return nil, domain.ErrIndexUnsupported
	}
	models := rs.schema.Indexes()
	names := make([]string, 0, len(models))
	for _, model := range models {
		rs.log(ctx, "ensure_index", "index", model.Name)
		name, err := idx.EnsureIndex(ctx, rs.collection(), model)
		if err != nil {
			return names, err
		}
		names = append(names, name)
	}
	return names, nil
}

// LoadReferences resolves the references of recs, all of them or only those
// of the top level fields named in fields. Sub-projections of the set, such as
// Only("category.name"), are applied to the loaded records.
func (rs *RecordSet) LoadReferences(ctx context.Context, recs []*record.Record, fields ...string) (resolver.Result, error) {
	_, refs, err := rs.proj.Compile(rs.schema)
	if err != nil {
		return resolver.Result{}, err
	}
	return rs.resolve(ctx, recs, refs, fields...)
}

func (rs *RecordSet) resolve(ctx context.Context, recs []*record.Record, refs map[string]domain.M, fields ...string) (resolver.Result, error) {
	res := rs.resolver
	if res == nil {
		var err error
		opts := []resolver.Option{resolver.WithLogger(rs.logger)}
		if rs.poolSize > 0 {
			opts = append(opts, resolver.WithPoolSize(rs.poolSize))
		}
		if res, err = resolver.New(rs, opts...); err != nil {
			return resolver.Result{}, err
		}
		defer res.Release()
	}
	return res.ResolveAll(ctx, recs, refs, fields...)
}

// LoadByID implements [resolver.Loader] by fetching a record of s with the
// same driver.
func (rs *RecordSet) LoadByID(ctx context.Context, s *schema.Schema, id any, proj domain.M) (*record.Record, error) {
	if s == nil {
		return nil, errors.New("reference without target schema")
	}
	rs.logger.DebugContext(ctx, "driver call", "operation", "find", "collection", s.Collection(), "id", id)
	cur, err := rs.driver.Find(ctx, s.Collection(), domain.M{domain.IDField: id},
		domain.WithProjection(proj), domain.WithLimit(1))
	if err != nil {
		return nil, err
	}
	rows, err := cursor.All(ctx, cur)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, domain.ErrNotFound
	}
	return record.FromWire(s, rows[0], len(proj) > 0)
}
