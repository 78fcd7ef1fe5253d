// Package index contains the indexes of the in-memory driver, kept in AVL
// trees keyed by the indexed values.
package index

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"slices"
	"strings"

	"github.com/vinicius-lino-figueiredo/bst"
	"github.com/vinicius-lino-figueiredo/bst/adapter/avl"
	"github.com/vinicius-lino-figueiredo/godm/adapter/comparer"
	"github.com/vinicius-lino-figueiredo/godm/adapter/fieldnavigator"
	"github.com/vinicius-lino-figueiredo/godm/domain"
)

// DuplicateKeyCode is the error code of a unique index violation.
const DuplicateKeyCode = 11000

// Entry is a stored document. Indexes hold entries by identity, so the
// document of an entry can be replaced without touching the trees.
type Entry struct {
	Doc domain.M
}

// Index is a single or compound index over wire documents.
type Index struct {
	model  domain.IndexModel
	fields [][]string
	ns     string
	// Exported to allow testing.
	Tree           bst.BST[any, *Entry]
	comparer       domain.Comparer
	bstComparer    bst.Comparer[any, *Entry]
	fieldNavigator domain.FieldNavigator
}

// Name derives the name of an index from its keys, as in "name_1_age_-1".
func Name(keys domain.Sort) string {
	parts := make([]string, len(keys))
	for n, k := range keys {
		parts[n] = fmt.Sprintf("%s_%d", k.Key, k.Order)
	}
	return strings.Join(parts, "_")
}

// NewIndex returns an empty index described by model.
func NewIndex(model domain.IndexModel, options ...Option) (*Index, error) {
	if len(model.Keys) == 0 {
		return nil, domain.ErrInvalidFilter{Filter: model.Name, Reason: "an index needs at least one key"}
	}
	if model.Name == "" {
		model.Name = Name(model.Keys)
	}
	i := &Index{
		model:          model,
		ns:             "test",
		comparer:       comparer.NewComparer(),
		fieldNavigator: fieldnavigator.NewFieldNavigator(),
	}
	for _, option := range options {
		option(i)
	}

	i.fields = make([][]string, len(model.Keys))
	for n, k := range model.Keys {
		addr, err := i.fieldNavigator.GetAddress(k.Key)
		if err != nil {
			return nil, err
		}
		i.fields[n] = addr
	}

	i.bstComparer = NewBSTComparer(i.comparer)
	i.Tree = avl.NewBST(model.Unique, 8, i.bstComparer)
	return i, nil
}

// Name returns the index name.
func (i *Index) Name() string { return i.model.Name }

// Model returns the description the index was built from.
func (i *Index) Model() domain.IndexModel { return i.model }

// Single returns the field of a single field index.
func (i *Index) Single() (string, bool) {
	if len(i.model.Keys) != 1 {
		return "", false
	}
	return i.model.Keys[0].Key, true
}

// Reset empties the index and fills it with entries.
func (i *Index) Reset(ctx context.Context, entries ...*Entry) error {
	i.Tree = avl.NewBST(i.model.Unique, 8, i.bstComparer)
	return i.Insert(ctx, entries...)
}

// values reads the indexed values of a field. Missing values are nil, and a
// list value is one key per item.
func (i *Index) values(doc domain.M, addr []string) ([]any, bool, error) {
	fields, _, err := i.fieldNavigator.GetField(doc, addr...)
	if err != nil {
		return nil, false, err
	}
	var res []any
	found := false
	for _, f := range fields {
		v, defined := f.Get()
		if defined {
			found = true
		}
		if list, ok := v.([]any); ok {
			res = append(res, list...)
			continue
		}
		res = append(res, v)
	}
	if len(res) == 0 {
		res = []any{nil}
	}
	return res, found, nil
}

// keys returns the distinct keys of doc. A sparse index skips documents
// without any of its fields. Compound keys are lists with one value per
// field, taken from the first value of each field.
func (i *Index) keys(doc domain.M) ([]any, error) {
	if len(i.fields) == 1 {
		vals, found, err := i.values(doc, i.fields[0])
		if err != nil {
			return nil, err
		}
		if i.model.Sparse && !found {
			return nil, nil
		}
		return i.distinct(vals)
	}

	key := make([]any, len(i.fields))
	anyFound := false
	for n, addr := range i.fields {
		vals, found, err := i.values(doc, addr)
		if err != nil {
			return nil, err
		}
		anyFound = anyFound || found
		key[n] = vals[0]
	}
	if i.model.Sparse && !anyFound {
		return nil, nil
	}
	return []any{key}, nil
}

func (i *Index) distinct(keys []any) ([]any, error) {
	var err error
	cmp := func(a, b any) int {
		c, cmpErr := i.comparer.Compare(a, b)
		if cmpErr != nil && err == nil {
			err = cmpErr
		}
		return c
	}
	slices.SortFunc(keys, cmp)
	keys = slices.CompactFunc(keys, func(a, b any) bool { return cmp(a, b) == 0 })
	return keys, err
}

func (i *Index) duplicate(key any) error {
	field := i.model.Keys[0].Key
	if len(i.model.Keys) > 1 {
		field = i.Name()
	}
	shown := fmt.Sprint(key)
	if str, ok := key.(string); ok {
		shown = fmt.Sprintf("%q", str)
	}
	return domain.ErrDuplicateKey{
		Code:  DuplicateKeyCode,
		Index: i.Name(),
		Message: fmt.Sprintf("E%d duplicate key error collection: %s index: %s dup key: { %s: %s }",
			DuplicateKeyCode, i.ns, i.Name(), field, shown),
	}
}

type kv struct {
	key   any
	entry *Entry
}

// Insert adds entries to the index. On error, nothing is added.
func (i *Index) Insert(ctx context.Context, entries ...*Entry) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	inserted := make([]kv, 0, len(entries))
	var err error
Insertion:
	for _, e := range entries {
		var keys []any
		if keys, err = i.keys(e.Doc); err != nil {
			break
		}
		for _, k := range keys {
			if err = i.Tree.Insert(k, e); err != nil {
				var violated bst.ErrUniqueViolated
				if errors.As(err, &violated) {
					err = i.duplicate(k)
				}
				break Insertion
			}
			inserted = append(inserted, kv{key: k, entry: e})
		}
	}
	if err != nil {
		errs := []error{err}
		for _, v := range inserted {
			if delErr := i.Tree.Delete(v.key, &v.entry); delErr != nil {
				errs = append(errs, delErr)
			}
		}
		if len(errs) == 1 {
			return err
		}
		return errors.Join(errs...)
	}
	return nil
}

// Remove takes entries out of the index. The keys are read from the current
// document of each entry.
func (i *Index) Remove(ctx context.Context, entries ...*Entry) error {
	return i.remove(ctx, entries, func(e *Entry) domain.M { return e.Doc })
}

func (i *Index) remove(ctx context.Context, entries []*Entry, doc func(*Entry) domain.M) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	var errs []error
	for _, e := range entries {
		keys, err := i.keys(doc(e))
		if err != nil {
			errs = append(errs, err)
			continue
		}
		for _, k := range keys {
			if err := i.Tree.Delete(k, &e); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// Update reindexes entry from oldDoc to its current document. If the new keys
// violate the index, the old keys are restored.
func (i *Index) Update(ctx context.Context, entry *Entry, oldDoc domain.M) error {
	old := func(*Entry) domain.M { return oldDoc }
	if err := i.remove(ctx, []*Entry{entry}, old); err != nil {
		return err
	}
	if err := i.Insert(ctx, entry); err != nil {
		keys, keysErr := i.keys(oldDoc)
		if keysErr != nil {
			return errors.Join(err, keysErr)
		}
		for _, k := range keys {
			_ = i.Tree.Insert(k, entry)
		}
		return err
	}
	return nil
}

// Lookup returns the entries whose key is equal to value.
func (i *Index) Lookup(value any) ([]*Entry, error) {
	found, err := i.Tree.Search(value)
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, nil
	}
	return slices.Clone(found.Values()), nil
}

// Between returns the entries whose key is within the bounds of query, a
// document of $gt, $gte, $lt and $lte.
func (i *Index) Between(query domain.M) iter.Seq2[*Entry, error] {
	var qry bst.Query[any]
	for k, v := range query {
		switch k {
		case "$gt":
			qry.GreaterThan = &bst.Bound[any]{Value: v, IncludeEqual: false}
		case "$gte":
			qry.GreaterThan = &bst.Bound[any]{Value: v, IncludeEqual: true}
		case "$lt":
			qry.LowerThan = &bst.Bound[any]{Value: v, IncludeEqual: false}
		case "$lte":
			qry.LowerThan = &bst.Bound[any]{Value: v, IncludeEqual: true}
		}
	}
	return i.Tree.Query(qry)
}

// Len returns the number of distinct keys.
func (i *Index) Len() int {
	return i.Tree.GetNumberOfKeys()
}
