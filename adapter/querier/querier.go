// Package querier runs finds over documents held in memory: filtering,
// sorting, skipping, limiting and projecting.
package querier

import (
	"fmt"
	"iter"
	"slices"

	"github.com/vinicius-lino-figueiredo/godm/adapter/comparer"
	"github.com/vinicius-lino-figueiredo/godm/adapter/fieldnavigator"
	"github.com/vinicius-lino-figueiredo/godm/adapter/matcher"
	"github.com/vinicius-lino-figueiredo/godm/adapter/projector"
	"github.com/vinicius-lino-figueiredo/godm/domain"
)

// Querier filters, sorts and projects documents.
type Querier struct {
	mtchr domain.Matcher
	cmpr  domain.Comparer
	fn    domain.FieldNavigator
	proj  domain.Projector
	cap   int
}

// NewQuerier returns a new [Querier].
func NewQuerier(opts ...Option) *Querier {
	q := Querier{
		cmpr: comparer.NewComparer(),
		cap:  256,
	}
	for _, opt := range opts {
		opt(&q)
	}
	if q.fn == nil {
		q.fn = fieldnavigator.NewFieldNavigator()
	}
	if q.proj == nil {
		q.proj = projector.NewProjector(projector.WithFieldNavigator(q.fn))
	}
	if q.mtchr == nil {
		q.mtchr = matcher.NewMatcher(
			matcher.WithComparer(q.cmpr),
			matcher.WithFieldNavigator(q.fn),
		)
	}
	return &q
}

// Query returns the documents of data matching filter, shaped by options.
// The returned documents are copies. Query is not concurrency safe, since
// the matcher keeps the compiled filter.
func (q *Querier) Query(data iter.Seq2[domain.M, error], filter domain.M, options domain.FindOptions) ([]domain.M, error) {
	if data == nil {
		return make([]domain.M, 0), nil
	}

	res, finished, err := q.filter(data, filter, options)
	if err != nil {
		return nil, err
	}

	if finished {
		return res, nil
	}

	if options.Sort != nil {
		sorted, err := q.Sort(res, options.Sort)
		if err != nil {
			return nil, fmt.Errorf("sorting: %w", err)
		}
		res = q.skipAndLimit(sorted, options.Skip, options.Limit)
	}

	res, err = q.proj.Project(res, options.Projection)
	if err != nil {
		return nil, fmt.Errorf("projecting: %w", err)
	}
	return res, nil
}

func (q *Querier) filter(data iter.Seq2[domain.M, error], filter domain.M, opts domain.FindOptions) ([]domain.M, bool, error) {
	var skipped int64
	res := make([]domain.M, 0, q.cap)

	if len(filter) > 0 {
		if err := q.mtchr.SetQuery(filter); err != nil {
			return nil, false, err
		}
	}

	for doc, err := range data {
		if err != nil {
			return nil, false, err
		}
		if len(filter) > 0 {
			matches, err := q.mtchr.Match(doc)
			if err != nil {
				return nil, false, fmt.Errorf("matching document: %w", err)
			}
			if !matches {
				continue
			}
		}
		if opts.Sort == nil {
			if skipped < opts.Skip {
				skipped++
				continue
			}
			if opts.Limit > 0 && int64(len(res)) == opts.Limit {
				break
			}
		}
		res = append(res, doc)
	}
	if opts.Sort == nil {
		res, err := q.proj.Project(res, opts.Projection)
		if err != nil {
			return nil, false, fmt.Errorf("projecting: %w", err)
		}
		return res, true, nil
	}
	return res, false, nil
}

// Sort returns a sorted copy of data. Documents missing a field come first
// in ascending order.
func (q *Querier) Sort(data []domain.M, sort domain.Sort) ([]domain.M, error) {
	addrs := make([][]string, len(sort))
	for n, crit := range sort {
		addr, err := q.fn.GetAddress(crit.Key)
		if err != nil {
			return nil, fmt.Errorf("getting address: %w", err)
		}
		addrs[n] = addr
	}

	res := slices.Clone(data)
	var err error
	slices.SortStableFunc(res, func(a, b domain.M) int {
		if err != nil {
			return 0
		}
		for n, crit := range sort {
			comp, cErr := q.compareByCriterion(a, b, addrs[n], crit.Order)
			if cErr != nil {
				err = cErr
				return 0
			}
			if comp != 0 {
				return comp
			}
		}
		return 0
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (q *Querier) compareByCriterion(a, b domain.M, addr []string, order int64) (int, error) {
	criterionA, _, err := q.fn.GetField(a, addr...)
	if err != nil {
		return 0, fmt.Errorf("getting field: %w", err)
	}
	criterionB, _, err := q.fn.GetField(b, addr...)
	if err != nil {
		return 0, fmt.Errorf("getting field: %w", err)
	}

	critA := q.listFields(criterionA)
	critB := q.listFields(criterionB)

	comp, err := q.cmpr.Compare(critA, critB)
	if err != nil {
		return 0, fmt.Errorf("comparing: %w", err)
	}
	if order < 0 {
		return -comp, nil
	}
	return comp, nil
}

func (q *Querier) listFields(g []domain.GetSetter) []any {
	res := make([]any, len(g))
	for n, v := range g {
		res[n] = v
	}
	return res
}

func (q *Querier) skipAndLimit(data []domain.M, skip, limit int64) []domain.M {

	length := int64(len(data))

	skip = max(skip, 0)      // skip cannot be negative
	skip = min(skip, length) // cannot skip more than length

	limit = min(skip+limit, length) // limit cannot be greater than length
	if limit == skip {              // if limit is zero, return all data
		limit = length
	}

	return data[skip:limit]
}
