package recordset

import (
	"context"

	"github.com/vinicius-lino-figueiredo/godm/adapter/cursor"
	"github.com/vinicius-lino-figueiredo/godm/adapter/query"
	"github.com/vinicius-lino-figueiredo/godm/adapter/schema"
	"github.com/vinicius-lino-figueiredo/godm/domain"
)

// Group is an item of [Aggregation.GroupBy]: a field to group by or an
// accumulator.
type Group interface {
	group(s *schema.Schema, stage domain.M) error
}

type groupField string

func (g groupField) group(s *schema.Schema, stage domain.M) error {
	path, err := resolveLocal(s, string(g), "group")
	if err != nil {
		return err
	}
	stage["_id"].(domain.M)[path.Wire] = "$" + path.Wire
	return nil
}

// By groups by the value of field.
func By(field string) Group { return groupField(field) }

type accumulator struct {
	op    string
	field string
	alias string
}

func (a accumulator) group(s *schema.Schema, stage domain.M) error {
	path, err := resolveLocal(s, a.field, "group")
	if err != nil {
		return err
	}
	alias := a.alias
	if alias == "" {
		alias = path.Wire
	}
	stage[alias] = domain.M{a.op: "$" + path.Wire}
	return nil
}

// Sum adds up field in every group, reported under alias, or under the wire
// name of field when alias is empty.
func Sum(field, alias string) Group { return accumulator{op: "$sum", field: field, alias: alias} }

// Avg averages field in every group. alias works as in [Sum].
func Avg(field, alias string) Group { return accumulator{op: "$avg", field: field, alias: alias} }

type stage func(s *schema.Schema) (domain.M, error)

// Aggregation is a pipeline run over the records of a set.
type Aggregation struct {
	rs     *RecordSet
	stages []stage
}

// Aggregate starts a pipeline over the records of the set. The set filter,
// if any, is its first stage.
func (rs *RecordSet) Aggregate() *Aggregation {
	return &Aggregation{rs: rs}
}

func (a *Aggregation) push(st stage) *Aggregation {
	stages := make([]stage, len(a.stages), len(a.stages)+1)
	copy(stages, a.stages)
	return &Aggregation{rs: a.rs, stages: append(stages, st)}
}

// Match keeps the documents matching every node.
func (a *Aggregation) Match(nodes ...query.Node) *Aggregation {
	return a.push(func(s *schema.Schema) (domain.M, error) {
		filter, err := query.Compile(s, query.And(nodes...))
		if err != nil {
			return nil, err
		}
		return domain.M{"$match": filter}, nil
	})
}

// GroupBy groups documents by the fields given with [By] and computes the
// accumulators given with [Sum] and [Avg] for each group.
func (a *Aggregation) GroupBy(groups ...Group) *Aggregation {
	return a.push(func(s *schema.Schema) (domain.M, error) {
		stage := domain.M{"_id": domain.M{}}
		for _, g := range groups {
			if err := g.group(s, stage); err != nil {
				return nil, err
			}
		}
		return domain.M{"$group": stage}, nil
	})
}

// Unwind outputs one document per item of the list at field.
func (a *Aggregation) Unwind(field string) *Aggregation {
	return a.push(func(s *schema.Schema) (domain.M, error) {
		path, err := resolveLocal(s, field, "unwind")
		if err != nil {
			return nil, err
		}
		return domain.M{"$unwind": "$" + path.Wire}, nil
	})
}

// OrderBy sorts documents by field. After a group stage, field may be one
// of the accumulator aliases.
func (a *Aggregation) OrderBy(field string, order int64) *Aggregation {
	return a.push(func(s *schema.Schema) (domain.M, error) {
		wire := field
		if path, err := resolveLocal(s, field, "sort"); err == nil {
			wire = path.Wire
		}
		return domain.M{"$sort": domain.Sort{{Key: wire, Order: order}}}, nil
	})
}

// Pipeline compiles the stages into wire documents.
func (a *Aggregation) Pipeline() ([]domain.M, error) {
	pipeline := make([]domain.M, 0, len(a.stages)+1)
	if !query.IsEmpty(a.rs.filter) {
		filter, err := a.rs.compileFilter()
		if err != nil {
			return nil, err
		}
		pipeline = append(pipeline, domain.M{"$match": filter})
	}
	for _, st := range a.stages {
		doc, err := st(a.rs.schema)
		if err != nil {
			return nil, err
		}
		pipeline = append(pipeline, doc)
	}
	return pipeline, nil
}

// Fetch runs the pipeline. The fields of a group id are copied to the top
// level of each result. The driver must implement [domain.Aggregator].
func (a *Aggregation) Fetch(ctx context.Context) ([]domain.M, error) {
	agg, ok := a.rs.driver.(domain.Aggregator)
	if !ok {
		return nil, domain.ErrAggregationUnsupported
	}
	pipeline, err := a.Pipeline()
	if err != nil {
		return nil, err
	}
	a.rs.log(ctx, "aggregate", "stages", len(pipeline))
	cur, err := agg.Aggregate(ctx, a.rs.collection(), pipeline)
	if err != nil {
		return nil, err
	}
	rows, err := cursor.All(ctx, cur)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		if id, ok := row["_id"].(domain.M); ok {
			for k, v := range id {
				row[k] = v
			}
		}
	}
	return rows, nil
}
