// Package instrumented wraps a [domain.Driver] with prometheus metrics.
package instrumented

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vinicius-lino-figueiredo/godm/domain"
)

const (
	metricsNamespace = "godm"
	driverSubsystem  = "driver"
)

// Status label values.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

var (
	_ domain.Driver     = (*Driver)(nil)
	_ domain.Counter    = (*Driver)(nil)
	_ domain.Indexer    = (*Driver)(nil)
	_ domain.Aggregator = (*Driver)(nil)
)

// Metrics holds the collectors updated by [Driver].
type Metrics struct {
	// OperationsTotal counts driver calls.
	// Labels: operation, collection, status
	OperationsTotal *prometheus.CounterVec
	// OperationDuration measures driver calls in seconds.
	// Labels: operation, collection
	OperationDuration *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		OperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: driverSubsystem,
				Name:      "operations_total",
				Help:      "Total number of driver operations by collection and status",
			},
			[]string{"operation", "collection", "status"},
		),
		OperationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: driverSubsystem,
				Name:      "operation_duration_seconds",
				Help:      "Driver operation duration in seconds",
				Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 5},
			},
			[]string{"operation", "collection"},
		),
	}
}

// Driver records a counter and a duration for every call it forwards to the
// wrapped driver. The optional capabilities are forwarded when the wrapped
// driver has them.
type Driver struct {
	inner   domain.Driver
	metrics *Metrics
	now     func() time.Time
}

// NewDriver wraps inner. Without [WithMetrics] the collectors are registered
// with [prometheus.DefaultRegisterer].
func NewDriver(inner domain.Driver, options ...Option) *Driver {
	d := &Driver{inner: inner, now: time.Now}
	for _, opt := range options {
		opt(d)
	}
	if d.metrics == nil {
		d.metrics = NewMetrics(prometheus.DefaultRegisterer)
	}
	return d
}

// Unwrap returns the wrapped driver.
func (d *Driver) Unwrap() domain.Driver { return d.inner }

func (d *Driver) observe(operation, collection string, start time.Time, err error) {
	status := StatusOK
	if err != nil {
		status = StatusError
	}
	d.metrics.OperationsTotal.WithLabelValues(operation, collection, status).Inc()
	d.metrics.OperationDuration.WithLabelValues(operation, collection).Observe(d.now().Sub(start).Seconds())
}

// Find implements [domain.Driver].
func (d *Driver) Find(ctx context.Context, collection string, filter domain.M, options ...domain.FindOption) (domain.Cursor, error) {
	start := d.now()
	cur, err := d.inner.Find(ctx, collection, filter, options...)
	d.observe("find", collection, start, err)
	return cur, err
}

// Insert implements [domain.Driver].
func (d *Driver) Insert(ctx context.Context, collection string, docs ...domain.M) ([]any, error) {
	start := d.now()
	ids, err := d.inner.Insert(ctx, collection, docs...)
	d.observe("insert", collection, start, err)
	return ids, err
}

// Update implements [domain.Driver].
func (d *Driver) Update(ctx context.Context, collection string, filter domain.M, update domain.M, options ...domain.UpdateOption) (domain.UpdateResult, error) {
	start := d.now()
	res, err := d.inner.Update(ctx, collection, filter, update, options...)
	d.observe("update", collection, start, err)
	return res, err
}

// Remove implements [domain.Driver].
func (d *Driver) Remove(ctx context.Context, collection string, filter domain.M, options ...domain.RemoveOption) (int64, error) {
	start := d.now()
	n, err := d.inner.Remove(ctx, collection, filter, options...)
	d.observe("remove", collection, start, err)
	return n, err
}

// Count implements [domain.Counter]. Drivers that cannot count directly are
// counted by iterating a [domain.Driver.Find] cursor.
func (d *Driver) Count(ctx context.Context, collection string, filter domain.M) (int64, error) {
	start := d.now()
	n, err := d.count(ctx, collection, filter)
	d.observe("count", collection, start, err)
	return n, err
}

func (d *Driver) count(ctx context.Context, collection string, filter domain.M) (int64, error) {
	if c, ok := d.inner.(domain.Counter); ok {
		return c.Count(ctx, collection, filter)
	}
	cur, err := d.inner.Find(ctx, collection, filter)
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

// EnsureIndex implements [domain.Indexer]. It returns
// [domain.ErrIndexUnsupported] if the wrapped driver has no indexes.
func (d *Driver) EnsureIndex(ctx context.Context, collection string, model domain.IndexModel) (string, error) {
	start := d.now()
	var name string
	err := domain.ErrIndexUnsupported
	if i, ok := d.inner.(domain.Indexer); ok {
		name, err = i.EnsureIndex(ctx, collection, model)
	}
	d.observe("ensure_index", collection, start, err)
	return name, err
}

// Aggregate implements [domain.Aggregator]. It returns
// [domain.ErrAggregationUnsupported] if the wrapped driver cannot aggregate.
func (d *Driver) Aggregate(ctx context.Context, collection string, pipeline []domain.M) (domain.Cursor, error) {
	start := d.now()
	var cur domain.Cursor
	err := domain.ErrAggregationUnsupported
	if a, ok := d.inner.(domain.Aggregator); ok {
		cur, err = a.Aggregate(ctx, collection, pipeline)
	}
	d.observe("aggregate", collection, start, err)
	return cur, err
}
