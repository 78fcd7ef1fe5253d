package instrumented

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures a [Driver].
type Option func(*Driver)

// WithMetrics sets the collectors updated by the driver, usually built with
// [NewMetrics] over a dedicated registry.
func WithMetrics(m *Metrics) Option {
	return func(d *Driver) {
		if m != nil {
			d.metrics = m
		}
	}
}

// WithRegisterer creates the collectors and registers them with reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(d *Driver) {
		if reg != nil {
			d.metrics = NewMetrics(reg)
		}
	}
}

// WithClock sets the function used to measure durations.
func WithClock(now func() time.Time) Option {
	return func(d *Driver) {
		if now != nil {
			d.now = now
		}
	}
}
