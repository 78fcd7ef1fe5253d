package resolver

import (
	"log/slog"

	"github.com/panjf2000/ants/v2"
)

// DefaultPoolSize is the number of concurrent lookups of a resolver created
// without [WithPoolSize].
const DefaultPoolSize = 16

// Option configures a [Resolver].
type Option func(*Resolver)

// WithPoolSize sets how many lookups run at the same time.
func WithPoolSize(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.size = n
		}
	}
}

// WithPool runs lookups on p instead of a pool owned by the resolver.
func WithPool(p *ants.Pool) Option {
	return func(r *Resolver) {
		r.pool = p
	}
}

// WithLogger sets the logger used to report fan-outs and failures.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}
