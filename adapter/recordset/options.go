package recordset

import (
	"log/slog"

	"github.com/vinicius-lino-figueiredo/godm/adapter/resolver"
)

// Option configures a [RecordSet].
type Option func(*RecordSet)

// WithLogger sets the logger receiving a debug entry per driver call.
func WithLogger(l *slog.Logger) Option {
	return func(rs *RecordSet) {
		if l != nil {
			rs.logger = l
		}
	}
}

// WithResolver makes the set resolve references with r instead of creating a
// resolver, and its pool, for every resolution.
func WithResolver(r *resolver.Resolver) Option {
	return func(rs *RecordSet) {
		rs.resolver = r
	}
}

// WithPoolSize sets how many references are loaded at the same time by the
// resolvers the set creates.
func WithPoolSize(n int) Option {
	return func(rs *RecordSet) {
		rs.poolSize = n
	}
}
