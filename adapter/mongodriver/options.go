package mongodriver

import (
	"log/slog"

	"github.com/vinicius-lino-figueiredo/godm/domain"
)

// Option configures a [Driver].
type Option func(*Driver)

// WithDecoder sets the decoder used by cursors to scan documents into
// structs.
func WithDecoder(dec domain.Decoder) Option {
	return func(d *Driver) {
		if dec != nil {
			d.decoder = dec
		}
	}
}

// WithLogger sets the logger receiving a debug entry per operation.
func WithLogger(l *slog.Logger) Option {
	return func(d *Driver) {
		if l != nil {
			d.logger = l
		}
	}
}
