// Package timegetter contains the clocks read by auto-filled date fields and
// by the id generator. Readings are in UTC and truncated to the millisecond,
// the precision dates are stored with, so an instant read back from a
// snapshot or a server equals the one that was written.
package timegetter

import (
	"time"

	"github.com/vinicius-lino-figueiredo/godm/domain"
)

// System implements [domain.TimeGetter] with the machine clock.
type System struct{}

// NewSystem returns the machine clock.
func NewSystem() domain.TimeGetter {
	return System{}
}

// GetTime implements [domain.TimeGetter].
func (System) GetTime() time.Time {
	return storedPrecision(time.Now())
}

// Fixed is a clock stopped at one instant.
type Fixed time.Time

// GetTime implements [domain.TimeGetter].
func (f Fixed) GetTime() time.Time {
	return storedPrecision(time.Time(f))
}

func storedPrecision(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}
