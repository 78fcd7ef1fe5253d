package memdriver

import "context"

// lock is a mutual exclusion lock that can be abandoned when a context is
// done.
type lock struct {
	ch chan struct{}
}

func newLock() *lock {
	return &lock{ch: make(chan struct{}, 1)}
}

// acquire locks until release is called or ctx is done.
func (l *lock) acquire(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case l.ch <- struct{}{}:
		return nil
	}
}

func (l *lock) release() {
	select {
	case <-l.ch:
	default:
		panic("memdriver: release of unlocked lock")
	}
}
