package internal

import "context"

// Sema is the counting semaphore wake primitive described in §5:
// workers block on it only when the qdisc tree is observed empty, and
// the root's notifyWorkScheduled posts to it on every enqueue anywhere
// in the tree. Posts coalesce into a single pending wake,
// which is sufficient here: a worker that wakes always re-scans the
// whole tree rather than trusting the signal count to mean "N items
// available".
type Sema struct {
	ch chan struct{}
}

// NewSema constructs a Sema.
func NewSema() *Sema {
	return &Sema{ch: make(chan struct{}, 1)}
}

// Signal posts a wake-up, coalescing with any already-pending one.
func (s *Sema) Signal() {
	select {
	case s.ch <- struct{}{}:
	default:
	}
}

// Wait blocks until Signal is called or ctx is done, returning false in
// the latter case.
func (s *Sema) Wait(ctx context.Context) bool {
	select {
	case <-s.ch:
		return true
	case <-ctx.Done():
		return false
	}
}
