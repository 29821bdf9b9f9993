package qdisc

import (
	"sync/atomic"
	"time"

	"github.com/romanqed/qdisc/internal"
)

const (
	stopped = iota
	started
)

// lcBase is the shared start/stop state machine backing Scheduler. It is
// a direct generalization of the teacher's worker lifecycle guard: one
// CAS for start, one CAS for stop, with a bounded wait on a DoneChan
// supplied by the caller.
type lcBase struct {
	state atomic.Int32
}

func (lb *lcBase) tryStart() error {
	if !lb.state.CompareAndSwap(stopped, started) {
		return ErrDoubleStarted
	}
	return nil
}

func (lb *lcBase) tryStop(timeout time.Duration, df internal.DoneFunc) error {
	if !lb.state.CompareAndSwap(started, stopped) {
		return ErrDoubleStopped
	}
	done := df()
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-done:
		return nil
	case <-timer.C:
		return ErrStopTimeout
	}
}
