package qdisc

import (
	"sync/atomic"

	"github.com/romanqed/qdisc/workload"
)

// Latest holds at most one workload. A new enqueue atomically swaps in
// the replacement; if a previous workload was present and still
// Scheduled, it is aborted (workload.Base.InternalAbort) so its
// continuations observe Canceled before EnqueueDirect notifies the parent
// chain and returns. The swap itself publishes the new workload first, so
// a concurrent dequeuer can take it before the abort has run. Dequeue
// atomically takes the held workload or returns none.
type Latest struct {
	classless
	slot atomic.Pointer[workload.Base]
}

// NewLatest constructs an empty Latest qdisc with the given handle.
func NewLatest(h Handle) *Latest {
	l := &Latest{classless: newClassless(h)}
	l.self = l
	return l
}

func (l *Latest) IsEmpty() bool {
	return l.slot.Load() == nil
}

func (l *Latest) Count() int {
	if l.slot.Load() == nil {
		return 0
	}
	return 1
}

func (l *Latest) EnqueueDirect(w *workload.Base) bool {
	prev := l.slot.Swap(w)
	if prev != nil && prev.Status() == workload.Scheduled {
		prev.InternalAbort()
	}
	l.notifyUp()
	return true
}

func (l *Latest) TryDequeue(_ int, _ bool) (*workload.Base, bool) {
	w := l.slot.Swap(nil)
	if w == nil {
		return nil, false
	}
	return w, true
}

func (l *Latest) TryPeek(_ int) (*workload.Base, bool) {
	w := l.slot.Load()
	if w == nil {
		return nil, false
	}
	return w, true
}

func (l *Latest) TryRemove(w *workload.Base) bool {
	return l.slot.CompareAndSwap(w, nil)
}
