package qdisc

import (
	"sync/atomic"

	"github.com/romanqed/qdisc/workload"
)

type fifoNode struct {
	next atomic.Pointer[fifoNode]
	w    *workload.Base
}

// FIFO is an unbounded, order-preserving, multi-producer/multi-consumer
// classless qdisc. Enqueue and dequeue are wait-free amortized via a
// Michael-Scott style lock-free linked queue (the same CAS-loop-over-
// atomic.Pointer technique used throughout the pack's lock-free queue
// implementations), so no lock guards the hot path.
//
// FIFO's TryRemove unconditionally returns false: a linked FIFO has no
// efficient way to splice an arbitrary interior node without a lock or a
// tombstone scheme, and §9 leaves whether to add one an open question.
// Cancellation of a queued FIFO workload therefore relies on the worker
// observing CancellationRequested at TryStart rather than structural
// removal.
type FIFO struct {
	classless
	head  atomic.Pointer[fifoNode]
	tail  atomic.Pointer[fifoNode]
	count atomic.Int64
}

// NewFIFO constructs an empty FIFO qdisc with the given handle.
func NewFIFO(h Handle) *FIFO {
	f := &FIFO{classless: newClassless(h)}
	f.self = f
	sentinel := &fifoNode{}
	f.head.Store(sentinel)
	f.tail.Store(sentinel)
	return f
}

func (f *FIFO) IsEmpty() bool {
	return f.count.Load() <= 0
}

func (f *FIFO) Count() int {
	n := f.count.Load()
	if n < 0 {
		return 0
	}
	return int(n)
}

func (f *FIFO) EnqueueDirect(w *workload.Base) bool {
	n := &fifoNode{w: w}
	for {
		tail := f.tail.Load()
		next := tail.next.Load()
		if tail != f.tail.Load() {
			continue
		}
		if next == nil {
			if tail.next.CompareAndSwap(nil, n) {
				f.tail.CompareAndSwap(tail, n)
				break
			}
		} else {
			f.tail.CompareAndSwap(tail, next)
		}
	}
	f.count.Add(1)
	f.notifyUp()
	return true
}

func (f *FIFO) TryDequeue(_ int, _ bool) (*workload.Base, bool) {
	for {
		head := f.head.Load()
		tail := f.tail.Load()
		next := head.next.Load()
		if head != f.head.Load() {
			continue
		}
		if head == tail {
			if next == nil {
				return nil, false
			}
			f.tail.CompareAndSwap(tail, next)
			continue
		}
		w := next.w
		if f.head.CompareAndSwap(head, next) {
			f.count.Add(-1)
			return w, true
		}
	}
}

func (f *FIFO) TryPeek(_ int) (*workload.Base, bool) {
	head := f.head.Load()
	next := head.next.Load()
	if next == nil {
		return nil, false
	}
	return next.w, true
}

func (f *FIFO) TryRemove(_ *workload.Base) bool {
	return false
}
