package qdisc

import "github.com/romanqed/qdisc/workload"

// classless is embedded by every leaf (classless) qdisc implementation
// (FIFO, constrained-LIFO, latest-only, work-stealing). It supplies the
// tree-shape operations that are identical across all of them — a
// classless qdisc owns no children, so TryEnqueueByHandle, TryFindRoute,
// CanClassify and ContainsChild all reduce to the same handle check or
// constant answer — leaving each concrete type to implement only its
// actual queueing behavior (IsEmpty, Count, EnqueueDirect, TryDequeue,
// TryPeek, TryRemove).
//
// self holds the enclosing Qdisc so classless can invoke the concrete
// type's EnqueueDirect/TryEnqueue without Go's lack of virtual dispatch
// through embedding getting in the way; constructors must set it
// immediately after allocation.
type classless struct {
	base
	self Qdisc
}

func newClassless(h Handle) classless {
	return classless{base: newBase(h)}
}

func (c *classless) TryEnqueue(_ any, w *workload.Base) bool {
	return c.self.EnqueueDirect(w)
}

func (c *classless) TryEnqueueByHandle(h Handle, w *workload.Base) bool {
	if h != c.handle {
		return false
	}
	return c.self.EnqueueDirect(w)
}

func (c *classless) TryFindRoute(h Handle, path *RoutingPath) bool {
	if h != c.handle {
		return false
	}
	return path.complete(c.self)
}

func (c *classless) CanClassify(_ any) bool {
	return true
}

func (c *classless) ContainsChild(_ Handle) bool {
	return false
}

func (c *classless) notifyWorkScheduled() {
	c.notifyUp()
}
