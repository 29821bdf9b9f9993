package qdisc

import (
	"sync/atomic"

	"github.com/romanqed/qdisc/workload"
)

// PredicateKind distinguishes the three child-classification predicate
// variants described in §4.2/§4.3.
type PredicateKind uint8

const (
	// PredicateNone means the child is never matched by state-driven
	// classification; it is reachable only by handle.
	PredicateNone PredicateKind = iota

	// PredicateTyped means the child is matched when Predicate(state)
	// returns true.
	PredicateTyped

	// PredicateRecursive means matching is delegated to the child qdisc
	// itself (the child must be classful). Predicate, if non-nil, gates
	// whether this child is even considered before recursing.
	PredicateRecursive
)

// Predicate is evaluated against an opaque classification state. It must
// be pure and side-effect-free; callers must not block inside it.
type Predicate func(state any) bool

// ChildClassification is the triple a classful qdisc stores per child:
// the child itself, its predicate variant, and the Predicate that decides
// a match for PredicateTyped or, if non-nil, gates recursion for
// PredicateRecursive.
type ChildClassification struct {
	Child     Qdisc
	Kind      PredicateKind
	Predicate Predicate
}

// Qdisc is the polymorphic tree node every concrete queueing discipline
// implements: either classless (owns a concrete queue) or classful (owns
// an ordered set of child classifications). See spec §4.2.
type Qdisc interface {
	// Handle returns this qdisc's immutable identifier.
	Handle() Handle

	// Parent returns the qdisc's parent, or nil for the root.
	Parent() Qdisc

	// IsEmpty is eventually consistent: it never claims empty while a
	// committed enqueue is visible to a future dequeue by the same
	// worker.
	IsEmpty() bool

	// Count returns a best-effort count of queued workloads.
	Count() int

	// EnqueueDirect publishes w so it is reachable by at least one
	// future TryDequeue, with release semantics, then notifies the
	// parent chain. It bypasses classification predicates entirely.
	EnqueueDirect(w *workload.Base) bool

	// TryEnqueue classifies state top-down (for a classful qdisc) or
	// checks nothing (a classless qdisc accepts unconditionally, since
	// gating already happened at the parent edge) and enqueues on
	// success.
	TryEnqueue(state any, w *workload.Base) bool

	// TryEnqueueByHandle walks this qdisc's subtree looking for a child
	// (direct or nested) with handle h and enqueues there.
	TryEnqueueByHandle(h Handle, w *workload.Base) bool

	// TryFindRoute appends a node to path if this qdisc or one of its
	// descendants can reach h; on terminal success it completes path
	// with the target qdisc.
	TryFindRoute(h Handle, path *RoutingPath) bool

	// TryDequeue returns a workload or none. workerID is an opaque
	// identity hint (used by work-stealing); backTrack hints that the
	// caller may re-examine children it just checked in this same call.
	// No qdisc in this package acts on backTrack; RoundRobin only
	// forwards it to its children.
	TryDequeue(workerID int, backTrack bool) (*workload.Base, bool)

	// TryPeek is a best-effort, non-destructive look at the next
	// workload that would be returned by TryDequeue.
	TryPeek(workerID int) (*workload.Base, bool)

	// TryRemove atomically removes w if this qdisc still contains it.
	// It also satisfies workload.BoundQdisc.
	TryRemove(w *workload.Base) bool

	// CanClassify reports whether this qdisc (or, for a classful qdisc,
	// one of its children) would accept state.
	CanClassify(state any) bool

	// ContainsChild reports whether a direct child has handle h.
	ContainsChild(h Handle) bool

	setParent(p Qdisc)
	notifyWorkScheduled()
}

// base is embedded by every concrete qdisc and implements the identity
// and parent-link plumbing shared by classless and classful variants.
// Parent is write-once: the builder sets it exactly once when the child
// is attached, per §5 ("qdisc handles and parent links are write-once").
type base struct {
	handle Handle
	parent atomic.Pointer[Qdisc]
}

func newBase(h Handle) base {
	return base{handle: h}
}

func (b *base) Handle() Handle {
	return b.handle
}

func (b *base) Parent() Qdisc {
	p := b.parent.Load()
	if p == nil {
		return nil
	}
	return *p
}

func (b *base) setParent(p Qdisc) {
	b.parent.CompareAndSwap(nil, &p)
}

// notifyUp forwards a work-scheduled notification to the parent chain.
// The root's notifyWorkScheduled implementation (RoundRobin) terminates
// the chain by waking the dispatcher.
func (b *base) notifyUp() {
	if p := b.Parent(); p != nil {
		p.notifyWorkScheduled()
	}
}
