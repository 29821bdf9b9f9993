package qdisc

import (
	"sync/atomic"

	"github.com/romanqed/qdisc/workload"
)

// RoundRobin is the classful qdisc: an ordered sequence of child
// classifications sharing a dequeue cursor. It is the prime consumer of
// emptinessCounter — see §4.4 for the full algorithm this implements.
//
// The root of any tree built for Scheduler must be a RoundRobin (the
// only classful concrete type this module provides; spec §2 names
// exactly five concrete qdiscs and this is the one classful member).
type RoundRobin struct {
	base
	children []ChildClassification
	cursor   atomic.Uint32
	counter  emptinessCounter
	sealed   atomic.Bool
	wake     atomic.Pointer[func()]
}

// NewRoundRobin constructs an empty classful round-robin qdisc. Children
// are attached with AddChild before the tree is handed to NewScheduler;
// AddChild refuses to add children once the tree has been sealed.
func NewRoundRobin(h Handle) *RoundRobin {
	return &RoundRobin{base: newBase(h)}
}

// AddChild attaches a child classification in insertion order — the
// tie-breaker order used by both state-driven classification (§4.3) and
// round-robin dispatch. It fails if the tree is already sealed, the
// child's handle is the zero value, or a child with that handle is
// already present (duplicate handles are a build-time error, §7
// ErrQdiscTreeMalformed).
func (r *RoundRobin) AddChild(cc ChildClassification) error {
	if r.sealed.Load() {
		return ErrQdiscTreeMalformed
	}
	if cc.Child == nil || cc.Child.Handle().IsZero() {
		return ErrHandleIsDefault
	}
	if r.ContainsChild(cc.Child.Handle()) {
		return ErrQdiscTreeMalformed
	}
	cc.Child.setParent(r)
	r.children = append(r.children, cc)
	return nil
}

// seal freezes the child list. Called once by NewScheduler while walking
// the tree, per §5's "published once at build time and then immutable".
func (r *RoundRobin) seal() {
	r.sealed.Store(true)
	for _, cc := range r.children {
		if child, ok := cc.Child.(*RoundRobin); ok {
			child.seal()
		}
	}
}

// setWakeHook installs the function the root calls when a notification
// reaches it with no parent to forward to, i.e. the Dispatcher's wake
// primitive. Only meaningful on the root.
func (r *RoundRobin) setWakeHook(fn func()) {
	r.wake.Store(&fn)
}

func (r *RoundRobin) IsEmpty() bool {
	for _, cc := range r.children {
		if !cc.Child.IsEmpty() {
			return false
		}
	}
	return true
}

func (r *RoundRobin) Count() int {
	total := 0
	for _, cc := range r.children {
		total += cc.Child.Count()
	}
	return total
}

// EnqueueDirect is not supported on a classful qdisc: RoundRobin owns no
// queue of its own, only classification rules over its children. Direct
// enqueue must target a classless leaf (or a classful node that is
// itself addressed and then classified/enqueued further down).
func (r *RoundRobin) EnqueueDirect(_ *workload.Base) bool {
	return false
}

func (r *RoundRobin) TryEnqueue(state any, w *workload.Base) bool {
	for _, cc := range r.children {
		switch cc.Kind {
		case PredicateNone:
			continue
		case PredicateTyped:
			if cc.Predicate == nil || !cc.Predicate(state) {
				continue
			}
			return cc.Child.TryEnqueue(state, w)
		case PredicateRecursive:
			if cc.Predicate != nil && !cc.Predicate(state) {
				continue
			}
			if cc.Child.TryEnqueue(state, w) {
				return true
			}
		}
	}
	return false
}

func (r *RoundRobin) TryEnqueueByHandle(h Handle, w *workload.Base) bool {
	for _, cc := range r.children {
		if cc.Child.Handle() == h {
			return cc.Child.EnqueueDirect(w)
		}
		if cc.Child.TryEnqueueByHandle(h, w) {
			return true
		}
	}
	return false
}

func (r *RoundRobin) TryFindRoute(h Handle, path *RoutingPath) bool {
	if r.handle == h {
		return path.complete(r)
	}
	for i, cc := range r.children {
		path.push(r, i)
		if cc.Child.TryFindRoute(h, path) {
			return true
		}
		path.pop()
	}
	return false
}

// TryDequeue implements the round-robin dispatch algorithm of §4.4: read
// the shared cursor, capture the emptiness counter's generation token,
// probe one child; on success advance the cursor and return. On failure
// advance the cursor and bump the counter under the captured token; once
// the streak reaches len(children) with the same generation, declare the
// subtree empty. backTrack is accepted for interface parity with deeper
// work-stealing-style re-examination but round-robin's single
// full-sweep-per-call already covers every child once.
func (r *RoundRobin) TryDequeue(workerID int, backTrack bool) (*workload.Base, bool) {
	n := len(r.children)
	if n == 0 {
		return nil, false
	}
	gen := r.counter.token()
	start := int(r.cursor.Load()) % n
	for attempt := 0; attempt < n; attempt++ {
		idx := (start + attempt) % n
		if w, ok := r.children[idx].Child.TryDequeue(workerID, backTrack); ok {
			r.cursor.Store(uint32((idx + 1) % n))
			return w, true
		}
		count, stale := r.counter.bump(gen)
		if stale {
			r.cursor.Store(uint32((idx + 1) % n))
			return nil, false
		}
		if count >= uint32(n) {
			r.counter.declareEmpty(gen)
		}
	}
	return nil, false
}

func (r *RoundRobin) TryPeek(workerID int) (*workload.Base, bool) {
	n := len(r.children)
	if n == 0 {
		return nil, false
	}
	idx := int(r.cursor.Load()) % n
	return r.children[idx].Child.TryPeek(workerID)
}

func (r *RoundRobin) TryRemove(w *workload.Base) bool {
	for _, cc := range r.children {
		if cc.Child.TryRemove(w) {
			return true
		}
	}
	return false
}

func (r *RoundRobin) CanClassify(state any) bool {
	for _, cc := range r.children {
		switch cc.Kind {
		case PredicateNone:
			continue
		case PredicateTyped:
			if cc.Predicate != nil && cc.Predicate(state) {
				return true
			}
		case PredicateRecursive:
			if cc.Predicate != nil && !cc.Predicate(state) {
				continue
			}
			if cc.Child.CanClassify(state) {
				return true
			}
		}
	}
	return false
}

func (r *RoundRobin) ContainsChild(h Handle) bool {
	for _, cc := range r.children {
		if cc.Child.Handle() == h {
			return true
		}
	}
	return false
}

// notifyWorkScheduled resets this subtree's emptiness counter to a new
// generation — invalidating any empty-streak increment a racing
// dequeuer captured under the old generation — then forwards the
// notification to the parent, or to the dispatcher wake hook if this is
// the root.
func (r *RoundRobin) notifyWorkScheduled() {
	r.counter.reset()
	if p := r.Parent(); p != nil {
		p.notifyWorkScheduled()
		return
	}
	if wake := r.wake.Load(); wake != nil {
		(*wake)()
	}
}
