package qdisc

import "github.com/puzpuzpuz/xsync/v3"

// registry is the flat qdisc lookup table recommended by §9's Design
// Notes ("store by index into a flat qdisc table owned by the
// scheduler... avoid cyclic ownership") as a replacement for the
// source's back-reference-heavy object graph. It is built once, by
// walking the immutable tree after AddChild/seal have finished, and
// read concurrently thereafter by Scheduler.Lookup — an xsync lock-free
// map gives that read path no contention with itself, unlike a map
// behind a sync.RWMutex. Scheduler.ScheduleByHandle does not use it; it
// resolves handles with TryFindRoute.
type registry struct {
	byHandle *xsync.MapOf[Handle, Qdisc]
}

func newRegistry() *registry {
	return &registry{byHandle: xsync.NewMapOf[Handle, Qdisc]()}
}

func (r *registry) index(root Qdisc) {
	r.byHandle.Store(root.Handle(), root)
	rr, ok := root.(*RoundRobin)
	if !ok {
		return
	}
	for _, cc := range rr.children {
		r.index(cc.Child)
	}
}

func (r *registry) lookup(h Handle) (Qdisc, bool) {
	return r.byHandle.Load(h)
}
