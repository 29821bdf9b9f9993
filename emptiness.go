package qdisc

import "sync/atomic"

// allOnes32 is the emptiness counter's "observed empty" sentinel for its
// low 32-bit count field, per §3/§4.4.
const allOnes32 = ^uint32(0)

// emptinessCounter packs a 32-bit generation (high) and a 32-bit
// empty-streak count (low) into a single atomic word so that a classful
// round-robin qdisc can decide "subtree is empty" via one atomic
// observation.
//
// reset bumps the generation and zeroes the count; it is called by
// notifyWorkScheduled on every successful enqueue into any child,
// invalidating any empty-streak increments a racing dequeuer is about to
// apply under the old generation. bump only advances the count if the
// caller's cached generation still matches, so a stale increment (one
// issued before a concurrent reset) is silently dropped instead of
// corrupting the new round's streak.
type emptinessCounter struct {
	v atomic.Uint64
}

func packEmptiness(gen, count uint32) uint64 {
	return uint64(gen)<<32 | uint64(count)
}

func unpackEmptiness(v uint64) (gen, count uint32) {
	return uint32(v >> 32), uint32(v)
}

// token returns the counter's current generation, to be cached by a
// dequeue attempt before it probes a child.
func (e *emptinessCounter) token() uint32 {
	gen, _ := unpackEmptiness(e.v.Load())
	return gen
}

// reset starts a new generation with a zeroed count.
func (e *emptinessCounter) reset() {
	for {
		old := e.v.Load()
		gen, _ := unpackEmptiness(old)
		nv := packEmptiness(gen+1, 0)
		if e.v.CompareAndSwap(old, nv) {
			return
		}
	}
}

// bump increments the count iff gen is still the live generation. It
// reports the resulting count and whether gen was stale (a reset raced
// ahead of this call, meaning work was concurrently scheduled).
func (e *emptinessCounter) bump(gen uint32) (count uint32, stale bool) {
	for {
		old := e.v.Load()
		g, c := unpackEmptiness(old)
		if g != gen {
			return c, true
		}
		if c == allOnes32 {
			return c, false
		}
		nv := packEmptiness(g, c+1)
		if e.v.CompareAndSwap(old, nv) {
			return c + 1, false
		}
	}
}

// declareEmpty sets the sentinel count iff gen is still the live
// generation, marking the subtree as observed-empty for this round. If a
// reset has already raced ahead (new work arrived), this is a no-op: the
// new generation's count stands.
func (e *emptinessCounter) declareEmpty(gen uint32) {
	for {
		old := e.v.Load()
		g, _ := unpackEmptiness(old)
		if g != gen {
			return
		}
		nv := packEmptiness(g, allOnes32)
		if e.v.CompareAndSwap(old, nv) {
			return
		}
	}
}

// isDeclaredEmpty reports whether the live generation's count holds the
// observed-empty sentinel.
func (e *emptinessCounter) isDeclaredEmpty() bool {
	_, c := unpackEmptiness(e.v.Load())
	return c == allOnes32
}
