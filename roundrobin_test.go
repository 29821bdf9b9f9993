package qdisc_test

import (
	"testing"

	"github.com/romanqed/qdisc"
)

func mustAddChild(t *testing.T, r *qdisc.RoundRobin, cc qdisc.ChildClassification) {
	t.Helper()
	if err := r.AddChild(cc); err != nil {
		t.Fatalf("AddChild failed: %v", err)
	}
}

// TestRoundRobinFairness reproduces spec scenario S2: a root round-robin
// with three FIFO children A, B, C enqueued a1,a2,a3 / b1,b2 / c1 in that
// order must dispatch a1, b1, c1, a2, b2, a3 to a single worker.
func TestRoundRobinFairness(t *testing.T) {
	root := qdisc.NewRoundRobin(1)
	a := qdisc.NewFIFO(2)
	b := qdisc.NewFIFO(3)
	c := qdisc.NewFIFO(4)

	mustAddChild(t, root, qdisc.ChildClassification{Child: a, Kind: qdisc.PredicateNone})
	mustAddChild(t, root, qdisc.ChildClassification{Child: b, Kind: qdisc.PredicateNone})
	mustAddChild(t, root, qdisc.ChildClassification{Child: c, Kind: qdisc.PredicateNone})

	a1, a2, a3 := newNoopWorkload(), newNoopWorkload(), newNoopWorkload()
	b1, b2 := newNoopWorkload(), newNoopWorkload()
	c1 := newNoopWorkload()

	a.EnqueueDirect(&a1.Base)
	a.EnqueueDirect(&a2.Base)
	a.EnqueueDirect(&a3.Base)
	b.EnqueueDirect(&b1.Base)
	b.EnqueueDirect(&b2.Base)
	c.EnqueueDirect(&c1.Base)

	expectedOrder := []any{&a1.Base, &b1.Base, &c1.Base, &a2.Base, &b2.Base, &a3.Base}
	for i, exp := range expectedOrder {
		got, ok := root.TryDequeue(0, false)
		if !ok {
			t.Fatalf("position %d: expected a workload, got none", i)
		}
		if got != exp {
			t.Fatalf("position %d: dispatch order mismatch", i)
		}
	}
	if _, ok := root.TryDequeue(0, false); ok {
		t.Fatal("expected tree empty after 6 dequeues")
	}
}

func TestRoundRobinEnqueueDirectUnsupported(t *testing.T) {
	root := qdisc.NewRoundRobin(1)
	w := newNoopWorkload()
	if root.EnqueueDirect(&w.Base) {
		t.Fatal("a classful qdisc must refuse EnqueueDirect")
	}
}

func TestRoundRobinTypedClassification(t *testing.T) {
	root := qdisc.NewRoundRobin(1)
	evens := qdisc.NewFIFO(2)
	odds := qdisc.NewFIFO(3)

	mustAddChild(t, root, qdisc.ChildClassification{
		Child: evens, Kind: qdisc.PredicateTyped,
		Predicate: func(state any) bool { return state.(int)%2 == 0 },
	})
	mustAddChild(t, root, qdisc.ChildClassification{
		Child: odds, Kind: qdisc.PredicateTyped,
		Predicate: func(state any) bool { return state.(int)%2 != 0 },
	})

	w := newNoopWorkload()
	if !root.TryEnqueue(4, &w.Base) {
		t.Fatal("expected classification to match the evens child")
	}
	if evens.Count() != 1 || odds.Count() != 0 {
		t.Fatal("workload landed in the wrong child")
	}
}

func TestRoundRobinClassificationNoMatch(t *testing.T) {
	root := qdisc.NewRoundRobin(1)
	leaf := qdisc.NewFIFO(2)
	mustAddChild(t, root, qdisc.ChildClassification{
		Child: leaf, Kind: qdisc.PredicateTyped,
		Predicate: func(state any) bool { return false },
	})

	w := newNoopWorkload()
	if root.TryEnqueue("anything", &w.Base) {
		t.Fatal("expected classification to fail when no predicate matches")
	}
}

func TestRoundRobinHandleRouting(t *testing.T) {
	root := qdisc.NewRoundRobin(10)
	f1 := qdisc.NewFIFO(20)
	f2 := qdisc.NewFIFO(30)
	mustAddChild(t, root, qdisc.ChildClassification{Child: f1, Kind: qdisc.PredicateNone})
	mustAddChild(t, root, qdisc.ChildClassification{Child: f2, Kind: qdisc.PredicateNone})

	w := newNoopWorkload()
	if !root.TryEnqueueByHandle(30, &w.Base) {
		t.Fatal("expected handle-addressed enqueue to reach f2")
	}
	if f1.Count() != 0 {
		t.Fatal("f1 must remain empty")
	}
	if f2.Count() != 1 {
		t.Fatal("expected the workload to land in f2")
	}
}

func TestRoundRobinIsEmptyAfterFullSweep(t *testing.T) {
	root := qdisc.NewRoundRobin(1)
	a := qdisc.NewFIFO(2)
	b := qdisc.NewFIFO(3)
	mustAddChild(t, root, qdisc.ChildClassification{Child: a, Kind: qdisc.PredicateNone})
	mustAddChild(t, root, qdisc.ChildClassification{Child: b, Kind: qdisc.PredicateNone})

	if !root.IsEmpty() {
		t.Fatal("expected a freshly built tree to read empty")
	}

	w := newNoopWorkload()
	a.EnqueueDirect(&w.Base)
	if root.IsEmpty() {
		t.Fatal("expected non-empty after enqueue")
	}

	root.TryDequeue(0, false)
	if !root.IsEmpty() {
		t.Fatal("expected empty again after the sole workload is drained")
	}
}

func TestRoundRobinDuplicateHandleRejected(t *testing.T) {
	root := qdisc.NewRoundRobin(1)
	a := qdisc.NewFIFO(2)
	b := qdisc.NewFIFO(2)
	mustAddChild(t, root, qdisc.ChildClassification{Child: a, Kind: qdisc.PredicateNone})
	if err := root.AddChild(qdisc.ChildClassification{Child: b, Kind: qdisc.PredicateNone}); err != qdisc.ErrQdiscTreeMalformed {
		t.Fatalf("expected ErrQdiscTreeMalformed, got %v", err)
	}
}
