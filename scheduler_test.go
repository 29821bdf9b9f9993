package qdisc_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/romanqed/qdisc"
	"github.com/romanqed/qdisc/workload"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newScheduler(t *testing.T, root *qdisc.RoundRobin, concurrency int) *qdisc.Scheduler {
	t.Helper()
	cfg := qdisc.SchedulerConfig{Dispatcher: qdisc.DispatcherConfig{Concurrency: concurrency}}
	return qdisc.NewScheduler(root, 8, cfg, testLogger())
}

// TestSchedulerFIFOOrdering reproduces spec scenario S1.
func TestSchedulerFIFOOrdering(t *testing.T) {
	root := qdisc.NewRoundRobin(100)
	leaf := qdisc.NewFIFO(1)
	if err := root.AddChild(qdisc.ChildClassification{Child: leaf, Kind: qdisc.PredicateNone}); err != nil {
		t.Fatal(err)
	}

	s := newScheduler(t, root, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := s.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer s.Stop(time.Second)

	var mu sync.Mutex
	var order []int
	done := make(chan struct{}, 5)

	for i := 1; i <= 5; i++ {
		i := i
		w := workload.New(func(context.Context) error {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			done <- struct{}{}
			return nil
		})
		if err := s.ScheduleByHandle(1, &w.Base); err != nil {
			t.Fatal(err)
		}
	}

	for i := 0; i < 5; i++ {
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for dispatch")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	for i, v := range order {
		if v != i+1 {
			t.Fatalf("expected FIFO order 1..5, got %v", order)
		}
	}
}

// TestSchedulerHandleRouting reproduces spec scenario S4.
func TestSchedulerHandleRouting(t *testing.T) {
	root := qdisc.NewRoundRobin(10)
	f1 := qdisc.NewFIFO(20)
	f2 := qdisc.NewFIFO(30)
	if err := root.AddChild(qdisc.ChildClassification{Child: f1, Kind: qdisc.PredicateNone}); err != nil {
		t.Fatal(err)
	}
	if err := root.AddChild(qdisc.ChildClassification{Child: f2, Kind: qdisc.PredicateNone}); err != nil {
		t.Fatal(err)
	}

	s := newScheduler(t, root, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := s.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer s.Stop(time.Second)

	ran := make(chan struct{})
	w := workload.New(func(context.Context) error {
		close(ran)
		return nil
	})
	if err := s.ScheduleByHandle(30, &w.Base); err != nil {
		t.Fatal(err)
	}

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("workload never ran")
	}

	time.Sleep(20 * time.Millisecond)
	qd, ok := s.Lookup(20)
	if !ok {
		t.Fatal("expected f1 to be registered")
	}
	if !qd.IsEmpty() {
		t.Fatal("f1 must remain empty throughout")
	}
}

// TestSchedulerCancelBeforeStart reproduces spec scenario S5: the
// dispatcher is never started, so the race is deterministic. A FIFO leaf
// cannot remove a queued workload, so the cancellation takes effect when
// the workload is dequeued and TryStart observes the request; the test
// performs that step in place of a worker.
func TestSchedulerCancelBeforeStart(t *testing.T) {
	root := qdisc.NewRoundRobin(1)
	leaf := qdisc.NewFIFO(2)
	if err := root.AddChild(qdisc.ChildClassification{Child: leaf, Kind: qdisc.PredicateNone}); err != nil {
		t.Fatal(err)
	}
	s := newScheduler(t, root, 1)

	w := workload.New(func(context.Context) error {
		t.Fatal("payload must never run")
		return nil
	})
	if err := s.ScheduleByHandle(2, &w.Base); err != nil {
		t.Fatal(err)
	}

	fired := 0
	w.AddContinuation(func(workload.Result) { fired++ })
	w.RequestCancel()

	got, ok := leaf.TryDequeue(0, false)
	if !ok || got != &w.Base {
		t.Fatal("expected the canceled workload to still be queued in the FIFO leaf")
	}
	if got.TryStart() {
		t.Fatal("TryStart must refuse a workload with a pending cancellation")
	}

	if w.Status() != workload.Canceled {
		t.Fatalf("expected Canceled, got %v", w.Status())
	}
	if fired != 1 {
		t.Fatalf("expected continuation to fire exactly once, got %d", fired)
	}
}

// TestSchedulerConcurrentProducers reproduces spec scenario S6 at a
// reduced scale suitable for a unit test: two producers each enqueue
// workloads into separate FIFO children of a round-robin root, drained
// by four workers; every workload must reach RanToCompletion exactly
// once.
func TestSchedulerConcurrentProducers(t *testing.T) {
	const perProducer = 2000
	root := qdisc.NewRoundRobin(1)
	fa := qdisc.NewFIFO(2)
	fb := qdisc.NewFIFO(3)
	if err := root.AddChild(qdisc.ChildClassification{Child: fa, Kind: qdisc.PredicateNone}); err != nil {
		t.Fatal(err)
	}
	if err := root.AddChild(qdisc.ChildClassification{Child: fb, Kind: qdisc.PredicateNone}); err != nil {
		t.Fatal(err)
	}

	s := newScheduler(t, root, 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := s.Start(ctx); err != nil {
		t.Fatal(err)
	}

	var completed atomic.Int64
	var wg sync.WaitGroup
	produce := func(handle qdisc.Handle) {
		defer wg.Done()
		for i := 0; i < perProducer; i++ {
			w := workload.New(func(context.Context) error {
				completed.Add(1)
				return nil
			})
			if err := s.ScheduleByHandle(handle, &w.Base); err != nil {
				t.Error(err)
				return
			}
		}
	}
	wg.Add(2)
	go produce(2)
	go produce(3)
	wg.Wait()

	deadline := time.Now().Add(10 * time.Second)
	for completed.Load() < perProducer*2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	if got := completed.Load(); got != perProducer*2 {
		t.Fatalf("expected %d completions, got %d", perProducer*2, got)
	}

	if err := s.Stop(time.Second); err != nil {
		t.Fatal(err)
	}
}

func TestSchedulerDoubleStartStop(t *testing.T) {
	root := qdisc.NewRoundRobin(1)
	leaf := qdisc.NewFIFO(2)
	if err := root.AddChild(qdisc.ChildClassification{Child: leaf, Kind: qdisc.PredicateNone}); err != nil {
		t.Fatal(err)
	}
	s := newScheduler(t, root, 1)

	ctx := context.Background()
	if err := s.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if err := s.Start(ctx); err != qdisc.ErrDoubleStarted {
		t.Fatalf("expected ErrDoubleStarted, got %v", err)
	}
	if err := s.Stop(time.Second); err != nil {
		t.Fatal(err)
	}
	if err := s.Stop(time.Second); err != qdisc.ErrDoubleStopped {
		t.Fatalf("expected ErrDoubleStopped, got %v", err)
	}
}

func TestSchedulerClassificationFailedReturnsWorkloadCanceled(t *testing.T) {
	root := qdisc.NewRoundRobin(1)
	leaf := qdisc.NewFIFO(2)
	if err := root.AddChild(qdisc.ChildClassification{
		Child: leaf, Kind: qdisc.PredicateTyped,
		Predicate: func(any) bool { return false },
	}); err != nil {
		t.Fatal(err)
	}
	s := newScheduler(t, root, 1)

	w := workload.New(func(context.Context) error { return nil })
	err := s.Schedule("never matches", &w.Base)
	if err != qdisc.ErrClassificationFailed {
		t.Fatalf("expected ErrClassificationFailed, got %v", err)
	}
	if w.Status() != workload.Canceled {
		t.Fatalf("expected the rejected workload to end Canceled, got %v", w.Status())
	}
}

func TestSchedulerNoRouteFound(t *testing.T) {
	root := qdisc.NewRoundRobin(1)
	leaf := qdisc.NewFIFO(2)
	if err := root.AddChild(qdisc.ChildClassification{Child: leaf, Kind: qdisc.PredicateNone}); err != nil {
		t.Fatal(err)
	}
	s := newScheduler(t, root, 1)

	w := workload.New(func(context.Context) error { return nil })
	if err := s.ScheduleByHandle(999, &w.Base); err != qdisc.ErrNoRouteFound {
		t.Fatalf("expected ErrNoRouteFound, got %v", err)
	}
}

func TestSchedulerRentAnonymousReturnsToPool(t *testing.T) {
	root := qdisc.NewRoundRobin(1)
	leaf := qdisc.NewFIFO(2)
	if err := root.AddChild(qdisc.ChildClassification{Child: leaf, Kind: qdisc.PredicateNone}); err != nil {
		t.Fatal(err)
	}
	s := newScheduler(t, root, 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := s.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer s.Stop(time.Second)

	ran := make(chan struct{})
	w := s.RentAnonymous(func(context.Context) error {
		close(ran)
		return nil
	})
	// Registered after RentAnonymous's own continuation, so it runs once
	// the instance has already been handed back to the pool.
	completed := make(chan struct{})
	w.AddContinuation(func(workload.Result) { close(completed) })
	if err := s.ScheduleByHandle(2, &w.Base); err != nil {
		t.Fatal(err)
	}
	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("anonymous workload never ran")
	}
	select {
	case <-completed:
	case <-time.After(time.Second):
		t.Fatal("anonymous workload never completed")
	}

	again := s.RentAnonymous(func(context.Context) error { return nil })
	if again != w {
		t.Fatal("expected the completed anonymous workload to be returned to the pool and rented again")
	}
}

func TestSchedulerServiceProvider(t *testing.T) {
	root := qdisc.NewRoundRobin(1)
	leaf := qdisc.NewFIFO(2)
	if err := root.AddChild(qdisc.ChildClassification{Child: leaf, Kind: qdisc.PredicateNone}); err != nil {
		t.Fatal(err)
	}
	s := newScheduler(t, root, 1)

	w := workload.New(func(context.Context) error { return nil })
	sp := qdisc.NewServiceProvider()
	sp.Set("key", 42)
	s.ServiceProvider(&w.Base, sp)

	got, ok := s.ServiceProviderFor(&w.Base)
	if !ok || got != sp {
		t.Fatal("expected to retrieve the attached ServiceProvider")
	}
	v, ok := got.Get("key")
	if !ok || v != 42 {
		t.Fatal("expected stored value to round-trip")
	}
}
