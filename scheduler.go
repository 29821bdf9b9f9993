package qdisc

import (
	"context"
	"log/slog"
	"time"

	"github.com/romanqed/qdisc/internal"
	"github.com/romanqed/qdisc/workload"
)

// SchedulerConfig defines runtime behavior of a Scheduler, generalizing
// the teacher's WorkerConfig to a pull-based dispatch model: there is no
// PullInterval or BatchSize, since workers drain the qdisc tree directly
// instead of polling a remote store.
type SchedulerConfig struct {
	Dispatcher DispatcherConfig
}

// Scheduler is the entry point of this module: it owns a sealed qdisc
// tree, the handle registry built over it, an AnonymousPool for
// fire-and-forget submissions, per-workload ServiceProvider storage, and
// the Dispatcher draining the tree. See spec §6.
//
// Scheduler has the same strict lifecycle the teacher's Worker does:
// Start fails while the scheduler is already running, and Stop gracefully
// waits for in-flight payloads subject to a timeout.
type Scheduler struct {
	lcBase
	root       *RoundRobin
	registry   *registry
	pool       *AnonymousPool
	providers  *providers
	dispatcher *Dispatcher
	log        *slog.Logger
}

// NewScheduler builds a Scheduler over root. root is sealed (no further
// AddChild calls are accepted on it or any descendant) and indexed into
// the handle registry before this returns.
func NewScheduler(root *RoundRobin, poolCapacity int, config SchedulerConfig, log *slog.Logger) *Scheduler {
	root.seal()
	reg := newRegistry()
	reg.index(root)
	sema := internal.NewSema()
	root.setWakeHook(sema.Signal)
	return &Scheduler{
		root:       root,
		registry:   reg,
		pool:       NewAnonymousPool(poolCapacity),
		providers:  newProviders(),
		dispatcher: NewDispatcher(root, sema, config.Dispatcher, log),
		log:        log,
	}
}

// Start begins draining the qdisc tree. It returns ErrDoubleStarted if
// already running.
func (s *Scheduler) Start(ctx context.Context) error {
	if err := s.tryStart(); err != nil {
		return err
	}
	s.dispatcher.Start(ctx)
	return nil
}

// Stop initiates graceful shutdown: no new payloads are started once the
// dispatcher's context is canceled, and Stop waits for in-flight ones to
// finish, up to timeout. It returns ErrDoubleStopped if not running.
func (s *Scheduler) Stop(timeout time.Duration) error {
	return s.tryStop(timeout, func() internal.DoneChan {
		return s.dispatcher.Stop()
	})
}

// Schedule classifies state top-down against the tree and enqueues w at
// the first accepting leaf, per §4.3/§6. It returns
// ErrWorkloadAlreadyScheduled if w is not Created, or
// ErrClassificationFailed if no qdisc accepts state.
func (s *Scheduler) Schedule(state any, w *workload.Base) error {
	if !w.TryBind(s.root) {
		return ErrWorkloadAlreadyScheduled
	}
	if !s.root.TryEnqueue(state, w) {
		w.InternalAbort()
		return ErrClassificationFailed
	}
	return nil
}

// ScheduleByHandle enqueues w directly at the leaf identified by h,
// bypassing classification entirely, per §4.3/§6. It returns
// ErrHandleIsDefault if h is the zero handle (leaving w untouched),
// ErrWorkloadAlreadyScheduled if w is not Created, ErrNoRouteFound if no
// qdisc in the tree owns h, or ErrRoutingPathInvalid if the resolved
// qdisc rejects a direct enqueue (e.g. a classful qdisc was addressed).
func (s *Scheduler) ScheduleByHandle(h Handle, w *workload.Base) error {
	if h.IsZero() {
		return ErrHandleIsDefault
	}
	if !w.TryBind(s.root) {
		return ErrWorkloadAlreadyScheduled
	}
	path := AcquireRoutingPath()
	defer ReleaseRoutingPath(path)
	if !s.root.TryFindRoute(h, path) {
		w.InternalAbort()
		return ErrNoRouteFound
	}
	leaf := path.Leaf()
	if leaf == nil || !leaf.EnqueueDirect(w) {
		w.InternalAbort()
		return ErrRoutingPathInvalid
	}
	return nil
}

// RentAnonymous returns a reusable Anonymous workload wrapping payload,
// registering its automatic return to the pool once terminal.
func (s *Scheduler) RentAnonymous(payload workload.Payload) *workload.Anonymous {
	w := s.pool.Rent(payload)
	w.AddContinuation(func(workload.Result) {
		s.pool.Return(w)
	})
	return w
}

// ServiceProvider attaches sp to w for the duration of its scheduled
// lifetime, per §6. It is cleared automatically once w reaches a
// terminal status.
func (s *Scheduler) ServiceProvider(w *workload.Base, sp *ServiceProvider) {
	s.providers.attach(w, sp)
}

// ServiceProviderFor retrieves the ServiceProvider attached to w, if any.
func (s *Scheduler) ServiceProviderFor(w *workload.Base) (*ServiceProvider, bool) {
	return s.providers.get(w)
}

// Lookup resolves a qdisc by handle via the flat registry built at
// NewScheduler time.
func (s *Scheduler) Lookup(h Handle) (Qdisc, bool) {
	return s.registry.lookup(h)
}
