package workload

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Payload is the callable invoked on a worker goroutine when a workload
// transitions to Running.
//
// ctx is canceled when the scheduler observes a cancellation request for
// this workload at a point after the payload has already started; the
// payload must observe ctx itself to honor cooperative cancellation once
// running (§5 — "payloads that have already started are not interrupted
// by the scheduler itself").
type Payload func(ctx context.Context) error

// Result is the terminal outcome observed by a continuation.
type Result struct {
	Status Status
	Err    error
}

// Continuation is invoked exactly once, inline, the moment a workload
// reaches a terminal status — whether it was already terminal at
// registration time or becomes terminal afterward.
type Continuation func(Result)

// BoundQdisc is the minimal surface a workload needs from the qdisc it is
// bound to: structural removal while still queued. It exists so this
// package never imports the qdisc tree package, avoiding a cycle; qdisc
// implementations satisfy it directly.
type BoundQdisc interface {
	TryRemove(w *Base) bool
}

// Base implements the state machine and bookkeeping shared by every
// workload variant: Created -> Scheduled -> Running -> terminal, plus an
// independent CancellationRequested flag settable in any non-terminal
// state. Transitions happen via CompareAndSwap on a single status word so
// exactly one actor ever observes a given edge.
//
// Base is embedded by Awaitable and Anonymous; callers interact with one
// of those, not Base directly.
type Base struct {
	ID      uuid.UUID
	Payload Payload

	status    atomic.Uint32
	cancel    atomic.Bool
	qdisc     atomic.Pointer[BoundQdisc]
	mu        sync.Mutex
	conts     []Continuation
	err       error
	release   func()
	runCancel atomic.Pointer[func()]
}

func newBase(p Payload) Base {
	return Base{ID: uuid.New(), Payload: p}
}

// Status returns the current lifecycle state.
func (b *Base) Status() Status {
	return Status(b.status.Load())
}

// CancellationRequested reports whether RequestCancel has been called.
func (b *Base) CancellationRequested() bool {
	return b.cancel.Load()
}

// TryBind performs the one-shot Created -> Scheduled transition and
// atomically records q as the workload's bound qdisc. It fails (returns
// false) if the workload is already scheduled, already running, or
// already terminal; callers must not enqueue the workload when TryBind
// returns false.
func (b *Base) TryBind(q BoundQdisc) bool {
	if !b.status.CompareAndSwap(uint32(Created), uint32(Scheduled)) {
		return false
	}
	b.qdisc.Store(&q)
	return true
}

// SetRunCancel registers fn as the cancel function of the context.Context
// passed to Payload for the current run. The dispatcher calls this right
// before invoking Payload; RequestCancel calls fn if cancellation is
// requested while the workload is Running. Cleared automatically once the
// workload finishes.
func (b *Base) SetRunCancel(fn func()) {
	b.runCancel.Store(&fn)
}

// TryStart is called by a worker immediately before invoking Payload. It
// performs the Scheduled -> Running transition. If CancellationRequested
// is set, it instead transitions straight to Canceled, invokes
// continuations, and returns false; the caller must not invoke Payload in
// that case.
func (b *Base) TryStart() bool {
	if b.cancel.Load() {
		if b.status.CompareAndSwap(uint32(Scheduled), uint32(Canceled)) {
			b.finish(Canceled, nil)
		}
		return false
	}
	return b.status.CompareAndSwap(uint32(Scheduled), uint32(Running))
}

// Complete performs the Running -> terminal transition. A nil err yields
// RanToCompletion; a non-nil err yields Faulted, unless canceled reports
// true, in which case the terminal state is Canceled regardless of err.
// Continuations fire exactly once.
func (b *Base) Complete(err error, canceled bool) {
	next := RanToCompletion
	switch {
	case canceled:
		next = Canceled
	case err != nil:
		next = Faulted
	}
	if !b.status.CompareAndSwap(uint32(Running), uint32(next)) {
		return
	}
	b.finish(next, err)
}

// RequestCancel idempotently sets the cancellation flag. If the workload
// is currently Scheduled, it attempts structural removal at the bound
// qdisc; on success the workload transitions directly to Canceled and
// continuations fire without the payload ever running. If the workload is
// currently Running, it instead cancels the context passed to Payload, if
// one was registered via SetRunCancel; the payload itself is responsible
// for observing ctx.Done() and returning — RequestCancel never interrupts
// a running payload directly (§5).
func (b *Base) RequestCancel() {
	if b.cancel.Swap(true) {
		return
	}
	switch Status(b.status.Load()) {
	case Scheduled:
		qp := b.qdisc.Load()
		if qp == nil {
			return
		}
		if !(*qp).TryRemove(b) {
			return
		}
		if b.status.CompareAndSwap(uint32(Scheduled), uint32(Canceled)) {
			b.finish(Canceled, nil)
		}
	case Running:
		if fn := b.runCancel.Load(); fn != nil {
			(*fn)()
		}
	}
}

// InternalAbort is the fast path used by the latest-only qdisc when an
// in-queue workload is superseded by a newer enqueue. It is equivalent to
// RequestCancel: the queue has already performed the structural removal
// (the swap itself), so this only needs to flip the flag and finish the
// state transition.
func (b *Base) InternalAbort() {
	b.cancel.Store(true)
	if b.status.CompareAndSwap(uint32(Scheduled), uint32(Canceled)) {
		b.finish(Canceled, nil)
	}
}

func (b *Base) finish(status Status, err error) {
	b.mu.Lock()
	b.err = err
	conts := b.conts
	b.conts = nil
	release := b.release
	b.mu.Unlock()
	b.qdisc.Store(nil)
	b.runCancel.Store(nil)
	res := Result{Status: status, Err: err}
	for _, c := range conts {
		c(res)
	}
	if release != nil {
		release()
	}
}

// SetReleaseHook registers fn to run exactly once, after any
// continuations, when the workload reaches a terminal state.
func (b *Base) SetReleaseHook(fn func()) {
	b.mu.Lock()
	b.release = fn
	b.mu.Unlock()
}

// AddContinuation registers fn to run when the workload becomes terminal.
// If the workload is already terminal, fn runs immediately and inline.
func (b *Base) AddContinuation(fn Continuation) {
	b.mu.Lock()
	if Status(b.status.Load()).IsTerminal() {
		err := b.err
		st := Status(b.status.Load())
		b.mu.Unlock()
		fn(Result{Status: st, Err: err})
		return
	}
	b.conts = append(b.conts, fn)
	b.mu.Unlock()
}

// Err returns the error captured at completion, if any. It is only
// meaningful once Status().IsTerminal() is true.
func (b *Base) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.err
}

// Awaitable is a workload variant supporting continuations and structural
// removal. Callers observe it via Status, AddContinuation, Err and
// RequestCancel.
type Awaitable struct {
	Base
}

// New constructs an Awaitable workload wrapping payload.
func New(payload Payload) *Awaitable {
	return &Awaitable{Base: newBase(payload)}
}

// Anonymous is a fire-and-forget workload variant eligible for return to
// an anonymous workload pool once it reaches a terminal state. It still
// satisfies the same base contract; schedulers that rent anonymous
// workloads are responsible for invoking Reset and returning them to
// their originating pool after Status().IsTerminal().
type Anonymous struct {
	Base
}

// NewAnonymous constructs an Anonymous workload wrapping payload.
func NewAnonymous(payload Payload) *Anonymous {
	return &Anonymous{Base: newBase(payload)}
}

// Reset rearms an Anonymous workload for reuse from a pool. It must only
// be called once the workload is terminal and has no observers left.
func (a *Anonymous) Reset(payload Payload) {
	a.status.Store(uint32(Created))
	a.cancel.Store(false)
	a.qdisc.Store(nil)
	a.runCancel.Store(nil)
	a.err = nil
	a.conts = nil
	a.Payload = payload
	a.ID = uuid.New()
}
