package qdisc

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/romanqed/qdisc/internal"
	"github.com/romanqed/qdisc/workload"
)

// DispatcherConfig defines runtime behavior of a Dispatcher.
//
// Concurrency specifies the number of worker goroutines pulling from
// the root Qdisc. StatsInterval specifies how often cumulative
// dispatch counters are logged at debug level; zero disables periodic
// stats logging entirely.
type DispatcherConfig struct {
	Concurrency   int
	StatsInterval time.Duration
}

// Dispatcher is the fixed worker pool that drains a root Qdisc,
// generalizing the teacher's channel-fed internal.WorkerPool to a
// pull-based source: instead of receiving work pushed onto a channel,
// each worker calls TryDequeue on the root and, finding it empty,
// parks on a shared internal.Sema until the next enqueue anywhere in the
// tree posts a wake-up to it (§4.5, §5).
type Dispatcher struct {
	root        Qdisc
	sema        *internal.Sema
	log         *slog.Logger
	concurrency int
	statsEvery  time.Duration

	wg        sync.WaitGroup
	statsTask internal.TimerTask
	ctx       context.Context
	cancel    context.CancelFunc

	dispatched atomic.Int64
	faulted    atomic.Int64
}

// NewDispatcher constructs a Dispatcher draining root. sema must be the
// same semaphore the root's notifyWorkScheduled path posts to, so that
// parked workers wake when work is enqueued. config.Concurrency can be 0
// or negative, in which case it defaults to 1.
func NewDispatcher(root Qdisc, sema *internal.Sema, config DispatcherConfig, log *slog.Logger) *Dispatcher {
	concurrency := config.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	return &Dispatcher{
		root:        root,
		sema:        sema,
		log:         log,
		concurrency: concurrency,
		statsEvery:  config.StatsInterval,
	}
}

// Start launches the worker goroutines. ctx governs the dispatcher's
// own lifetime; individual workload payloads additionally receive a
// derived, independently cancelable context via workload.SetRunCancel.
func (d *Dispatcher) Start(ctx context.Context) {
	d.ctx, d.cancel = context.WithCancel(ctx)
	for i := 0; i < d.concurrency; i++ {
		d.wg.Add(1)
		go d.worker(d.ctx, i)
	}
	if d.statsEvery > 0 {
		d.statsTask.Start(d.ctx, d.logStats, d.statsEvery)
	}
}

func (d *Dispatcher) worker(ctx context.Context, id int) {
	defer d.wg.Done()
	for {
		if ctx.Err() != nil {
			return
		}
		w, ok := d.root.TryDequeue(id, false)
		if !ok {
			if !d.sema.Wait(ctx) {
				return
			}
			continue
		}
		d.execute(ctx, w)
	}
}

func (d *Dispatcher) execute(ctx context.Context, w *workload.Base) {
	if !w.TryStart() {
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	w.SetRunCancel(cancel)
	err := d.safeRun(runCtx, w)
	cancel()
	canceled := w.CancellationRequested()
	w.Complete(err, canceled)
	d.dispatched.Add(1)
	if err != nil && !canceled {
		d.faulted.Add(1)
	}
}

func (d *Dispatcher) safeRun(ctx context.Context, w *workload.Base) (err error) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("payload panic recovered", "workload", w.ID, "err", r)
			err = fmt.Errorf("payload panic: %v", r)
		}
	}()
	return w.Payload(ctx)
}

func (d *Dispatcher) logStats(context.Context) {
	dispatched := d.dispatched.Load()
	faulted := d.faulted.Load()
	d.log.Debug("dispatch stats",
		"dispatched", humanize.Comma(dispatched),
		"faulted", humanize.Comma(faulted),
		"workers", d.concurrency,
	)
}

// Stop cancels the dispatcher's context and returns a DoneChan closed
// once every worker goroutine has returned.
func (d *Dispatcher) Stop() internal.DoneChan {
	d.cancel()
	first := internal.WrapWaitGroup(&d.wg)
	if d.statsEvery > 0 {
		return internal.Combine(first, d.statsTask.Stop())
	}
	return first
}
