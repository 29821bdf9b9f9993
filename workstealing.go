package qdisc

import (
	"sync"
	"sync/atomic"

	"github.com/romanqed/qdisc/workload"
)

type localDeque struct {
	mu   sync.Mutex
	data []*workload.Base
}

func (d *localDeque) pushLocal(w *workload.Base) {
	d.mu.Lock()
	d.data = append(d.data, w)
	d.mu.Unlock()
}

func (d *localDeque) popLocal() (*workload.Base, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := len(d.data)
	if n == 0 {
		return nil, false
	}
	w := d.data[n-1]
	d.data[n-1] = nil
	d.data = d.data[:n-1]
	return w, true
}

func (d *localDeque) stealFar() (*workload.Base, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.data) == 0 {
		return nil, false
	}
	w := d.data[0]
	d.data = d.data[1:]
	return w, true
}

func (d *localDeque) peek() (*workload.Base, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := len(d.data)
	if n == 0 {
		return nil, false
	}
	return d.data[n-1], true
}

func (d *localDeque) remove(w *workload.Base) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, v := range d.data {
		if v != w {
			continue
		}
		d.data = append(d.data[:i], d.data[i+1:]...)
		return true
	}
	return false
}

func (d *localDeque) len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.data)
}

// WorkStealing is a classless qdisc with one local deque per worker. A
// worker pushes and pops at the local end of its own deque (LIFO, for
// cache locality on the most recently produced work); other workers
// steal from the far end of a peer's deque (FIFO, so a thief takes the
// oldest item a busy peer hasn't gotten to yet).
//
// §9 leaves work-stealing's classification semantics underspecified;
// this module resolves that open question by treating WorkStealing as
// plain classless FIFO-on-steal/LIFO-on-local-pop, with victim selection
// left to the implementer: enqueue (which carries no worker-identity
// hint in the Qdisc interface) round-robins across local deques.
type WorkStealing struct {
	classless
	deques []localDeque
	next   atomic.Uint64
}

// NewWorkStealing constructs a WorkStealing qdisc with one local deque
// per worker. workers must be at least 1.
func NewWorkStealing(h Handle, workers int) *WorkStealing {
	if workers < 1 {
		workers = 1
	}
	ws := &WorkStealing{classless: newClassless(h), deques: make([]localDeque, workers)}
	ws.self = ws
	return ws
}

func (ws *WorkStealing) IsEmpty() bool {
	return ws.Count() == 0
}

func (ws *WorkStealing) Count() int {
	total := 0
	for i := range ws.deques {
		total += ws.deques[i].len()
	}
	return total
}

func (ws *WorkStealing) EnqueueDirect(w *workload.Base) bool {
	idx := int(ws.next.Add(1)-1) % len(ws.deques)
	ws.deques[idx].pushLocal(w)
	ws.notifyUp()
	return true
}

func (ws *WorkStealing) TryDequeue(workerID int, _ bool) (*workload.Base, bool) {
	n := len(ws.deques)
	if workerID >= 0 && workerID < n {
		if w, ok := ws.deques[workerID].popLocal(); ok {
			return w, true
		}
		for i := 1; i < n; i++ {
			victim := (workerID + i) % n
			if w, ok := ws.deques[victim].stealFar(); ok {
				return w, true
			}
		}
		return nil, false
	}
	for i := 0; i < n; i++ {
		if w, ok := ws.deques[i].stealFar(); ok {
			return w, true
		}
	}
	return nil, false
}

func (ws *WorkStealing) TryPeek(workerID int) (*workload.Base, bool) {
	n := len(ws.deques)
	if workerID >= 0 && workerID < n {
		if w, ok := ws.deques[workerID].peek(); ok {
			return w, true
		}
	}
	for i := 0; i < n; i++ {
		if w, ok := ws.deques[i].peek(); ok {
			return w, true
		}
	}
	return nil, false
}

func (ws *WorkStealing) TryRemove(w *workload.Base) bool {
	for i := range ws.deques {
		if ws.deques[i].remove(w) {
			return true
		}
	}
	return false
}
