package qdisc

import (
	"sync"

	"github.com/romanqed/qdisc/workload"
)

// ServiceProvider is an optional per-workload key-value container a
// payload can retrieve via Scheduler.ServiceProviderFor, per §6. The core
// stores it opaquely — it never inspects values — and clears the
// association on the workload's terminal transition.
type ServiceProvider struct {
	mu     sync.RWMutex
	values map[string]any
}

// NewServiceProvider constructs an empty ServiceProvider.
func NewServiceProvider() *ServiceProvider {
	return &ServiceProvider{values: make(map[string]any)}
}

// Set stores value under key.
func (sp *ServiceProvider) Set(key string, value any) {
	sp.mu.Lock()
	sp.values[key] = value
	sp.mu.Unlock()
}

// Get retrieves the value stored under key, if any.
func (sp *ServiceProvider) Get(key string) (any, bool) {
	sp.mu.RLock()
	defer sp.mu.RUnlock()
	v, ok := sp.values[key]
	return v, ok
}

// providers associates a ServiceProvider with each currently-scheduled
// workload. It lives on the Scheduler rather than on workload.Base, so
// that workload stays free of any dependency back on this package.
type providers struct {
	mu sync.Mutex
	m  map[*workload.Base]*ServiceProvider
}

func newProviders() *providers {
	return &providers{m: make(map[*workload.Base]*ServiceProvider)}
}

func (p *providers) attach(w *workload.Base, sp *ServiceProvider) {
	p.mu.Lock()
	p.m[w] = sp
	p.mu.Unlock()
	w.AddContinuation(func(workload.Result) {
		p.mu.Lock()
		delete(p.m, w)
		p.mu.Unlock()
	})
}

func (p *providers) get(w *workload.Base) (*ServiceProvider, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	sp, ok := p.m[w]
	return sp, ok
}
