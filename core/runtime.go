package core

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/skekre98/edgeagent/index"
)

// Runtime owns the module and capability registries and drives module
// startup.
//
// Load and AssembleAll must be called from a single goroutine. Once assembly
// has finished the registries are only read, and the read accessors (Lookup,
// Resolve, Modules, Capabilities) are safe for concurrent use.
type Runtime struct {
	logger   *slog.Logger
	provider Provider
	observer Observer

	mu         sync.RWMutex
	modules    *index.Tree[*Module]
	interfaces *index.Tree[*Interface]

	// current is the module whose Load is running, nil otherwise.
	current *Module

	loadOrder  []*Module
	startOrder []*Module
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithObserver reports runtime events to o.
func WithObserver(o Observer) Option {
	return func(r *Runtime) {
		if o != nil {
			r.observer = o
		}
	}
}

// New returns an empty runtime that resolves components through p.
func New(logger *slog.Logger, p Provider, opts ...Option) *Runtime {
	r := &Runtime{
		logger:     logger,
		provider:   p,
		observer:   nopObserver{},
		modules:    index.New[*Module](nil),
		interfaces: index.New[*Interface](nil),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Load registers the component called name and runs its Load callback.
//
// Loading a name that is already registered is not an error: it is logged and
// ignored, so configuration files may repeat entries. A component whose Load
// callback fails stays registered but is never started.
func (r *Runtime) Load(ctx context.Context, name string) error {
	if !validName(name) {
		return &LoadError{Module: name, Stage: "resolve", Err: ErrInvalidName}
	}
	r.logger.Info("loading module", "module", name)

	if _, ok := r.Module(name); ok {
		r.logger.Warn("module already loaded", "module", name)
		return nil
	}

	comp, err := r.provider.Component(name)
	if err != nil {
		r.logger.Error("cannot resolve module", "module", name, "error", err)
		r.observer.ModuleFailed(name, "resolve")
		return &LoadError{Module: name, Stage: "resolve", Err: err}
	}
	if !comp.complete() {
		r.logger.Error("invalid module", "module", name, "error", ErrIncompleteComponent)
		r.observer.ModuleFailed(name, "validate")
		return &LoadError{Module: name, Stage: "validate", Err: ErrIncompleteComponent}
	}

	m := &Module{name: name, comp: comp}
	r.mu.Lock()
	r.modules.Insert(name, m)
	r.mu.Unlock()
	r.loadOrder = append(r.loadOrder, m)

	if err := r.runLoad(m); err != nil {
		r.mu.Lock()
		m.failed = true
		r.mu.Unlock()
		r.logger.Error("module load callback failed", "module", name, "error", err)
		r.observer.ModuleFailed(name, "load")
		return &LoadError{Module: name, Stage: "load", Err: err}
	}

	r.logger.Info("module loaded", "module", name, "imports", len(m.deps))
	r.observer.ModuleLoaded(name)
	return nil
}

func (r *Runtime) runLoad(m *Module) (err error) {
	r.current = m
	defer func() {
		r.current = nil
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return m.comp.Load(&Linker{rt: r, module: m})
}

// Module returns the registered module called name.
func (r *Runtime) Module(name string) (*Module, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n, ok := r.modules.Search(name)
	if !ok {
		return nil, false
	}
	return n.Value(), true
}

// Len returns the number of registered modules.
func (r *Runtime) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.modules.Len()
}

// Modules returns every registered module in name order.
func (r *Runtime) Modules() []ModuleInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ModuleInfo, 0, r.modules.Len())
	for _, m := range r.modules.All() {
		out = append(out, m.info())
	}
	return out
}
