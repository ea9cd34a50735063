package core

import (
	"context"
	"fmt"
)

// Shutdown stops started modules in reverse start order, then unloads every
// registered module in reverse load order. Every module is visited even when
// an earlier one fails; the first error is returned. A second call is a no-op.
func (r *Runtime) Shutdown(ctx context.Context) error {
	var firstErr error
	record := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	for i := len(r.startOrder) - 1; i >= 0; i-- {
		m := r.startOrder[i]
		r.logger.Info("stopping module", "module", m.name)
		if err := m.comp.Stop(ctx); err != nil {
			r.logger.Error("module stop failed", "module", m.name, "error", err)
			record(fmt.Errorf("stop %s: %w", m.name, err))
		}
		r.mu.Lock()
		m.started = false
		r.mu.Unlock()
		r.observer.ModuleStopped(m.name)
	}
	r.startOrder = nil

	for i := len(r.loadOrder) - 1; i >= 0; i-- {
		m := r.loadOrder[i]
		r.logger.Debug("unloading module", "module", m.name)
		if err := m.comp.Unload(ctx); err != nil {
			r.logger.Error("module unload failed", "module", m.name, "error", err)
			record(fmt.Errorf("unload %s: %w", m.name, err))
		}
	}
	r.loadOrder = nil
	return firstErr
}
