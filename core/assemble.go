package core

import (
	"context"
	"errors"

	"github.com/skekre98/edgeagent/logging"
)

// AssembleAll starts every registered module whose imports can be bound,
// visiting modules in name order. Providers are started before their
// consumers regardless of the order modules were loaded in. Failures are
// logged and leave the affected module unstarted; they never stop the pass.
func (r *Runtime) AssembleAll(ctx context.Context) {
	r.logger.Info("assembling modules", "count", r.Len())
	for n := r.modules.First(); n != nil; n = r.modules.Next(n) {
		m := n.Value()
		if m.started || m.failed {
			continue
		}
		r.startWithDependencies(ctx, m)
	}
	r.logger.Info("assembly finished", "started", len(r.startOrder), "modules", r.Len())
}

// startWithDependencies resolves entry's imports depth first. When an import's
// provider has not started yet, the consumer is pushed on the work stack and
// the provider is processed instead; the consumer's remaining imports are
// revisited once the provider is done.
func (r *Runtime) startWithDependencies(ctx context.Context, entry *Module) {
	var stack workStack
	current := entry

	for current != nil {
		loopStart := current
		redirected := false

		for len(current.deps) > 0 {
			dep := current.deps[0]
			intf, ok := r.lookup(dep.name)
			if ok && intf.provider != current && !intf.provider.started && !intf.provider.failed {
				if stack.contains(intf.provider) {
					r.logger.Warn("dependency cycle, halting pass",
						"module", current.name,
						"capability", dep.name,
						"provider", intf.provider.name,
						"stack", stack.names(),
					)
					r.observer.PassHalted(entry.name)
					return
				}
				logging.Trace(r.logger, "provider not started, deferring consumer",
					"provider", intf.provider.name, "module", current.name, "capability", dep.name)
				stack.push(current)
				current = intf.provider
				redirected = true
				break
			}
			r.bind(dep, intf)
		}

		if !redirected && len(current.deps) == 0 {
			if !current.started && !current.failed {
				r.start(ctx, current)
			}
			current = stack.pop()
		}

		if current != nil && current == loopStart && len(current.deps) != 0 {
			r.logger.Warn("dependency resolution made no progress, halting pass",
				"module", current.name, "pending", len(current.deps))
			r.observer.PassHalted(entry.name)
			return
		}
	}
}

// bind writes dep's slot from intf, or with the zero value when intf is nil or
// its provider failed, and removes dep from its consumer.
func (r *Runtime) bind(dep *dependency, intf *Interface) {
	consumer := dep.consumer
	switch {
	case intf == nil:
		_ = dep.bind(nil)
		logging.Fatal(r.logger, "cannot find capability",
			"capability", dep.name, "module", consumer.name)
		r.observer.DependencyDropped(dep.name, consumer.name, DropMissing)
	case intf.provider.failed:
		_ = dep.bind(nil)
		r.logger.Error("capability provider failed, binding nil",
			"capability", dep.name, "provider", intf.provider.name, "module", consumer.name)
		r.observer.DependencyDropped(dep.name, consumer.name, DropProviderFailed)
	default:
		if err := dep.bind(intf.value); err != nil {
			var be *BindingError
			if errors.As(err, &be) {
				r.logger.Error("capability type mismatch, binding nil",
					"capability", dep.name, "module", consumer.name, "want", be.Want, "got", be.Got)
			}
			r.observer.DependencyDropped(dep.name, consumer.name, DropTypeMismatch)
		} else {
			r.logger.Debug("capability bound",
				"capability", dep.name, "provider", intf.provider.name, "module", consumer.name)
		}
	}

	r.mu.Lock()
	consumer.deps[0] = nil
	consumer.deps = consumer.deps[1:]
	r.mu.Unlock()
}

func (r *Runtime) start(ctx context.Context, m *Module) {
	r.logger.Info("module starting", "module", m.name)
	if err := m.comp.Start(ctx); err != nil {
		r.mu.Lock()
		m.failed = true
		r.mu.Unlock()
		r.logger.Error("module start failed", "module", m.name, "error", err)
		r.observer.ModuleFailed(m.name, "start")
		return
	}
	r.mu.Lock()
	m.started = true
	r.mu.Unlock()
	r.startOrder = append(r.startOrder, m)
	r.logger.Info("module started", "module", m.name)
	r.observer.ModuleStarted(m.name)
}
