package core

import (
	"fmt"
	"reflect"
)

// Interface is a named capability exported by a module.
type Interface struct {
	name     string
	value    any
	provider *Module
}

// Name returns the capability name.
func (i *Interface) Name() string { return i.name }

// Value returns the exported value.
func (i *Interface) Value() any { return i.value }

// Provider returns the exporting module.
func (i *Interface) Provider() *Module { return i.provider }

// CapabilityInfo is a point-in-time view of an exported capability.
type CapabilityInfo struct {
	Name     string `json:"name"`
	Provider string `json:"provider"`
	Type     string `json:"type"`
}

// dependency is an import waiting to be bound. bind writes the slot exactly
// once; a nil value writes the slot's zero value.
type dependency struct {
	name     string
	consumer *Module
	bind     func(v any) error
}

// Linker is handed to a module's Load callback. It attributes exports and
// imports to that module and stops working once Load returns.
type Linker struct {
	rt     *Runtime
	module *Module
}

// Module returns the name of the module being loaded.
func (l *Linker) Module() string { return l.module.name }

func (l *Linker) active() error {
	if l == nil || l.rt == nil || l.rt.current == nil || l.rt.current != l.module {
		return ErrNotLoading
	}
	return nil
}

// Export publishes value under name, owned by the loading module.
func (l *Linker) Export(name string, value any) error {
	if err := l.active(); err != nil {
		return err
	}
	if !validName(name) {
		return fmt.Errorf("export %q: %w", name, ErrInvalidName)
	}
	if value == nil {
		return fmt.Errorf("export %s: %w", name, ErrNilValue)
	}

	r := l.rt
	intf := &Interface{name: name, value: value, provider: l.module}
	r.mu.Lock()
	n, inserted := r.interfaces.Insert(name, intf)
	r.mu.Unlock()
	if !inserted {
		r.logger.Error("capability exported twice",
			"capability", name,
			"provider", n.Value().provider.name,
			"module", l.module.name,
		)
		return fmt.Errorf("export %s by %s: %w (provider %s)",
			name, l.module.name, ErrDuplicateCapability, n.Value().provider.name)
	}

	r.logger.Debug("capability exported", "capability", name, "module", l.module.name)
	r.observer.CapabilityExported(name, l.module.name)
	return nil
}

// Import declares that the loading module needs the capability called name.
// The slot is written later, during assembly: with the exported value once
// its provider has started, or with T's zero value if the capability cannot
// be resolved. Consumers must treat a zero slot as "not available".
func Import[T any](l *Linker, name string, slot *T) error {
	if err := l.active(); err != nil {
		return err
	}
	if !validName(name) {
		return fmt.Errorf("import %q: %w", name, ErrInvalidName)
	}
	if slot == nil {
		return fmt.Errorf("import %s: %w", name, ErrNilValue)
	}

	bind := func(v any) error {
		var zero T
		if v == nil {
			*slot = zero
			return nil
		}
		t, ok := v.(T)
		if !ok {
			*slot = zero
			return &BindingError{
				Capability: name,
				Want:       reflect.TypeFor[T]().String(),
				Got:        reflect.TypeOf(v).String(),
			}
		}
		*slot = t
		return nil
	}

	m := l.module
	l.rt.mu.Lock()
	m.deps = append(m.deps, &dependency{name: name, consumer: m, bind: bind})
	pending := len(m.deps)
	l.rt.mu.Unlock()
	l.rt.logger.Debug("capability imported", "capability", name, "module", m.name, "pending", pending)
	return nil
}

// Lookup returns the capability exported under name.
func (r *Runtime) Lookup(name string) (*Interface, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lookup(name)
}

func (r *Runtime) lookup(name string) (*Interface, bool) {
	n, ok := r.interfaces.Search(name)
	if !ok {
		return nil, false
	}
	return n.Value(), true
}

// Resolve returns the value exported under name if its provider has started
// and the value is a T.
func Resolve[T any](r *Runtime, name string) (T, bool) {
	var zero T
	r.mu.RLock()
	defer r.mu.RUnlock()
	intf, ok := r.lookup(name)
	if !ok || !intf.provider.started {
		return zero, false
	}
	v, ok := intf.value.(T)
	if !ok {
		return zero, false
	}
	return v, true
}

// Capabilities returns every exported capability in name order.
func (r *Runtime) Capabilities() []CapabilityInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]CapabilityInfo, 0, r.interfaces.Len())
	for name, intf := range r.interfaces.All() {
		out = append(out, CapabilityInfo{
			Name:     name,
			Provider: intf.provider.name,
			Type:     reflect.TypeOf(intf.value).String(),
		})
	}
	return out
}
