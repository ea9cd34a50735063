package core

import "context"

// MaxNameLen bounds module and capability names, in bytes.
const MaxNameLen = 64

// Component is the contract every loadable module implements. All four
// operations are required.
type Component struct {
	// Load runs once when the module is registered. It is the only place the
	// module may export or import capabilities.
	Load func(l *Linker) error
	// Unload runs at teardown after every module has been stopped.
	Unload func(ctx context.Context) error
	// Start runs once all imports have been bound. It may spawn goroutines.
	Start func(ctx context.Context) error
	// Stop runs at teardown for started modules, in reverse start order.
	Stop func(ctx context.Context) error
}

func (c Component) complete() bool {
	return c.Load != nil && c.Unload != nil && c.Start != nil && c.Stop != nil
}

// Provider produces components by name.
type Provider interface {
	Component(name string) (Component, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(name string) (Component, error)

func (f ProviderFunc) Component(name string) (Component, error) { return f(name) }

// State is the lifecycle position of a module.
type State string

const (
	StateLoaded  State = "loaded"
	StateStarted State = "started"
	StateFailed  State = "failed"
)

// Module is a registered component.
type Module struct {
	name    string
	comp    Component
	started bool
	failed  bool
	deps    []*dependency
}

// Name returns the module name.
func (m *Module) Name() string { return m.name }

// Started reports whether Start completed successfully.
func (m *Module) Started() bool { return m.started }

// Pending returns the number of imports not yet bound.
func (m *Module) Pending() int { return len(m.deps) }

// State returns the module's lifecycle state.
func (m *Module) State() State {
	switch {
	case m.started:
		return StateStarted
	case m.failed:
		return StateFailed
	}
	return StateLoaded
}

// ModuleInfo is a point-in-time view of a module.
type ModuleInfo struct {
	Name    string   `json:"name"`
	State   State    `json:"state"`
	Pending []string `json:"pending,omitempty"`
}

func (m *Module) info() ModuleInfo {
	mi := ModuleInfo{Name: m.name, State: m.State()}
	for _, d := range m.deps {
		mi.Pending = append(mi.Pending, d.name)
	}
	return mi
}

func validName(name string) bool {
	return name != "" && len(name) <= MaxNameLen
}
