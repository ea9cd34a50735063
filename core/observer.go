package core

// Dependency drop reasons reported to Observer.DependencyDropped.
const (
	DropMissing        = "missing"
	DropTypeMismatch   = "type_mismatch"
	DropProviderFailed = "provider_failed"
)

// Observer receives runtime events. Implementations must be cheap; they are
// called synchronously from the startup sequence.
type Observer interface {
	ModuleLoaded(module string)
	ModuleStarted(module string)
	// ModuleStopped follows a stop during shutdown, whether or not it
	// succeeded.
	ModuleStopped(module string)
	ModuleFailed(module, stage string)
	CapabilityExported(capability, module string)
	DependencyDropped(capability, module, reason string)
	PassHalted(module string)
}

type nopObserver struct{}

func (nopObserver) ModuleLoaded(string)                      {}
func (nopObserver) ModuleStarted(string)                     {}
func (nopObserver) ModuleStopped(string)                     {}
func (nopObserver) ModuleFailed(string, string)              {}
func (nopObserver) CapabilityExported(string, string)        {}
func (nopObserver) DependencyDropped(string, string, string) {}
func (nopObserver) PassHalted(string)                        {}
