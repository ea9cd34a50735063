package core

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidName is returned for empty or over-long module and capability names.
	ErrInvalidName = errors.New("invalid name")
	// ErrNotLoading is returned when Export or Import is called outside the
	// owning module's Load callback.
	ErrNotLoading = errors.New("no module is loading")
	// ErrDuplicateCapability is returned when a capability name is already exported.
	ErrDuplicateCapability = errors.New("capability already exported")
	// ErrIncompleteComponent is returned when a component lacks a lifecycle operation.
	ErrIncompleteComponent = errors.New("component is missing lifecycle operations")
	// ErrUnknownComponent is returned by providers that have no component by that name.
	ErrUnknownComponent = errors.New("unknown component")
	// ErrNilValue is returned when exporting a nil value or importing into a nil slot.
	ErrNilValue = errors.New("nil value")
)

// LoadError reports why a module could not be loaded.
//
// Stage is one of "resolve" (the provider could not produce the component),
// "validate" (the component is incomplete) or "load" (the component's Load
// callback failed).
type LoadError struct {
	Module string
	Stage  string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load module %s: %s: %v", e.Module, e.Stage, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// BindingError reports a capability whose value does not fit the importer's slot.
type BindingError struct {
	Capability string
	Want       string
	Got        string
}

func (e *BindingError) Error() string {
	return fmt.Sprintf("capability %s: have %s, want %s", e.Capability, e.Got, e.Want)
}
