// Package component provides the sources the runtime draws modules from: a
// catalog of compiled-in components and a directory of Go plugins.
package component

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/skekre98/edgeagent/core"
)

// ErrDuplicateFactory is returned when a name is registered twice.
var ErrDuplicateFactory = errors.New("component already registered")

// Factory builds a fresh component. It is called once per Runtime.Load.
type Factory func() core.Component

// Catalog is a Provider over components compiled into the binary.
type Catalog struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{factories: make(map[string]Factory)}
}

// Register adds a factory under name.
func (c *Catalog) Register(name string, f Factory) error {
	if name == "" || len(name) > core.MaxNameLen {
		return fmt.Errorf("register %q: %w", name, core.ErrInvalidName)
	}
	if f == nil {
		return fmt.Errorf("register %s: %w", name, core.ErrNilValue)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.factories[name]; ok {
		return fmt.Errorf("register %s: %w", name, ErrDuplicateFactory)
	}
	c.factories[name] = f
	return nil
}

// MustRegister is Register for static wiring; it panics on error.
func (c *Catalog) MustRegister(name string, f Factory) *Catalog {
	if err := c.Register(name, f); err != nil {
		panic(err)
	}
	return c
}

// Component implements core.Provider.
func (c *Catalog) Component(name string) (core.Component, error) {
	c.mu.RLock()
	f, ok := c.factories[name]
	c.mu.RUnlock()
	if !ok {
		return core.Component{}, fmt.Errorf("catalog: %s: %w", name, core.ErrUnknownComponent)
	}
	return f(), nil
}

// Names returns the registered names, sorted.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.factories))
	for n := range c.factories {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}
