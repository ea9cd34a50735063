package config

import (
	"context"
	"fmt"
	"reflect"
	"sync"
)

// Manager layers settings sources into a typed struct and tells subscribers
// when a reload changes it.
//
// Sources are merged in order, later ones winning, so the usual chain is
// defaults, file, env, cli. A reload that fails to load, decode or validate
// leaves the current settings untouched.
type Manager struct {
	sources []ConfigSource
	config  any
	binder  *Binder
	mu      sync.RWMutex
	subs    []chan Event
}

// NewManager binds the merged sources into cfg, which must be a pointer to a
// struct, and returns a Manager for later reloads.
func NewManager(cfg any, sources ...ConfigSource) (*Manager, error) {
	if v := reflect.ValueOf(cfg); v.Kind() != reflect.Pointer || v.Elem().Kind() != reflect.Struct {
		return nil, fmt.Errorf("config: target must be a pointer to a struct, got %T", cfg)
	}
	m := &Manager{
		sources: sources,
		config:  cfg,
		binder:  NewBinder(),
	}
	if err := m.Reload(context.Background()); err != nil {
		return nil, err
	}
	return m, nil
}

// Reload re-reads every source and, if the result binds and validates,
// copies it into the managed struct. Subscribers are notified only when at
// least one key changed.
func (m *Manager) Reload(ctx context.Context) error {
	merged := map[string]any{}
	for _, src := range m.sources {
		if err := ctx.Err(); err != nil {
			return err
		}
		vals, err := src.Load(ctx)
		if err != nil {
			return fmt.Errorf("failed to load config from %s: %w", src.Name(), err)
		}
		mergeMaps(merged, vals)
	}

	typ := reflect.TypeOf(m.config).Elem()
	newCfg := reflect.New(typ).Interface()
	if err := m.binder.Bind(merged, newCfg); err != nil {
		return fmt.Errorf("failed to bind config: %w", err)
	}

	m.mu.Lock()
	oldCfg := reflect.New(typ).Interface()
	reflect.ValueOf(oldCfg).Elem().Set(reflect.ValueOf(m.config).Elem())
	reflect.ValueOf(m.config).Elem().Set(reflect.ValueOf(newCfg).Elem())
	m.mu.Unlock()

	if evt := diffEvent(oldCfg, newCfg); len(evt.ChangedKeys) > 0 {
		m.notify(evt)
	}
	return nil
}

// Subscribe registers ch for change events. Sends never block: an event is
// dropped for a subscriber whose buffer is full. The Manager never closes ch.
func (m *Manager) Subscribe(ch chan Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs = append(m.subs, ch)
}

func (m *Manager) notify(evt Event) {
	m.mu.RLock()
	subs := append([]chan Event(nil), m.subs...)
	m.mu.RUnlock()
	for _, ch := range subs {
		select {
		case ch <- evt:
		default:
		}
	}
}
