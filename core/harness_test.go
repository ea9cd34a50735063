package core

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/skekre98/edgeagent/logging"
)

// hooks overrides parts of a fake component.
type hooks struct {
	load   func(l *Linker) error
	start  func(ctx context.Context) error
	stop   func(ctx context.Context) error
	unload func(ctx context.Context) error
}

type harness struct {
	t      *testing.T
	comps  map[string]Component
	loads  map[string]int
	events []string
	logs   *bytes.Buffer
	obs    *recordingObserver
	rt     *Runtime
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		t:     t,
		comps: make(map[string]Component),
		loads: make(map[string]int),
		logs:  &bytes.Buffer{},
		obs:   &recordingObserver{},
	}
	level := new(slog.LevelVar)
	level.Set(logging.LevelTrace)
	logger := logging.New(h.logs, level, "json")
	h.rt = New(logger, ProviderFunc(func(name string) (Component, error) {
		c, ok := h.comps[name]
		if !ok {
			return Component{}, ErrUnknownComponent
		}
		return c, nil
	}), WithObserver(h.obs))
	return h
}

func (h *harness) add(name string, hk hooks) {
	h.comps[name] = Component{
		Load: func(l *Linker) error {
			h.loads[name]++
			h.events = append(h.events, "load:"+name)
			if hk.load != nil {
				return hk.load(l)
			}
			return nil
		},
		Start: func(ctx context.Context) error {
			h.events = append(h.events, "start:"+name)
			if hk.start != nil {
				return hk.start(ctx)
			}
			return nil
		},
		Stop: func(ctx context.Context) error {
			h.events = append(h.events, "stop:"+name)
			if hk.stop != nil {
				return hk.stop(ctx)
			}
			return nil
		},
		Unload: func(ctx context.Context) error {
			h.events = append(h.events, "unload:"+name)
			if hk.unload != nil {
				return hk.unload(ctx)
			}
			return nil
		},
	}
}

func (h *harness) loadAll(names ...string) {
	h.t.Helper()
	for _, n := range names {
		require.NoError(h.t, h.rt.Load(context.Background(), n))
	}
}

func (h *harness) assemble() { h.rt.AssembleAll(context.Background()) }

// filter returns the events with the given prefix, in order.
func (h *harness) filter(prefix string) []string {
	var out []string
	for _, e := range h.events {
		if len(e) > len(prefix) && e[:len(prefix)] == prefix {
			out = append(out, e[len(prefix):])
		}
	}
	return out
}

// records returns the log records at level, e.g. "FATAL" or "ERROR".
func (h *harness) records(level string) []map[string]any {
	h.t.Helper()
	var out []map[string]any
	sc := bufio.NewScanner(bytes.NewReader(h.logs.Bytes()))
	for sc.Scan() {
		var rec map[string]any
		require.NoError(h.t, json.Unmarshal(sc.Bytes(), &rec))
		if rec["level"] == level {
			out = append(out, rec)
		}
	}
	return out
}

func (h *harness) state(name string) State {
	h.t.Helper()
	m, ok := h.rt.Module(name)
	require.True(h.t, ok, "module %s not registered", name)
	return m.State()
}

type recordingObserver struct {
	mu       sync.Mutex
	loaded   []string
	started  []string
	stopped  []string
	failed   []string
	exported []string
	dropped  []string
	halted   []string
}

func (o *recordingObserver) add(dst *[]string, v string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	*dst = append(*dst, v)
}

func (o *recordingObserver) ModuleLoaded(m string)          { o.add(&o.loaded, m) }
func (o *recordingObserver) ModuleStarted(m string)         { o.add(&o.started, m) }
func (o *recordingObserver) ModuleStopped(m string)         { o.add(&o.stopped, m) }
func (o *recordingObserver) ModuleFailed(m, stage string)   { o.add(&o.failed, m+":"+stage) }
func (o *recordingObserver) CapabilityExported(c, m string) { o.add(&o.exported, c+"@"+m) }
func (o *recordingObserver) DependencyDropped(c, m, reason string) {
	o.add(&o.dropped, c+"@"+m+":"+reason)
}
func (o *recordingObserver) PassHalted(m string) { o.add(&o.halted, m) }
