package alarm

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/spf13/afero"

	"github.com/skekre98/edgeagent/core"
)

type key struct {
	id, sub  uint16
	resource string
}

type entry struct {
	fault  Fault
	owner  string
	active bool
}

// Process is the alarm table behind the alarm_process module.
type Process struct {
	logger     *slog.Logger
	fs         afero.Fs
	path       string
	shieldPath string
	now        func() time.Time

	mu       sync.Mutex
	entries  map[key]*entry
	order    []key
	shielded map[key]bool
	subs     []EventFunc
	started  bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option configures a Process.
type Option func(*Process)

// WithShieldFile reads shields from path on start and again whenever the
// file changes.
func WithShieldFile(path string) Option {
	return func(p *Process) { p.shieldPath = path }
}

// NewProcess returns an empty table. When path is non-empty the active set
// is rewritten there after every report.
func NewProcess(logger *slog.Logger, fs afero.Fs, path string, opts ...Option) *Process {
	p := &Process{
		logger:   logger,
		fs:       fs,
		path:     path,
		now:      time.Now,
		entries:  make(map[key]*entry),
		shielded: make(map[key]bool),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Component wires p into the runtime.
func (p *Process) Component() core.Component {
	return core.Component{
		Load:   p.load,
		Unload: p.unload,
		Start:  p.start,
		Stop:   p.stop,
	}
}

func (p *Process) load(l *core.Linker) error {
	if err := l.Export(CapReport, ReportFunc(p.Report)); err != nil {
		return err
	}
	return l.Export(CapSubscribe, SubscribeFunc(p.Subscribe))
}

func (p *Process) unload(context.Context) error {
	p.mu.Lock()
	p.subs = nil
	p.mu.Unlock()
	return nil
}

func (p *Process) start(ctx context.Context) error {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		p.logger.Warn("alarm process already started")
		return nil
	}
	if p.fs != nil && p.path != "" {
		if err := p.fs.MkdirAll(filepath.Dir(p.path), 0o755); err != nil {
			p.mu.Unlock()
			return fmt.Errorf("alarm file dir: %w", err)
		}
	}
	p.started = true
	p.mu.Unlock()

	if p.shieldPath == "" || p.fs == nil {
		return nil
	}
	if err := p.ReloadShields(); err != nil {
		p.logger.Error("read alarm shields", "path", p.shieldPath, "error", err)
	}
	p.startShieldWatch(ctx)
	return nil
}

func (p *Process) stop(context.Context) error {
	if p.cancel != nil {
		p.cancel()
		p.wg.Wait()
		p.cancel = nil
	}
	return nil
}

// Subscribe registers fn for level events. fn runs with the table locked
// and must not call Report.
func (p *Process) Subscribe(fn EventFunc) error {
	if fn == nil {
		return core.ErrNilValue
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.subs) >= MaxSubscriber {
		p.logger.Error("alarm subscriber limit reached", "limit", MaxSubscriber)
		return ErrTooManyHandlers
	}
	p.subs = append(p.subs, fn)
	return nil
}

// Report replaces the owner's active faults with r.Faults, persists the
// table and notifies subscribers.
func (p *Process) Report(r Report) error {
	if r.Owner == "" {
		return ErrNoOwner
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	for _, e := range p.entries {
		if e.owner == r.Owner {
			e.active = false
		}
	}
	for _, f := range r.Faults {
		k := key{f.ID, f.SubID, f.Resource}
		e, ok := p.entries[k]
		if !ok {
			e = &entry{}
			p.entries[k] = e
			p.order = append(p.order, k)
		}
		e.fault = f
		e.owner = r.Owner
		e.active = true
	}

	p.logger.Debug("alarm report", "owner", r.Owner, "faults", len(r.Faults))
	return p.publishLocked()
}

// publishLocked persists the visible active set and tells subscribers its
// most severe level.
func (p *Process) publishLocked() error {
	active := p.activeLocked()
	level := LevelNone
	for _, f := range active {
		level = min(level, f.Level)
	}
	p.logger.Debug("alarm table published", "active", len(active), "level", level.String())

	if err := p.persist(active); err != nil {
		p.logger.Error("write active alarms", "path", p.path, "error", err)
		return err
	}
	for _, fn := range p.subs {
		fn(level)
	}
	return nil
}

// Active returns the active, unshielded faults in first-report order.
func (p *Process) Active() []Fault {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.activeLocked()
}

func (p *Process) activeLocked() []Fault {
	var out []Fault
	for _, k := range p.order {
		if e := p.entries[k]; e.active && !p.shielded[k] {
			out = append(out, e.fault)
		}
	}
	return slices.Clip(out)
}

// persist writes the header line "0@<count>@aabb" followed by one
// "<code>@<name>@<resource>@<unix>@<level>@aabb" line per fault.
func (p *Process) persist(active []Fault) error {
	if p.fs == nil || p.path == "" {
		return nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "0@%d@aabb\n", len(active))
	for _, f := range active {
		fmt.Fprintf(&b, "%08X@%s@%s@%d@%d@aabb\n", f.Code(), f.Name, f.Resource, f.Raised.Unix(), int(f.Level))
	}
	return afero.WriteFile(p.fs, p.path, []byte(b.String()), 0o600)
}
