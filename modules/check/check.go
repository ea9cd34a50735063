// Package check runs periodic fault probes and reports the active set to the
// alarm table.
package check

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/bits"
	"sync"
	"time"

	"github.com/skekre98/edgeagent/modules/alarm"
)

// DefaultTick is the probe scheduler resolution.
const DefaultTick = time.Second

// MaxWindow is the largest debounce window, in samples.
const MaxWindow = 32

// ErrDebounce is returned for an inconsistent Debounce.
var ErrDebounce = errors.New("invalid debounce")

// Probe reports whether the fault is present.
type Probe func(ctx context.Context) (bool, error)

// Debounce filters probe results through a window of the last Window
// samples. The fault is raised once at least Raise samples in the window are
// faulty and cleared once at most Clear are. Between the two the state is
// kept. A Window of 0 or 1 applies every sample directly.
type Debounce struct {
	Window int
	Raise  int
	Clear  int
}

// Validate checks the thresholds against the window.
func (d Debounce) Validate() error {
	if d.Window <= 1 {
		return nil
	}
	switch {
	case d.Window > MaxWindow:
		return fmt.Errorf("window %d exceeds %d: %w", d.Window, MaxWindow, ErrDebounce)
	case d.Raise < 1 || d.Raise > d.Window:
		return fmt.Errorf("raise %d outside 1..%d: %w", d.Raise, d.Window, ErrDebounce)
	case d.Clear < 0 || d.Clear >= d.Raise:
		return fmt.Errorf("clear %d outside 0..%d: %w", d.Clear, d.Raise-1, ErrDebounce)
	}
	return nil
}

// apply pushes sample into history and returns the debounced state.
func (d Debounce) apply(history *uint32, current, sample bool) bool {
	if d.Window <= 1 {
		return sample
	}
	*history <<= 1
	if sample {
		*history |= 1
	}
	n := bits.OnesCount32(*history & (1<<d.Window - 1))
	switch {
	case n >= d.Raise:
		return true
	case n <= d.Clear:
		return false
	}
	return current
}

// Item is one fault the runner watches.
type Item struct {
	ID       uint16
	SubID    uint16
	Name     string
	Resource string
	Level    alarm.Level
	// Period between probes. Zero probes on every tick.
	Period   time.Duration
	Debounce Debounce
	Probe    Probe
}

type state struct {
	Item
	elapsed time.Duration
	history uint32
	faulty  bool
	raised  time.Time
}

// Runner probes items on a schedule and sends a report whenever the set of
// faulty items changes.
type Runner struct {
	owner  string
	logger *slog.Logger
	tick   time.Duration
	now    func() time.Time
	report *alarm.ReportFunc

	items []*state

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRunner returns a runner reporting as owner through *report. report is
// read on every send, so it may be an import slot that is bound later.
func NewRunner(logger *slog.Logger, owner string, report *alarm.ReportFunc, items ...Item) (*Runner, error) {
	for _, it := range items {
		if err := it.Debounce.Validate(); err != nil {
			return nil, fmt.Errorf("item %s %s: %w", it.Name, it.Resource, err)
		}
	}
	r := &Runner{
		owner:  owner,
		logger: logger,
		tick:   DefaultTick,
		now:    time.Now,
		report: report,
	}
	for _, it := range items {
		// Probe on the first tick.
		r.items = append(r.items, &state{Item: it, elapsed: it.Period})
	}
	return r, nil
}

// SetTick changes the scheduler resolution. It must be called before Start.
func (r *Runner) SetTick(d time.Duration) {
	if d > 0 {
		r.tick = d
	}
}

// Len returns the number of watched items.
func (r *Runner) Len() int { return len(r.items) }

// Start launches the probe loop.
func (r *Runner) Start(ctx context.Context) error {
	ctx, r.cancel = context.WithCancel(context.WithoutCancel(ctx))
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.loop(ctx)
	}()
	return nil
}

// Stop ends the probe loop and waits for it, or for ctx.
func (r *Runner) Stop(ctx context.Context) error {
	if r.cancel == nil {
		return nil
	}
	r.cancel()
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Runner) loop(ctx context.Context) {
	t := time.NewTicker(r.tick)
	defer t.Stop()
	for {
		if r.Step(ctx) {
			r.Send()
		}
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}

// Step advances every item by one tick, probing those that are due. It
// reports whether any item changed state.
func (r *Runner) Step(ctx context.Context) bool {
	changed := false
	for _, s := range r.items {
		s.elapsed += r.tick
		if s.elapsed < s.Period || s.Probe == nil {
			continue
		}
		s.elapsed = 0
		sample, err := s.Probe(ctx)
		if err != nil {
			r.logger.Error("probe failed", "owner", r.owner, "fault", s.Name, "resource", s.Resource, "error", err)
			continue
		}
		faulty := s.Debounce.apply(&s.history, s.faulty, sample)
		if faulty != s.faulty {
			s.faulty = faulty
			if faulty {
				s.raised = r.now()
			}
			changed = true
			r.logger.Info("fault state changed", "owner", r.owner, "fault", s.Name, "resource", s.Resource, "active", faulty)
		}
	}
	return changed
}

// Send reports the current faulty items.
func (r *Runner) Send() {
	var rep alarm.ReportFunc
	if r.report != nil {
		rep = *r.report
	}
	if rep == nil {
		r.logger.Error("alarm report not bound", "owner", r.owner)
		return
	}
	report := alarm.Report{Owner: r.owner}
	for _, s := range r.items {
		if s.faulty {
			report.Faults = append(report.Faults, alarm.Fault{
				ID:       s.ID,
				SubID:    s.SubID,
				Name:     s.Name,
				Resource: s.Resource,
				Level:    s.Level,
				Raised:   s.raised,
			})
		}
	}
	if err := rep(report); err != nil {
		r.logger.Error("alarm report failed", "owner", r.owner, "active", len(report.Faults), "error", err)
	}
}
