// Package faultcheck watches mount points and removable storage on the host
// and reports faults to alarm_process.
package faultcheck

import (
	"context"
	"log/slog"
	"time"

	"github.com/spf13/afero"

	"github.com/skekre98/edgeagent/core"
	"github.com/skekre98/edgeagent/modules/alarm"
	"github.com/skekre98/edgeagent/modules/check"
)

// Name is the module name.
const Name = "fault_check"

// Fault identifiers.
const (
	FaultMount uint16 = 0
	FaultSD    uint16 = 4

	SubMountPointErr uint16 = 4
	SubSDPresent     uint16 = 0
)

// Options selects what is watched.
type Options struct {
	// MountPoints must exist as directories.
	MountPoints []string
	// SDDevice raises a fault when it disappears after having been seen.
	SDDevice string
	// Interval between probes of every item.
	Interval time.Duration
	Debounce check.Debounce
}

type module struct {
	logger *slog.Logger
	fs     afero.Fs
	opts   Options

	report alarm.ReportFunc
	runner *check.Runner
}

// Component returns the fault_check module.
func Component(logger *slog.Logger, fs afero.Fs, opts Options) core.Component {
	m := &module{logger: logger.With("module", Name), fs: fs, opts: opts}
	return core.Component{
		Load:   m.load,
		Unload: func(context.Context) error { return nil },
		Start:  m.start,
		Stop:   m.stop,
	}
}

func (m *module) load(l *core.Linker) error {
	return core.Import(l, alarm.CapReport, &m.report)
}

func (m *module) items() []check.Item {
	var items []check.Item
	for _, mp := range m.opts.MountPoints {
		items = append(items, check.Item{
			ID: FaultMount, SubID: SubMountPointErr,
			Name: "mnt point err", Resource: mp, Level: alarm.LevelMajor,
			Debounce: m.opts.Debounce,
			Probe:    check.NotDir(m.fs, mp),
		})
	}
	if m.opts.SDDevice != "" {
		items = append(items, check.Item{
			ID: FaultSD, SubID: SubSDPresent,
			Name: "mount fail", Resource: "SD", Level: alarm.LevelMinor,
			Debounce: m.opts.Debounce,
			Probe:    check.Vanished(m.fs, m.opts.SDDevice),
		})
	}
	return items
}

func (m *module) start(ctx context.Context) error {
	if m.report == nil {
		m.logger.Warn("alarm report unavailable, faults will only be logged")
	}
	runner, err := check.NewRunner(m.logger, Name, &m.report, m.items()...)
	if err != nil {
		return err
	}
	m.runner = runner
	m.runner.SetTick(m.opts.Interval)
	m.logger.Info("fault checks started", "items", m.runner.Len())
	return m.runner.Start(ctx)
}

func (m *module) stop(ctx context.Context) error {
	if m.runner == nil {
		return nil
	}
	return m.runner.Stop(ctx)
}
