// Package extendalarm watches the optional storage devices named in the
// board's hardware description and reports them to alarm_process.
package extendalarm

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"time"

	"github.com/spf13/afero"

	"github.com/skekre98/edgeagent/core"
	"github.com/skekre98/edgeagent/modules/alarm"
	"github.com/skekre98/edgeagent/modules/check"
)

// Name is the module name.
const Name = "extend_alarm"

// SubPresent is the sub-fault raised when a listed device is missing.
const SubPresent uint16 = 2

// Options locates the hardware description and the device nodes.
type Options struct {
	HardwareFile string
	DevDir       string
	// Interval between probes of every device.
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

// Component returns the extend_alarm module.
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

// hardware returns nil when the board has no description file.
func (m *module) hardware() (*Hardware, error) {
	b, err := afero.ReadFile(m.fs, m.opts.HardwareFile)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return ParseHardware(b)
}

func (m *module) start(ctx context.Context) error {
	hw, err := m.hardware()
	if err != nil {
		return fmt.Errorf("hardware description %s: %w", m.opts.HardwareFile, err)
	}
	if hw == nil {
		m.logger.Warn("no hardware description, extended checks disabled", "path", m.opts.HardwareFile)
		hw = &Hardware{}
	}

	var items []check.Item
	for _, st := range hw.Storage {
		items = append(items, check.Item{
			ID: st.Slot.Index, SubID: SubPresent,
			Name: "persent", Resource: st.Slot.Resource, Level: alarm.LevelMinor,
			Debounce: m.opts.Debounce,
			Probe:    check.Missing(m.fs, path.Join(m.opts.DevDir, st.Device)),
		})
	}

	runner, err := check.NewRunner(m.logger, Name, &m.report, items...)
	if err != nil {
		return err
	}
	m.runner = runner
	m.runner.SetTick(m.opts.Interval)
	m.logger.Info("extended checks started", "devices", len(items), "usbHub", hw.USBHubID)
	return m.runner.Start(ctx)
}

func (m *module) stop(ctx context.Context) error {
	if m.runner == nil {
		return nil
	}
	return m.runner.Stop(ctx)
}
