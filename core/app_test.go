package core_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skekre98/edgeagent/component"
	"github.com/skekre98/edgeagent/core"
	"github.com/skekre98/edgeagent/modules/alarm"
	"github.com/skekre98/edgeagent/modules/extendalarm"
	"github.com/skekre98/edgeagent/modules/faultcheck"
)

const confPath = "/opt/edgeagent/config/edgeagent.conf"

func newApp(t *testing.T, conf string) (*core.App, *bytes.Buffer) {
	t.Helper()
	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	mem := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(mem, confPath, []byte(conf), 0o644))

	opts := extendalarm.Options{
		HardwareFile: "/run/formated_hw.info",
		DevDir:       "/dev",
		Interval:     time.Millisecond,
	}
	catalog := component.NewCatalog().
		MustRegister(alarm.Name, func() core.Component {
			return alarm.NewProcess(logger, mem, "/run/all_active_alarm").Component()
		}).
		MustRegister(faultcheck.Name, func() core.Component {
			return faultcheck.Component(logger, mem, faultcheck.Options{Interval: time.Millisecond})
		}).
		MustRegister(extendalarm.Name, func() core.Component {
			return extendalarm.Component(logger, mem, opts)
		})

	rt := core.New(logger, catalog)
	return core.NewApp(logger, mem, "/opt/edgeagent", confPath, rt), &logs
}

func TestApp_Apply(t *testing.T) {
	t.Parallel()
	app, logs := newApp(t, `LoadModule fault_check
LoadModule alarm_process
LoadModule not_installed
LoadModule extend_alarm
LoadModule fault_check
`)
	ctx := context.Background()
	require.NoError(t, app.Apply(ctx))
	t.Cleanup(func() { _ = app.Runtime.Shutdown(context.Background()) })

	assert.Equal(t, 3, app.Runtime.Len())
	for _, mi := range app.Runtime.Modules() {
		assert.Equal(t, core.StateStarted, mi.State, mi.Name)
	}
	report, ok := core.Resolve[alarm.ReportFunc](app.Runtime, alarm.CapReport)
	require.True(t, ok)
	assert.NoError(t, report(alarm.Report{Owner: "test"}))

	assert.Contains(t, logs.String(), `"msg":"module skipped","module":"not_installed"`)
	assert.NotContains(t, logs.String(), `"level":"ERROR+4"`)
}

func TestApp_ApplyBadConfFile(t *testing.T) {
	t.Parallel()
	app, _ := newApp(t, "")
	err := app.Apply(context.Background())
	require.Error(t, err)
	assert.Equal(t, 0, app.Runtime.Len())
}

func TestApp_ApplyNoModules(t *testing.T) {
	t.Parallel()
	app, logs := newApp(t, "Comment only\n")
	require.NoError(t, app.Apply(context.Background()))
	assert.Equal(t, 0, app.Runtime.Len())
	assert.NotContains(t, logs.String(), "assembling modules")
}

func TestApp_RunStopsOnContext(t *testing.T) {
	t.Parallel()
	app, logs := newApp(t, "LoadModule alarm_process\n")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, app.Run(ctx))
	assert.Contains(t, logs.String(), `"msg":"stopping module","module":"alarm_process"`)
	m, ok := app.Runtime.Module(alarm.Name)
	require.True(t, ok)
	assert.False(t, m.Started())
}
