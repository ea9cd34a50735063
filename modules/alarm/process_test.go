package alarm

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const activePath = "/run/edgeagent/all_active_alarm"

func newProcess(t *testing.T) (*Process, afero.Fs) {
	t.Helper()
	mem := afero.NewMemMapFs()
	p := NewProcess(slog.New(slog.NewTextHandler(io.Discard, nil)), mem, activePath)
	require.NoError(t, p.start(context.Background()))
	return p, mem
}

func TestProcess_ReportReplacesOwnerFaults(t *testing.T) {
	t.Parallel()
	p, _ := newProcess(t)
	raised := time.Unix(1700000000, 0)

	mnt := Fault{ID: 0, SubID: 4, Name: "mnt point err", Resource: "MNT", Level: LevelMajor, Raised: raised}
	sd := Fault{ID: 4, SubID: 0, Name: "mount fail", Resource: "SD", Level: LevelMinor, Raised: raised}
	disk := Fault{ID: 0, SubID: 2, Name: "persent", Resource: "M.2", Level: LevelMinor, Raised: raised}

	require.NoError(t, p.Report(Report{Owner: "fault_check", Faults: []Fault{mnt, sd}}))
	require.NoError(t, p.Report(Report{Owner: "extend_alarm", Faults: []Fault{disk}}))
	assert.Equal(t, []Fault{mnt, sd, disk}, p.Active())

	require.NoError(t, p.Report(Report{Owner: "fault_check", Faults: []Fault{sd}}))
	assert.Equal(t, []Fault{sd, disk}, p.Active())

	require.NoError(t, p.Report(Report{Owner: "fault_check"}))
	assert.Equal(t, []Fault{disk}, p.Active())

	assert.ErrorIs(t, p.Report(Report{}), ErrNoOwner)
}

func TestProcess_SubscribersGetMostSevereLevel(t *testing.T) {
	t.Parallel()
	p, _ := newProcess(t)

	var got []Level
	require.NoError(t, p.Subscribe(func(l Level) { got = append(got, l) }))

	require.NoError(t, p.Report(Report{Owner: "a", Faults: []Fault{{ID: 1, Level: LevelMinor}, {ID: 2, Level: LevelCritical}}}))
	require.NoError(t, p.Report(Report{Owner: "a", Faults: []Fault{{ID: 1, Level: LevelMinor}}}))
	require.NoError(t, p.Report(Report{Owner: "a"}))

	assert.Equal(t, []Level{LevelCritical, LevelMinor, LevelNone}, got)
}

func TestProcess_SubscribeLimits(t *testing.T) {
	t.Parallel()
	p, _ := newProcess(t)
	assert.Error(t, p.Subscribe(nil))
	for range MaxSubscriber {
		require.NoError(t, p.Subscribe(func(Level) {}))
	}
	assert.ErrorIs(t, p.Subscribe(func(Level) {}), ErrTooManyHandlers)

	require.NoError(t, p.unload(context.Background()))
	assert.NoError(t, p.Subscribe(func(Level) {}))
}

func TestProcess_ActiveFile(t *testing.T) {
	t.Parallel()
	p, mem := newProcess(t)

	f := Fault{ID: 3, SubID: 1, Name: "life expiration", Resource: "eMMC", Level: LevelCritical, Raised: time.Unix(42, 0)}
	require.NoError(t, p.Report(Report{Owner: "extend_alarm", Faults: []Fault{f}}))

	b, err := afero.ReadFile(mem, activePath)
	require.NoError(t, err)
	assert.Equal(t, "0@1@aabb\n00030001@life expiration@eMMC@42@1@aabb\n", string(b))

	require.NoError(t, p.Report(Report{Owner: "extend_alarm"}))
	b, err = afero.ReadFile(mem, activePath)
	require.NoError(t, err)
	assert.Equal(t, "0@0@aabb\n", string(b))
}

func TestProcess_StartTwice(t *testing.T) {
	t.Parallel()
	p, _ := newProcess(t)
	assert.NoError(t, p.start(context.Background()))
}

func TestLevelString(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "critical", LevelCritical.String())
	assert.Equal(t, "none", LevelNone.String())
	assert.Equal(t, "level(9)", Level(9).String())
}
