package config_test

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/skekre98/edgeagent/config"
)

func TestBinder_Bind(t *testing.T) {
	type Server struct {
		Addr    string        `config:"addr" validate:"required"`
		Timeout time.Duration `config:"timeout"`
	}
	type Settings struct {
		Level   string   `config:"level" validate:"loglevel"`
		Modules []string `config:"modules"`
		Plugins bool     `config:"plugins"`
		Server  Server   `config:"server"`
	}

	tests := []struct {
		name      string
		source    map[string]any
		want      Settings
		wantStage string
	}{
		{
			name: "typed values",
			source: map[string]any{
				"level":   "debug",
				"modules": []string{"web", "actuator"},
				"plugins": true,
				"server":  map[string]any{"addr": ":8086", "timeout": 5 * time.Second},
			},
			want: Settings{
				Level:   "debug",
				Modules: []string{"web", "actuator"},
				Plugins: true,
				Server:  Server{Addr: ":8086", Timeout: 5 * time.Second},
			},
		},
		{
			name: "string values from env and flags",
			source: map[string]any{
				"level":   "FATAL",
				"modules": "alarm_process,fault_check",
				"plugins": "true",
				"server":  map[string]any{"addr": "0.0.0.0:9000", "timeout": "1m30s"},
			},
			want: Settings{
				Level:   "FATAL",
				Modules: []string{"alarm_process", "fault_check"},
				Plugins: true,
				Server:  Server{Addr: "0.0.0.0:9000", Timeout: 90 * time.Second},
			},
		},
		{
			name: "unknown keys ignored",
			source: map[string]any{
				"c":      "/etc/edgeagent.conf",
				"server": map[string]any{"addr": ":1"},
			},
			want: Settings{Server: Server{Addr: ":1"}},
		},
		{
			name: "bad log level",
			source: map[string]any{
				"level":  "loud",
				"server": map[string]any{"addr": ":1"},
			},
			wantStage: "validate",
		},
		{
			name:      "missing required field",
			source:    map[string]any{"level": "info"},
			wantStage: "validate",
		},
		{
			name: "undecodable duration",
			source: map[string]any{
				"server": map[string]any{"addr": ":1", "timeout": "soon"},
			},
			wantStage: "decode",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got Settings
			err := config.NewBinder().Bind(tt.source, &got)

			if tt.wantStage != "" {
				var bindErr *config.BindError
				if !errors.As(err, &bindErr) {
					t.Fatalf("Bind() error = %v, want *BindError", err)
				}
				if bindErr.Stage != tt.wantStage {
					t.Errorf("Bind() stage = %s, want %s", bindErr.Stage, tt.wantStage)
				}
				return
			}
			if err != nil {
				t.Fatalf("Bind() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Bind() got = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestBinder_BindRoot(t *testing.T) {
	var root config.Root
	if err := config.NewBinder().Bind(config.Defaults(), &root); err != nil {
		t.Fatalf("defaults do not validate: %v", err)
	}
	if root.Log.Level != "info" || root.Log.Format != "text" {
		t.Errorf("log defaults = %+v", root.Log)
	}
	if root.Server.ReadTimeout != 10*time.Second {
		t.Errorf("ReadTimeout = %v, want 10s", root.Server.ReadTimeout)
	}
	if root.Actuator.BasePath != "/actuator" {
		t.Errorf("BasePath = %q", root.Actuator.BasePath)
	}
	if root.Features.FaultCheck.Interval != time.Second {
		t.Errorf("faultCheck.Interval = %v, want 1s", root.Features.FaultCheck.Interval)
	}
	if d := root.Features.ExtendAlarm.Debounce; d.Window != 3 || d.Raise != 2 || d.Clear != 0 {
		t.Errorf("extendAlarm.Debounce = %+v", d)
	}
}

func TestBindError_Unwrap(t *testing.T) {
	inner := errors.New("inner error")
	err := &config.BindError{Stage: "decode", Err: inner}

	if err.Error() != "config decode error: inner error" {
		t.Errorf("Error() = %q", err.Error())
	}
	if !errors.Is(err, inner) {
		t.Error("errors.Is(err, inner) = false")
	}
}
