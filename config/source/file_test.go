package source

import (
	"context"
	"errors"
	"io/fs"
	"reflect"
	"testing"

	"github.com/spf13/afero"
)

const appPath = "/opt/edgeagent/config/application.yaml"

func TestFileSource_Name(t *testing.T) {
	if got := (&FileSource{}).Name(); got != "file" {
		t.Errorf("Name() = %v, want file", got)
	}
}

func TestFileSource_Load(t *testing.T) {
	tests := []struct {
		name        string
		profile     string
		optional    bool
		baseContent string
		profContent string
		expected    map[string]any
		wantErr     bool
	}{
		{
			name:    "base file only",
			profile: "lab",
			baseContent: `
log:
  level: debug
server:
  addr: 0.0.0.0:8086
`,
			expected: map[string]any{
				"log":    map[string]any{"level": "debug"},
				"server": map[string]any{"addr": "0.0.0.0:8086"},
			},
		},
		{
			name:    "profile replaces top-level keys",
			profile: "lab",
			baseContent: `
log:
  level: info
  format: text
agent:
  plugins: false
`,
			profContent: `
log:
  level: trace
`,
			expected: map[string]any{
				"log":   map[string]any{"level": "trace"},
				"agent": map[string]any{"plugins": false},
			},
		},
		{
			name:        "invalid yaml",
			baseContent: "log: [unterminated",
			wantErr:     true,
		},
		{
			name:     "missing optional file",
			optional: true,
			expected: map[string]any{},
		},
		{
			name:    "missing required file",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := afero.NewMemMapFs()
			if tt.baseContent != "" {
				if err := afero.WriteFile(mem, appPath, []byte(tt.baseContent), 0o644); err != nil {
					t.Fatal(err)
				}
			}
			if tt.profContent != "" {
				if err := afero.WriteFile(mem, profilePath(appPath, tt.profile), []byte(tt.profContent), 0o644); err != nil {
					t.Fatal(err)
				}
			}

			src := &FileSource{Fs: mem, Path: appPath, Profile: tt.profile, Optional: tt.optional}
			got, err := src.Load(context.Background())
			if (err != nil) != tt.wantErr {
				t.Fatalf("Load() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("Load() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestFileSource_MissingIsNotExist(t *testing.T) {
	src := &FileSource{Fs: afero.NewMemMapFs(), Path: appPath}
	_, err := src.Load(context.Background())
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Load() error = %v, want fs.ErrNotExist", err)
	}
}

func TestProfilePath(t *testing.T) {
	if got := profilePath(appPath, "lab"); got != "/opt/edgeagent/config/application.lab.yaml" {
		t.Errorf("profilePath() = %q", got)
	}
	if got := profilePath("settings", "dev"); got != "settings.dev" {
		t.Errorf("profilePath() without extension = %q", got)
	}
}
