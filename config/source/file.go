package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// FileSource loads settings from a YAML file, with an optional profile
// overlay next to it.
//
// For Path "/opt/edgeagent/config/application.yaml" and Profile "lab", the
// overlay is "/opt/edgeagent/config/application.lab.yaml". Overlay keys
// replace base keys at the top level only.
//
// Example:
//
//	log:
//	  level: debug
//	server:
//	  addr: 0.0.0.0:8086
type FileSource struct {
	Fs      afero.Fs
	Path    string
	Profile string
	// Optional makes a missing base file an empty layer instead of an error.
	Optional bool
}

// Name returns the identifier for this source.
func (f *FileSource) Name() string { return "file" }

// Load reads the base file and the profile overlay, if any.
func (f *FileSource) Load(ctx context.Context) (map[string]any, error) {
	fsys := f.Fs
	if fsys == nil {
		fsys = afero.NewOsFs()
	}

	data := map[string]any{}
	if err := readYAML(fsys, f.Path, data); err != nil {
		if f.Optional && errors.Is(err, fs.ErrNotExist) {
			return data, nil
		}
		return nil, err
	}

	if f.Profile != "" {
		overlay := profilePath(f.Path, f.Profile)
		if err := readYAML(fsys, overlay, data); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	return data, nil
}

func profilePath(base, profile string) string {
	ext := filepath.Ext(base)
	return strings.TrimSuffix(base, ext) + "." + profile + ext
}

func readYAML(fsys afero.Fs, path string, out map[string]any) error {
	b, err := afero.ReadFile(fsys, path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(b, &out); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}
