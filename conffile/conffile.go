// Package conffile reads the agent's module list.
//
// The file is plain text made of whitespace-separated "key value" pairs:
//
//	LoadModule alarm_process
//	LoadModule fault_check
//
// Only the LoadModule key means anything today; other keys are kept so they
// can be inspected. Files must be non-empty and smaller than MaxSize bytes.
package conffile

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/afero"
)

// MaxSize is the exclusive upper bound on the file size, in bytes.
const MaxSize = 4096

// KeyLoadModule names a module to load.
const KeyLoadModule = "LoadModule"

var (
	// ErrEmptyPath is returned when no file path is given.
	ErrEmptyPath = errors.New("config file path is empty")
	// ErrSize is returned for empty files and files of MaxSize bytes or more.
	ErrSize = errors.New("config file size out of range")
	// ErrNotRegular is returned when the path is not a regular file.
	ErrNotRegular = errors.New("config file is not a regular file")
)

// Item is one key/value pair.
type Item struct {
	Key   string
	Value string
}

// File is a parsed configuration file.
type File struct {
	Path  string
	Items []Item
}

// Modules returns the values of every LoadModule item, in file order.
// Duplicates are kept.
func (f *File) Modules() []string {
	var out []string
	for _, it := range f.Items {
		if it.Key == KeyLoadModule {
			out = append(out, it.Value)
		}
	}
	return out
}

// Load reads and parses the file at path.
func Load(fs afero.Fs, path string, logger *slog.Logger) (*File, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}

	fi, err := fs.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if !fi.Mode().IsRegular() {
		return nil, fmt.Errorf("%s: %w", path, ErrNotRegular)
	}
	if fi.Size() <= 0 || fi.Size() >= MaxSize {
		return nil, fmt.Errorf("%s: %d bytes, want 1..%d: %w", path, fi.Size(), MaxSize-1, ErrSize)
	}

	b, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	// The file may have grown between Stat and ReadFile.
	if len(b) >= MaxSize {
		return nil, fmt.Errorf("%s: %d bytes, want 1..%d: %w", path, len(b), MaxSize-1, ErrSize)
	}

	return &File{Path: path, Items: Parse(b, logger)}, nil
}

// Parse tokenizes b into key/value pairs. A key without a value at the end of
// the input is logged and dropped.
func Parse(b []byte, logger *slog.Logger) []Item {
	sc := bufio.NewScanner(bytes.NewReader(b))
	sc.Split(bufio.ScanWords)

	var items []Item
	for sc.Scan() {
		key := sc.Text()
		if !sc.Scan() {
			logger.Error("config key has no value", "key", key)
			break
		}
		items = append(items, Item{Key: key, Value: sc.Text()})
	}
	return items
}
