package check

import (
	"context"
	"errors"
	"io/fs"

	"github.com/spf13/afero"
)

// Missing is faulty while path does not exist.
func Missing(fsys afero.Fs, path string) Probe {
	return func(context.Context) (bool, error) {
		ok, err := exists(fsys, path)
		return !ok, err
	}
}

// NotDir is faulty while path is absent or is not a directory.
func NotDir(fsys afero.Fs, path string) Probe {
	return func(context.Context) (bool, error) {
		ok, err := afero.DirExists(fsys, path)
		return !ok, err
	}
}

// Vanished is faulty once path has been seen and then disappears. A path
// that was never present is not a fault.
func Vanished(fsys afero.Fs, path string) Probe {
	seen := false
	return func(context.Context) (bool, error) {
		ok, err := exists(fsys, path)
		if err != nil {
			return false, err
		}
		if ok {
			seen = true
			return false, nil
		}
		return seen, nil
	}
}

func exists(fsys afero.Fs, path string) (bool, error) {
	_, err := fsys.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}
