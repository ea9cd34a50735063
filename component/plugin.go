package component

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"plugin"
	"unicode"
	"unicode/utf8"

	"github.com/spf13/afero"

	"github.com/skekre98/edgeagent/core"
)

// Symbols are looked up as <Name>_load, <Name>_unload, <Name>_start and
// <Name>_stop.
const (
	suffixLoad   = "_load"
	suffixUnload = "_unload"
	suffixStart  = "_start"
	suffixStop   = "_stop"
)

// SymbolTable is the part of *plugin.Plugin the provider uses.
type SymbolTable interface {
	Lookup(symName string) (plugin.Symbol, error)
}

// Opener opens a shared object.
type Opener func(path string) (SymbolTable, error)

func openPlugin(path string) (SymbolTable, error) {
	return plugin.Open(path)
}

// PluginProvider loads components from <Dir>/lib<name>.so.
type PluginProvider struct {
	Dir    string
	Fs     afero.Fs
	Open   Opener
	Logger *slog.Logger
}

// NewPluginProvider returns a provider over dir on the OS filesystem.
func NewPluginProvider(logger *slog.Logger, dir string) *PluginProvider {
	return &PluginProvider{
		Dir:    dir,
		Fs:     afero.NewOsFs(),
		Open:   openPlugin,
		Logger: logger,
	}
}

// Path returns the shared object path for name.
func (p *PluginProvider) Path(name string) string {
	return filepath.Join(p.Dir, "lib"+name+".so")
}

// Component implements core.Provider. A missing file is reported as
// core.ErrUnknownComponent so a Chain can move on.
func (p *PluginProvider) Component(name string) (core.Component, error) {
	path := p.Path(name)
	if p.Fs != nil {
		if _, err := p.Fs.Stat(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return core.Component{}, fmt.Errorf("plugin %s: %w", path, core.ErrUnknownComponent)
			}
			return core.Component{}, fmt.Errorf("plugin %s: %w", path, err)
		}
	}

	open := p.Open
	if open == nil {
		open = openPlugin
	}
	so, err := open(path)
	if err != nil {
		return core.Component{}, fmt.Errorf("open plugin %s: %w", path, err)
	}
	if p.Logger != nil {
		p.Logger.Debug("plugin opened", "module", name, "path", path)
	}

	prefix := symbolPrefix(name)
	var c core.Component
	if c.Load, err = lookup[func(*core.Linker) error](so, prefix+suffixLoad); err != nil {
		return core.Component{}, err
	}
	if c.Unload, err = lookupLifecycle(so, prefix+suffixUnload); err != nil {
		return core.Component{}, err
	}
	if c.Start, err = lookupLifecycle(so, prefix+suffixStart); err != nil {
		return core.Component{}, err
	}
	if c.Stop, err = lookupLifecycle(so, prefix+suffixStop); err != nil {
		return core.Component{}, err
	}
	return c, nil
}

func lookupLifecycle(so SymbolTable, sym string) (func(context.Context) error, error) {
	return lookup[func(context.Context) error](so, sym)
}

// lookup accepts both a function symbol and a pointer to a function variable.
func lookup[F any](so SymbolTable, sym string) (F, error) {
	var zero F
	s, err := so.Lookup(sym)
	if err != nil {
		return zero, fmt.Errorf("symbol %s: %w", sym, err)
	}
	switch fn := s.(type) {
	case F:
		return fn, nil
	case *F:
		if fn != nil {
			return *fn, nil
		}
	}
	return zero, fmt.Errorf("symbol %s has type %T: %w", sym, s, core.ErrIncompleteComponent)
}

// symbolPrefix upper-cases the first letter so the symbols are exported.
func symbolPrefix(name string) string {
	r, size := utf8.DecodeRuneInString(name)
	if r == utf8.RuneError {
		return name
	}
	return string(unicode.ToUpper(r)) + name[size:]
}
