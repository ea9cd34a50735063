package component

import (
	"context"
	"errors"
	"fmt"
	"plugin"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skekre98/edgeagent/core"
)

func noop(context.Context) error { return nil }

func stub() core.Component {
	return core.Component{
		Load:   func(*core.Linker) error { return nil },
		Unload: noop,
		Start:  noop,
		Stop:   noop,
	}
}

func TestCatalog(t *testing.T) {
	t.Parallel()
	c := NewCatalog()
	require.NoError(t, c.Register("web", stub))
	require.NoError(t, c.Register("alarm_process", stub))

	err := c.Register("web", stub)
	assert.ErrorIs(t, err, ErrDuplicateFactory)
	assert.ErrorIs(t, c.Register("", stub), core.ErrInvalidName)
	assert.ErrorIs(t, c.Register("nil", nil), core.ErrNilValue)

	comp, err := c.Component("web")
	require.NoError(t, err)
	assert.NotNil(t, comp.Load)

	_, err = c.Component("missing")
	assert.ErrorIs(t, err, core.ErrUnknownComponent)

	assert.Equal(t, []string{"alarm_process", "web"}, c.Names())
}

func TestCatalog_MustRegisterPanicsOnDuplicate(t *testing.T) {
	t.Parallel()
	c := NewCatalog().MustRegister("web", stub)
	assert.Panics(t, func() { c.MustRegister("web", stub) })
}

func TestChain(t *testing.T) {
	t.Parallel()
	first := NewCatalog().MustRegister("a", stub)
	second := NewCatalog().MustRegister("b", stub)
	broken := core.ProviderFunc(func(name string) (core.Component, error) {
		return core.Component{}, errors.New("disk on fire")
	})

	ch := Chain{nil, first, second}
	_, err := ch.Component("a")
	assert.NoError(t, err)
	_, err = ch.Component("b")
	assert.NoError(t, err)
	_, err = ch.Component("c")
	assert.ErrorIs(t, err, core.ErrUnknownComponent)

	_, err = Chain{broken, second}.Component("b")
	assert.EqualError(t, err, "disk on fire")
}

type symbols map[string]plugin.Symbol

func (s symbols) Lookup(name string) (plugin.Symbol, error) {
	sym, ok := s[name]
	if !ok {
		return nil, fmt.Errorf("symbol %s not found", name)
	}
	return sym, nil
}

func newPluginFixture(t *testing.T, syms symbols) (*PluginProvider, *[]string) {
	t.Helper()
	mem := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(mem, "/opt/edgeagent/modules/libfault_check.so", []byte{0x7f}, 0o755))
	var opened []string
	return &PluginProvider{
		Dir: "/opt/edgeagent/modules",
		Fs:  mem,
		Open: func(path string) (SymbolTable, error) {
			opened = append(opened, path)
			return syms, nil
		},
	}, &opened
}

func TestPluginProvider(t *testing.T) {
	t.Parallel()
	started := false
	stop := func(context.Context) error { return nil }
	syms := symbols{
		"Fault_check_load":   func(*core.Linker) error { return nil },
		"Fault_check_unload": func(context.Context) error { return nil },
		"Fault_check_start":  func(context.Context) error { started = true; return nil },
		"Fault_check_stop":   &stop,
	}
	p, opened := newPluginFixture(t, syms)

	comp, err := p.Component("fault_check")
	require.NoError(t, err)
	assert.Equal(t, []string{"/opt/edgeagent/modules/libfault_check.so"}, *opened)
	require.NoError(t, comp.Start(context.Background()))
	assert.True(t, started)
	assert.NotNil(t, comp.Stop)

	_, err = p.Component("extend_alarm")
	assert.ErrorIs(t, err, core.ErrUnknownComponent)
	assert.Len(t, *opened, 1, "missing file must not be opened")
}

func TestPluginProvider_BadSymbols(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		syms symbols
	}{
		{
			name: "missing stop",
			syms: symbols{
				"Fault_check_load":   func(*core.Linker) error { return nil },
				"Fault_check_unload": noop,
				"Fault_check_start":  noop,
			},
		},
		{
			name: "wrong signature",
			syms: symbols{
				"Fault_check_load":   func() {},
				"Fault_check_unload": noop,
				"Fault_check_start":  noop,
				"Fault_check_stop":   noop,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p, _ := newPluginFixture(t, tt.syms)
			_, err := p.Component("fault_check")
			require.Error(t, err)
			assert.NotErrorIs(t, err, core.ErrUnknownComponent)
		})
	}
}

func TestPluginProvider_OpenError(t *testing.T) {
	t.Parallel()
	p, _ := newPluginFixture(t, nil)
	p.Open = func(string) (SymbolTable, error) { return nil, errors.New("plugin was built with a different version") }
	_, err := p.Component("fault_check")
	assert.ErrorContains(t, err, "different version")
}

func TestSymbolPrefix(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "Alarm_process", symbolPrefix("alarm_process"))
	assert.Equal(t, "Web", symbolPrefix("Web"))
	assert.Equal(t, "", symbolPrefix(""))
	assert.Equal(t, "/opt/m/libweb.so", (&PluginProvider{Dir: "/opt/m"}).Path("web"))
}
