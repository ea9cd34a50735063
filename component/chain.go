package component

import (
	"errors"
	"fmt"

	"github.com/skekre98/edgeagent/core"
)

// Chain asks each provider in turn. A provider answering
// core.ErrUnknownComponent passes the name on; any other error stops the
// search.
type Chain []core.Provider

// Component implements core.Provider.
func (ch Chain) Component(name string) (core.Component, error) {
	for _, p := range ch {
		if p == nil {
			continue
		}
		c, err := p.Component(name)
		if err == nil {
			return c, nil
		}
		if !errors.Is(err, core.ErrUnknownComponent) {
			return core.Component{}, err
		}
	}
	return core.Component{}, fmt.Errorf("%s: %w", name, core.ErrUnknownComponent)
}
