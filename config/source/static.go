package source

import "context"

// Static is a fixed settings layer, typically the built-in defaults.
type Static struct {
	Label  string
	Values func() map[string]any
}

// Name returns Label, or "static" when it is empty.
func (s *Static) Name() string {
	if s.Label == "" {
		return "static"
	}
	return s.Label
}

// Load returns a fresh copy of the values.
func (s *Static) Load(ctx context.Context) (map[string]any, error) {
	if s.Values == nil {
		return map[string]any{}, nil
	}
	return s.Values(), nil
}
