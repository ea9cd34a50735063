package config

import "context"

// ConfigSource is one layer of agent settings.
//
// Load returns the layer as a string-keyed map, possibly nested. It must
// return a fresh map on every call; the Manager merges into it.
type ConfigSource interface {
	Load(ctx context.Context) (map[string]any, error)
	// Name identifies the source in errors and logs ("file", "env", "cli").
	Name() string
}

// Event describes a settings change applied by Manager.Reload.
type Event struct {
	// ChangedKeys lists the dotted config keys whose values differ, using
	// the `config` struct tags (e.g. "log.level").
	ChangedKeys []string
	OldConfig   any
	NewConfig   any
}

// Changed reports whether key, or any key below it, is in ChangedKeys.
func (e Event) Changed(key string) bool {
	for _, k := range e.ChangedKeys {
		if k == key || (len(k) > len(key) && k[:len(key)] == key && k[len(key)] == '.') {
			return true
		}
	}
	return false
}
