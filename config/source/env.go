package source

import (
	"context"
	"os"
	"strings"
)

// ENV_PREFIX is the required prefix for environment variables.
const ENV_PREFIX = "EDGEAGENT_"

// EnvSource loads settings from EDGEAGENT_-prefixed environment variables.
//
// The remainder of the name is lower-cased and split on underscores into
// nested keys:
//
//	EDGEAGENT_LOG_LEVEL=debug        -> {log: {level: "debug"}}
//	EDGEAGENT_AGENT_CONFFILE=/x.conf -> {agent: {conffile: "/x.conf"}}
//
// Keys are matched to struct fields case-insensitively during binding. All
// values are strings. When a leaf already exists at a path, deeper variables
// under it are skipped.
type EnvSource struct{}

// Name returns the identifier for this source.
func (e *EnvSource) Name() string { return "env" }

// Load reads the environment.
func (e *EnvSource) Load(ctx context.Context) (map[string]any, error) {
	return loadEnvVars(), nil
}

func loadEnvVars() map[string]any {
	result := make(map[string]any)

	for _, env := range os.Environ() {
		key, value, found := parseEnvLine(env)
		if !found {
			continue
		}

		if !strings.HasPrefix(key, ENV_PREFIX) {
			continue
		}

		key = strings.TrimPrefix(key, ENV_PREFIX)
		key = strings.ToLower(key)

		segments := strings.Split(key, "_")
		if len(segments) == 0 {
			continue
		}

		setNestedValue(result, segments, value)
	}

	return result
}

func parseEnvLine(env string) (string, string, bool) {
	parts := strings.SplitN(env, "=", 2)
	if len(parts) != 2 {
		return "", "", false
	}
	return parts[0], parts[1], true
}

func setNestedValue(m map[string]any, segments []string, value string) {
	current := m

	for i, segment := range segments {
		if segment == "" {
			continue
		}

		if i == len(segments)-1 {
			current[segment] = value
			return
		}

		if existing, exists := current[segment]; exists {
			if nested, ok := existing.(map[string]any); ok {
				current = nested
			} else {
				// Conflict: a leaf value already exists at this path
				// Skip this entry to avoid overwriting existing data
				return
			}
		} else {
			nested := make(map[string]any)
			current[segment] = nested
			current = nested
		}
	}
}
