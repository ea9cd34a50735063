package source

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/pflag"
)

// CLISource loads settings from command-line flags written in dot notation.
//
//   - Dots indicate nesting: --server.addr=:8086
//   - Both --flag=value and --flag value are accepted
//   - A single dash works for long flags: -log.level=debug
//   - Empty values and positional arguments are ignored
//
// Examples:
//
//	--log.level=debug --server.addr 0.0.0.0:8086
//	  -> {log: {level: "debug"}, server: {addr: "0.0.0.0:8086"}}
//
// Short flags such as -c land at the top level and are ignored by binding.
// All values are strings. CLISource should be the last source so that flags
// override everything else.
type CLISource struct {
	// Args defaults to os.Args[1:] when nil.
	Args []string
}

// Name returns the identifier for this source.
func (c *CLISource) Name() string { return "cli" }

// Load parses the arguments. Invalid flags are skipped, never reported.
func (c *CLISource) Load(ctx context.Context) (map[string]any, error) {
	args := c.Args
	if args == nil {
		args = os.Args[1:]
	}
	return parseCliFlags(args), nil
}

func parseCliFlags(raw []string) map[string]any {
	result := make(map[string]any)
	fs := pflag.NewFlagSet("config", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.ParseErrorsWhitelist.UnknownFlags = true

	registeredFlags := make(map[string]bool)
	args := normalizeArgs(raw)

	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			break
		}
		if !strings.HasPrefix(arg, "-") {
			continue
		}

		flagName := extractFlagName(arg)
		if flagName == "" {
			continue
		}

		if !registeredFlags[flagName] {
			usage := fmt.Sprintf("Config value for %s", flagName)
			if len(flagName) == 1 {
				fs.StringP(flagName, flagName, "", usage)
			} else {
				fs.String(flagName, "", usage)
			}
			registeredFlags[flagName] = true
		}

		if !strings.Contains(arg, "=") && i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			i++
		}
	}

	_ = fs.Parse(args)

	fs.VisitAll(func(flag *pflag.Flag) {
		if !flag.Changed {
			return
		}
		value := flag.Value.String()
		if value == "" {
			return
		}
		setNestedValue(result, strings.Split(flag.Name, "."), value)
	})

	return result
}

// normalizeArgs converts single-dash long flags to double-dash for pflag.
func normalizeArgs(args []string) []string {
	normalized := make([]string, len(args))
	for i, arg := range args {
		if strings.HasPrefix(arg, "-") && !strings.HasPrefix(arg, "--") {
			withoutDash := strings.TrimPrefix(arg, "-")
			if len(withoutDash) > 1 && withoutDash[0] != '=' {
				normalized[i] = "-" + arg
			} else {
				normalized[i] = arg
			}
		} else {
			normalized[i] = arg
		}
	}
	return normalized
}

// extractFlagName extracts the flag name, removing dashes and handling --flag=value format.
func extractFlagName(arg string) string {
	arg = strings.TrimLeft(arg, "-")
	if arg == "" {
		return ""
	}

	if idx := strings.Index(arg, "="); idx != -1 {
		return arg[:idx]
	}

	return arg
}
