// Command edgeagent loads the modules listed in its configuration file,
// starts them in dependency order and serves until it is signalled.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/afero"
	"github.com/spf13/pflag"

	"github.com/skekre98/edgeagent/actuator"
	"github.com/skekre98/edgeagent/component"
	"github.com/skekre98/edgeagent/config"
	"github.com/skekre98/edgeagent/config/source"
	"github.com/skekre98/edgeagent/core"
	"github.com/skekre98/edgeagent/logging"
	"github.com/skekre98/edgeagent/modules/alarm"
	"github.com/skekre98/edgeagent/modules/check"
	"github.com/skekre98/edgeagent/modules/extendalarm"
	"github.com/skekre98/edgeagent/modules/faultcheck"
	"github.com/skekre98/edgeagent/telemetry"
	"github.com/skekre98/edgeagent/web"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	flags := pflag.NewFlagSet("edgeagent", pflag.ContinueOnError)
	flags.ParseErrorsWhitelist.UnknownFlags = true
	confFlag := flags.StringP("conf", "c", "", "module configuration file")
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	osfs := afero.NewOsFs()
	var cfg config.Root
	mgr, home, err := loadConfig(osfs, args, &cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "edgeagent:", err)
		return 1
	}
	settings := cfg

	level := new(slog.LevelVar)
	lv, _ := logging.ParseLevel(settings.Log.Level)
	level.Set(lv)
	logger := logging.New(os.Stderr, level, settings.Log.Format).With("version", version)

	confPath := *confFlag
	if confPath == "" {
		confPath = settings.Agent.ConfFile
	}
	if confPath == "" {
		confPath = filepath.Join(home, "config", "edgeagent.conf")
	}

	metrics := telemetry.New()
	var rt *core.Runtime
	catalog := builtins(logger, osfs, settings, metrics, func() *core.Runtime { return rt },
		actuator.Info{Name: "edgeagent", Version: version, Home: home, ConfPath: confPath})

	providers := component.Chain{catalog}
	if settings.Agent.Plugins {
		providers = append(providers, component.NewPluginProvider(logger, filepath.Join(home, "modules")))
	}
	rt = core.New(logger, providers, core.WithObserver(metrics))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go watchReload(ctx, logger, mgr, level)

	app := core.NewApp(logger, osfs, home, confPath, rt)
	if err := app.Run(ctx); err != nil {
		logger.Error("agent stopped with error", "error", err)
		return 1
	}
	return 0
}

// loadConfig binds settings in two passes: the first finds agent.home, the
// second adds <home>/config/application.yaml below env and flags.
func loadConfig(fsys afero.Fs, args []string, cfg *config.Root) (*config.Manager, string, error) {
	defaults := &source.Static{Label: "defaults", Values: config.Defaults}
	env := &source.EnvSource{}
	cli := &source.CLISource{Args: args}

	var boot config.Root
	if _, err := config.NewManager(&boot, defaults, env, cli); err != nil {
		return nil, "", err
	}
	home, err := homeDir(boot.Agent.Home)
	if err != nil {
		return nil, "", err
	}

	file := &source.FileSource{
		Fs:       fsys,
		Path:     filepath.Join(home, "config", "application.yaml"),
		Profile:  os.Getenv("EDGEAGENT_PROFILE"),
		Optional: true,
	}
	mgr, err := config.NewManager(cfg, defaults, file, env, cli)
	if err != nil {
		return nil, "", err
	}
	if cfg.Agent.Home != "" {
		home = cfg.Agent.Home
	}
	return mgr, home, nil
}

// homeDir returns override, or the parent of the executable's directory.
func homeDir(override string) (string, error) {
	if override != "" {
		return override, nil
	}
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("locate executable: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(filepath.Dir(exe)), nil
}

func builtins(logger *slog.Logger, fsys afero.Fs, cfg config.Root, metrics *telemetry.Collector,
	runtime func() *core.Runtime, info actuator.Info) *component.Catalog {
	features := cfg.Features
	return component.NewCatalog().
		MustRegister(alarm.Name, func() core.Component {
			return alarm.NewProcess(logger.With("module", alarm.Name), fsys, features.Alarm.ActiveFile,
				alarm.WithShieldFile(features.Alarm.ShieldFile)).Component()
		}).
		MustRegister(faultcheck.Name, func() core.Component {
			return faultcheck.Component(logger, fsys, faultcheck.Options{
				MountPoints: features.FaultCheck.MountPoints,
				SDDevice:    features.FaultCheck.SDDevice,
				Interval:    features.FaultCheck.Interval,
				Debounce:    debounce(features.FaultCheck.Debounce),
			})
		}).
		MustRegister(extendalarm.Name, func() core.Component {
			return extendalarm.Component(logger, fsys, extendalarm.Options{
				HardwareFile: features.ExtendAlarm.HardwareFile,
				DevDir:       features.ExtendAlarm.DevDir,
				Interval:     features.ExtendAlarm.Interval,
				Debounce:     debounce(features.ExtendAlarm.Debounce),
			})
		}).
		MustRegister(web.Name, func() core.Component {
			return web.New(logger, cfg.Server, web.WithMiddlewares(metrics.Middleware())).Component()
		}).
		MustRegister(actuator.Name, func() core.Component {
			return actuator.Component(runtime(), cfg, metrics.Handler(), info)
		})
}

func debounce(c config.DebounceConfig) check.Debounce {
	return check.Debounce{Window: c.Window, Raise: c.Raise, Clear: c.Clear}
}

// watchReload re-reads settings on SIGHUP. Only log.level is applied live;
// other changes are logged and take effect on restart.
func watchReload(ctx context.Context, logger *slog.Logger, mgr *config.Manager, level *slog.LevelVar) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	events := make(chan config.Event, 1)
	mgr.Subscribe(events)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			if err := mgr.Reload(ctx); err != nil {
				logger.Error("config reload failed", "error", err)
			}
		case evt := <-events:
			root, ok := evt.NewConfig.(*config.Root)
			if !ok {
				continue
			}
			if evt.Changed("log.level") {
				lv, err := logging.ParseLevel(root.Log.Level)
				if err == nil {
					level.Set(lv)
					logger.Info("log level changed", "level", root.Log.Level)
				}
			}
			for _, k := range evt.ChangedKeys {
				if k != "log.level" {
					logger.Warn("setting changed, restart to apply", "key", k)
				}
			}
		}
	}
}
