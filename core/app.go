package core

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/afero"

	"github.com/skekre98/edgeagent/conffile"
)

// ShutdownTimeout bounds how long modules get to stop and unload.
const ShutdownTimeout = 15 * time.Second

// App is the agent process: where it is installed, which module list it
// reads, and the runtime that module list is loaded into.
type App struct {
	Home     string
	ConfPath string
	Runtime  *Runtime
	Logger   *slog.Logger
	FS       afero.Fs
}

// NewApp returns an App reading its module list from confPath on fs.
func NewApp(logger *slog.Logger, fs afero.Fs, home, confPath string, rt *Runtime) *App {
	return &App{
		Home:     home,
		ConfPath: confPath,
		Runtime:  rt,
		Logger:   logger,
		FS:       fs,
	}
}

// Apply loads every module named by the configuration file, in file order,
// then assembles them. A module that fails to load is logged and skipped.
func (a *App) Apply(ctx context.Context) error {
	f, err := conffile.Load(a.FS, a.ConfPath, a.Logger)
	if err != nil {
		return fmt.Errorf("load module list: %w", err)
	}

	names := f.Modules()
	a.Logger.Info("module list loaded", "path", f.Path, "modules", len(names))
	for _, name := range names {
		if err := a.Runtime.Load(ctx, name); err != nil {
			a.Logger.Error("module skipped", "module", name, "error", err)
		}
	}

	if a.Runtime.Len() > 0 {
		a.Runtime.AssembleAll(ctx)
	}
	return nil
}

// Run applies the configuration, waits for ctx to end or a termination
// signal, then shuts the runtime down.
func (a *App) Run(ctx context.Context) error {
	if err := a.Apply(ctx); err != nil {
		return err
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)
	select {
	case <-ctx.Done():
	case sig := <-stop:
		a.Logger.Info("signal received", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	return a.Runtime.Shutdown(shutdownCtx)
}
