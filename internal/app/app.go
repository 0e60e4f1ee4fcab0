package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/specialistvlad/expgrid/internal/ctxlog"
	"github.com/specialistvlad/expgrid/internal/engine"
	"github.com/specialistvlad/expgrid/internal/registry"
	"github.com/specialistvlad/expgrid/internal/source"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	ctx       context.Context
	outW      io.Writer
	logger    *slog.Logger
	config    *Config
	registry  *registry.Registry
	providers *source.Providers

	mu         sync.RWMutex
	engine     *engine.Engine
	httpServer *http.Server
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance, including its own isolated logger and registry.
// Without explicit modules the built-in ones are installed.
func NewApp(outW io.Writer, cfg *Config, modules ...registry.Module) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	reg := registry.New()
	if len(modules) == 0 {
		modules = coreModules()
	}
	reg.Install(modules...)
	logger.Debug("All Go modules registered.", "count", len(modules))

	if err := reg.Validate(); err != nil {
		// A malformed handler is a programmer error, so we panic.
		panic(err)
	}
	logger.Debug("Registry validation passed.",
		"executors", reg.ExecutorNames(),
		"evaluators", reg.EvaluatorNames(),
	)

	return &App{
		ctx:       ctx,
		outW:      outW,
		logger:    logger,
		config:    cfg,
		registry:  reg,
		providers: source.NewProviders(),
	}
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Providers returns the in-process definition providers consulted before
// any files on every run.
func (a *App) Providers() *source.Providers {
	return a.providers
}

// Report returns the report of the current or last run, or nil before the
// first run starts.
func (a *App) Report() *engine.Report {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.engine == nil {
		return nil
	}
	return a.engine.Report()
}

func (a *App) setEngine(e *engine.Engine) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.engine = e
}
