package app

import (
	"context"
	"fmt"

	"github.com/specialistvlad/expgrid/internal/ctxlog"
	"github.com/specialistvlad/expgrid/internal/definition"
	"github.com/specialistvlad/expgrid/internal/engine"
	"github.com/specialistvlad/expgrid/internal/loader"
)

// Run loads the experiments and executes them. A non-nil report is returned
// whenever the engine ran; its error, if any experiment failed, is returned
// alongside it.
func (a *App) Run(ctx context.Context) (*engine.Report, error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.ctx = ctx
	a.logger.Debug("App.Run method started.")

	mode, err := engine.ParseMode(a.config.Run)
	if err != nil {
		return nil, err
	}

	table, err := a.load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load experiments: %w", err)
	}

	eng := engine.New(table, a.registry,
		engine.WithMode(mode),
		engine.WithChdir(a.config.Chdir),
		engine.WithOutput(a.outW),
	)
	a.setEngine(eng)

	if a.config.StatusPort > 0 {
		a.startStatusServer(a.config.StatusPort)
		defer a.closeStatusServer()
	}

	report, err := eng.Run(ctx, a.config.ResultsPath)
	if err != nil {
		return nil, fmt.Errorf("execution failed: %w", err)
	}

	a.logger.Debug("App.Run method finished.")
	return report, report.Err()
}

func (a *App) load(ctx context.Context) (*definition.Table, error) {
	l := loader.New(
		loader.WithHandlers(a.registry),
		loader.WithProviders(a.providers.Sources()...),
	)
	if a.config.ExperimentsPath == "" {
		return l.LoadSources(ctx)
	}
	return l.LoadPath(ctx, a.config.ExperimentsPath)
}
