package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/specialistvlad/expgrid/internal/ctxlog"
	"github.com/specialistvlad/expgrid/internal/definition"
	"github.com/specialistvlad/expgrid/internal/fsutil"
)

var separator = strings.Repeat("─", 60)

// Skip reasons recorded in the report.
const (
	ReasonAbstract  = "abstract"
	ReasonSelection = "not selected"
	ReasonExists    = "results already exist"
	ReasonCancelled = "cancelled"
)

// Run executes the table against resultsRoot. Only a failure to prepare
// resultsRoot is returned as an error; experiment failures are recorded in the
// report, see Report.Err.
func (e *Engine) Run(ctx context.Context, resultsRoot string) (*Report, error) {
	ctx = ctxlog.With(ctx, "run_id", e.runID)
	logger := ctxlog.FromContext(ctx)

	if err := os.MkdirAll(resultsRoot, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create results directory '%s': %w", resultsRoot, err)
	}

	for _, name := range e.mode.Names() {
		if _, ok := e.table.Get(name); !ok {
			logger.Warn("Requested experiment is not defined.", "experiment", name)
		}
	}

	logger.Info("▶️ Starting run.", "experiments", e.table.Len(), "mode", e.mode.String(), "results", resultsRoot)
	e.report.start()
	defer e.report.finish()

	for _, def := range e.table.All() {
		if err := ctx.Err(); err != nil {
			e.skip(ctxlog.FromContext(ctx).With("experiment", def.Name), def.Name, ReasonCancelled)
			continue
		}
		e.runOne(ctx, resultsRoot, def)
		fmt.Fprintln(e.out, separator)
	}

	logger.Info("✅ Run finished.",
		"succeeded", e.report.Count(StatusSucceeded),
		"failed", e.report.Count(StatusFailed),
		"skipped", e.report.Count(StatusSkipped),
	)
	return e.report, nil
}

// runOne takes a single experiment through its lifecycle.
func (e *Engine) runOne(ctx context.Context, resultsRoot string, def *definition.Definition) {
	ctx = ctxlog.With(ctx, "experiment", def.Name)
	logger := ctxlog.FromContext(ctx)

	abstract, err := def.IsAbstract()
	if err != nil {
		e.fail(logger, def.Name, withStack(err), 0)
		return
	}
	if abstract {
		e.skip(logger, def.Name, ReasonAbstract)
		return
	}
	if !e.mode.Selects(def.Name) {
		e.skip(logger, def.Name, ReasonSelection)
		return
	}
	if !definition.ValidName(def.Name) {
		e.fail(logger, def.Name, withStack(fmt.Errorf("experiment name '%s' is not a valid directory name", def.Name)), 0)
		return
	}

	path := filepath.Join(resultsRoot, def.Name)
	exists, err := fsutil.Exists(path)
	if err != nil {
		e.fail(logger, def.Name, withStack(err), 0)
		return
	}
	if exists && !e.mode.Overwrites() {
		logger.Info("Skipping experiment.", "reason", ReasonExists, "path", path)
		e.report.skip(def.Name, ReasonExists)
		return
	}
	if exists {
		logger.Warn("Overwriting existing results.", "path", path)
		if err := os.RemoveAll(path); err != nil {
			e.fail(logger, def.Name, withStack(err), 0)
			return
		}
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		e.fail(logger, def.Name, withStack(err), 0)
		return
	}

	logger.Info("▶️ Running experiment.", "path", path)
	e.report.running(def.Name, exists)
	start := time.Now()

	err = e.execute(ctx, def, path)
	elapsed := time.Since(start)
	if err != nil {
		e.fail(logger, def.Name, err, elapsed)
		return
	}
	e.report.succeed(def.Name, elapsed)
	logger.Info("✅ Experiment finished.", "duration", elapsed)
}

func (e *Engine) skip(logger *slog.Logger, name, reason string) {
	logger.Info("Skipping experiment.", "reason", reason)
	e.report.skip(name, reason)
}

func (e *Engine) fail(logger *slog.Logger, name string, err error, elapsed time.Duration) {
	e.report.fail(name, err, elapsed)
	f := describe(err)
	logger.Error("❌ Experiment failed.",
		"error_type", f.Type,
		"error", f.Message,
		"stack", f.Stack,
		"duration", elapsed,
	)
}
