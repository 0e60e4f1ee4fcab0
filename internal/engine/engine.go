package engine

import (
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/specialistvlad/expgrid/internal/definition"
	"github.com/specialistvlad/expgrid/internal/registry"
)

// Engine executes the experiments of a resolved table.
type Engine struct {
	table    *definition.Table
	registry *registry.Registry
	mode     Mode
	chdir    bool
	out      io.Writer
	runID    string
	report   *Report
}

// Option configures an Engine.
type Option func(*Engine)

// WithMode sets the run mode. The default is ModeNew.
func WithMode(m Mode) Option {
	return func(e *Engine) { e.mode = m }
}

// WithChdir also changes the process working directory into each
// experiment's directory while its executor and evaluators run.
func WithChdir(enabled bool) Option {
	return func(e *Engine) { e.chdir = enabled }
}

// WithOutput sets where experiment separators are written. Defaults to stdout.
func WithOutput(w io.Writer) Option {
	return func(e *Engine) { e.out = w }
}

// WithRunID overrides the generated run identifier.
func WithRunID(id string) Option {
	return func(e *Engine) { e.runID = id }
}

// New creates an Engine over a resolved table. The engine never modifies the
// table.
func New(table *definition.Table, reg *registry.Registry, opts ...Option) *Engine {
	e := &Engine{
		table:    table,
		registry: reg,
		mode:     ModeNew,
		out:      os.Stdout,
		runID:    uuid.NewString(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.report = newReport(e.runID, table.Names())
	return e
}

// RunID returns the identifier attached to this engine's logs and report.
func (e *Engine) RunID() string {
	return e.runID
}

// Report returns the live report. It is safe to read while Run is in
// progress.
func (e *Engine) Report() *Report {
	return e.report
}
