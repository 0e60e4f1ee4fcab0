package loader

import (
	"context"
	"fmt"
	"os"

	"github.com/specialistvlad/expgrid/internal/ctxlog"
	"github.com/specialistvlad/expgrid/internal/definition"
	"github.com/specialistvlad/expgrid/internal/fsutil"
	"github.com/specialistvlad/expgrid/internal/source"
)

// Handlers is the lookup the validator uses to check that executor and
// evaluator names refer to something registered.
type Handlers interface {
	HasExecutor(name string) bool
	HasEvaluator(name string) bool
}

// Loader loads definition sources into a resolved table.
type Loader struct {
	handlers  Handlers
	providers []source.Source
}

// Option configures a Loader.
type Option func(*Loader)

// WithHandlers makes validation reject unregistered executor and evaluator
// names.
func WithHandlers(h Handlers) Option {
	return func(l *Loader) { l.handlers = h }
}

// WithProviders prepends in-process definition providers to every load.
func WithProviders(providers ...source.Source) Option {
	return func(l *Loader) { l.providers = append(l.providers, providers...) }
}

// New creates a Loader.
func New(opts ...Option) *Loader {
	l := &Loader{}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LoadPath loads a directory with LoadDir and a single file with LoadFiles.
func (l *Loader) LoadPath(ctx context.Context, path string) (*definition.Table, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &definition.ConfigError{Path: path, Reason: "path is not accessible", Err: err}
	}
	if info.IsDir() {
		return l.LoadDir(ctx, path)
	}
	return l.LoadFiles(ctx, []string{path})
}

// LoadDir treats every recognised source file directly inside dir as one
// source, in the directory's natural listing order.
func (l *Loader) LoadDir(ctx context.Context, dir string) (*definition.Table, error) {
	logger := ctxlog.FromContext(ctx)
	if !fsutil.IsDir(dir) {
		return nil, &definition.ConfigError{Path: dir, Reason: "expected a list of files or an existing directory"}
	}

	files, err := fsutil.ListFilesByExtension(dir, source.Extensions...)
	if err != nil {
		return nil, &definition.ConfigError{Path: dir, Reason: "failed to list directory", Err: err}
	}
	if len(files) == 0 {
		logger.Warn("No experiment files found in directory.", "path", dir)
	}
	logger.Debug("Discovered experiment files.", "path", dir, "files", files)

	return l.LoadFiles(ctx, files)
}

// LoadFiles loads an explicit, ordered list of source files.
func (l *Loader) LoadFiles(ctx context.Context, paths []string) (*definition.Table, error) {
	sources := make([]source.Source, 0, len(paths))
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, &definition.ConfigError{Path: path, Reason: "file is not accessible", Err: err}
		}
		if info.IsDir() {
			return nil, &definition.ConfigError{Path: path, Reason: "expected a file, found a directory"}
		}
		src, err := source.ForFile(path)
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	return l.LoadSources(ctx, sources...)
}

// LoadSources collects, merges, resolves and validates the given sources,
// after any providers configured on the Loader.
func (l *Loader) LoadSources(ctx context.Context, sources ...source.Source) (*definition.Table, error) {
	logger := ctxlog.FromContext(ctx)
	all := append(append([]source.Source{}, l.providers...), sources...)
	logger.Debug("Loading experiment sources.", "count", len(all))

	perSource := make([][]*definition.Definition, 0, len(all))
	for _, src := range all {
		defs, err := src.Experiments(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load experiments from '%s': %w", src.Name(), err)
		}
		logger.Debug("Loaded experiment source.", "source", src.Name(), "experiments", len(defs))
		perSource = append(perSource, defs)
	}

	table, err := Merge(perSource...)
	if err != nil {
		return nil, err
	}
	if err := ResolveInheritance(table); err != nil {
		return nil, err
	}
	if err := Validate(table, l.handlers); err != nil {
		return nil, err
	}

	logger.Info("Experiments loaded.", "sources", len(all), "experiments", table.Len())
	return table, nil
}
