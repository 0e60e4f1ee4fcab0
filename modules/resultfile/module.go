// Package resultfile provides the "result_file" evaluator, which stores an
// experiment's result and arguments as YAML inside its results directory.
package resultfile

import (
	"context"
	"fmt"

	"github.com/specialistvlad/expgrid/internal/ctxlog"
	"github.com/specialistvlad/expgrid/internal/registry"
	"github.com/specialistvlad/expgrid/internal/workspace"
	"gopkg.in/yaml.v3"
)

const (
	// ResultFile holds the executor's result.
	ResultFile = "result.yaml"
	// ArgsFile holds the experiment's arguments.
	ArgsFile = "args.yaml"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

func onResultFile(ctx context.Context, ws *workspace.Workspace, result any, args registry.Args) error {
	logger := ctxlog.FromContext(ctx)

	if err := writeYAML(ws, ResultFile, result); err != nil {
		return err
	}
	if err := writeYAML(ws, ArgsFile, map[string]any(args)); err != nil {
		return err
	}
	logger.Debug("Result files written.", "dir", ws.Dir())
	return nil
}

func writeYAML(ws *workspace.Workspace, name string, v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", name, err)
	}
	if err := ws.WriteFile(name, data); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}

// Register registers the evaluator with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterEvaluator("result_file", registry.NewArgsEvaluator(onResultFile))
}
