// Package envsnapshot provides the "env_snapshot" evaluator. It records the
// process environment next to an experiment's results so a run can be
// reproduced later.
package envsnapshot

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/specialistvlad/expgrid/internal/registry"
	"github.com/specialistvlad/expgrid/internal/workspace"
	"gopkg.in/yaml.v3"
)

// SnapshotFile is the file written into the workspace.
const SnapshotFile = "env.yaml"

// Module implements the registry.Module interface for this package.
type Module struct{}

// Environ returns the process environment as a map.
func Environ() map[string]string {
	envMap := make(map[string]string)
	for _, e := range os.Environ() {
		pair := strings.SplitN(e, "=", 2)
		if len(pair) == 2 {
			envMap[pair[0]] = pair[1]
		}
	}
	return envMap
}

func onEnvSnapshot(_ context.Context, ws *workspace.Workspace, _ any) error {
	// yaml.v3 sorts map keys, so the file is stable across runs.
	data, err := yaml.Marshal(Environ())
	if err != nil {
		return fmt.Errorf("failed to encode environment: %w", err)
	}
	return ws.WriteFile(SnapshotFile, data)
}

// Register registers the evaluator with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterEvaluator("env_snapshot", registry.NewEvaluator(onEnvSnapshot))
}
