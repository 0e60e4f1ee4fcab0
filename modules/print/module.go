// Package print provides the "print" evaluator, which writes an experiment's
// result and arguments to the run output.
package print

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/specialistvlad/expgrid/internal/ctxlog"
	"github.com/specialistvlad/expgrid/internal/registry"
	"github.com/specialistvlad/expgrid/internal/workspace"
)

// Module implements the registry.Module interface for this package.
type Module struct {
	// Out receives the printed lines. Defaults to os.Stdout.
	Out io.Writer
}

func (m *Module) out() io.Writer {
	if m.Out == nil {
		return os.Stdout
	}
	return m.Out
}

// onPrint is the handler for the "print" evaluator.
func (m *Module) onPrint(ctx context.Context, ws *workspace.Workspace, result any, args registry.Args) error {
	ctxlog.FromContext(ctx).Debug("Printing experiment result")
	w := m.out()

	fmt.Fprintf(w, "  %s\n", filepath.Base(ws.Dir()))
	if result == nil {
		fmt.Fprintln(w, "      result = (null)")
	} else {
		fmt.Fprintf(w, "      result = %v\n", result)
	}

	// Sort keys for consistent output
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		fmt.Fprintf(w, "      %s = %v\n", k, args[k])
	}
	return nil
}

// Register registers the evaluator with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterEvaluator("print", registry.NewArgsEvaluator(m.onPrint))
}
