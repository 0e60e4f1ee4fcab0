package testutil

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/specialistvlad/expgrid/internal/registry"
	"github.com/specialistvlad/expgrid/internal/workspace"
)

// Call is one recorded executor or evaluator invocation.
type Call struct {
	Experiment string
	Handler    string
	Args       registry.Args
	Result     any
	// Cwd is the process working directory during the call.
	Cwd string
}

// RecordingModule registers a "record" executor and two evaluators,
// "record_eval" (result only) and "record_eval_args" (result and arguments),
// and remembers every call. The executor declares the parameters in Params
// and returns its arguments as the result.
type RecordingModule struct {
	Params []string

	mu    sync.Mutex
	calls []Call
}

// NewRecordingModule creates a RecordingModule whose executor declares params.
func NewRecordingModule(params ...string) *RecordingModule {
	return &RecordingModule{Params: params}
}

// Calls returns every recorded call in order.
func (m *RecordingModule) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

// CallsTo returns the recorded calls of one handler.
func (m *RecordingModule) CallsTo(handler string) []Call {
	var out []Call
	for _, c := range m.Calls() {
		if c.Handler == handler {
			out = append(out, c)
		}
	}
	return out
}

func (m *RecordingModule) record(ws *workspace.Workspace, handler string, args registry.Args, result any) {
	cwd, _ := os.Getwd()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{
		Experiment: filepath.Base(ws.Dir()),
		Handler:    handler,
		Args:       args,
		Result:     result,
		Cwd:        cwd,
	})
}

// Register implements the registry.Module interface.
func (m *RecordingModule) Register(r *registry.Registry) {
	r.RegisterExecutor("record", &registry.Executor{
		Params: m.Params,
		Fn: func(_ context.Context, ws *workspace.Workspace, args registry.Args) (any, error) {
			m.record(ws, "record", args, nil)
			return map[string]any(args), nil
		},
	})
	r.RegisterEvaluator("record_eval", &registry.Evaluator{
		Fn: func(_ context.Context, ws *workspace.Workspace, result any, args registry.Args) error {
			m.record(ws, "record_eval", args, result)
			return nil
		},
	})
	r.RegisterEvaluator("record_eval_args", &registry.Evaluator{
		WantsArgs: true,
		Fn: func(_ context.Context, ws *workspace.Workspace, result any, args registry.Args) error {
			m.record(ws, "record_eval_args", args, result)
			return nil
		},
	})
}
