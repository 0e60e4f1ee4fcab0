package registry

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/specialistvlad/expgrid/internal/workspace"
)

// AbsentValue is the type of Absent.
type AbsentValue struct{}

// String implements fmt.Stringer.
func (AbsentValue) String() string { return "<absent>" }

// Absent marks a declared parameter the definition did not set. Executors
// always receive every parameter they declare; unset ones carry this marker
// instead of being omitted.
var Absent = AbsentValue{}

// Args are the keyword arguments passed to an executor or evaluator.
type Args map[string]any

// IsAbsent reports whether name is missing or carries the Absent marker.
func (a Args) IsAbsent(name string) bool {
	v, ok := a[name]
	if !ok {
		return true
	}
	_, absent := v.(AbsentValue)
	return absent
}

// Present returns a copy of the arguments without Absent entries.
func (a Args) Present() map[string]any {
	out := make(map[string]any, len(a))
	for k, v := range a {
		if _, absent := v.(AbsentValue); absent {
			continue
		}
		out[k] = v
	}
	return out
}

// ExecutorFunc performs an experiment's core work inside ws.
type ExecutorFunc func(ctx context.Context, ws *workspace.Workspace, args Args) (any, error)

// Executor is a registered executor together with its declared parameter
// names.
type Executor struct {
	Params []string
	Fn     ExecutorFunc
}

// EvaluatorFunc post-processes an executor's result. args is nil unless the
// evaluator declares that it wants the original executor arguments.
type EvaluatorFunc func(ctx context.Context, ws *workspace.Workspace, result any, args Args) error

// Evaluator is a registered evaluator. WantsArgs declares the parameter
// carrying the original (unfiltered) executor arguments.
type Evaluator struct {
	WantsArgs bool
	Fn        EvaluatorFunc
}

// RegisterExecutor registers an executor under name.
func (r *Registry) RegisterExecutor(name string, handler *Executor) {
	if _, exists := r.executors[name]; exists {
		panic(fmt.Sprintf("executor with name '%s' already registered", name))
	}
	slog.Debug("Registering executor.", "name", name, "params", handler.Params)
	r.executors[name] = handler
}

// RegisterEvaluator registers an evaluator under name.
func (r *Registry) RegisterEvaluator(name string, handler *Evaluator) {
	if _, exists := r.evaluators[name]; exists {
		panic(fmt.Sprintf("evaluator with name '%s' already registered", name))
	}
	slog.Debug("Registering evaluator.", "name", name, "wants_args", handler.WantsArgs)
	r.evaluators[name] = handler
}
