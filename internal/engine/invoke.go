package engine

import (
	"context"
	"fmt"

	"github.com/specialistvlad/expgrid/internal/ctxlog"
	"github.com/specialistvlad/expgrid/internal/definition"
	"github.com/specialistvlad/expgrid/internal/registry"
	"github.com/specialistvlad/expgrid/internal/workspace"
)

// execute runs the executor and evaluators of def inside path. The
// workspace, and the process working directory when enabled, are released
// on every return path.
func (e *Engine) execute(ctx context.Context, def *definition.Definition, path string) (err error) {
	logger := ctxlog.FromContext(ctx)

	executorName, _, err := def.Executor()
	if err != nil {
		return withStack(err)
	}
	executor, ok := e.registry.Executor(executorName)
	if !ok {
		return withStack(&definition.UnknownHandlerError{Experiment: def.Name, Kind: "executor", Name: executorName})
	}
	evaluatorNames, err := def.Evaluators()
	if err != nil {
		return withStack(err)
	}
	evaluators := make([]*registry.Evaluator, len(evaluatorNames))
	for i, name := range evaluatorNames {
		ev, ok := e.registry.Evaluator(name)
		if !ok {
			return withStack(&definition.UnknownHandlerError{Experiment: def.Name, Kind: "evaluator", Name: name})
		}
		evaluators[i] = ev
	}

	kwargs := definition.Kwargs(def)
	args := filterArgs(kwargs, executor.Params)

	ws, release, err := workspace.Acquire(path)
	if err != nil {
		return withStack(err)
	}
	defer release()

	if e.chdir {
		restore, err := workspace.Chdir(path)
		if err != nil {
			return withStack(err)
		}
		defer func() {
			if rerr := restore(); rerr != nil {
				logger.Error("Failed to restore working directory.", "error", rerr)
			}
		}()
	}

	result, err := callExecutor(ctx, executor, ws, args)
	if err != nil {
		return fmt.Errorf("executor '%s': %w", executorName, err)
	}

	for i, ev := range evaluators {
		var evArgs registry.Args
		if ev.WantsArgs {
			evArgs = registry.Args(kwargs)
		}
		if err := callEvaluator(ctx, ev, ws, result, evArgs); err != nil {
			return fmt.Errorf("evaluator '%s': %w", evaluatorNames[i], err)
		}
	}
	return nil
}

func callExecutor(ctx context.Context, ex *registry.Executor, ws *workspace.Workspace, args registry.Args) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			result, err = nil, newPanicError(r)
		}
	}()
	result, err = ex.Fn(ctx, ws, args)
	return result, withStack(err)
}

func callEvaluator(ctx context.Context, ev *registry.Evaluator, ws *workspace.Workspace, result any, args registry.Args) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = newPanicError(r)
		}
	}()
	return withStack(ev.Fn(ctx, ws, result, args))
}
