package engine_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/specialistvlad/expgrid/internal/ctxlog"
	"github.com/specialistvlad/expgrid/internal/definition"
	"github.com/specialistvlad/expgrid/internal/engine"
	"github.com/specialistvlad/expgrid/internal/loader"
	"github.com/specialistvlad/expgrid/internal/registry"
	"github.com/specialistvlad/expgrid/internal/testutil"
	"github.com/specialistvlad/expgrid/internal/workspace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTable builds a resolved table from the given definitions.
func newTable(t *testing.T, defs ...*definition.Definition) *definition.Table {
	t.Helper()
	table, err := loader.Merge(defs)
	require.NoError(t, err)
	require.NoError(t, loader.ResolveInheritance(table))
	return table
}

func def(name string, fields definition.Fields) *definition.Definition {
	return definition.New(name, "test", fields)
}

func newRegistry(modules ...registry.Module) *registry.Registry {
	reg := registry.New()
	reg.Install(modules...)
	return reg
}

func TestRun_ExecutesInOrderAndFiltersArgs(t *testing.T) {
	rec := testutil.NewRecordingModule("lr", "seed")
	table := newTable(t,
		def("first", definition.Fields{"executor": "record", "lr": 0.1, "unused": true}),
		def("second", definition.Fields{"executor": "record", "lr": 0.2, "seed": int64(7)}),
	)
	out := &bytes.Buffer{}
	root := filepath.Join(t.TempDir(), "results")

	report, err := engine.New(table, newRegistry(rec), engine.WithOutput(out)).Run(context.Background(), root)
	require.NoError(t, err)
	require.NoError(t, report.Err())

	calls := rec.CallsTo("record")
	require.Len(t, calls, 2)
	assert.Equal(t, "first", calls[0].Experiment)
	assert.Equal(t, registry.Args{"lr": 0.1, "seed": registry.Absent}, calls[0].Args)
	assert.Equal(t, "second", calls[1].Experiment)
	assert.Equal(t, registry.Args{"lr": 0.2, "seed": int64(7)}, calls[1].Args)

	assert.DirExists(t, filepath.Join(root, "first"))
	assert.DirExists(t, filepath.Join(root, "second"))
	assert.Equal(t, 2, strings.Count(out.String(), "─\n"), "one separator per experiment")
	assert.Equal(t, 2, report.Count(engine.StatusSucceeded))
}

func TestRun_ChildOverridesInheritedArg(t *testing.T) {
	rec := testutil.NewRecordingModule("x")
	table := newTable(t,
		def("base", definition.Fields{"executor": "record", "x": int64(1)}),
		def("child", definition.Fields{"extends": "base", "x": int64(2)}),
	)
	root := t.TempDir()

	report, err := engine.New(table, newRegistry(rec), engine.WithOutput(&bytes.Buffer{})).Run(context.Background(), root)
	require.NoError(t, err)
	require.NoError(t, report.Err())

	calls := rec.CallsTo("record")
	require.Len(t, calls, 2)
	assert.Equal(t, "base", calls[0].Experiment)
	assert.Equal(t, registry.Args{"x": int64(1)}, calls[0].Args)
	assert.Equal(t, "child", calls[1].Experiment)
	assert.Equal(t, registry.Args{"x": int64(2)}, calls[1].Args)

	assert.DirExists(t, filepath.Join(root, "base"))
	assert.DirExists(t, filepath.Join(root, "child"))
}

func TestRun_AbstractIsSkipped(t *testing.T) {
	rec := testutil.NewRecordingModule("x")
	table := newTable(t,
		def("base", definition.Fields{"abstract": true, "executor": "record", "x": int64(1)}),
		def("child", definition.Fields{"extends": "base", "x": int64(2)}),
	)
	root := t.TempDir()

	report, err := engine.New(table, newRegistry(rec), engine.WithOutput(&bytes.Buffer{})).Run(context.Background(), root)
	require.NoError(t, err)

	calls := rec.CallsTo("record")
	require.Len(t, calls, 1)
	assert.Equal(t, "child", calls[0].Experiment)

	base, _ := report.Outcome("base")
	assert.Equal(t, engine.StatusSkipped, base.Status)
	assert.Equal(t, engine.ReasonAbstract, base.Reason)
	assert.NoDirExists(t, filepath.Join(root, "base"))
}

func TestRun_ModeNewSkipsExistingResults(t *testing.T) {
	rec := testutil.NewRecordingModule()
	table := newTable(t,
		def("done", definition.Fields{"executor": "record"}),
		def("todo", definition.Fields{"executor": "record"}),
	)
	root := t.TempDir()
	marker := filepath.Join(root, "done", "keep.txt")
	require.NoError(t, os.MkdirAll(filepath.Dir(marker), 0o755))
	require.NoError(t, os.WriteFile(marker, []byte("old"), 0o644))

	report, err := engine.New(table, newRegistry(rec), engine.WithOutput(&bytes.Buffer{})).Run(context.Background(), root)
	require.NoError(t, err)

	calls := rec.CallsTo("record")
	require.Len(t, calls, 1)
	assert.Equal(t, "todo", calls[0].Experiment)
	assert.FileExists(t, marker, "existing results are untouched")

	done, _ := report.Outcome("done")
	assert.Equal(t, engine.StatusSkipped, done.Status)
	assert.Equal(t, engine.ReasonExists, done.Reason)
}

func TestRun_ModeAllOverwrites(t *testing.T) {
	rec := testutil.NewRecordingModule()
	table := newTable(t, def("done", definition.Fields{"executor": "record"}))
	root := t.TempDir()
	marker := filepath.Join(root, "done", "keep.txt")
	require.NoError(t, os.MkdirAll(filepath.Dir(marker), 0o755))
	require.NoError(t, os.WriteFile(marker, []byte("old"), 0o644))

	report, err := engine.New(table, newRegistry(rec),
		engine.WithMode(engine.ModeAll),
		engine.WithOutput(&bytes.Buffer{}),
	).Run(context.Background(), root)
	require.NoError(t, err)

	require.Len(t, rec.CallsTo("record"), 1)
	assert.NoFileExists(t, marker, "the directory is recreated empty")
	assert.DirExists(t, filepath.Join(root, "done"))

	o, _ := report.Outcome("done")
	assert.Equal(t, engine.StatusSucceeded, o.Status)
	assert.True(t, o.Overwrote)
}

func TestRun_ModeOnly(t *testing.T) {
	rec := testutil.NewRecordingModule()
	table := newTable(t,
		def("a", definition.Fields{"executor": "record"}),
		def("b", definition.Fields{"executor": "record"}),
	)

	report, err := engine.New(table, newRegistry(rec),
		engine.WithMode(engine.ModeOnly("b", "missing")),
		engine.WithOutput(&bytes.Buffer{}),
	).Run(context.Background(), t.TempDir())
	require.NoError(t, err)

	calls := rec.CallsTo("record")
	require.Len(t, calls, 1)
	assert.Equal(t, "b", calls[0].Experiment)

	a, _ := report.Outcome("a")
	assert.Equal(t, engine.ReasonSelection, a.Reason)
	_, ok := report.Outcome("missing")
	assert.False(t, ok)
}

func TestRun_FailuresAreIsolated(t *testing.T) {
	errBoom := errors.New("boom")
	rec := testutil.NewRecordingModule()
	failing := &testutil.SimpleModule{
		Executors: map[string]*registry.Executor{
			"fails": {Fn: func(context.Context, *workspace.Workspace, registry.Args) (any, error) {
				return nil, errBoom
			}},
			"panics": {Fn: func(context.Context, *workspace.Workspace, registry.Args) (any, error) {
				panic("kaboom")
			}},
		},
	}
	table := newTable(t,
		def("bad", definition.Fields{"executor": "fails"}),
		def("worse", definition.Fields{"executor": "panics"}),
		def("good", definition.Fields{"executor": "record"}),
	)

	report, err := engine.New(table, newRegistry(rec, failing), engine.WithOutput(&bytes.Buffer{})).Run(context.Background(), t.TempDir())
	require.NoError(t, err)

	require.Len(t, rec.CallsTo("record"), 1, "later experiments still run")
	assert.Equal(t, 2, report.Count(engine.StatusFailed))

	bad, _ := report.Outcome("bad")
	assert.True(t, errors.Is(bad.Err, errBoom))
	require.NotNil(t, bad.Failure)
	assert.NotEmpty(t, bad.Failure.Stack)
	encoded, err := json.Marshal(bad)
	require.NoError(t, err)
	assert.Contains(t, string(encoded), `"failure":{"type":"*errors.errorString","message":`)

	worse, _ := report.Outcome("worse")
	var pe *engine.PanicError
	require.True(t, errors.As(worse.Err, &pe))
	assert.Equal(t, "kaboom", pe.Value)

	joined := report.Err()
	require.Error(t, joined)
	assert.Contains(t, joined.Error(), "experiment 'bad'")
	assert.Contains(t, joined.Error(), "experiment 'worse'")
}

func TestRun_EvaluatorDispatch(t *testing.T) {
	rec := testutil.NewRecordingModule("x")
	table := newTable(t, def("e", definition.Fields{
		"executor":   "record",
		"evaluators": []any{"record_eval", "record_eval_args"},
		"x":          int64(1),
		"y":          "not a param",
	}))

	_, err := engine.New(table, newRegistry(rec), engine.WithOutput(&bytes.Buffer{})).Run(context.Background(), t.TempDir())
	require.NoError(t, err)

	plain := rec.CallsTo("record_eval")
	require.Len(t, plain, 1)
	assert.Nil(t, plain[0].Args)
	assert.Equal(t, map[string]any{"x": int64(1)}, plain[0].Result)

	withArgs := rec.CallsTo("record_eval_args")
	require.Len(t, withArgs, 1)
	assert.Equal(t, registry.Args{"x": int64(1), "y": "not a param"}, withArgs[0].Args,
		"evaluators receive the unfiltered arguments")
}

func TestRun_EvaluatorFailureStopsLaterEvaluators(t *testing.T) {
	rec := testutil.NewRecordingModule()
	failing := &testutil.SimpleModule{
		Evaluators: map[string]*registry.Evaluator{
			"broken": {Fn: func(context.Context, *workspace.Workspace, any, registry.Args) error {
				return errors.New("cannot evaluate")
			}},
		},
	}
	table := newTable(t, def("e", definition.Fields{
		"executor":   "record",
		"evaluators": []any{"broken", "record_eval"},
	}))

	report, err := engine.New(table, newRegistry(rec, failing), engine.WithOutput(&bytes.Buffer{})).Run(context.Background(), t.TempDir())
	require.NoError(t, err)

	assert.Empty(t, rec.CallsTo("record_eval"))
	o, _ := report.Outcome("e")
	assert.Equal(t, engine.StatusFailed, o.Status)
	assert.Contains(t, o.Err.Error(), "evaluator 'broken'")
}

func TestRun_ChdirIsRestored(t *testing.T) {
	before, err := os.Getwd()
	require.NoError(t, err)

	rec := testutil.NewRecordingModule()
	failing := &testutil.SimpleModule{
		Executors: map[string]*registry.Executor{
			"panics": {Fn: func(context.Context, *workspace.Workspace, registry.Args) (any, error) {
				panic("kaboom")
			}},
		},
	}
	table := newTable(t,
		def("ok", definition.Fields{"executor": "record"}),
		def("bad", definition.Fields{"executor": "panics"}),
	)
	root := t.TempDir()

	_, err = engine.New(table, newRegistry(rec, failing),
		engine.WithChdir(true),
		engine.WithOutput(&bytes.Buffer{}),
	).Run(context.Background(), root)
	require.NoError(t, err)

	calls := rec.CallsTo("record")
	require.Len(t, calls, 1)
	want, err := filepath.EvalSymlinks(filepath.Join(root, "ok"))
	require.NoError(t, err)
	got, err := filepath.EvalSymlinks(calls[0].Cwd)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	after, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, before, after, "working directory is restored even after a panic")
}

func TestRun_WorkspaceReleasedAfterExperiment(t *testing.T) {
	var captured *workspace.Workspace
	mod := &testutil.SimpleModule{
		Executors: map[string]*registry.Executor{
			"capture": {Fn: func(_ context.Context, ws *workspace.Workspace, _ registry.Args) (any, error) {
				captured = ws
				assert.False(t, ws.Released())
				return nil, ws.WriteFile("out.txt", []byte("ok"))
			}},
		},
	}
	table := newTable(t, def("w", definition.Fields{"executor": "capture"}))
	root := t.TempDir()

	_, err := engine.New(table, newRegistry(mod), engine.WithOutput(&bytes.Buffer{})).Run(context.Background(), root)
	require.NoError(t, err)

	require.NotNil(t, captured)
	assert.True(t, captured.Released())
	assert.FileExists(t, filepath.Join(root, "w", "out.txt"))
}

func TestRun_CancelledContextSkipsRemaining(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mod := &testutil.SimpleModule{
		Executors: map[string]*registry.Executor{
			"cancel": {Fn: func(context.Context, *workspace.Workspace, registry.Args) (any, error) {
				cancel()
				return nil, nil
			}},
		},
	}
	table := newTable(t,
		def("first", definition.Fields{"executor": "cancel"}),
		def("second", definition.Fields{"executor": "cancel"}),
	)

	report, err := engine.New(table, newRegistry(mod), engine.WithOutput(&bytes.Buffer{})).Run(ctx, t.TempDir())
	require.NoError(t, err)

	first, _ := report.Outcome("first")
	assert.Equal(t, engine.StatusSucceeded, first.Status)
	second, _ := report.Outcome("second")
	assert.Equal(t, engine.StatusSkipped, second.Status)
	assert.Equal(t, engine.ReasonCancelled, second.Reason)
	assert.True(t, report.Done())
}

func TestRun_ResultsRootCannotBeCreated(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	table := newTable(t)
	_, err := engine.New(table, registry.New(), engine.WithOutput(&bytes.Buffer{})).Run(context.Background(), filepath.Join(file, "results"))
	require.Error(t, err)
}

func TestReport_Snapshot(t *testing.T) {
	rec := testutil.NewRecordingModule()
	table := newTable(t,
		def("a", definition.Fields{"executor": "record"}),
		def("b", definition.Fields{"executor": "record", "abstract": true}),
	)
	eng := engine.New(table, newRegistry(rec), engine.WithRunID("run-1"), engine.WithOutput(&bytes.Buffer{}))
	assert.Equal(t, "run-1", eng.RunID())

	before := eng.Report().Snapshot()
	assert.Equal(t, 2, before.Counts["pending"])
	assert.Nil(t, before.Finished)

	_, err := eng.Run(context.Background(), t.TempDir())
	require.NoError(t, err)

	snap := eng.Report().Snapshot()
	assert.Equal(t, "run-1", snap.RunID)
	assert.Equal(t, map[string]int{"succeeded": 1, "skipped": 1}, snap.Counts)
	require.NotNil(t, snap.Finished)
	require.Len(t, snap.Outcomes, 2)
	assert.Equal(t, "a", snap.Outcomes[0].Name)
}

func TestRun_NamesOutsideResultsRootFail(t *testing.T) {
	parent := t.TempDir()
	root := filepath.Join(parent, "results")
	sibling := filepath.Join(parent, "precious.txt")
	kept := filepath.Join(root, "keep", "r.txt")
	require.NoError(t, os.MkdirAll(filepath.Dir(kept), 0o755))
	require.NoError(t, os.WriteFile(sibling, []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(kept, []byte("x"), 0o644))

	// Built without loader.Merge, which would already reject these names.
	table := definition.NewTable()
	for _, name := range []string{"..", ".", "a/b", "keep"} {
		table.Put(def(name, definition.Fields{"executor": "record"}))
	}
	rec := testutil.NewRecordingModule()

	report, err := engine.New(table, newRegistry(rec),
		engine.WithMode(engine.ModeAll),
		engine.WithOutput(&bytes.Buffer{}),
	).Run(context.Background(), root)
	require.NoError(t, err)

	assert.FileExists(t, sibling)
	for _, name := range []string{"..", ".", "a/b"} {
		o, _ := report.Outcome(name)
		assert.Equal(t, engine.StatusFailed, o.Status, name)
		assert.Contains(t, o.Err.Error(), "not a valid directory name", name)
	}
	require.Len(t, rec.CallsTo("record"), 1)
	assert.Equal(t, "keep", rec.CallsTo("record")[0].Experiment)
	assert.NoFileExists(t, kept, "only keep's own directory is overwritten")
	assert.DirExists(t, filepath.Join(root, "keep"))
	assert.NoDirExists(t, filepath.Join(root, "a"))
}

func TestRun_SkipsAndFailuresLoggedAtInfo(t *testing.T) {
	logs := &testutil.SafeBuffer{}
	logger := slog.New(slog.NewTextHandler(logs, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ctx := ctxlog.WithLogger(context.Background(), logger)

	table := definition.NewTable()
	table.Put(def("base_abstract", definition.Fields{"abstract": true, "executor": "record"}))
	table.Put(def("other", definition.Fields{"executor": "record"}))
	table.Put(def("..", definition.Fields{"executor": "record"}))

	_, err := engine.New(table, newRegistry(testutil.NewRecordingModule()),
		engine.WithMode(engine.ModeOnly("other", "..")),
		engine.WithOutput(&bytes.Buffer{}),
	).Run(ctx, filepath.Join(t.TempDir(), "results"))
	require.NoError(t, err)

	out := logs.String()
	assert.Contains(t, out, "experiment=base_abstract reason=abstract")
	assert.Contains(t, out, "experiment=other")
	assert.Contains(t, out, "Experiment failed.")
	assert.Contains(t, out, "error_type=")
	assert.Contains(t, out, "not a valid directory name")

	cancelLogs := &testutil.SafeBuffer{}
	cancelled, cancel := context.WithCancel(ctxlog.WithLogger(context.Background(),
		slog.New(slog.NewTextHandler(cancelLogs, &slog.HandlerOptions{Level: slog.LevelInfo}))))
	cancel()
	only := definition.NewTable()
	only.Put(def("late", definition.Fields{"executor": "record"}))
	_, err = engine.New(only, newRegistry(testutil.NewRecordingModule()),
		engine.WithMode(engine.ModeOnly("late")),
		engine.WithOutput(&bytes.Buffer{}),
	).Run(cancelled, t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, cancelLogs.String(), "experiment=late reason=cancelled")

	selLogs := &testutil.SafeBuffer{}
	selCtx := ctxlog.WithLogger(context.Background(), slog.New(slog.NewTextHandler(selLogs, &slog.HandlerOptions{Level: slog.LevelInfo})))
	_, err = engine.New(table, newRegistry(testutil.NewRecordingModule()),
		engine.WithMode(engine.ModeOnly("base_abstract")),
		engine.WithOutput(&bytes.Buffer{}),
	).Run(selCtx, t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, selLogs.String(), `experiment=other reason="not selected"`)
}
