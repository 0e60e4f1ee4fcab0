package testutil

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/specialistvlad/expgrid/internal/app"
	"github.com/specialistvlad/expgrid/internal/engine"
	"github.com/specialistvlad/expgrid/internal/registry"
	"github.com/stretchr/testify/require"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// HarnessResult holds the outcomes of an integration test run.
type HarnessResult struct {
	LogOutput   string
	Err         error
	Report      *engine.Report
	App         *app.App
	ResultsPath string
}

// HarnessOptions tweak a harness run.
type HarnessOptions struct {
	// Run is the run mode, "new" when empty.
	Run   string
	Chdir bool
	// ResultsPath reuses an existing results directory, e.g. from an earlier
	// run. A fresh one is created when empty.
	ResultsPath string
}

// RunExperiments writes files (relative path to content) into a temporary
// experiments directory and runs the full application over it with the
// given modules.
func RunExperiments(t *testing.T, files map[string]string, modules ...registry.Module) *HarnessResult {
	t.Helper()
	return RunExperimentsWithOptions(context.Background(), t, files, HarnessOptions{}, modules...)
}

// RunExperimentsWithOptions is RunExperiments with a caller-provided context
// and options.
func RunExperimentsWithOptions(ctx context.Context, t *testing.T, files map[string]string, opts HarnessOptions, modules ...registry.Module) *HarnessResult {
	t.Helper()

	tmpDir := t.TempDir()
	experimentsDir := filepath.Join(tmpDir, "experiments")
	require.NoError(t, os.Mkdir(experimentsDir, 0o755))
	for name, content := range files {
		path := filepath.Join(experimentsDir, name)
		require.NoError(t, os.WriteFile(path, []byte(Unindent(content)), 0o644))
	}

	resultsPath := opts.ResultsPath
	if resultsPath == "" {
		resultsPath = filepath.Join(tmpDir, "results")
	}
	run := opts.Run
	if run == "" {
		run = "new"
	}

	cfg, err := app.NewConfig(app.Config{
		ExperimentsPath: experimentsDir,
		ResultsPath:     resultsPath,
		Run:             run,
		Chdir:           opts.Chdir,
		LogLevel:        "debug",
		LogFormat:       "text",
	})
	require.NoError(t, err)

	logBuffer := &SafeBuffer{}
	result := &HarnessResult{ResultsPath: resultsPath}

	func() {
		defer func() {
			if r := recover(); r != nil {
				result.Err = fmt.Errorf("application startup panicked | %v", r)
			}
		}()
		result.App = app.NewApp(logBuffer, cfg, modules...)
		result.Report, result.Err = result.App.Run(ctx)
	}()

	if os.Getenv("EXPGRID_TEST_LOGS") == "true" {
		t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logBuffer.String())
	}
	result.LogOutput = logBuffer.String()
	return result
}
