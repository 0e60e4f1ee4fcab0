// Package command provides the "command" executor, which runs an external
// program inside the experiment's results directory.
package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"time"

	"github.com/specialistvlad/expgrid/internal/ctxlog"
	"github.com/specialistvlad/expgrid/internal/registry"
	"github.com/specialistvlad/expgrid/internal/workspace"
)

const (
	StdoutFile = "stdout.log"
	StderrFile = "stderr.log"

	waitDelay = 2 * time.Second
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the parameters of the command executor.
type Input struct {
	Command string            `exp:"command"`
	Args    []string          `exp:"args"`
	Env     map[string]string `exp:"env"`
	Timeout time.Duration     `exp:"timeout"`
}

// Output is the executor's result.
type Output struct {
	ExitCode int           `yaml:"exit_code" json:"exit_code"`
	Stdout   string        `yaml:"stdout" json:"stdout"`
	Stderr   string        `yaml:"stderr" json:"stderr"`
	Duration time.Duration `yaml:"duration" json:"duration"`
}

// OnRunCommand is the handler for the "command" executor.
func OnRunCommand(ctx context.Context, ws *workspace.Workspace, in *Input) (*Output, error) {
	if in.Command == "" {
		return nil, errors.New("parameter 'command' is required")
	}
	logger := ctxlog.FromContext(ctx).With("command", in.Command)

	if in.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, in.Timeout)
		defer cancel()
	}

	stdoutFile, err := ws.Create(StdoutFile)
	if err != nil {
		return nil, err
	}
	defer stdoutFile.Close()
	stderrFile, err := ws.Create(StderrFile)
	if err != nil {
		return nil, err
	}
	defer stderrFile.Close()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, in.Command, in.Args...)
	cmd.Dir = ws.Dir()
	// Grandchildren may keep the output pipes open after a kill.
	cmd.WaitDelay = waitDelay
	cmd.Stdout = io.MultiWriter(stdoutFile, &stdout)
	cmd.Stderr = io.MultiWriter(stderrFile, &stderr)
	if len(in.Env) > 0 {
		cmd.Env = append(os.Environ(), envList(in.Env)...)
	}

	logger.Info("Running command", "args", in.Args)
	start := time.Now()
	runErr := cmd.Run()
	out := &Output{
		ExitCode: cmd.ProcessState.ExitCode(),
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	var exitErr *exec.ExitError
	switch {
	case runErr == nil:
		logger.Debug("Command finished", "duration", out.Duration)
		return out, nil
	case errors.As(runErr, &exitErr):
		return out, fmt.Errorf("command '%s' exited with code %d", in.Command, out.ExitCode)
	default:
		return out, fmt.Errorf("failed to run command '%s': %w", in.Command, runErr)
	}
}

func envList(env map[string]string) []string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	list := make([]string, 0, len(keys))
	for _, k := range keys {
		list = append(list, k+"="+env[k])
	}
	return list
}

// Register registers the executor with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterExecutor("command", registry.NewExecutor(OnRunCommand))
}
