// Package workspace provides the scoped working directory an experiment runs
// in. Executors and evaluators receive a *Workspace handle and resolve their
// relative file I/O through it instead of relying on the process-wide
// working directory.
package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ErrReleased is returned by a Workspace used after its scope ended.
var ErrReleased = errors.New("workspace: used after release")

// Workspace is a handle bound to one experiment directory for the duration of
// that experiment's executor and evaluator calls.
type Workspace struct {
	mu       sync.RWMutex
	dir      string
	released bool
}

// Acquire binds a workspace to dir, which must be an existing directory. The
// returned release function unbinds it; it is safe to call more than once.
func Acquire(dir string) (*Workspace, func(), error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("workspace: resolve '%s': %w", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, nil, fmt.Errorf("workspace: %w", err)
	}
	if !info.IsDir() {
		return nil, nil, fmt.Errorf("workspace: '%s' is not a directory", abs)
	}

	ws := &Workspace{dir: abs}
	return ws, ws.release, nil
}

func (w *Workspace) release() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.released = true
}

// Dir returns the absolute directory the workspace is bound to.
func (w *Workspace) Dir() string {
	return w.dir
}

// Released reports whether the workspace's scope has ended.
func (w *Workspace) Released() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.released
}

// Path resolves a relative path inside the workspace. Absolute paths and
// paths escaping the workspace directory are rejected.
func (w *Workspace) Path(elem ...string) (string, error) {
	if w.Released() {
		return "", ErrReleased
	}
	rel := filepath.Join(elem...)
	if filepath.IsAbs(rel) {
		return "", fmt.Errorf("workspace: absolute path '%s' not allowed", rel)
	}
	full := filepath.Join(w.dir, rel)
	check, err := filepath.Rel(w.dir, full)
	if err != nil || check == ".." || strings.HasPrefix(check, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("workspace: path '%s' escapes '%s'", rel, w.dir)
	}
	return full, nil
}

// WriteFile writes data to a file inside the workspace, creating parent
// directories as needed.
func (w *Workspace) WriteFile(name string, data []byte) error {
	path, err := w.Path(name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadFile reads a file inside the workspace.
func (w *Workspace) ReadFile(name string) ([]byte, error) {
	path, err := w.Path(name)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(path)
}

// Create creates or truncates a file inside the workspace.
func (w *Workspace) Create(name string) (*os.File, error) {
	path, err := w.Path(name)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return os.Create(path)
}

// MkdirAll creates a directory tree inside the workspace.
func (w *Workspace) MkdirAll(name string) error {
	path, err := w.Path(name)
	if err != nil {
		return err
	}
	return os.MkdirAll(path, 0o755)
}
