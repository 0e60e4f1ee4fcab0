package engine

import (
	"fmt"
	"slices"
	"strings"
)

type modeKind int

const (
	modeNew modeKind = iota
	modeAll
	modeOnly
)

// Mode decides which experiments run and whether existing results are
// overwritten. The zero value is ModeNew.
type Mode struct {
	kind  modeKind
	names []string
}

var (
	// ModeNew runs only experiments whose results directory does not exist yet.
	ModeNew = Mode{kind: modeNew}
	// ModeAll runs every experiment, overwriting existing results.
	ModeAll = Mode{kind: modeAll}
)

// ModeOnly runs only the named experiments, overwriting existing results.
func ModeOnly(names ...string) Mode {
	return Mode{kind: modeOnly, names: slices.Clone(names)}
}

// ParseMode parses "new", "all" or a comma-separated list of experiment
// names. An empty string means "new".
func ParseMode(s string) (Mode, error) {
	switch strings.TrimSpace(strings.ToLower(s)) {
	case "", "new":
		return ModeNew, nil
	case "all":
		return ModeAll, nil
	}

	var names []string
	for _, part := range strings.Split(s, ",") {
		if name := strings.TrimSpace(part); name != "" {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return Mode{}, fmt.Errorf("invalid run mode '%s': expected 'new', 'all' or a list of experiment names", s)
	}
	return ModeOnly(names...), nil
}

// Selects reports whether the experiment is a candidate for this run.
func (m Mode) Selects(name string) bool {
	if m.kind != modeOnly {
		return true
	}
	return slices.Contains(m.names, name)
}

// Overwrites reports whether existing results directories are replaced.
func (m Mode) Overwrites() bool {
	return m.kind != modeNew
}

// Names returns the explicitly requested experiment names, if any.
func (m Mode) Names() []string {
	return slices.Clone(m.names)
}

// String implements fmt.Stringer.
func (m Mode) String() string {
	switch m.kind {
	case modeAll:
		return "all"
	case modeOnly:
		return strings.Join(m.names, ",")
	default:
		return "new"
	}
}
