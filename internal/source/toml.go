package source

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/pelletier/go-toml/v2"
	"github.com/specialistvlad/expgrid/internal/ctxlog"
	"github.com/specialistvlad/expgrid/internal/definition"
)

// TOMLFile reads `[experiments.<name>]` tables from a TOML file. TOML tables
// carry no order, so experiments are yielded in lexical name order.
type TOMLFile struct {
	path string
}

// NewTOMLFile creates a source for the TOML file at path.
func NewTOMLFile(path string) *TOMLFile {
	return &TOMLFile{path: path}
}

// Name implements Source.
func (s *TOMLFile) Name() string { return s.path }

type tomlExperimentsFile struct {
	Experiments map[string]map[string]any `toml:"experiments"`
}

// Experiments implements Source.
func (s *TOMLFile) Experiments(ctx context.Context) ([]*definition.Definition, error) {
	logger := ctxlog.FromContext(ctx).With("source", s.path)
	logger.Debug("Parsing TOML experiments file.")

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read TOML file %s: %w", s.path, err)
	}

	var parsed tomlExperimentsFile
	if err := toml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse TOML file %s: %w", s.path, err)
	}
	if parsed.Experiments == nil {
		return nil, fmt.Errorf("TOML file %s does not define '%s'", s.path, experimentsKey)
	}

	names := make([]string, 0, len(parsed.Experiments))
	for name := range parsed.Experiments {
		names = append(names, name)
	}
	sort.Strings(names)

	defs := make([]*definition.Definition, 0, len(names))
	for _, name := range names {
		defs = append(defs, definition.New(name, s.path, normalizeFields(parsed.Experiments[name])))
	}

	logger.Debug("Parsed TOML experiments file.", "experiments", len(defs))
	return defs, nil
}
