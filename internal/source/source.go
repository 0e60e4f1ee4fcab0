package source

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/specialistvlad/expgrid/internal/definition"
)

// Source yields the experiments mapping of one definition source.
type Source interface {
	// Name identifies the source in logs and error messages.
	Name() string
	// Experiments returns the raw definitions in source order.
	Experiments(ctx context.Context) ([]*definition.Definition, error)
}

// Extensions lists the file extensions ForFile recognises.
var Extensions = []string{".hcl", ".yaml", ".yml", ".toml"}

// ForFile returns the file-backed Source matching the path's extension.
func ForFile(path string) (Source, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".hcl":
		return NewHCLFile(path), nil
	case ".yaml", ".yml":
		return NewYAMLFile(path), nil
	case ".toml":
		return NewTOMLFile(path), nil
	default:
		return nil, &definition.ConfigError{
			Path:   path,
			Reason: "unsupported file extension, expected one of " + strings.Join(Extensions, ", "),
		}
	}
}
