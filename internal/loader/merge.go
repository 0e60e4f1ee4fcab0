package loader

import (
	"fmt"

	"github.com/specialistvlad/expgrid/internal/definition"
)

// Merge concatenates per-source definitions into one table. A name seen twice,
// whether in two sources or twice in one, fails with a DuplicateNameError.
// Names must be usable as a single directory under the results root.
func Merge(perSource ...[]*definition.Definition) (*definition.Table, error) {
	table := definition.NewTable()
	seen := make(map[string]string)

	for _, defs := range perSource {
		for _, def := range defs {
			if def.Name == "" {
				return nil, &definition.ConfigError{Path: def.Source, Reason: "experiment with an empty name"}
			}
			if !definition.ValidName(def.Name) {
				return nil, &definition.ConfigError{
					Path:   def.Source,
					Reason: fmt.Sprintf("experiment name '%s' is not a valid directory name", def.Name),
				}
			}
			if first, ok := seen[def.Name]; ok {
				return nil, &definition.DuplicateNameError{Name: def.Name, First: first, Second: def.Source}
			}
			seen[def.Name] = def.Source
			table.Put(def)
		}
	}
	return table, nil
}
