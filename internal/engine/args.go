package engine

import (
	"github.com/specialistvlad/expgrid/internal/definition"
	"github.com/specialistvlad/expgrid/internal/registry"
)

// filterArgs narrows kwargs down to exactly the declared parameters. A
// declared parameter the definition does not set is passed as
// registry.Absent rather than omitted.
func filterArgs(kwargs definition.Fields, params []string) registry.Args {
	args := make(registry.Args, len(params))
	for _, p := range params {
		if v, ok := kwargs[p]; ok {
			args[p] = v
		} else {
			args[p] = registry.Absent
		}
	}
	return args
}
