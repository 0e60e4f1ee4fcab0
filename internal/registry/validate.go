package registry

import (
	"fmt"
	"strings"

	"github.com/specialistvlad/expgrid/internal/definition"
)

// Validate checks that every registered handler is callable and that executor
// parameter declarations are usable: no duplicates and no reserved field
// names, since reserved fields are never forwarded to an executor.
func (r *Registry) Validate() error {
	var errs []string

	for _, name := range r.ExecutorNames() {
		handler := r.executors[name]
		if handler.Fn == nil {
			errs = append(errs, fmt.Sprintf("executor '%s': no function", name))
		}
		seen := make(map[string]struct{}, len(handler.Params))
		for _, p := range handler.Params {
			if definition.IsReserved(p) {
				errs = append(errs, fmt.Sprintf("executor '%s': parameter '%s' is a reserved field name", name, p))
			}
			if _, dup := seen[p]; dup {
				errs = append(errs, fmt.Sprintf("executor '%s': parameter '%s' declared twice", name, p))
			}
			seen[p] = struct{}{}
		}
	}
	for _, name := range r.EvaluatorNames() {
		if r.evaluators[name].Fn == nil {
			errs = append(errs, fmt.Sprintf("evaluator '%s': no function", name))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("registry validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}
