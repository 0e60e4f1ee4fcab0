package testutil

import "github.com/specialistvlad/expgrid/internal/registry"

// SimpleModule is a test helper for easily creating a mock module that
// registers any number of executors and evaluators.
type SimpleModule struct {
	Executors  map[string]*registry.Executor
	Evaluators map[string]*registry.Evaluator
}

// Register implements the registry.Module interface.
func (m *SimpleModule) Register(r *registry.Registry) {
	for name, ex := range m.Executors {
		r.RegisterExecutor(name, ex)
	}
	for name, ev := range m.Evaluators {
		r.RegisterEvaluator(name, ev)
	}
}
