package registry

import (
	"sort"
)

// Module is the interface that every bundle of executors and evaluators
// implements to be registered.
type Module interface {
	Register(r *Registry)
}

// Registry holds all the registered executors and evaluators for a single
// application instance.
type Registry struct {
	executors  map[string]*Executor
	evaluators map[string]*Evaluator
}

// New creates and initializes a new Registry instance.
func New() *Registry {
	return &Registry{
		executors:  make(map[string]*Executor),
		evaluators: make(map[string]*Evaluator),
	}
}

// Install registers every module into the registry.
func (r *Registry) Install(modules ...Module) {
	for _, mod := range modules {
		mod.Register(r)
	}
}

// Executor returns the executor registered under name.
func (r *Registry) Executor(name string) (*Executor, bool) {
	e, ok := r.executors[name]
	return e, ok
}

// Evaluator returns the evaluator registered under name.
func (r *Registry) Evaluator(name string) (*Evaluator, bool) {
	e, ok := r.evaluators[name]
	return e, ok
}

// HasExecutor reports whether an executor is registered under name.
func (r *Registry) HasExecutor(name string) bool {
	_, ok := r.executors[name]
	return ok
}

// HasEvaluator reports whether an evaluator is registered under name.
func (r *Registry) HasEvaluator(name string) bool {
	_, ok := r.evaluators[name]
	return ok
}

// ExecutorNames returns the registered executor names, sorted.
func (r *Registry) ExecutorNames() []string {
	return sortedKeys(r.executors)
}

// EvaluatorNames returns the registered evaluator names, sorted.
func (r *Registry) EvaluatorNames() []string {
	return sortedKeys(r.evaluators)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
