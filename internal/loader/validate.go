package loader

import (
	"errors"

	"github.com/specialistvlad/expgrid/internal/definition"
)

// Validate checks every resolved definition: reserved fields must be well
// typed, and every non-abstract definition must carry the required fields.
// When handlers is non-nil, executor and evaluator names of non-abstract
// definitions must be registered. All problems are reported together.
func Validate(table *definition.Table, handlers Handlers) error {
	var errs []error

	for _, def := range table.All() {
		abstract, err := def.IsAbstract()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		executor, hasExecutor, err := def.Executor()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		evaluators, err := def.Evaluators()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if abstract {
			continue
		}

		missing := false
		for _, field := range definition.RequiredFields {
			if !def.Has(field) {
				errs = append(errs, &definition.MissingFieldError{Field: field, Experiment: def.Name})
				missing = true
			}
		}
		if missing || handlers == nil {
			continue
		}

		if hasExecutor && !handlers.HasExecutor(executor) {
			errs = append(errs, &definition.UnknownHandlerError{Experiment: def.Name, Kind: "executor", Name: executor})
		}
		for _, name := range evaluators {
			if !handlers.HasEvaluator(name) {
				errs = append(errs, &definition.UnknownHandlerError{Experiment: def.Name, Kind: "evaluator", Name: name})
			}
		}
	}

	return errors.Join(errs...)
}
