// Package registry provides the central "glue" between experiment definitions
// and compiled Go code.
//
// Definitions name their executor and evaluators as strings. The Registry maps
// those names to Go functions, together with what each function declares: the
// parameter names an executor accepts and whether an evaluator wants the
// original executor arguments. Declarations are captured once, at
// registration time, so the engine never inspects a function while running.
//
// During startup the registry is populated by modules and checked with
// Validate; the loader then rejects definitions naming unregistered handlers.
package registry
