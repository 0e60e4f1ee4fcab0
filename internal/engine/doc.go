// Package engine runs a resolved experiment table.
//
// Experiments run one at a time, in table order. For each one the engine
// decides whether to skip it (abstract, not selected, or results already
// present), prepares its results directory, binds a workspace to it, calls the
// executor with exactly the parameters it declares and then each evaluator in
// turn. A failure, returned or panicked, is recorded against that experiment
// and the run moves on to the next one.
package engine
