// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines the load-time error taxonomy. Every error here is fatal:
// it aborts loading before any experiment executes.
package definition

import (
	"fmt"
	"strings"
)

// ConfigError reports a bad source argument, such as a path that is not an
// existing directory or a file with an unsupported extension.
type ConfigError struct {
	Path   string
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	msg := fmt.Sprintf("invalid experiments source '%s': %s", e.Path, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigError) Unwrap() error { return e.Err }

// DuplicateNameError reports an experiment name defined more than once across
// the merged sources.
type DuplicateNameError struct {
	Name   string
	First  string
	Second string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("experiment name '%s' is not unique: defined in '%s' and '%s'", e.Name, e.First, e.Second)
}

// MissingFieldError reports a required field absent from a non-abstract
// definition.
type MissingFieldError struct {
	Field      string
	Experiment string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("required field '%s' not found in experiment '%s'", e.Field, e.Experiment)
}

// FieldTypeError reports a reserved field holding a value of the wrong type.
type FieldTypeError struct {
	Experiment string
	Field      string
	Want       string
	Got        any
}

func (e *FieldTypeError) Error() string {
	return fmt.Sprintf("experiment '%s': field '%s' must be a %s, got %T", e.Experiment, e.Field, e.Want, e.Got)
}

// UnknownParentError reports an `extends` entry naming a definition that does
// not exist.
type UnknownParentError struct {
	Experiment string
	Parent     string
}

func (e *UnknownParentError) Error() string {
	return fmt.Sprintf("experiment '%s' extends unknown experiment '%s'", e.Experiment, e.Parent)
}

// CyclicInheritanceError reports a cycle in the `extends` graph. Cycle lists
// the names along the cycle, starting and ending with the same name.
type CyclicInheritanceError struct {
	Cycle []string
}

func (e *CyclicInheritanceError) Error() string {
	return fmt.Sprintf("cyclic inheritance detected: %s", strings.Join(e.Cycle, " -> "))
}

// UnknownHandlerError reports an executor or evaluator name that is not
// registered.
type UnknownHandlerError struct {
	Experiment string
	Kind       string
	Name       string
}

func (e *UnknownHandlerError) Error() string {
	return fmt.Sprintf("experiment '%s': %s '%s' is not registered", e.Experiment, e.Kind, e.Name)
}
