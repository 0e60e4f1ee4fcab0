// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines the Definition struct and the reserved field names.
package definition

import (
	"fmt"
	"maps"
	"path/filepath"
	"slices"
	"sort"
	"strings"
)

// Reserved field names with engine-defined meaning.
const (
	FieldExtends    = "extends"
	FieldExecutor   = "executor"
	FieldEvaluators = "evaluators"
	FieldAbstract   = "abstract"
)

// ReservedFields are excluded from the parameters forwarded to an executor.
var ReservedFields = []string{FieldExtends, FieldExecutor, FieldEvaluators, FieldAbstract}

// NonInheritableFields are never copied from a parent into a child.
var NonInheritableFields = []string{FieldAbstract}

// RequiredFields must be present on every non-abstract definition.
var RequiredFields = []string{FieldExecutor}

// ValidName reports whether name can be used as an experiment's results
// directory: a single local path element that is neither "." nor "..".
func ValidName(name string) bool {
	return name != "." && filepath.IsLocal(name) && !strings.ContainsAny(name, `/\`)
}

// IsReserved reports whether name is a reserved field name.
func IsReserved(name string) bool {
	return slices.Contains(ReservedFields, name)
}

// IsInheritable reports whether a field may be copied from parent to child.
func IsInheritable(name string) bool {
	return !slices.Contains(NonInheritableFields, name)
}

// Fields is a mapping from field name to a native Go value.
type Fields map[string]any

// Clone returns a shallow copy of the fields.
func (f Fields) Clone() Fields {
	if f == nil {
		return Fields{}
	}
	return maps.Clone(f)
}

// Keys returns the field names in lexical order.
func (f Fields) Keys() []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Definition is a single named experiment definition.
type Definition struct {
	Name string
	// Source names where the definition came from, usually a file path.
	Source string
	Fields Fields

	// own holds the field names present in the raw definition, before any
	// inherited field was merged in.
	own map[string]struct{}
}

// New creates a Definition from its raw fields. The set of explicitly defined
// fields is captured here and survives inheritance resolution.
func New(name, source string, fields Fields) *Definition {
	fields = fields.Clone()
	own := make(map[string]struct{}, len(fields))
	for k := range fields {
		own[k] = struct{}{}
	}
	return &Definition{
		Name:   name,
		Source: source,
		Fields: fields,
		own:    own,
	}
}

// Has reports whether the definition currently carries the field.
func (d *Definition) Has(field string) bool {
	_, ok := d.Fields[field]
	return ok
}

// Get returns the value of a field.
func (d *Definition) Get(field string) (any, bool) {
	v, ok := d.Fields[field]
	return v, ok
}

// Owns reports whether the field was set in the raw definition itself.
func (d *Definition) Owns(field string) bool {
	if d.own == nil {
		return d.Has(field)
	}
	_, ok := d.own[field]
	return ok
}

// Extends returns the parent names, in the order they were named. A single
// string and a list of strings are both accepted.
func (d *Definition) Extends() ([]string, error) {
	v, ok := d.Fields[FieldExtends]
	if !ok || v == nil {
		return nil, nil
	}
	names, err := stringList(v)
	if err != nil {
		return nil, &FieldTypeError{Experiment: d.Name, Field: FieldExtends, Want: "string or list of strings", Got: v}
	}
	return names, nil
}

// Executor returns the registered executor name. The second return value is
// false when the field is absent.
func (d *Definition) Executor() (string, bool, error) {
	v, ok := d.Fields[FieldExecutor]
	if !ok {
		return "", false, nil
	}
	s, isStr := v.(string)
	if !isStr || s == "" {
		return "", true, &FieldTypeError{Experiment: d.Name, Field: FieldExecutor, Want: "non-empty string", Got: v}
	}
	return s, true, nil
}

// Evaluators returns the evaluator names in declared order.
func (d *Definition) Evaluators() ([]string, error) {
	v, ok := d.Fields[FieldEvaluators]
	if !ok || v == nil {
		return nil, nil
	}
	names, err := stringList(v)
	if err != nil {
		return nil, &FieldTypeError{Experiment: d.Name, Field: FieldEvaluators, Want: "list of strings", Got: v}
	}
	return names, nil
}

// IsAbstract reports whether the definition is abstract. A missing field
// means false.
func (d *Definition) IsAbstract() (bool, error) {
	v, ok := d.Fields[FieldAbstract]
	if !ok || v == nil {
		return false, nil
	}
	b, isBool := v.(bool)
	if !isBool {
		return false, &FieldTypeError{Experiment: d.Name, Field: FieldAbstract, Want: "bool", Got: v}
	}
	return b, nil
}

// Kwargs returns a copy of the definition's fields with reserved words
// removed: the user parameters forwarded to an executor. Nested lists and
// maps are copied too, so an executor mutating its arguments cannot reach
// back into the table.
func Kwargs(d *Definition) Fields {
	kwargs := make(Fields, len(d.Fields))
	for k, v := range d.Fields {
		if IsReserved(k) {
			continue
		}
		kwargs[k] = copyValue(v)
	}
	return kwargs
}

func copyValue(v any) any {
	switch t := v.(type) {
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = copyValue(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = copyValue(item)
		}
		return out
	default:
		return v
	}
}

// stringList accepts a string, []string or []any holding only strings.
func stringList(v any) ([]string, error) {
	switch t := v.(type) {
	case string:
		return []string{t}, nil
	case []string:
		return slices.Clone(t), nil
	case []any:
		out := make([]string, 0, len(t))
		for i, item := range t {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("element %d is %T, not a string", i, item)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported type %T", v)
	}
}
