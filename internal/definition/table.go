// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines the Table, the ordered name -> Definition mapping the
// loader produces and the engine iterates.
package definition

// Table is an insertion-ordered collection of definitions keyed by name.
type Table struct {
	order []string
	defs  map[string]*Definition
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{
		defs: make(map[string]*Definition),
	}
}

// Put stores a definition. Replacing an existing name keeps its original
// position (last write wins for the value, first write wins for the order).
func (t *Table) Put(def *Definition) {
	if _, exists := t.defs[def.Name]; !exists {
		t.order = append(t.order, def.Name)
	}
	t.defs[def.Name] = def
}

// Get returns the definition with the given name.
func (t *Table) Get(name string) (*Definition, bool) {
	def, ok := t.defs[name]
	return def, ok
}

// Names returns the experiment names in table order.
func (t *Table) Names() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// All returns the definitions in table order.
func (t *Table) All() []*Definition {
	out := make([]*Definition, 0, len(t.order))
	for _, name := range t.order {
		out = append(out, t.defs[name])
	}
	return out
}

// Len returns the number of definitions.
func (t *Table) Len() int {
	return len(t.order)
}
