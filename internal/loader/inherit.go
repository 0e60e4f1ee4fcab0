package loader

import (
	"slices"

	"github.com/specialistvlad/expgrid/internal/definition"
)

// ResolveInheritance merges every definition's ancestors into it, in place.
//
// Precedence: a field from the child's own raw definition is never
// overwritten. Among parents, a later-named parent overwrites an
// earlier-named one. Fields listed in definition.NonInheritableFields are
// never copied.
//
// Only roots seed the work stack, and a child is pushed once all of its
// parents are finalized, so every parent is fully resolved before any child
// reads it. Definitions still unresolved when the stack drains are on or
// behind a cycle.
func ResolveInheritance(table *definition.Table) error {
	parents := make(map[string][]string)
	children := make(map[string][]string)
	pending := make(map[string]int)

	for _, def := range table.All() {
		names, err := def.Extends()
		if err != nil {
			return err
		}
		for _, p := range names {
			if _, ok := table.Get(p); !ok {
				return &definition.UnknownParentError{Experiment: def.Name, Parent: p}
			}
		}
		parents[def.Name] = names

		unique := uniqueNames(names)
		pending[def.Name] = len(unique)
		for _, p := range unique {
			children[p] = append(children[p], def.Name)
		}
	}

	// Seed in reverse so roots pop in table order.
	var stack []string
	names := table.Names()
	for i := len(names) - 1; i >= 0; i-- {
		if pending[names[i]] == 0 {
			stack = append(stack, names[i])
		}
	}

	resolved := make(map[string]bool, table.Len())
	for len(stack) > 0 {
		curr := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		def, _ := table.Get(curr)
		if len(parents[curr]) > 0 {
			inheritFields(table, def, parents[curr])
		}
		resolved[curr] = true

		for _, child := range children[curr] {
			pending[child]--
			if pending[child] == 0 {
				stack = append(stack, child)
			}
		}
	}

	if len(resolved) == table.Len() {
		return nil
	}
	for _, name := range names {
		if !resolved[name] {
			return &definition.CyclicInheritanceError{Cycle: findCycle(name, parents, resolved)}
		}
	}
	return nil
}

// inheritFields copies the inheritable fields of the named parents into def,
// skipping any field def owns.
func inheritFields(table *definition.Table, def *definition.Definition, parentNames []string) {
	inherited := make(definition.Fields)
	for _, name := range parentNames {
		parent, _ := table.Get(name)
		for k, v := range parent.Fields {
			if !definition.IsInheritable(k) {
				continue
			}
			inherited[k] = v
		}
	}
	for k, v := range inherited {
		if def.Owns(k) {
			continue
		}
		def.Fields[k] = v
	}
}

// findCycle walks unresolved parent links from start until a name repeats.
// Every unresolved definition has at least one unresolved parent, so the walk
// always closes a loop.
func findCycle(start string, parents map[string][]string, resolved map[string]bool) []string {
	pos := make(map[string]int)
	var path []string
	curr := start
	for {
		if i, seen := pos[curr]; seen {
			return append(slices.Clone(path[i:]), curr)
		}
		pos[curr] = len(path)
		path = append(path, curr)

		next := ""
		for _, p := range parents[curr] {
			if !resolved[p] {
				next = p
				break
			}
		}
		if next == "" {
			return path
		}
		curr = next
	}
}

func uniqueNames(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
