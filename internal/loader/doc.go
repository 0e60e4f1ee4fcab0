// Package loader builds the resolved experiment table: it collects the
// definitions of every source, rejects duplicate names, resolves the `extends`
// hierarchy and validates the result. Every failure here is fatal and happens
// before any experiment executes.
package loader
