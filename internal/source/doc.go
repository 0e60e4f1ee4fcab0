// Package source implements the definition source contract: anything that can
// yield an ordered "experiments" mapping of experiment name to raw fields.
//
// File-backed sources decode HCL, YAML and TOML files. Providers let a host
// application hand already-materialized definitions to the loader at startup,
// so the loader never needs to execute code from disk.
package source
