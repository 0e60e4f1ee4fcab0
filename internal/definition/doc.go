// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// Package definition provides the in-memory representation of experiment
// definitions and the resolved table the execution engine iterates over.
//
// # Core Concepts
//
//   - Definition: A named, declarative record describing one experiment. Its
//     fields are a flat mapping from field name to value. A handful of field
//     names are reserved (`extends`, `executor`, `evaluators`, `abstract`);
//     everything else is a user parameter forwarded to the executor.
//
//   - Table: The ordered collection of definitions produced by the loader.
//     Iteration order is the order in which sources yielded their experiments,
//     which is also the order the engine runs them in.
//
// Why keep fields as a generic map?
//
// Definitions come from several file formats and from Go providers, and they
// are merged with their ancestors before anything reads them. A flat map keeps
// the merge a plain field-by-field operation regardless of where a value came
// from. Typed accessors on Definition read the reserved fields and report
// malformed values with the experiment and field name attached.
package definition
