// Package app contains the core application logic. It wires configuration,
// logging, the handler registry, the experiment loader and the engine into a
// single run, decoupled from any specific entrypoint like a CLI.
package app
