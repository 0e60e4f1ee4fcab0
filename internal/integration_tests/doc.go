// Package integration_tests holds end-to-end tests that run the full
// application over experiment files written to a temporary directory. Each
// sub-directory groups one area of behavior.
package integration_tests
