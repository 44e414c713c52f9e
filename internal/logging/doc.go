// Package logging assembles the slog loggers used by catalogscan.
//
// It owns the console and JSON handlers, level parsing, and output routing
// (stdout plus an optional log file), and exposes typed attribute helpers and
// context-aware constructors so pipeline code tags every line with the run id,
// the work item, and its state. A no-op logger is provided for tests and for
// wiring code that must not fail.
package logging
