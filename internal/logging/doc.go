// Package logging assembles structured slog loggers and formatting helpers
// used across sessionscribe components.
//
// It owns the console/JSON handlers, centralizes level and output plumbing,
// and provides a no-op logger for tests and wiring code that cannot fail.
//
// Prefer these constructors over hand-rolled slog setup to ensure new
// components emit data with the same shape as the rest of the system.
package logging
