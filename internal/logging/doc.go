// Package logging assembles structured slog loggers and formatting helpers used
// across shotscribe.
//
// It owns the configurable console/JSON handlers and exposes context-aware
// helpers so stage code can tag log lines with run IDs, cache keys and stage
// names. Console output goes to stderr; stdout is reserved for command
// results. The package also provides a no-op logger for tests.
package logging
