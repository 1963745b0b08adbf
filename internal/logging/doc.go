// Package logging assembles the slog loggers shared by the prism commands.
//
// It owns the console and JSON handlers, level and output plumbing, and the
// context helpers that tag log lines with asset IDs, pipeline stages, source
// paths, and batch correlation IDs. NewNop gives tests and optional wiring a
// logger that never fails.
package logging
