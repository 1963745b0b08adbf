// Package services defines shared utilities consumed by the pipeline, the
// catalog, and the loader.
//
// Key responsibilities:
//   - Context helpers that stamp asset IDs, stage names, source paths, and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper so every failure can be
//     classified (terminal vs retryable) with errors.Is.
//
// Use these helpers when wiring new pipeline steps so operational behaviour
// (error handling, observability, retries) stays uniform.
package services
