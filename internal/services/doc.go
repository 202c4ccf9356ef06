// Package services defines shared utilities consumed by the pipeline stages
// and the remote AI integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, cache keys, and stage names for
//     logging and tracing.
//   - Structured error markers plus the Wrap helper so callers can classify a
//     failure with errors.Is while the message still names the failing stage.
//   - RemoteError, the common shape for non-success answers from AI endpoints.
//
// Use these helpers when wiring new stage logic so error handling and
// observability stay uniform across the pipeline.
package services
