// Package services defines shared utilities consumed by the pipeline
// orchestrator, stage logic, and external collaborators.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, stage names, and item identifiers
//     for logging and tracing.
//   - Structured error markers plus the Wrap helper that translate failures
//     into consistent run outcomes (item-level vs run-fatal).
//
// Use these helpers when wiring new stage logic so operational behaviour (error
// handling, observability, retries) stays uniform across the pipeline.
package services
