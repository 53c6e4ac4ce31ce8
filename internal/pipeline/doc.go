// Package pipeline drives one literature acquisition run end-to-end.
//
// The Orchestrator sequences the pipeline stages through the stage state
// machine, fans stage work out through the bounded executor, scores stage
// output with the quality engine, and accumulates the run's stats. Stages of
// one run execute strictly sequentially; item-level failures are recorded and
// never abort the run. Only configuration errors and an unusable search
// provider are run-fatal, and the fatal path still yields a partial report.
//
// Orchestrators are per-run: construct one per Execute call chain, never
// share them. Independent runs may execute concurrently because the only
// shared pieces (config, quality engine) are read-only or stateless.
package pipeline
