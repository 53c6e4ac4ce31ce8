// Package predict produces time, quality, and risk forecasts for a planned
// pipeline run from closed-form weighted arithmetic over the task parameters.
//
// Forecasts inform planning only; the orchestrator never gates execution on
// them. Identical parameters always produce identical predictions, and
// confidence intervals are fixed per-stage multipliers of the point estimate
// rather than empirical variance.
package predict
