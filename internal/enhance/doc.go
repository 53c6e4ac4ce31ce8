// Package enhance drives the iterative refinement of the experience document.
//
// Each round regenerates the artifact from the previous version plus the
// source batch, reassesses it, and computes the improvement rate over recent
// rounds. The loop recommends stopping once marginal improvement falls under
// the configured rate, but the recommendation is advisory: callers step the
// loop and may run extra rounds past it (the hard round cap excepted).
package enhance
