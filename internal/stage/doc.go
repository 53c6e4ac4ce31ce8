// Package stage defines the ordered pipeline stages and the state machine
// that guards transitions between them.
//
// Stages advance monotonically within a run. Skipping forward is legal only
// across stages a feature toggle has disabled; moving backward never is. The
// Machine emits a progress event for every accepted transition so callers can
// report step names and percentages without depending on the stage enum.
//
// A run-level error status is deliberately not a stage: runs abort into it
// from any stage, and the Machine plays no part in that bookkeeping.
package stage
