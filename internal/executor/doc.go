// Package executor runs homogeneous work items under a hard concurrency
// ceiling with per-item timeout and bounded retry.
//
// Submission order is FIFO; results are index-aligned with the input
// regardless of completion order. Item failures are terminal for that item
// only and never cancel siblings. Cancelling the run context stops the
// submission of new items while letting in-flight operations finish or time
// out on their own.
package executor
