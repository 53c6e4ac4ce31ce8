package pipeline

import (
	"litpipe/internal/literature"
	"litpipe/internal/quality"
	"litpipe/internal/stage"
)

// RunStatus is the run-level outcome, distinct from the stage enum.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusError     RunStatus = "error"
)

// Result is the full report for one run. On a fatal error the report is
// partial: Status is RunStatusError, Err carries the cause, and Stats holds
// whatever accumulated before the halt.
type Result struct {
	RunID       string
	Status      RunStatus
	FailedStage stage.Stage
	Items       []*literature.Item
	Stats       literature.Stats
	Assessments map[stage.Stage][]*quality.Assessment
	Final       *quality.Assessment
	Err         error
}

// Survivors returns the items that passed filtering and carry no terminal error.
func (r *Result) Survivors() []*literature.Item {
	out := make([]*literature.Item, 0, len(r.Items))
	for _, item := range r.Items {
		if item.Passed(0) && item.ErrorMessage == "" {
			out = append(out, item)
		}
	}
	return out
}

func (r *Result) appendAssessment(s stage.Stage, assessment *quality.Assessment) {
	if r.Assessments == nil {
		r.Assessments = make(map[stage.Stage][]*quality.Assessment)
	}
	r.Assessments[s] = append(r.Assessments[s], assessment)
}
