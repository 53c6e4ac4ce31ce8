package stage

import (
	"fmt"

	"litpipe/internal/services"
)

// ProgressEvent describes an accepted transition in caller-facing terms.
type ProgressEvent struct {
	Stage    Stage
	StepName string
	Percent  int
}

// stepNames maps stages to the step keywords surfaced in progress reports.
var stepNames = map[Stage]string{
	Initialization:      "Initializing run",
	Search:              "Searching literature",
	AIFiltering:         "Filtering candidates",
	PDFDownload:         "Downloading PDFs",
	ContentExtraction:   "Extracting content",
	StructureProcessing: "Structuring results",
	DatabaseIngestion:   "Ingesting records",
	Cleanup:             "Cleaning up",
	Completed:           "Completed",
}

var stepPercents = map[Stage]int{
	Initialization:      0,
	Search:              10,
	AIFiltering:         30,
	PDFDownload:         50,
	ContentExtraction:   65,
	StructureProcessing: 80,
	DatabaseIngestion:   90,
	Cleanup:             95,
	Completed:           100,
}

// Progress returns the caller-facing event for a stage.
func Progress(s Stage) ProgressEvent {
	name, ok := stepNames[s]
	if !ok {
		name = Label(s)
	}
	return ProgressEvent{Stage: s, StepName: name, Percent: stepPercents[s]}
}

// Machine tracks the current stage of one run and validates advances.
type Machine struct {
	current Stage
	toggles Toggles
}

// NewMachine starts a state machine at Initialization.
func NewMachine(toggles Toggles) *Machine {
	return &Machine{current: Initialization, toggles: toggles}
}

// Current returns the run's current stage.
func (m *Machine) Current() Stage {
	return m.current
}

// Advance moves the machine to target if the transition is legal and returns
// the progress event for the new stage. The current stage is left untouched on
// rejection.
func (m *Machine) Advance(target Stage) (ProgressEvent, error) {
	if err := m.check(target); err != nil {
		return ProgressEvent{}, err
	}
	m.current = target
	return Progress(target), nil
}

func (m *Machine) check(target Stage) error {
	to, ok := indexOf[target]
	if !ok {
		return services.Wrap(services.ErrTransition, string(m.current), "advance", fmt.Sprintf("unknown stage %q", target), nil)
	}
	from := indexOf[m.current]
	if to <= from {
		return services.Wrap(services.ErrTransition, string(m.current), "advance", fmt.Sprintf("cannot move backward to %q", target), nil)
	}
	for _, between := range order[from+1 : to] {
		if !m.toggles.Skippable(between) {
			return services.Wrap(services.ErrTransition, string(m.current), "advance",
				fmt.Sprintf("cannot skip %q on the way to %q", between, target), nil)
		}
	}
	return nil
}
