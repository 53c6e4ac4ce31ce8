package stage

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Stage is one ordered phase of the acquisition pipeline.
type Stage string

const (
	Initialization      Stage = "initialization"
	Search              Stage = "search"
	AIFiltering         Stage = "ai_filtering"
	PDFDownload         Stage = "pdf_download"
	ContentExtraction   Stage = "content_extraction"
	StructureProcessing Stage = "structure_processing"
	DatabaseIngestion   Stage = "database_ingestion"
	Cleanup             Stage = "cleanup"
	Completed           Stage = "completed"
)

var order = []Stage{
	Initialization,
	Search,
	AIFiltering,
	PDFDownload,
	ContentExtraction,
	StructureProcessing,
	DatabaseIngestion,
	Cleanup,
	Completed,
}

var indexOf = func() map[Stage]int {
	m := make(map[Stage]int, len(order))
	for i, s := range order {
		m[s] = i
	}
	return m
}()

// All returns the ordered list of pipeline stages.
func All() []Stage {
	out := make([]Stage, len(order))
	copy(out, order)
	return out
}

// Index returns the position of s in the fixed stage order.
func Index(s Stage) (int, bool) {
	i, ok := indexOf[s]
	return i, ok
}

// Valid reports whether s names a known stage.
func Valid(s Stage) bool {
	_, ok := indexOf[s]
	return ok
}

// Label renders a human-readable stage name ("ai_filtering" -> "Ai Filtering").
func Label(s Stage) string {
	return cases.Title(language.Und).String(strings.ReplaceAll(string(s), "_", " "))
}

// Toggles mirrors the run's feature switches for transition validation.
type Toggles struct {
	AIFiltering          bool
	PDFProcessing        bool
	StructuredExtraction bool
}

// Skippable reports whether the toggles disable s, making it legal to jump over.
func (t Toggles) Skippable(s Stage) bool {
	switch s {
	case AIFiltering:
		return !t.AIFiltering
	case PDFDownload:
		return !t.PDFProcessing
	case ContentExtraction:
		// Extraction only runs on downloaded artifacts.
		return !t.PDFProcessing
	case StructureProcessing:
		return !t.StructuredExtraction
	default:
		return false
	}
}
