package literature

import (
	"strings"
	"time"
)

// RawRecord is one literature search result exactly as the provider returned it.
type RawRecord struct {
	ID       string
	Title    string
	Authors  []string
	Abstract string
	URL      string
	PDFURL   string
	Source   string
	Year     int
	Keywords []string
}

// StructuredRecord is the structured extraction produced from an item's content.
type StructuredRecord struct {
	ItemID      string
	Title       string
	Summary     string
	KeyFindings []string
	Methodology string
	Fields      map[string]string
}

// Item tracks one literature record through the pipeline stages.
type Item struct {
	ID               string
	Raw              RawRecord
	QualityScore     float64 // 0-10, zero until assessed
	Duplicate        bool
	Filtered         bool // true once the AI filter has accepted the item
	FilterChecked    bool
	LocalPath        string
	ContentExtracted bool
	Content          string
	Structured       *StructuredRecord
	PersistedID      string
	ErrorMessage     string
	CreatedAt        time.Time
}

// NewItem wraps a raw search record for pipeline processing.
func NewItem(raw RawRecord) *Item {
	id := strings.TrimSpace(raw.ID)
	if id == "" {
		id = strings.TrimSpace(raw.URL)
	}
	return &Item{
		ID:        id,
		Raw:       raw,
		CreatedAt: time.Now().UTC(),
	}
}

// Passed reports whether the item survived AI filtering at the given threshold.
// Items never submitted to the filter are considered passing.
func (i *Item) Passed(threshold float64) bool {
	if i == nil || i.Duplicate {
		return false
	}
	if !i.FilterChecked {
		return true
	}
	return i.Filtered && i.QualityScore >= threshold
}

// SetError records an item-level failure message without failing the run.
func (i *Item) SetError(message string) {
	i.ErrorMessage = strings.TrimSpace(message)
}

// Stats accumulates run counters. Counters only ever increase; the orchestrator
// owning the run is the sole writer.
type Stats struct {
	TotalFound     int
	Duplicates     int
	AIFiltered     int
	Downloaded     int
	Extracted      int
	Structured     int
	Ingested       int
	Errors         int
	ProcessingTime time.Duration
}

// Snapshot returns a copy for progress reporting.
func (s Stats) Snapshot() Stats { return s }
