// Package ports declares the external collaborators the pipeline core depends
// on but does not implement. Adapters live outside the core; tests supply
// stubs.
package ports

import (
	"context"

	"litpipe/internal/literature"
)

// SearchParams carries the caller's query to the search provider.
type SearchParams struct {
	Query      string
	Domain     string
	MaxResults int
	YearFrom   int
	YearTo     int
}

// SearchProvider pulls raw literature records from an upstream index. The
// provider owns its retry budget; an error here is fatal to the run.
type SearchProvider interface {
	Search(ctx context.Context, params SearchParams) ([]literature.RawRecord, error)
}

// Classifier scores one record 0-10 for relevance. Must be idempotent for
// identical input.
type Classifier interface {
	Classify(ctx context.Context, record literature.RawRecord) (float64, error)
}

// PDFFetcher downloads one artifact and returns its local path.
type PDFFetcher interface {
	Fetch(ctx context.Context, url, destDir string) (string, error)
}

// ContentExtractor converts a downloaded artifact into plain text.
type ContentExtractor interface {
	Extract(ctx context.Context, localPath string) (string, error)
}

// StructuringGenerator transforms extracted text into a structured record.
type StructuringGenerator interface {
	Structure(ctx context.Context, item *literature.Item) (*literature.StructuredRecord, error)
}

// Ingestor persists one structured record. Safe to call once per item; no
// upsert semantics are assumed.
type Ingestor interface {
	Ingest(ctx context.Context, record *literature.StructuredRecord) (string, error)
}

// ExperienceGenerator refines the experience document from the previous
// artifact plus the source batch.
type ExperienceGenerator interface {
	Generate(ctx context.Context, previous string, batch []*literature.Item) (string, error)
}

// ProgressFunc receives step names and percentages at stage boundaries and at
// intervals during long stages.
type ProgressFunc func(stepName string, percent int, details map[string]any)
