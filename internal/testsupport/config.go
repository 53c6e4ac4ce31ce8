// Package testsupport provides shared helpers for building test
// configurations seeded with per-test temp directories.
package testsupport

import (
	"path/filepath"
	"testing"

	"litpipe/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.WorkspaceDir = base
	cfg.Paths.DownloadDir = filepath.Join(base, "downloads")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.IngestDBPath = filepath.Join(base, "litpipe.db")
	cfg.Pipeline.TimeoutSeconds = 5
	cfg.Pipeline.MaxRetries = 0

	for _, opt := range opts {
		opt(&cfg)
	}

	return &cfg
}

// WithQualityThreshold overrides the filter threshold on the test config.
func WithQualityThreshold(threshold float64) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Pipeline.QualityThreshold = threshold
	}
}

// WithToggles sets the three stage toggles in one call.
func WithToggles(aiFiltering, pdfProcessing, structuredExtraction bool) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Pipeline.EnableAIFiltering = aiFiltering
		cfg.Pipeline.EnablePDFProcessing = pdfProcessing
		cfg.Pipeline.EnableStructuredExtraction = structuredExtraction
	}
}
