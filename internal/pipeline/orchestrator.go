package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"litpipe/internal/config"
	"litpipe/internal/executor"
	"litpipe/internal/literature"
	"litpipe/internal/logging"
	"litpipe/internal/ports"
	"litpipe/internal/quality"
	"litpipe/internal/services"
	"litpipe/internal/stage"
)

// Collaborators wires the external systems one run depends on.
type Collaborators struct {
	Search     ports.SearchProvider
	Classifier ports.Classifier
	Fetcher    ports.PDFFetcher
	Extractor  ports.ContentExtractor
	Structurer ports.StructuringGenerator
	Ingestor   ports.Ingestor
}

// Orchestrator executes one pipeline run. Construct a fresh instance per run.
type Orchestrator struct {
	cfg        *config.Config
	collab     Collaborators
	engine     *quality.Engine
	logger     *slog.Logger
	onProgress ports.ProgressFunc
}

// Option configures optional orchestrator behavior.
type Option func(*Orchestrator)

// WithProgress registers a progress callback.
func WithProgress(fn ports.ProgressFunc) Option {
	return func(o *Orchestrator) { o.onProgress = fn }
}

// New constructs an orchestrator for a single run.
func New(cfg *config.Config, collab Collaborators, logger *slog.Logger, opts ...Option) *Orchestrator {
	if logger == nil {
		logger = logging.NewNop()
	}
	o := &Orchestrator{
		cfg:    cfg,
		collab: collab,
		engine: quality.NewEngine(),
		logger: logger,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Execute drives the run. A fatal stage error still returns the partial
// result with its Err field set; only configuration errors return a nil
// result because the run never starts.
func (o *Orchestrator) Execute(ctx context.Context, params ports.SearchParams) (*Result, error) {
	if err := o.validate(); err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	ctx = logging.WithRun(ctx, runID)
	logger := logging.WithContext(ctx, o.logger).With(logging.FieldComponent, "orchestrator")

	result := &Result{
		RunID:  runID,
		Status: RunStatusRunning,
	}
	machine := stage.NewMachine(stage.Toggles{
		AIFiltering:          o.cfg.Pipeline.EnableAIFiltering,
		PDFProcessing:        o.cfg.Pipeline.EnablePDFProcessing,
		StructuredExtraction: o.cfg.Pipeline.EnableStructuredExtraction,
	})

	started := time.Now()
	defer func() {
		result.Stats.ProcessingTime = time.Since(started)
	}()

	logger.Info("run started", logging.Args(
		logging.String("query", params.Query),
		logging.Int("max_results", o.cfg.Pipeline.MaxResults),
	)...)

	if err := o.runStages(ctx, logger, machine, params, result); err != nil {
		result.Status = RunStatusError
		result.FailedStage = machine.Current()
		result.Err = err
		result.Stats.Errors++
		logger.Error("run failed", logging.Args(
			logging.String(logging.FieldEventType, "run_failure"),
			logging.String("failed_stage", string(machine.Current())),
			logging.Error(err),
		)...)
		return result, err
	}

	result.Status = RunStatusCompleted
	logger.Info("run completed", logging.Args(
		logging.String(logging.FieldEventType, "run_complete"),
		logging.Int("total_found", result.Stats.TotalFound),
		logging.Int("ingested", result.Stats.Ingested),
		logging.Int("errors", result.Stats.Errors),
	)...)
	return result, nil
}

func (o *Orchestrator) validate() error {
	if o.cfg == nil {
		return services.Wrap(services.ErrConfiguration, string(stage.Initialization), "validate", "config is required", nil)
	}
	if err := o.cfg.Validate(); err != nil {
		return services.Wrap(services.ErrConfiguration, string(stage.Initialization), "validate", "invalid processing config", err)
	}
	if o.collab.Search == nil {
		return services.Wrap(services.ErrConfiguration, string(stage.Initialization), "validate", "search provider is required", nil)
	}
	return nil
}

func (o *Orchestrator) runStages(ctx context.Context, logger *slog.Logger, machine *stage.Machine, params ports.SearchParams, result *Result) error {
	o.reportStage(machine.Current(), result)

	if err := o.advance(machine, stage.Search, result); err != nil {
		return err
	}
	if err := o.runSearch(ctx, logger, params, result); err != nil {
		return err
	}
	o.assessLiterature(ctx, stage.Search, params.Query, result)

	if o.cfg.Pipeline.EnableAIFiltering {
		if err := o.advance(machine, stage.AIFiltering, result); err != nil {
			return err
		}
		o.runFiltering(ctx, logger, result)
	}

	if o.cfg.Pipeline.EnablePDFProcessing {
		if err := o.advance(machine, stage.PDFDownload, result); err != nil {
			return err
		}
		o.runDownloads(ctx, logger, result)

		if err := o.advance(machine, stage.ContentExtraction, result); err != nil {
			return err
		}
		o.runExtraction(ctx, logger, result)
	}

	if o.cfg.Pipeline.EnableStructuredExtraction {
		if err := o.advance(machine, stage.StructureProcessing, result); err != nil {
			return err
		}
		o.runStructuring(ctx, logger, result)
	}

	if err := o.advance(machine, stage.DatabaseIngestion, result); err != nil {
		return err
	}
	o.runIngestion(ctx, logger, result)

	if err := o.advance(machine, stage.Cleanup, result); err != nil {
		return err
	}
	o.assessLiterature(ctx, stage.Cleanup, params.Query, result)
	if history := result.Assessments[stage.Cleanup]; len(history) > 0 {
		result.Final = history[len(history)-1]
	}

	return o.advance(machine, stage.Completed, result)
}

func (o *Orchestrator) advance(machine *stage.Machine, target stage.Stage, result *Result) error {
	event, err := machine.Advance(target)
	if err != nil {
		return err
	}
	o.reportStage(event.Stage, result)
	return nil
}

func (o *Orchestrator) reportStage(s stage.Stage, result *Result) {
	if o.onProgress == nil {
		return
	}
	event := stage.Progress(s)
	o.onProgress(event.StepName, event.Percent, map[string]any{
		"stage":  string(s),
		"errors": result.Stats.Errors,
	})
}

func (o *Orchestrator) reportItems(s stage.Stage, done, total int) {
	if o.onProgress == nil {
		return
	}
	// Item-level ticks fire every batch_size completions plus the final item.
	if done != total && done%o.cfg.Pipeline.BatchSize != 0 {
		return
	}
	event := stage.Progress(s)
	o.onProgress(event.StepName, event.Percent, map[string]any{
		"stage":     string(s),
		"completed": done,
		"total":     total,
	})
}

func (o *Orchestrator) runSearch(ctx context.Context, logger *slog.Logger, params ports.SearchParams, result *Result) error {
	if params.MaxResults <= 0 || params.MaxResults > o.cfg.Pipeline.MaxResults {
		params.MaxResults = o.cfg.Pipeline.MaxResults
	}

	records, err := o.collab.Search.Search(ctx, params)
	if err != nil {
		return services.Wrap(services.ErrStageFatal, string(stage.Search), "search", "search provider unavailable", err)
	}
	if len(records) > o.cfg.Pipeline.MaxResults {
		records = records[:o.cfg.Pipeline.MaxResults]
	}

	result.Items = make([]*literature.Item, 0, len(records))
	for _, record := range records {
		result.Items = append(result.Items, literature.NewItem(record))
	}
	result.Stats.TotalFound = len(result.Items)

	logger.Info("search completed", logging.Args(
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.String(logging.FieldStage, string(stage.Search)),
		logging.Int("records", len(result.Items)),
	)...)
	return nil
}

// runFiltering deduplicates by identifier (first seen wins) and scores the
// remainder through the classifier. Items below the quality threshold are
// marked filtered-out but retained.
func (o *Orchestrator) runFiltering(ctx context.Context, logger *slog.Logger, result *Result) {
	seen := make(map[string]struct{}, len(result.Items))
	candidates := make([]*literature.Item, 0, len(result.Items))
	for _, item := range result.Items {
		if _, dup := seen[item.ID]; dup {
			item.Duplicate = true
			result.Stats.Duplicates++
			continue
		}
		seen[item.ID] = struct{}{}
		candidates = append(candidates, item)
	}

	if o.collab.Classifier == nil {
		logger.Warn("ai filtering enabled but no classifier wired; passing all items")
		for _, item := range candidates {
			item.FilterChecked = false
		}
		result.Stats.AIFiltered = len(candidates)
		return
	}

	results, err := executor.Run(ctx, candidates, func(ctx context.Context, item *literature.Item) (float64, error) {
		return o.collab.Classifier.Classify(ctx, item.Raw)
	}, executor.Options{
		Limit:      o.cfg.Pipeline.MaxConcurrentAICalls,
		MaxRetries: o.cfg.Pipeline.MaxRetries,
		Timeout:    time.Duration(o.cfg.Pipeline.TimeoutSeconds) * time.Second,
		Logger:     logger,
		OnProgress: func(done, total int) { o.reportItems(stage.AIFiltering, done, total) },
	})
	if err != nil {
		// Only misconfiguration reaches here; treat every candidate as unscored.
		logger.Error("filter executor rejected batch", logging.Error(err))
		return
	}

	for i, res := range results {
		item := candidates[i]
		if res.Err != nil {
			item.SetError(services.Details(res.Err).Message)
			result.Stats.Errors++
			continue
		}
		item.FilterChecked = true
		item.QualityScore = res.Value
		item.Filtered = res.Value >= o.cfg.Pipeline.QualityThreshold
		if item.Filtered {
			result.Stats.AIFiltered++
		}
	}

	logger.Info("ai filtering completed", logging.Args(
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.String(logging.FieldStage, string(stage.AIFiltering)),
		logging.Int("passed", result.Stats.AIFiltered),
		logging.Int("duplicates", result.Stats.Duplicates),
	)...)
}

func (o *Orchestrator) runDownloads(ctx context.Context, logger *slog.Logger, result *Result) {
	pending := make([]*literature.Item, 0, len(result.Items))
	for _, item := range result.Items {
		if item.Passed(o.cfg.Pipeline.QualityThreshold) && item.ErrorMessage == "" && item.Raw.PDFURL != "" {
			pending = append(pending, item)
		}
	}
	if len(pending) == 0 {
		return
	}
	if o.collab.Fetcher == nil {
		logger.Warn("pdf processing enabled but no fetcher wired; skipping downloads")
		return
	}

	results, err := executor.Run(ctx, pending, func(ctx context.Context, item *literature.Item) (string, error) {
		return o.collab.Fetcher.Fetch(ctx, item.Raw.PDFURL, o.cfg.Paths.DownloadDir)
	}, executor.Options{
		Limit:      o.cfg.Pipeline.MaxConcurrentDownloads,
		MaxRetries: o.cfg.Pipeline.MaxRetries,
		Timeout:    time.Duration(o.cfg.Pipeline.TimeoutSeconds) * time.Second,
		Logger:     logger,
		OnProgress: func(done, total int) { o.reportItems(stage.PDFDownload, done, total) },
	})
	if err != nil {
		logger.Error("download executor rejected batch", logging.Error(err))
		return
	}

	for i, res := range results {
		item := pending[i]
		if res.Err != nil {
			item.SetError(services.Details(res.Err).Message)
			result.Stats.Errors++
			continue
		}
		item.LocalPath = res.Value
		result.Stats.Downloaded++
	}

	logger.Info("downloads completed", logging.Args(
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.String(logging.FieldStage, string(stage.PDFDownload)),
		logging.Int("downloaded", result.Stats.Downloaded),
	)...)
}

// runExtraction processes downloaded artifacts sequentially; the download
// ceiling already bounded the working set.
func (o *Orchestrator) runExtraction(ctx context.Context, logger *slog.Logger, result *Result) {
	if o.collab.Extractor == nil {
		return
	}
	total := 0
	for _, item := range result.Items {
		if item.LocalPath != "" {
			total++
		}
	}
	done := 0
	for _, item := range result.Items {
		if item.LocalPath == "" {
			continue
		}
		if ctx.Err() != nil {
			item.SetError("run cancelled before extraction")
			result.Stats.Errors++
			continue
		}
		text, err := o.collab.Extractor.Extract(ctx, item.LocalPath)
		done++
		if err != nil {
			item.SetError(services.Details(err).Message)
			result.Stats.Errors++
			continue
		}
		item.Content = text
		item.ContentExtracted = true
		result.Stats.Extracted++
		o.reportItems(stage.ContentExtraction, done, total)
	}

	logger.Info("extraction completed", logging.Args(
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.String(logging.FieldStage, string(stage.ContentExtraction)),
		logging.Int("extracted", result.Stats.Extracted),
	)...)
}

func (o *Orchestrator) runStructuring(ctx context.Context, logger *slog.Logger, result *Result) {
	if o.collab.Structurer == nil {
		logger.Warn("structured extraction enabled but no generator wired; skipping")
		return
	}

	// Snapshot the pre-structuring batch for the quality comparison.
	source := make([]*literature.Item, 0, len(result.Items))
	for _, item := range result.Items {
		if item.Passed(o.cfg.Pipeline.QualityThreshold) && item.ErrorMessage == "" {
			source = append(source, item)
		}
	}

	for _, item := range source {
		if ctx.Err() != nil {
			item.SetError("run cancelled before structuring")
			result.Stats.Errors++
			continue
		}
		record, err := o.collab.Structurer.Structure(ctx, item)
		if err != nil {
			item.SetError(services.Details(err).Message)
			result.Stats.Errors++
			continue
		}
		item.Structured = record
		result.Stats.Structured++
	}

	assessment, err := o.engine.Assess(ctx, quality.StructuringMetrics(), quality.Input{
		Items:  source,
		Source: source,
	})
	if err != nil {
		logger.Error("structuring assessment failed", logging.Error(err))
	} else {
		result.appendAssessment(stage.StructureProcessing, assessment)
	}

	logger.Info("structuring completed", logging.Args(
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.String(logging.FieldStage, string(stage.StructureProcessing)),
		logging.Int("structured", result.Stats.Structured),
	)...)
}

func (o *Orchestrator) runIngestion(ctx context.Context, logger *slog.Logger, result *Result) {
	if o.collab.Ingestor == nil {
		return
	}
	for _, item := range result.Items {
		if item.Structured == nil || item.PersistedID != "" {
			continue
		}
		if ctx.Err() != nil {
			item.SetError("run cancelled before ingestion")
			result.Stats.Errors++
			continue
		}
		id, err := o.collab.Ingestor.Ingest(ctx, item.Structured)
		if err != nil {
			item.SetError(services.Details(err).Message)
			result.Stats.Errors++
			continue
		}
		item.PersistedID = id
		result.Stats.Ingested++
	}

	logger.Info("ingestion completed", logging.Args(
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.String(logging.FieldStage, string(stage.DatabaseIngestion)),
		logging.Int("ingested", result.Stats.Ingested),
	)...)
}

func (o *Orchestrator) assessLiterature(ctx context.Context, s stage.Stage, query string, result *Result) {
	assessment, err := o.engine.Assess(ctx, quality.LiteratureMetrics(), quality.Input{
		Query: query,
		Items: result.Items,
	})
	if err != nil {
		o.logger.Error("literature assessment failed", logging.Error(err))
		return
	}
	result.appendAssessment(s, assessment)
	o.logger.Info("batch assessed", logging.Args(
		logging.String(logging.FieldStage, string(s)),
		logging.Float64("overall_score", assessment.OverallScore),
		logging.String("level", string(assessment.Level)),
	)...)
}

// Describe renders a short human-readable summary line for logs and CLI use.
func Describe(result *Result) string {
	if result == nil {
		return "no result"
	}
	return fmt.Sprintf("run %s: %s, %d found, %d ingested, %d errors",
		result.RunID, result.Status, result.Stats.TotalFound, result.Stats.Ingested, result.Stats.Errors)
}
