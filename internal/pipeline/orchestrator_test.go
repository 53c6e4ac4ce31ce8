package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"litpipe/internal/literature"
	"litpipe/internal/pipeline"
	"litpipe/internal/ports"
	"litpipe/internal/services"
	"litpipe/internal/stage"
	"litpipe/internal/testsupport"
)

type stubSearch struct {
	records []literature.RawRecord
	err     error
	calls   atomic.Int64
}

func (s *stubSearch) Search(_ context.Context, _ ports.SearchParams) ([]literature.RawRecord, error) {
	s.calls.Add(1)
	return s.records, s.err
}

type stubClassifier struct {
	score func(record literature.RawRecord) (float64, error)
	calls atomic.Int64
}

func (s *stubClassifier) Classify(_ context.Context, record literature.RawRecord) (float64, error) {
	s.calls.Add(1)
	if s.score != nil {
		return s.score(record)
	}
	return 8.0, nil
}

type stubFetcher struct {
	err   error
	calls atomic.Int64
}

func (s *stubFetcher) Fetch(_ context.Context, url, destDir string) (string, error) {
	s.calls.Add(1)
	if s.err != nil {
		return "", s.err
	}
	return filepath.Join(destDir, filepath.Base(url)), nil
}

type stubExtractor struct{}

func (stubExtractor) Extract(_ context.Context, localPath string) (string, error) {
	return "extracted text from " + localPath, nil
}

type stubStructurer struct{}

func (stubStructurer) Structure(_ context.Context, item *literature.Item) (*literature.StructuredRecord, error) {
	return &literature.StructuredRecord{
		ItemID:      item.ID,
		Title:       item.Raw.Title,
		Summary:     item.Raw.Abstract,
		KeyFindings: []string{"finding"},
		Fields:      map[string]string{},
	}, nil
}

type stubIngestor struct {
	err   error
	calls atomic.Int64
}

func (s *stubIngestor) Ingest(_ context.Context, record *literature.StructuredRecord) (string, error) {
	s.calls.Add(1)
	if s.err != nil {
		return "", s.err
	}
	return "db-" + record.ItemID, nil
}

func syntheticRecords(n int) []literature.RawRecord {
	records := make([]literature.RawRecord, n)
	for i := range records {
		records[i] = literature.RawRecord{
			ID:       fmt.Sprintf("paper-%03d", i),
			Title:    fmt.Sprintf("Machine learning survey part %d", i),
			Abstract: "A survey of machine learning methods.",
			Authors:  []string{"A. Author"},
			URL:      fmt.Sprintf("https://example.org/%d", i),
			PDFURL:   fmt.Sprintf("https://example.org/%d.pdf", i),
			Year:     2024,
		}
	}
	return records
}

func fullCollaborators(search *stubSearch, classifier *stubClassifier, fetcher *stubFetcher, ingestor *stubIngestor) pipeline.Collaborators {
	return pipeline.Collaborators{
		Search:     search,
		Classifier: classifier,
		Fetcher:    fetcher,
		Extractor:  stubExtractor{},
		Structurer: stubStructurer{},
		Ingestor:   ingestor,
	}
}

func TestExecuteFullRun(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	search := &stubSearch{records: syntheticRecords(20)}
	classifier := &stubClassifier{}
	fetcher := &stubFetcher{}
	ingestor := &stubIngestor{}

	orch := pipeline.New(cfg, fullCollaborators(search, classifier, fetcher, ingestor), nil)
	result, err := orch.Execute(context.Background(), ports.SearchParams{Query: "machine learning"})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	if result.Status != pipeline.RunStatusCompleted {
		t.Fatalf("status = %s", result.Status)
	}
	if result.Stats.TotalFound != 20 {
		t.Fatalf("total_found = %d", result.Stats.TotalFound)
	}
	if result.Stats.AIFiltered != 20 {
		t.Fatalf("ai_filtered = %d", result.Stats.AIFiltered)
	}
	if result.Stats.Downloaded != 20 || result.Stats.Extracted != 20 {
		t.Fatalf("downloaded/extracted = %d/%d", result.Stats.Downloaded, result.Stats.Extracted)
	}
	if result.Stats.Structured != 20 || result.Stats.Ingested != 20 {
		t.Fatalf("structured/ingested = %d/%d", result.Stats.Structured, result.Stats.Ingested)
	}
	if result.Final == nil {
		t.Fatal("expected final assessment")
	}
	if result.Stats.ProcessingTime <= 0 {
		t.Fatal("expected accumulated processing time")
	}
	for _, item := range result.Items {
		if item.PersistedID == "" {
			t.Fatalf("item %s not persisted", item.ID)
		}
	}
}

func TestThresholdExcludesItemsFromDownload(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithQualityThreshold(6.0))
	records := syntheticRecords(100)
	search := &stubSearch{records: records}
	// First 40 items score below the threshold.
	classifier := &stubClassifier{score: func(record literature.RawRecord) (float64, error) {
		var index int
		fmt.Sscanf(record.ID, "paper-%d", &index)
		if index < 40 {
			return 3.0, nil
		}
		return 8.0, nil
	}}
	fetcher := &stubFetcher{}
	ingestor := &stubIngestor{}

	orch := pipeline.New(cfg, fullCollaborators(search, classifier, fetcher, ingestor), nil)
	result, err := orch.Execute(context.Background(), ports.SearchParams{Query: "machine learning"})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	if result.Stats.TotalFound != 100 {
		t.Fatalf("total_found = %d", result.Stats.TotalFound)
	}
	if result.Stats.AIFiltered != 60 {
		t.Fatalf("ai_filtered = %d, want 60", result.Stats.AIFiltered)
	}
	if got := fetcher.calls.Load(); got != 60 {
		t.Fatalf("download submissions = %d, want 60", got)
	}
	// Filtered-out items are retained, not deleted.
	if len(result.Items) != 100 {
		t.Fatalf("items retained = %d", len(result.Items))
	}
}

func TestSearchFailureIsRunFatal(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	search := &stubSearch{err: errors.New("index unreachable")}
	ingestor := &stubIngestor{}

	orch := pipeline.New(cfg, fullCollaborators(search, &stubClassifier{}, &stubFetcher{}, ingestor), nil)
	result, err := orch.Execute(context.Background(), ports.SearchParams{Query: "anything"})
	if !errors.Is(err, services.ErrStageFatal) {
		t.Fatalf("expected stage fatal error, got %v", err)
	}
	if result == nil {
		t.Fatal("fatal runs must still return a partial report")
	}
	if result.Status != pipeline.RunStatusError {
		t.Fatalf("status = %s", result.Status)
	}
	if result.Err == nil {
		t.Fatal("partial report must carry the error")
	}
	if result.Stats.Errors < 1 {
		t.Fatalf("errors = %d, want >= 1", result.Stats.Errors)
	}
	if result.Stats.Structured != 0 || result.Stats.Ingested != 0 {
		t.Fatal("no structuring or ingestion stats may be recorded")
	}
	if ingestor.calls.Load() != 0 {
		t.Fatal("ingestor must not be called after a fatal search")
	}
}

func TestInvalidConfigFailsFast(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Pipeline.MaxConcurrentDownloads = 0
	search := &stubSearch{records: syntheticRecords(1)}

	orch := pipeline.New(cfg, fullCollaborators(search, &stubClassifier{}, &stubFetcher{}, &stubIngestor{}), nil)
	_, err := orch.Execute(context.Background(), ports.SearchParams{Query: "q"})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if search.calls.Load() != 0 {
		t.Fatal("run must fail before search")
	}
}

func TestItemFailuresDoNotAbortRun(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	search := &stubSearch{records: syntheticRecords(5)}
	fetcher := &stubFetcher{err: services.Wrap(services.ErrNotFound, "pdf_download", "fetch", "404", nil)}
	ingestor := &stubIngestor{}

	orch := pipeline.New(cfg, fullCollaborators(search, &stubClassifier{}, fetcher, ingestor), nil)
	result, err := orch.Execute(context.Background(), ports.SearchParams{Query: "machine learning"})
	if err != nil {
		t.Fatalf("item failures must not abort the run: %v", err)
	}
	if result.Status != pipeline.RunStatusCompleted {
		t.Fatalf("status = %s", result.Status)
	}
	if result.Stats.Downloaded != 0 {
		t.Fatalf("downloaded = %d", result.Stats.Downloaded)
	}
	if result.Stats.Errors != 5 {
		t.Fatalf("errors = %d, want 5", result.Stats.Errors)
	}
	if result.Final == nil {
		t.Fatal("completed runs always yield a final assessment")
	}
}

func TestDuplicatesDeduplicatedFirstSeenWins(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithToggles(true, false, false))
	records := syntheticRecords(3)
	records = append(records, records[0], records[1])
	search := &stubSearch{records: records}
	classifier := &stubClassifier{}

	orch := pipeline.New(cfg, pipeline.Collaborators{Search: search, Classifier: classifier}, nil)
	result, err := orch.Execute(context.Background(), ports.SearchParams{Query: "machine learning"})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	if result.Stats.Duplicates != 2 {
		t.Fatalf("duplicates = %d, want 2", result.Stats.Duplicates)
	}
	if classifier.calls.Load() != 3 {
		t.Fatalf("classifier calls = %d, want 3", classifier.calls.Load())
	}
	dupes := 0
	for _, item := range result.Items {
		if item.Duplicate {
			dupes++
		}
	}
	if dupes != 2 {
		t.Fatalf("duplicate flags = %d", dupes)
	}
}

func TestTogglesSkipStages(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithToggles(false, false, true))
	search := &stubSearch{records: syntheticRecords(4)}
	classifier := &stubClassifier{}
	fetcher := &stubFetcher{}
	ingestor := &stubIngestor{}

	orch := pipeline.New(cfg, fullCollaborators(search, classifier, fetcher, ingestor), nil)
	result, err := orch.Execute(context.Background(), ports.SearchParams{Query: "machine learning"})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	if classifier.calls.Load() != 0 {
		t.Fatal("classifier must not run when filtering is disabled")
	}
	if fetcher.calls.Load() != 0 {
		t.Fatal("fetcher must not run when pdf processing is disabled")
	}
	if result.Stats.Structured != 4 || result.Stats.Ingested != 4 {
		t.Fatalf("structured/ingested = %d/%d", result.Stats.Structured, result.Stats.Ingested)
	}
}

func TestProgressEventsEmitted(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	search := &stubSearch{records: syntheticRecords(25)}

	var (
		mu       sync.Mutex
		events   []string
		percents []int
	)
	orch := pipeline.New(cfg,
		fullCollaborators(search, &stubClassifier{}, &stubFetcher{}, &stubIngestor{}),
		nil,
		pipeline.WithProgress(func(stepName string, percent int, _ map[string]any) {
			mu.Lock()
			defer mu.Unlock()
			events = append(events, stepName)
			percents = append(percents, percent)
		}))

	if _, err := orch.Execute(context.Background(), ports.SearchParams{Query: "machine learning"}); err != nil {
		t.Fatalf("execute: %v", err)
	}

	if len(events) == 0 {
		t.Fatal("expected progress events")
	}
	if events[0] != stage.Progress(stage.Initialization).StepName {
		t.Fatalf("first event = %q", events[0])
	}
	if events[len(events)-1] != stage.Progress(stage.Completed).StepName {
		t.Fatalf("last event = %q", events[len(events)-1])
	}
	if percents[len(percents)-1] != 100 {
		t.Fatalf("final percent = %d", percents[len(percents)-1])
	}
	// 25 items at batch size 10 tick at 10, 20 and 25 on top of the
	// stage-boundary event.
	filtering := 0
	for _, name := range events {
		if name == stage.Progress(stage.AIFiltering).StepName {
			filtering++
		}
	}
	if filtering < 4 {
		t.Fatalf("filtering events = %d, want boundary plus item ticks", filtering)
	}
}

func TestMaxResultsCapApplied(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Pipeline.MaxResults = 10
	search := &stubSearch{records: syntheticRecords(50)}

	orch := pipeline.New(cfg, fullCollaborators(search, &stubClassifier{}, &stubFetcher{}, &stubIngestor{}), nil)
	result, err := orch.Execute(context.Background(), ports.SearchParams{Query: "machine learning"})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if result.Stats.TotalFound != 10 {
		t.Fatalf("total_found = %d, want capped 10", result.Stats.TotalFound)
	}
}

func TestParallelRunsShareNothing(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	const runs = 4
	done := make(chan *pipeline.Result, runs)
	for i := 0; i < runs; i++ {
		go func(n int) {
			search := &stubSearch{records: syntheticRecords(5 + n)}
			orch := pipeline.New(cfg, fullCollaborators(search, &stubClassifier{}, &stubFetcher{}, &stubIngestor{}), nil)
			result, err := orch.Execute(context.Background(), ports.SearchParams{Query: "machine learning"})
			if err != nil {
				t.Errorf("run %d: %v", n, err)
			}
			done <- result
		}(i)
	}

	found := map[int]bool{}
	for i := 0; i < runs; i++ {
		result := <-done
		if result == nil {
			t.Fatal("missing result")
		}
		found[result.Stats.TotalFound] = true
	}
	for i := 0; i < runs; i++ {
		if !found[5+i] {
			t.Fatalf("missing run with %d items; stats leaked across runs", 5+i)
		}
	}
}
