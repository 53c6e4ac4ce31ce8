package ingest_test

import (
	"context"
	"errors"
	"testing"

	"litpipe/internal/ingest"
	"litpipe/internal/literature"
	"litpipe/internal/services"
	"litpipe/internal/testsupport"
)

func openStore(t *testing.T) *ingest.Store {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store, err := ingest.Open(cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func sampleRecord(itemID string) *literature.StructuredRecord {
	return &literature.StructuredRecord{
		ItemID:      itemID,
		Title:       "Transformer architectures",
		Summary:     "Survey of attention mechanisms.",
		Methodology: "literature review",
		KeyFindings: []string{"attention scales", "pretraining helps"},
		Fields:      map[string]string{"domain": "nlp"},
	}
}

func TestIngestAndLookup(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	id, err := store.Ingest(ctx, sampleRecord("paper-1"))
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if id == "" {
		t.Fatal("expected a row identifier")
	}

	got, err := store.Lookup(ctx, "paper-1")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if got.Title != "Transformer architectures" {
		t.Fatalf("title = %q", got.Title)
	}
	if len(got.KeyFindings) != 2 {
		t.Fatalf("key findings = %v", got.KeyFindings)
	}
	if got.Fields["domain"] != "nlp" {
		t.Fatalf("fields = %v", got.Fields)
	}

	count, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("count = %d", count)
	}
}

func TestIngestRejectsDuplicateItem(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	if _, err := store.Ingest(ctx, sampleRecord("paper-1")); err != nil {
		t.Fatalf("first ingest: %v", err)
	}
	if _, err := store.Ingest(ctx, sampleRecord("paper-1")); err == nil {
		t.Fatal("expected duplicate rejection")
	}
}

func TestIngestRejectsInvalidRecord(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	if _, err := store.Ingest(ctx, nil); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("nil record: %v", err)
	}
	if _, err := store.Ingest(ctx, &literature.StructuredRecord{}); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("empty item id: %v", err)
	}
}

func TestLookupMissingRecord(t *testing.T) {
	store := openStore(t)

	_, err := store.Lookup(context.Background(), "nope")
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestOpenReusesExistingDatabase(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	first, err := ingest.Open(cfg)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := first.Ingest(context.Background(), sampleRecord("paper-1")); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	second, err := ingest.Open(cfg)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer second.Close()

	count, err := second.Count(context.Background())
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("count after reopen = %d", count)
	}
}
