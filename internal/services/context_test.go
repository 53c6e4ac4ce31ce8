package services_test

import (
	"context"
	"testing"

	"litpipe/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithRunID(ctx, "run-123")
	ctx = services.WithStage(ctx, "ai_filtering")
	ctx = services.WithItemID(ctx, "arxiv:2401.0001")

	if id, ok := services.RunIDFromContext(ctx); !ok || id != "run-123" {
		t.Fatalf("unexpected run id: %v %v", id, ok)
	}
	if stage, ok := services.StageFromContext(ctx); !ok || stage != "ai_filtering" {
		t.Fatalf("unexpected stage: %v %v", stage, ok)
	}
	if id, ok := services.ItemIDFromContext(ctx); !ok || id != "arxiv:2401.0001" {
		t.Fatalf("unexpected item id: %v %v", id, ok)
	}
}

func TestStageBlankPreservesContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithStage(ctx, "")
	if _, ok := services.StageFromContext(ctx); ok {
		t.Fatal("expected no stage value")
	}
}
