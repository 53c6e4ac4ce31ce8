package literature_test

import (
	"testing"

	"litpipe/internal/literature"
)

func TestNewItemFallsBackToURL(t *testing.T) {
	item := literature.NewItem(literature.RawRecord{URL: "https://example.org/paper/1"})
	if item.ID != "https://example.org/paper/1" {
		t.Fatalf("unexpected item id %q", item.ID)
	}
}

func TestPassedSemantics(t *testing.T) {
	item := literature.NewItem(literature.RawRecord{ID: "p1"})
	if !item.Passed(6.0) {
		t.Fatal("unchecked item should pass")
	}

	item.FilterChecked = true
	item.Filtered = true
	item.QualityScore = 5.9
	if item.Passed(6.0) {
		t.Fatal("item below threshold should not pass")
	}

	item.QualityScore = 6.0
	if !item.Passed(6.0) {
		t.Fatal("item at threshold should pass")
	}

	item.Duplicate = true
	if item.Passed(6.0) {
		t.Fatal("duplicates never pass")
	}
}
