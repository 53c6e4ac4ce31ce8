package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"litpipe/internal/literature"
	"litpipe/internal/ports"
	"litpipe/internal/services"
)

// fileSearchProvider reads raw records from a JSON file. Remote index
// integrations plug in through the same port; the file provider keeps the
// pipeline runnable offline.
type fileSearchProvider struct {
	path string
}

func (p *fileSearchProvider) Search(_ context.Context, params ports.SearchParams) ([]literature.RawRecord, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		return nil, fmt.Errorf("read records file: %w", err)
	}

	var records []literature.RawRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse records file %s: %w", p.path, err)
	}

	matched := make([]literature.RawRecord, 0, len(records))
	for _, record := range records {
		if !matchesParams(record, params) {
			continue
		}
		matched = append(matched, record)
		if params.MaxResults > 0 && len(matched) >= params.MaxResults {
			break
		}
	}
	return matched, nil
}

func matchesParams(record literature.RawRecord, params ports.SearchParams) bool {
	if params.YearFrom > 0 && record.Year > 0 && record.Year < params.YearFrom {
		return false
	}
	if params.YearTo > 0 && record.Year > 0 && record.Year > params.YearTo {
		return false
	}
	query := strings.TrimSpace(params.Query)
	if query == "" {
		return true
	}
	haystack := strings.ToLower(record.Title + " " + record.Abstract + " " + strings.Join(record.Keywords, " "))
	for _, term := range strings.Fields(strings.ToLower(query)) {
		if strings.Contains(haystack, term) {
			return true
		}
	}
	return false
}

// overlapClassifier scores records 0-10 by query-term overlap with title and
// abstract. Deterministic for identical input.
type overlapClassifier struct {
	query string
}

func (c *overlapClassifier) Classify(_ context.Context, record literature.RawRecord) (float64, error) {
	terms := strings.Fields(strings.ToLower(c.query))
	if len(terms) == 0 {
		return 5.0, nil
	}
	haystack := strings.ToLower(record.Title + " " + record.Abstract)
	hits := 0
	for _, term := range terms {
		if strings.Contains(haystack, term) {
			hits++
		}
	}
	return 10 * float64(hits) / float64(len(terms)), nil
}

// localFetcher copies artifacts already on disk into the download directory.
// The URL is treated as a filesystem path, with an optional file:// prefix.
type localFetcher struct{}

func (localFetcher) Fetch(_ context.Context, url, destDir string) (string, error) {
	src := strings.TrimPrefix(url, "file://")
	info, err := os.Stat(src)
	if err != nil {
		return "", services.Wrap(services.ErrNotFound, "pdf_download", "fetch",
			fmt.Sprintf("artifact %s not found", src), err)
	}
	if info.IsDir() {
		return "", services.Wrap(services.ErrNotFound, "pdf_download", "fetch",
			fmt.Sprintf("artifact %s is a directory", src), nil)
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("ensure download directory: %w", err)
	}
	dest := filepath.Join(destDir, filepath.Base(src))

	in, err := os.Open(src)
	if err != nil {
		return "", fmt.Errorf("open artifact: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("create download target: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return "", services.Wrap(services.ErrTransient, "pdf_download", "fetch", "copy artifact", err)
	}
	return dest, nil
}

// plainTextExtractor reads the artifact as UTF-8 text.
type plainTextExtractor struct{}

func (plainTextExtractor) Extract(_ context.Context, localPath string) (string, error) {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "content_extraction", "extract", "read artifact", err)
	}
	return string(data), nil
}

// outlineStructurer derives a structured record from the item's metadata and
// extracted content without calling a generation service.
type outlineStructurer struct{}

func (outlineStructurer) Structure(_ context.Context, item *literature.Item) (*literature.StructuredRecord, error) {
	if item == nil {
		return nil, services.Wrap(services.ErrConfiguration, "structure_processing", "structure", "item is required", nil)
	}

	summary := strings.TrimSpace(item.Raw.Abstract)
	if summary == "" {
		summary = firstSentences(item.Content, 2)
	}

	findings := make([]string, 0, 3)
	for _, sentence := range splitSentences(item.Content) {
		lower := strings.ToLower(sentence)
		if strings.Contains(lower, "we show") || strings.Contains(lower, "we find") ||
			strings.Contains(lower, "results") || strings.Contains(lower, "conclude") {
			findings = append(findings, strings.TrimSpace(sentence))
			if len(findings) == 3 {
				break
			}
		}
	}

	fields := map[string]string{}
	if item.Raw.Source != "" {
		fields["source"] = item.Raw.Source
	}
	if item.Raw.Year > 0 {
		fields["year"] = fmt.Sprintf("%d", item.Raw.Year)
	}
	if len(item.Raw.Authors) > 0 {
		fields["authors"] = strings.Join(item.Raw.Authors, "; ")
	}

	return &literature.StructuredRecord{
		ItemID:      item.ID,
		Title:       item.Raw.Title,
		Summary:     summary,
		KeyFindings: findings,
		Fields:      fields,
	}, nil
}

// digestGenerator refines an experience document by folding successively more
// detail from the batch into each revision. A generation service plugs in
// through the same port.
type digestGenerator struct{}

func (digestGenerator) Generate(_ context.Context, previous string, batch []*literature.Item) (string, error) {
	var b strings.Builder
	b.WriteString("Reading notes\n\n")
	for _, item := range batch {
		if item == nil {
			continue
		}
		b.WriteString(item.Raw.Title)
		b.WriteString(". ")
		if item.Raw.Abstract != "" {
			b.WriteString(item.Raw.Abstract)
			b.WriteString(" ")
		}
		if item.Structured != nil {
			for _, finding := range item.Structured.KeyFindings {
				b.WriteString(finding)
				b.WriteString(". ")
			}
		}
		b.WriteString("\n\n")
	}

	// Later rounds add application guidance; once present, revisions converge.
	if previous != "" {
		b.WriteString("How to apply these results in practice: start from the strongest ")
		b.WriteString("finding above, validate it on a small example, then expand coverage.\n")
	}
	return b.String(), nil
}

func splitSentences(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	})
}

func firstSentences(text string, n int) string {
	sentences := splitSentences(text)
	if len(sentences) > n {
		sentences = sentences[:n]
	}
	out := strings.TrimSpace(strings.Join(sentences, ". "))
	if out != "" {
		out += "."
	}
	return out
}
