package quality

import (
	"strings"
	"time"
)

// Metric names shared across the three built-in sets.
const (
	MetricRelevance             = "relevance"
	MetricCompleteness          = "completeness"
	MetricAccuracy              = "accuracy"
	MetricConsistency           = "consistency"
	MetricTimeliness            = "timeliness"
	MetricUsability             = "usability"
	MetricExtractionComplete    = "extraction_completeness"
	MetricStructuralConsistency = "structural_consistency"
	MetricContentAccuracy       = "content_accuracy"
	MetricFormatCompliance      = "format_compliance"
	MetricContentRichness       = "content_richness"
	MetricKnowledgeCoverage     = "knowledge_coverage"
	MetricLogicalCoherence      = "logical_coherence"
	MetricPracticalValue        = "practical_value"
)

// LiteratureMetrics scores a raw search batch.
func LiteratureMetrics() MetricSet {
	return MetricSet{
		Name: "literature",
		Metrics: []Metric{
			{Name: MetricRelevance, Weight: 0.25, Score: scoreRelevance},
			{Name: MetricCompleteness, Weight: 0.20, Score: scoreCompleteness},
			{Name: MetricAccuracy, Weight: 0.20, Score: scoreAccuracy},
			{Name: MetricConsistency, Weight: 0.15, Score: scoreConsistency},
			{Name: MetricTimeliness, Weight: 0.10, Score: scoreTimeliness},
			{Name: MetricUsability, Weight: 0.10, Score: scoreUsability},
		},
	}
}

// StructuringMetrics scores structuring output against its source batch.
func StructuringMetrics() MetricSet {
	return equalWeightSet("structuring", []Metric{
		{Name: MetricExtractionComplete, Score: scoreExtractionCompleteness},
		{Name: MetricStructuralConsistency, Score: scoreStructuralConsistency},
		{Name: MetricContentAccuracy, Score: scoreContentAccuracy},
		{Name: MetricFormatCompliance, Score: scoreFormatCompliance},
	})
}

// ExperienceMetrics scores one enhancement iteration of the experience text.
func ExperienceMetrics() MetricSet {
	return equalWeightSet("experience", []Metric{
		{Name: MetricContentRichness, Score: scoreContentRichness},
		{Name: MetricKnowledgeCoverage, Score: scoreKnowledgeCoverage},
		{Name: MetricLogicalCoherence, Score: scoreLogicalCoherence},
		{Name: MetricPracticalValue, Score: scorePracticalValue},
	})
}

func equalWeightSet(name string, metrics []Metric) MetricSet {
	weight := 1.0 / float64(len(metrics))
	for i := range metrics {
		metrics[i].Weight = weight
	}
	return MetricSet{Name: name, Metrics: metrics}
}

// --- literature batch metrics ---

func scoreRelevance(input Input) float64 {
	terms := tokenize(input.Query)
	if len(terms) == 0 {
		// Without a query every surviving record is trusted equally.
		return 75
	}
	var total float64
	for _, item := range input.Items {
		haystack := strings.ToLower(item.Raw.Title + " " + item.Raw.Abstract + " " + strings.Join(item.Raw.Keywords, " "))
		matched := 0
		for _, term := range terms {
			if strings.Contains(haystack, term) {
				matched++
			}
		}
		total += float64(matched) / float64(len(terms))
	}
	return total / float64(len(input.Items)) * 100
}

func scoreCompleteness(input Input) float64 {
	var total float64
	for _, item := range input.Items {
		fields := 0
		for _, present := range []bool{
			item.Raw.Title != "",
			len(item.Raw.Authors) > 0,
			item.Raw.Abstract != "",
			item.Raw.URL != "",
			item.Raw.Year > 0,
		} {
			if present {
				fields++
			}
		}
		total += float64(fields) / 5
	}
	return total / float64(len(input.Items)) * 100
}

func scoreAccuracy(input Input) float64 {
	currentYear := time.Now().UTC().Year()
	var total float64
	for _, item := range input.Items {
		checks := 0
		if item.ID != "" {
			checks++
		}
		if item.Raw.Year == 0 || (item.Raw.Year >= 1900 && item.Raw.Year <= currentYear+1) {
			checks++
		}
		if item.Raw.URL == "" || strings.HasPrefix(item.Raw.URL, "http://") || strings.HasPrefix(item.Raw.URL, "https://") {
			checks++
		}
		total += float64(checks) / 3
	}
	return total / float64(len(input.Items)) * 100
}

func scoreConsistency(input Input) float64 {
	duplicates := 0
	for _, item := range input.Items {
		if item.Duplicate {
			duplicates++
		}
	}
	return (1 - float64(duplicates)/float64(len(input.Items))) * 100
}

func scoreTimeliness(input Input) float64 {
	currentYear := time.Now().UTC().Year()
	var total float64
	for _, item := range input.Items {
		if item.Raw.Year <= 0 {
			total += 0.5
			continue
		}
		age := currentYear - item.Raw.Year
		switch {
		case age <= 2:
			total += 1.0
		case age <= 5:
			total += 0.8
		case age <= 10:
			total += 0.5
		default:
			total += 0.2
		}
	}
	return total / float64(len(input.Items)) * 100
}

func scoreUsability(input Input) float64 {
	usable := 0
	for _, item := range input.Items {
		if item.Raw.PDFURL != "" || item.LocalPath != "" {
			usable++
		}
	}
	return float64(usable) / float64(len(input.Items)) * 100
}

// --- structuring metrics (input.Items = structured output, input.Source = pre-structuring batch) ---

func scoreExtractionCompleteness(input Input) float64 {
	if len(input.Source) == 0 {
		return 0
	}
	structured := 0
	for _, item := range input.Items {
		if item.Structured != nil {
			structured++
		}
	}
	return float64(structured) / float64(len(input.Source)) * 100
}

func scoreStructuralConsistency(input Input) float64 {
	var total float64
	counted := 0
	for _, item := range input.Items {
		if item.Structured == nil {
			continue
		}
		counted++
		fields := 0
		if item.Structured.Title != "" {
			fields++
		}
		if item.Structured.Summary != "" {
			fields++
		}
		if item.Structured.ItemID != "" {
			fields++
		}
		total += float64(fields) / 3
	}
	if counted == 0 {
		return 0
	}
	return total / float64(counted) * 100
}

func scoreContentAccuracy(input Input) float64 {
	var total float64
	counted := 0
	for _, item := range input.Items {
		if item.Structured == nil || item.Structured.Summary == "" {
			continue
		}
		counted++
		source := tokenize(item.Raw.Title + " " + item.Raw.Abstract)
		if len(source) == 0 {
			total += 0.5
			continue
		}
		summary := strings.ToLower(item.Structured.Summary)
		matched := 0
		for _, term := range source {
			if strings.Contains(summary, term) {
				matched++
			}
		}
		overlap := float64(matched) / float64(len(source))
		// Any meaningful overlap counts; full overlap is not expected of a summary.
		if overlap > 0.3 {
			overlap = 1.0
		} else {
			overlap /= 0.3
		}
		total += overlap
	}
	if counted == 0 {
		return 0
	}
	return total / float64(counted) * 100
}

func scoreFormatCompliance(input Input) float64 {
	var total float64
	counted := 0
	for _, item := range input.Items {
		if item.Structured == nil {
			continue
		}
		counted++
		checks := 0
		if len(item.Structured.KeyFindings) > 0 {
			checks++
		}
		if item.Structured.Fields != nil {
			checks++
		}
		if item.Structured.Methodology != "" {
			checks++
		}
		total += float64(checks) / 3
	}
	if counted == 0 {
		return 0
	}
	return total / float64(counted) * 100
}

// --- experience metrics (input.Text = artifact, input.Source = source batch) ---

func scoreContentRichness(input Input) float64 {
	words := len(strings.Fields(input.Text))
	// Saturates at roughly 150 words per source item.
	target := 150 * max(len(input.Source), 1)
	score := float64(words) / float64(target) * 100
	if score > 100 {
		score = 100
	}
	return score
}

func scoreKnowledgeCoverage(input Input) float64 {
	if len(input.Source) == 0 {
		return 0
	}
	text := strings.ToLower(input.Text)
	covered := 0
	for _, item := range input.Source {
		terms := tokenize(item.Raw.Title)
		if len(terms) == 0 {
			continue
		}
		matched := 0
		for _, term := range terms {
			if strings.Contains(text, term) {
				matched++
			}
		}
		if float64(matched) >= float64(len(terms))*0.5 {
			covered++
		}
	}
	return float64(covered) / float64(len(input.Source)) * 100
}

func scoreLogicalCoherence(input Input) float64 {
	paragraphs := strings.Split(strings.TrimSpace(input.Text), "\n\n")
	sentences := strings.Count(input.Text, ". ") + strings.Count(input.Text, ".\n") + 1
	score := 40.0
	if len(paragraphs) >= 3 {
		score += 30
	} else if len(paragraphs) == 2 {
		score += 15
	}
	if sentences >= 10 {
		score += 30
	} else {
		score += float64(sentences) * 3
	}
	return score
}

func scorePracticalValue(input Input) float64 {
	text := strings.ToLower(input.Text)
	markers := []string{"should", "recommend", "in practice", "approach", "method", "result", "finding", "evidence", "limitation"}
	matched := 0
	for _, marker := range markers {
		if strings.Contains(text, marker) {
			matched++
		}
	}
	return float64(matched) / float64(len(markers)) * 100
}

func tokenize(s string) []string {
	fields := strings.Fields(strings.ToLower(s))
	terms := make([]string, 0, len(fields))
	for _, field := range fields {
		field = strings.Trim(field, ".,;:()[]\"'")
		if len(field) < 3 || stopwords[field] {
			continue
		}
		terms = append(terms, field)
	}
	return terms
}

var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "from": true,
	"this": true, "that": true, "are": true, "was": true, "were": true,
	"has": true, "have": true, "its": true, "into": true, "using": true,
	"based": true, "toward": true, "towards": true, "between": true,
}
