package quality

import (
	"context"
	"fmt"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"litpipe/internal/literature"
	"litpipe/internal/services"
)

const weightTolerance = 1e-6

// Input carries the batch under evaluation plus, for structuring and
// experience metric sets, the originating source batch.
type Input struct {
	Query  string
	Items  []*literature.Item
	Source []*literature.Item
	Text   string
}

// Empty reports whether there is nothing to assess.
func (in Input) Empty() bool {
	return len(in.Items) == 0 && in.Text == ""
}

// Metric is one named, weighted, pure scoring function returning 0-100.
type Metric struct {
	Name   string
	Weight float64
	Score  func(Input) float64
}

// MetricSet groups the metrics one caller evaluates against.
type MetricSet struct {
	Name    string
	Metrics []Metric
}

// Validate checks the weight vector sums to 1.0 within tolerance.
func (s MetricSet) Validate() error {
	if len(s.Metrics) == 0 {
		return services.Wrap(services.ErrConfiguration, "", "quality", fmt.Sprintf("metric set %q is empty", s.Name), nil)
	}
	var sum float64
	for _, m := range s.Metrics {
		if m.Score == nil {
			return services.Wrap(services.ErrConfiguration, "", "quality", fmt.Sprintf("metric %q has no scorer", m.Name), nil)
		}
		if m.Weight <= 0 {
			return services.Wrap(services.ErrConfiguration, "", "quality", fmt.Sprintf("metric %q weight must be positive", m.Name), nil)
		}
		sum += m.Weight
	}
	if math.Abs(sum-1.0) > weightTolerance {
		return services.Wrap(services.ErrConfiguration, "", "quality", fmt.Sprintf("metric set %q weights sum to %.8f", s.Name, sum), nil)
	}
	return nil
}

// Engine computes assessments. Stateless; safe for concurrent use.
type Engine struct{}

// NewEngine constructs a quality engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Assess evaluates the input against the metric set and returns a fresh
// assessment. An empty input is a defined outcome, not an error.
func (e *Engine) Assess(ctx context.Context, set MetricSet, input Input) (*Assessment, error) {
	if err := set.Validate(); err != nil {
		return nil, err
	}

	if input.Empty() {
		return &Assessment{
			OverallScore: 0,
			MetricScores: map[string]float64{},
			Level:        LevelUnacceptable,
			Issues: []Issue{{
				Metric:   "empty data",
				Severity: SeverityHigh,
				Message:  "no artifacts available for assessment",
			}},
			Confidence: 0,
			Timestamp:  time.Now().UTC(),
		}, nil
	}

	scores := make([]float64, len(set.Metrics))
	eg, _ := errgroup.WithContext(ctx)
	for i, metric := range set.Metrics {
		eg.Go(func() error {
			scores[i] = clampScore(metric.Score(input))
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	assessment := &Assessment{
		MetricScores: make(map[string]float64, len(set.Metrics)),
		Confidence:   confidenceFor(input),
		Timestamp:    time.Now().UTC(),
	}

	var overall float64
	for i, metric := range set.Metrics {
		score := scores[i]
		assessment.MetricScores[metric.Name] = score
		overall += score * metric.Weight

		if score < 80 {
			severity := SeverityMedium
			if score < 60 {
				severity = SeverityHigh
			}
			assessment.Issues = append(assessment.Issues, Issue{
				Metric:   metric.Name,
				Severity: severity,
				Message:  fmt.Sprintf("%s scored %.1f, below the acceptable band", metric.Name, score),
			})
			assessment.Recommendations = append(assessment.Recommendations, recommendationFor(metric.Name))
		}
	}

	assessment.OverallScore = clampScore(overall)
	assessment.Level = LevelFor(assessment.OverallScore)
	return assessment, nil
}

func clampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// confidenceFor grows with sample size and saturates at 0.95.
func confidenceFor(input Input) float64 {
	n := len(input.Items)
	if n == 0 && input.Text != "" {
		n = len(input.Source)
	}
	confidence := 0.5 + float64(n)*0.025
	if confidence > 0.95 {
		confidence = 0.95
	}
	return confidence
}

var recommendations = map[string]string{
	MetricRelevance:             "refine search keywords to better match the research domain",
	MetricCompleteness:          "prefer sources that publish full metadata (authors, abstract, year)",
	MetricAccuracy:              "verify record identifiers and publication data against the source index",
	MetricConsistency:           "tighten deduplication and source normalization before filtering",
	MetricTimeliness:            "narrow the search window to more recent publications",
	MetricUsability:             "favor records with retrievable full-text artifacts",
	MetricExtractionComplete:    "re-run extraction for items that produced no structured record",
	MetricStructuralConsistency: "ensure the structuring template emits every required section",
	MetricContentAccuracy:       "cross-check structured summaries against the extracted text",
	MetricFormatCompliance:      "normalize structured fields to the expected template shape",
	MetricContentRichness:       "expand the experience document with per-source detail",
	MetricKnowledgeCoverage:     "incorporate findings from sources absent in the current draft",
	MetricLogicalCoherence:      "restructure the document into clearly ordered sections",
	MetricPracticalValue:        "add concrete, actionable guidance derived from the findings",
}

func recommendationFor(metric string) string {
	if rec, ok := recommendations[metric]; ok {
		return rec
	}
	return fmt.Sprintf("improve inputs feeding the %s metric", metric)
}
