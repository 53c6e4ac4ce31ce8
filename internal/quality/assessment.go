package quality

import (
	"time"
)

// Level buckets an overall score into the fixed quality bands.
type Level string

const (
	LevelExcellent    Level = "excellent"
	LevelGood         Level = "good"
	LevelFair         Level = "fair"
	LevelPoor         Level = "poor"
	LevelUnacceptable Level = "unacceptable"
)

// LevelFor classifies an overall score.
func LevelFor(score float64) Level {
	switch {
	case score >= 90:
		return LevelExcellent
	case score >= 80:
		return LevelGood
	case score >= 70:
		return LevelFair
	case score >= 60:
		return LevelPoor
	default:
		return LevelUnacceptable
	}
}

// Severity grades an issue.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
)

// Issue flags a metric that scored below the acceptable band.
type Issue struct {
	Metric   string
	Severity Severity
	Message  string
}

// Assessment is the immutable outcome of one engine evaluation.
type Assessment struct {
	OverallScore    float64
	MetricScores    map[string]float64
	Level           Level
	Issues          []Issue
	Recommendations []string
	Confidence      float64
	Timestamp       time.Time
}
