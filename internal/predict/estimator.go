package predict

import (
	"strings"

	"litpipe/internal/quality"
	"litpipe/internal/stage"
)

// TaskParams describes the planned run.
type TaskParams struct {
	TargetCount        int
	Domain             string
	UserExperience     float64 // 0-10 self-reported familiarity
	QualityExpectation float64 // 0-10
	CustomRequirements bool
}

// Factor names one weighted contribution to an estimate.
type Factor struct {
	Name   string
	Impact float64
}

// StageEstimate is the forecast for one pipeline stage with its fixed
// confidence-interval multipliers applied.
type StageEstimate struct {
	Stage       stage.Stage
	Minutes     float64
	LowMinutes  float64
	HighMinutes float64
}

// TimeEstimate aggregates per-stage forecasts.
type TimeEstimate struct {
	TotalMinutes float64
	LowMinutes   float64
	HighMinutes  float64
	Stages       []StageEstimate
	Factors      []Factor
}

// QualityPrediction forecasts the final assessment.
type QualityPrediction struct {
	PredictedScore       float64
	Level                quality.Level
	Confidence           float64
	TopFactors           []Factor
	ImprovementPotential float64
}

// RiskRecord grades one risk category.
type RiskRecord struct {
	Category    string
	Level       string
	Score       float64 // 0-1
	Description string
}

// RiskAssessment aggregates category risks.
type RiskAssessment struct {
	OverallLevel string
	OverallScore float64 // 0-1
	Categories   []RiskRecord
	Mitigations  []string
}

// Prediction bundles the three independent estimates plus the derived
// success probability.
type Prediction struct {
	Params             TaskParams
	Time               TimeEstimate
	Quality            QualityPrediction
	Risk               RiskAssessment
	SuccessProbability float64
}

// Per-item processing minutes by stage.
var stageMinutesPerItem = []struct {
	stage stage.Stage
	fixed float64
	per   float64
	low   float64
	high  float64
}{
	{stage.Search, 2.0, 0.02, 0.7, 1.5},
	{stage.AIFiltering, 0.5, 0.10, 0.8, 1.4},
	{stage.PDFDownload, 0.5, 0.30, 0.7, 1.6},
	{stage.ContentExtraction, 0.2, 0.20, 0.8, 1.4},
	{stage.StructureProcessing, 1.0, 0.40, 0.8, 1.3},
	{stage.DatabaseIngestion, 0.2, 0.05, 0.9, 1.2},
}

var domainComplexity = map[string]float64{
	"computer science": 0.9,
	"medicine":         1.3,
	"biology":          1.2,
	"physics":          1.1,
	"social science":   1.1,
}

// Estimator computes predictions. Stateless and deterministic.
type Estimator struct{}

// NewEstimator constructs an estimator.
func NewEstimator() *Estimator {
	return &Estimator{}
}

// Predict builds the full forecast bundle for the given parameters.
func (e *Estimator) Predict(params TaskParams) Prediction {
	if params.TargetCount < 1 {
		params.TargetCount = 1
	}

	timeEst := e.estimateTime(params)
	qualityEst := e.estimateQuality(params)
	riskEst := e.estimateRisk(params)

	success := 0.6*(qualityEst.PredictedScore/100)*qualityEst.Confidence + 0.4*(1-riskEst.OverallScore)
	if success > 0.95 {
		success = 0.95
	}
	if success < 0 {
		success = 0
	}

	return Prediction{
		Params:             params,
		Time:               timeEst,
		Quality:            qualityEst,
		Risk:               riskEst,
		SuccessProbability: success,
	}
}

func (e *Estimator) estimateTime(params TaskParams) TimeEstimate {
	complexity := domainFactor(params.Domain)
	// Familiar users formulate tighter queries, costing fewer reruns.
	experienceFactor := 1.2 - 0.04*clamp(params.UserExperience, 0, 10)

	stages := make([]StageEstimate, 0, len(stageMinutesPerItem))
	var total, low, high float64
	for _, def := range stageMinutesPerItem {
		minutes := (def.fixed + def.per*float64(params.TargetCount)) * complexity * experienceFactor
		estimate := StageEstimate{
			Stage:       def.stage,
			Minutes:     minutes,
			LowMinutes:  minutes * def.low,
			HighMinutes: minutes * def.high,
		}
		stages = append(stages, estimate)
		total += estimate.Minutes
		low += estimate.LowMinutes
		high += estimate.HighMinutes
	}

	return TimeEstimate{
		TotalMinutes: total,
		LowMinutes:   low,
		HighMinutes:  high,
		Stages:       stages,
		Factors: []Factor{
			{Name: "target item count", Impact: float64(params.TargetCount)},
			{Name: "domain complexity", Impact: complexity},
			{Name: "user experience", Impact: experienceFactor},
		},
	}
}

func (e *Estimator) estimateQuality(params TaskParams) QualityPrediction {
	score := 70.0
	score += clamp(params.UserExperience, 0, 10) * 1.5
	// Very high expectations are harder to satisfy.
	score -= clamp(params.QualityExpectation-7, 0, 3) * 3
	if params.CustomRequirements {
		score -= 4
	}
	score = clamp(score, 0, 100)

	confidence := 0.6 + clamp(params.UserExperience, 0, 10)*0.03
	improvement := clamp(100-score, 0, 30)

	return QualityPrediction{
		PredictedScore: score,
		Level:          quality.LevelFor(score),
		Confidence:     confidence,
		TopFactors: []Factor{
			{Name: "user experience", Impact: params.UserExperience},
			{Name: "quality expectation", Impact: params.QualityExpectation},
		},
		ImprovementPotential: improvement,
	}
}

func (e *Estimator) estimateRisk(params TaskParams) RiskAssessment {
	categories := []RiskRecord{
		scopeRisk(params),
		complexityRisk(params),
		availabilityRisk(params),
	}

	var total float64
	for _, cat := range categories {
		total += cat.Score
	}
	overall := total / float64(len(categories))

	mitigations := make([]string, 0, 2)
	for _, cat := range categories {
		if cat.Score >= 0.5 {
			mitigations = append(mitigations, mitigationFor(cat.Category))
		}
	}

	return RiskAssessment{
		OverallLevel: riskLevel(overall),
		OverallScore: overall,
		Categories:   categories,
		Mitigations:  mitigations,
	}
}

func scopeRisk(params TaskParams) RiskRecord {
	score := clamp(float64(params.TargetCount)/500, 0.1, 0.9)
	return RiskRecord{
		Category:    "scope",
		Level:       riskLevel(score),
		Score:       score,
		Description: "large result sets increase download and extraction failure surface",
	}
}

func complexityRisk(params TaskParams) RiskRecord {
	score := 0.2
	if params.CustomRequirements {
		score += 0.3
	}
	score += (domainFactor(params.Domain) - 1) * 0.5
	score = clamp(score, 0.1, 0.9)
	return RiskRecord{
		Category:    "complexity",
		Level:       riskLevel(score),
		Score:       score,
		Description: "custom requirements and specialized domains reduce extraction reliability",
	}
}

func availabilityRisk(params TaskParams) RiskRecord {
	// Inexperienced users more often target paywalled or sparse sources.
	score := clamp(0.6-0.04*clamp(params.UserExperience, 0, 10), 0.1, 0.9)
	return RiskRecord{
		Category:    "data availability",
		Level:       riskLevel(score),
		Score:       score,
		Description: "full-text artifacts may not be retrievable for every record",
	}
}

func riskLevel(score float64) string {
	switch {
	case score >= 0.66:
		return "high"
	case score >= 0.33:
		return "medium"
	default:
		return "low"
	}
}

func mitigationFor(category string) string {
	switch category {
	case "scope":
		return "reduce max_results or raise the quality threshold to shrink the working set"
	case "complexity":
		return "relax custom requirements or run a pilot batch before the full set"
	case "data availability":
		return "prefer open-access sources or disable PDF processing"
	default:
		return "review task parameters before running"
	}
}

func domainFactor(domain string) float64 {
	if factor, ok := domainComplexity[strings.ToLower(strings.TrimSpace(domain))]; ok {
		return factor
	}
	return 1.0
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
