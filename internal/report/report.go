// Package report shapes run results and predictions into rows the CLI renders
// as tables.
package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"litpipe/internal/pipeline"
	"litpipe/internal/predict"
	"litpipe/internal/quality"
	"litpipe/internal/stage"
)

// Section is one renderable table.
type Section struct {
	Title   string
	Headers []string
	Rows    [][]string
	// RightAligned lists zero-based column indexes that hold numbers.
	RightAligned []int
}

// RunSections builds the tables for a completed or failed run.
func RunSections(result *pipeline.Result) []Section {
	if result == nil {
		return nil
	}
	sections := []Section{statsSection(result)}
	if assess := assessmentSection(result); assess != nil {
		sections = append(sections, *assess)
	}
	if failures := failureSection(result); failures != nil {
		sections = append(sections, *failures)
	}
	return sections
}

func statsSection(result *pipeline.Result) Section {
	stats := result.Stats
	rows := [][]string{
		{"Run", result.RunID},
		{"Status", string(result.Status)},
		{"Found", fmt.Sprintf("%d", stats.TotalFound)},
		{"Duplicates", fmt.Sprintf("%d", stats.Duplicates)},
		{"Passed filter", fmt.Sprintf("%d", stats.AIFiltered)},
		{"Downloaded", fmt.Sprintf("%d", stats.Downloaded)},
		{"Extracted", fmt.Sprintf("%d", stats.Extracted)},
		{"Structured", fmt.Sprintf("%d", stats.Structured)},
		{"Ingested", fmt.Sprintf("%d", stats.Ingested)},
		{"Errors", fmt.Sprintf("%d", stats.Errors)},
		{"Duration", stats.ProcessingTime.Round(10 * time.Millisecond).String()},
	}
	if result.Status == pipeline.RunStatusError {
		rows = append(rows, []string{"Failed stage", stage.Label(result.FailedStage)})
	}
	return Section{
		Title:        "Run summary",
		Headers:      []string{"Field", "Value"},
		Rows:         rows,
		RightAligned: nil,
	}
}

func assessmentSection(result *pipeline.Result) *Section {
	if len(result.Assessments) == 0 {
		return nil
	}
	stages := make([]stage.Stage, 0, len(result.Assessments))
	for s := range result.Assessments {
		stages = append(stages, s)
	}
	sort.Slice(stages, func(i, j int) bool {
		a, _ := stage.Index(stages[i])
		b, _ := stage.Index(stages[j])
		return a < b
	})

	rows := make([][]string, 0, len(stages))
	for _, s := range stages {
		for _, assessment := range result.Assessments[s] {
			rows = append(rows, []string{
				stage.Label(s),
				fmt.Sprintf("%.1f", assessment.OverallScore),
				string(assessment.Level),
				fmt.Sprintf("%.2f", assessment.Confidence),
				fmt.Sprintf("%d", len(assessment.Issues)),
			})
		}
	}
	return &Section{
		Title:        "Quality assessments",
		Headers:      []string{"Stage", "Score", "Level", "Confidence", "Issues"},
		Rows:         rows,
		RightAligned: []int{1, 3, 4},
	}
}

func failureSection(result *pipeline.Result) *Section {
	rows := make([][]string, 0)
	for _, item := range result.Items {
		if item.ErrorMessage == "" {
			continue
		}
		rows = append(rows, []string{item.ID, truncate(item.Raw.Title, 48), item.ErrorMessage})
	}
	if len(rows) == 0 {
		return nil
	}
	return &Section{
		Title:   "Item failures",
		Headers: []string{"Item", "Title", "Error"},
		Rows:    rows,
	}
}

// IssueRows flattens assessment issues for detail output.
func IssueRows(assessment *quality.Assessment) [][]string {
	if assessment == nil {
		return nil
	}
	rows := make([][]string, 0, len(assessment.Issues))
	for _, issue := range assessment.Issues {
		rows = append(rows, []string{issue.Metric, string(issue.Severity), issue.Message})
	}
	return rows
}

// PredictionSections builds the tables for a feasibility prediction.
func PredictionSections(prediction *predict.Prediction) []Section {
	if prediction == nil {
		return nil
	}

	timeRows := make([][]string, 0, len(prediction.Time.Stages)+1)
	for _, est := range prediction.Time.Stages {
		timeRows = append(timeRows, []string{
			stage.Label(est.Stage),
			formatMinutes(est.Minutes),
			formatMinutes(est.LowMinutes),
			formatMinutes(est.HighMinutes),
		})
	}
	timeRows = append(timeRows, []string{
		"Total",
		formatMinutes(prediction.Time.TotalMinutes),
		formatMinutes(prediction.Time.LowMinutes),
		formatMinutes(prediction.Time.HighMinutes),
	})

	qualityRows := [][]string{
		{"Predicted score", fmt.Sprintf("%.1f", prediction.Quality.PredictedScore)},
		{"Predicted level", string(prediction.Quality.Level)},
		{"Confidence", fmt.Sprintf("%.2f", prediction.Quality.Confidence)},
		{"Success probability", fmt.Sprintf("%.0f%%", prediction.SuccessProbability*100)},
	}

	riskRows := make([][]string, 0, len(prediction.Risk.Categories))
	for _, record := range prediction.Risk.Categories {
		riskRows = append(riskRows, []string{record.Category, record.Level, record.Description})
	}
	for _, m := range prediction.Risk.Mitigations {
		riskRows = append(riskRows, []string{"mitigation", "", m})
	}

	return []Section{
		{
			Title:        "Time estimate",
			Headers:      []string{"Stage", "Expected", "Low", "High"},
			Rows:         timeRows,
			RightAligned: []int{1, 2, 3},
		},
		{
			Title:   "Quality outlook",
			Headers: []string{"Field", "Value"},
			Rows:    qualityRows,
		},
		{
			Title:   "Risks",
			Headers: []string{"Category", "Level", "Detail"},
			Rows:    riskRows,
		},
	}
}

func formatMinutes(minutes float64) string {
	if minutes >= 90 {
		return fmt.Sprintf("%.1fh", minutes/60)
	}
	return fmt.Sprintf("%.0fm", minutes)
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
