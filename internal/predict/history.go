package predict

// Trend labels the direction of successive predictions for one run.
type Trend string

const (
	TrendImproving Trend = "improving"
	TrendDeclining Trend = "declining"
	TrendStable    Trend = "stable"
)

const trendEpsilon = 0.01

// History retains predictions for a run in generation order.
type History struct {
	predictions []Prediction
}

// Add appends a prediction to the history.
func (h *History) Add(p Prediction) {
	h.predictions = append(h.predictions, p)
}

// Len returns the number of retained predictions.
func (h *History) Len() int {
	return len(h.predictions)
}

// Latest returns the most recent prediction.
func (h *History) Latest() (Prediction, bool) {
	if len(h.predictions) == 0 {
		return Prediction{}, false
	}
	return h.predictions[len(h.predictions)-1], true
}

// TrendDirection compares the last two success probabilities. Fewer than two
// predictions is reported as stable.
func (h *History) TrendDirection() Trend {
	if len(h.predictions) < 2 {
		return TrendStable
	}
	prev := h.predictions[len(h.predictions)-2].SuccessProbability
	last := h.predictions[len(h.predictions)-1].SuccessProbability
	switch {
	case last-prev > trendEpsilon:
		return TrendImproving
	case prev-last > trendEpsilon:
		return TrendDeclining
	default:
		return TrendStable
	}
}
