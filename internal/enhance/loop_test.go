package enhance_test

import (
	"context"
	"fmt"
	"testing"

	"litpipe/internal/config"
	"litpipe/internal/enhance"
	"litpipe/internal/literature"
	"litpipe/internal/quality"
)

type scriptedAssessor struct {
	scores []float64
	calls  int
}

func (s *scriptedAssessor) Assess(_ context.Context, _ quality.MetricSet, _ quality.Input) (*quality.Assessment, error) {
	score := s.scores[len(s.scores)-1]
	if s.calls < len(s.scores) {
		score = s.scores[s.calls]
	}
	s.calls++
	return &quality.Assessment{
		OverallScore: score,
		Level:        quality.LevelFor(score),
		MetricScores: map[string]float64{},
	}, nil
}

type countingGenerator struct {
	calls int
}

func (g *countingGenerator) Generate(_ context.Context, previous string, _ []*literature.Item) (string, error) {
	g.calls++
	return fmt.Sprintf("%s round-%d.", previous, g.calls), nil
}

func defaultPolicy() enhance.Policy {
	return enhance.PolicyFromConfig(config.Default().Enhancement)
}

func TestNeverStopsBeforeRoundTwo(t *testing.T) {
	assessor := &scriptedAssessor{scores: []float64{50}}
	loop := enhance.NewLoop(assessor, &countingGenerator{}, defaultPolicy(), nil, "")

	result, err := loop.Step(context.Background(), nil)
	if err != nil {
		t.Fatalf("step: %v", err)
	}
	if result.ImprovementRate != 100 {
		t.Fatalf("first round rate = %g, want 100", result.ImprovementRate)
	}
	if result.RecommendStop {
		t.Fatal("loop must not recommend stopping after one round")
	}
}

func TestStopsAtRoundThreeOnFlatScores(t *testing.T) {
	// Deltas fall below 5.0 from round 2 on; stop must land exactly on the
	// minimum round count.
	assessor := &scriptedAssessor{scores: []float64{50, 51, 52, 53, 54}}
	loop := enhance.NewLoop(assessor, &countingGenerator{}, defaultPolicy(), nil, "")

	result, err := loop.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Round != 3 {
		t.Fatalf("stopped at round %d, want 3", result.Round)
	}
	if !result.RecommendStop {
		t.Fatal("expected stop recommendation")
	}
}

func TestHardCapAtTenRounds(t *testing.T) {
	// Strictly improving scores keep the rate above threshold forever.
	scores := make([]float64, 20)
	for i := range scores {
		scores[i] = float64(i * 6)
	}
	assessor := &scriptedAssessor{scores: scores}
	loop := enhance.NewLoop(assessor, &countingGenerator{}, defaultPolicy(), nil, "")

	result, err := loop.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Round != 10 {
		t.Fatalf("stopped at round %d, want hard cap 10", result.Round)
	}
	if !result.RecommendStop {
		t.Fatal("expected stop recommendation at the cap")
	}
}

func TestStepRefusedPastHardCap(t *testing.T) {
	assessor := &scriptedAssessor{scores: []float64{0}}
	policy := defaultPolicy()
	policy.MaxRounds = 1
	policy.MinRounds = 1
	loop := enhance.NewLoop(assessor, &countingGenerator{}, policy, nil, "")

	if _, err := loop.Step(context.Background(), nil); err != nil {
		t.Fatalf("first step: %v", err)
	}
	if _, err := loop.Step(context.Background(), nil); err == nil {
		t.Fatal("expected refusal past the hard cap")
	}
}

func TestCallerMayIgnoreAdvisoryStop(t *testing.T) {
	assessor := &scriptedAssessor{scores: []float64{50, 51, 52, 53, 54}}
	loop := enhance.NewLoop(assessor, &countingGenerator{}, defaultPolicy(), nil, "")

	result, err := loop.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !result.RecommendStop {
		t.Fatal("expected advisory stop")
	}

	// One more round past the recommendation still works.
	extra, err := loop.Step(context.Background(), nil)
	if err != nil {
		t.Fatalf("extra step: %v", err)
	}
	if extra.Round != result.Round+1 {
		t.Fatalf("extra round = %d, want %d", extra.Round, result.Round+1)
	}
}

func TestImprovementRateUsesRecentWindow(t *testing.T) {
	// Early large gains followed by a flat tail: the rate must reflect only
	// the last three deltas.
	assessor := &scriptedAssessor{scores: []float64{10, 40, 70, 71, 72, 73}}
	loop := enhance.NewLoop(assessor, &countingGenerator{}, enhance.Policy{
		MaxRounds:          20,
		MinRounds:          6,
		MinImprovementRate: 5.0,
	}, nil, "")

	var last float64
	for i := 0; i < 6; i++ {
		result, err := loop.Step(context.Background(), nil)
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		last = result.ImprovementRate
	}
	if last != 1.0 {
		t.Fatalf("recent-window rate = %g, want 1.0", last)
	}
	if history := loop.History(); len(history) != 6 {
		t.Fatalf("history length = %d", len(history))
	}
}
