package enhance

import (
	"context"
	"fmt"
	"log/slog"

	"litpipe/internal/config"
	"litpipe/internal/literature"
	"litpipe/internal/logging"
	"litpipe/internal/ports"
	"litpipe/internal/quality"
	"litpipe/internal/services"
)

// maxRecentDeltas bounds how many score deltas feed the improvement rate.
const maxRecentDeltas = 3

// unboundedRate is reported while fewer than two rounds of history exist, so
// sparse data never triggers premature termination.
const unboundedRate = 100.0

// Policy holds the convergence knobs.
type Policy struct {
	MaxRounds          int
	MinRounds          int
	MinImprovementRate float64
}

// PolicyFromConfig lifts the enhancement config section into a policy.
func PolicyFromConfig(cfg config.Enhancement) Policy {
	return Policy{
		MaxRounds:          cfg.MaxRounds,
		MinRounds:          cfg.MinRounds,
		MinImprovementRate: cfg.MinImprovementRate,
	}
}

// RoundResult reports one completed round plus the loop's advisory verdict.
type RoundResult struct {
	Round           int
	Artifact        string
	Assessment      *quality.Assessment
	ImprovementRate float64
	RecommendStop   bool
	StopReason      string
}

// Assessor scores one experience iteration. *quality.Engine satisfies it;
// tests substitute synthetic scorers.
type Assessor interface {
	Assess(ctx context.Context, set quality.MetricSet, input quality.Input) (*quality.Assessment, error)
}

// Loop carries the round state for one experience document.
type Loop struct {
	engine    Assessor
	generator ports.ExperienceGenerator
	policy    Policy
	logger    *slog.Logger

	round    int
	artifact string
	history  []*quality.Assessment
}

// NewLoop constructs an enhancement loop starting from a seed artifact
// (usually empty).
func NewLoop(engine Assessor, generator ports.ExperienceGenerator, policy Policy, logger *slog.Logger, seed string) *Loop {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Loop{
		engine:    engine,
		generator: generator,
		policy:    policy,
		logger:    logger,
		artifact:  seed,
	}
}

// Round returns the number of completed rounds.
func (l *Loop) Round() int { return l.round }

// Artifact returns the current experience document.
func (l *Loop) Artifact() string { return l.artifact }

// History returns the per-round assessments in order.
func (l *Loop) History() []*quality.Assessment {
	out := make([]*quality.Assessment, len(l.history))
	copy(out, l.history)
	return out
}

// Step executes exactly one round: regenerate, assess, and report the
// advisory stop verdict. Callers remain free to call Step again after a stop
// recommendation; only the hard cap refuses further rounds.
func (l *Loop) Step(ctx context.Context, source []*literature.Item) (*RoundResult, error) {
	if l.round >= l.policy.MaxRounds {
		return nil, services.Wrap(services.ErrConfiguration, "enhancement", "step",
			fmt.Sprintf("round cap %d reached", l.policy.MaxRounds), nil)
	}

	updated, err := l.generator.Generate(ctx, l.artifact, source)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "enhancement", "generate", "experience generation failed", err)
	}

	assessment, err := l.engine.Assess(ctx, quality.ExperienceMetrics(), quality.Input{
		Text:   updated,
		Source: source,
	})
	if err != nil {
		return nil, err
	}

	l.round++
	l.artifact = updated
	l.history = append(l.history, assessment)

	rate := l.improvementRate()
	result := &RoundResult{
		Round:           l.round,
		Artifact:        updated,
		Assessment:      assessment,
		ImprovementRate: rate,
	}
	result.RecommendStop, result.StopReason = l.verdict(rate)

	l.logger.Info("enhancement round completed", logging.Args(
		logging.Int("round", l.round),
		logging.Float64("score", assessment.OverallScore),
		logging.Float64("improvement_rate", rate),
		logging.Bool("recommend_stop", result.RecommendStop),
	)...)

	return result, nil
}

// Run drives rounds until the loop recommends stopping and returns the final
// round's result.
func (l *Loop) Run(ctx context.Context, source []*literature.Item) (*RoundResult, error) {
	var last *RoundResult
	for {
		result, err := l.Step(ctx, source)
		if err != nil {
			return last, err
		}
		last = result
		if result.RecommendStop {
			return last, nil
		}
	}
}

// improvementRate is the mean score delta over the last up-to-3 rounds.
func (l *Loop) improvementRate() float64 {
	if len(l.history) < 2 {
		return unboundedRate
	}
	deltas := len(l.history) - 1
	if deltas > maxRecentDeltas {
		deltas = maxRecentDeltas
	}
	var sum float64
	for i := len(l.history) - deltas; i < len(l.history); i++ {
		sum += l.history[i].OverallScore - l.history[i-1].OverallScore
	}
	return sum / float64(deltas)
}

func (l *Loop) verdict(rate float64) (bool, string) {
	if l.round >= l.policy.MaxRounds {
		return true, fmt.Sprintf("round cap %d reached", l.policy.MaxRounds)
	}
	if rate < l.policy.MinImprovementRate && l.round >= l.policy.MinRounds {
		return true, fmt.Sprintf("improvement rate %.2f below %.2f", rate, l.policy.MinImprovementRate)
	}
	return false, ""
}
