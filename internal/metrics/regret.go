package metrics

import (
	"math"
	"sort"

	"github.com/xailong-6969/LLM-Policy-Stress-Framework/internal/engine"
)

// RegretDistribution measures how far each run fell short of the best
// score observed in the batch. No oracle optimum is assumed: the baseline
// is the maximum score across non-errored runs, so every regret value is
// non-negative by construction.
type RegretDistribution struct {
	Regrets []float64 `json:"regrets"`

	Mean   float64 `json:"mean"`
	Std    float64 `json:"std"`
	Max    float64 `json:"max"`
	Median float64 `json:"median"`

	// Tail is the mean regret of the worst 10% of runs (at least one).
	Tail float64 `json:"tail"`

	// Baseline is the best observed score used as the reference point.
	Baseline float64 `json:"baseline"`
}

// NewRegretDistribution computes per-run regret against the best observed
// score. Errored runs carry no score and are excluded. Returns an empty
// distribution when no run produced a valid score.
func NewRegretDistribution(outcomes []engine.Outcome) RegretDistribution {
	var scores []float64
	for _, o := range outcomes {
		if o.ScoreValid {
			scores = append(scores, o.Score)
		}
	}
	if len(scores) == 0 {
		return RegretDistribution{}
	}

	best := scores[0]
	for _, s := range scores[1:] {
		if s > best {
			best = s
		}
	}

	// Sorted ascending, so the distribution is identical no matter what
	// order the outcomes arrived in.
	sorted := make([]float64, len(scores))
	for i, s := range scores {
		sorted[i] = best - s
	}
	sort.Float64s(sorted)

	tailCount := int(math.Ceil(float64(len(sorted)) * 0.1))
	if tailCount < 1 {
		tailCount = 1
	}
	tail := mean(sorted[len(sorted)-tailCount:])

	return RegretDistribution{
		Regrets:  sorted,
		Mean:     mean(sorted),
		Std:      stddev(sorted),
		Max:      sorted[len(sorted)-1],
		Median:   median(sorted),
		Tail:     tail,
		Baseline: best,
	}
}

// median expects xs to be sorted ascending.
func median(xs []float64) float64 {
	n := len(xs)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return xs[n/2]
	}
	return (xs[n/2-1] + xs[n/2]) / 2
}
