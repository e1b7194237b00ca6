package metrics

import (
	"math"
	"sort"

	"github.com/xailong-6969/LLM-Policy-Stress-Framework/internal/engine"
)

// HighNoisePredicate flags outcomes whose runs experienced unusual levels
// of stochastic disturbance. Used to condition the brittleness score on
// noisy runs.
type HighNoisePredicate func(o engine.Outcome, batch []engine.Outcome) bool

// EventCountAboveMedian is the default high-noise predicate: a run is
// high-noise when its event-trigger count exceeds the batch median.
func EventCountAboveMedian(o engine.Outcome, batch []engine.Outcome) bool {
	counts := make([]float64, len(batch))
	for i, b := range batch {
		counts[i] = float64(b.EventCount)
	}
	sort.Float64s(counts)
	return float64(o.EventCount) > median(counts)
}

// Brittleness measures sensitivity of outcome quality to randomness: the
// coefficient of variation of scores (over non-errored runs) multiplied by
// the conditional failure rate among high-noise runs. Returns nil when the
// coefficient of variation is undefined (mean score is zero) or degenerate
// (all scores equal).
func Brittleness(outcomes []engine.Outcome, highNoise HighNoisePredicate) *float64 {
	if highNoise == nil {
		highNoise = EventCountAboveMedian
	}

	var scores []float64
	for _, o := range outcomes {
		if o.ScoreValid {
			scores = append(scores, o.Score)
		}
	}
	if len(scores) == 0 {
		return nil
	}
	sort.Float64s(scores)

	// Compare the extremes rather than testing sigma against zero: summing
	// 100 copies of 0.1 leaves sigma at ~1e-16, not 0.
	if scores[0] == scores[len(scores)-1] {
		return nil
	}
	mu := mean(scores)
	if mu == 0 {
		return nil
	}
	// CV over the magnitude of the mean, so the score stays non-negative
	// for worlds whose scores run negative.
	cv := stddev(scores) / math.Abs(mu)

	noisy := 0
	noisyFailures := 0
	for _, o := range outcomes {
		if !highNoise(o, outcomes) {
			continue
		}
		noisy++
		if o.Reason == engine.TerminalFailure {
			noisyFailures++
		}
	}

	sensitivity := 0.0
	if noisy > 0 {
		sensitivity = float64(noisyFailures) / float64(noisy)
	}

	b := cv * sensitivity
	return &b
}
