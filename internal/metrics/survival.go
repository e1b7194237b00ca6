// Package metrics turns a batch of simulation outcomes into
// distribution-level robustness statistics: Kaplan-Meier survival curves,
// collapse probabilities, regret distributions, and a brittleness score.
//
// All computations are order-independent: permuting the outcome slice
// never changes any reported value.
package metrics

import (
	"fmt"
	"math"
	"sort"

	"github.com/xailong-6969/LLM-Policy-Stress-Framework/internal/engine"
)

// SurvivalPoint is one step of a Kaplan-Meier survival curve.
type SurvivalPoint struct {
	Timestep int     `json:"timestep"`
	Survival float64 `json:"survival"`
	AtRisk   int     `json:"at_risk"`
	Events   int     `json:"events"`
}

// SurvivalCurve is a Kaplan-Meier estimate of the probability of not
// having failed by each timestep. Runs ending in success, timeout, or
// error are censored: they leave the at-risk set at their step count
// without counting as failure events.
type SurvivalCurve struct {
	Points []SurvivalPoint `json:"points"`
}

// NewSurvivalCurve computes the Kaplan-Meier estimator over the outcomes.
// The curve has one point per distinct step count; S is non-increasing
// and S(0) = 1. A world that is terminal before its first step fails with
// a step count of 0; its event is recorded at t=1 so S(0) stays 1.
func NewSurvivalCurve(outcomes []engine.Outcome) SurvivalCurve {
	if len(outcomes) == 0 {
		return SurvivalCurve{}
	}

	steps := make([]int, len(outcomes))
	for i, o := range outcomes {
		steps[i] = o.Steps
		if o.Reason == engine.TerminalFailure && steps[i] < 1 {
			steps[i] = 1
		}
	}

	seen := make(map[int]bool)
	times := make([]int, 0, len(outcomes))
	for _, s := range steps {
		if !seen[s] {
			seen[s] = true
			times = append(times, s)
		}
	}
	sort.Ints(times)

	points := make([]SurvivalPoint, 0, len(times))
	survival := 1.0
	for _, t := range times {
		atRisk := 0
		events := 0
		for i, o := range outcomes {
			if steps[i] >= t {
				atRisk++
			}
			if steps[i] == t && o.Reason == engine.TerminalFailure {
				events++
			}
		}
		if atRisk > 0 && events > 0 {
			survival *= float64(atRisk-events) / float64(atRisk)
		}
		points = append(points, SurvivalPoint{
			Timestep: t,
			Survival: survival,
			AtRisk:   atRisk,
			Events:   events,
		})
	}
	return SurvivalCurve{Points: points}
}

// At returns the survival probability at timestep t. Times before the
// first curve point return 1.0; times past the last point return the
// final probability.
func (c SurvivalCurve) At(t int) float64 {
	if len(c.Points) == 0 {
		return 1.0
	}
	prob := 1.0
	for _, p := range c.Points {
		if p.Timestep > t {
			break
		}
		prob = p.Survival
	}
	return prob
}

// Median returns the smallest timestep at which survival drops to 0.5 or
// below, or nil if more than half the population survives the full curve.
func (c SurvivalCurve) Median() *int {
	for _, p := range c.Points {
		if p.Survival <= 0.5 {
			t := p.Timestep
			return &t
		}
	}
	return nil
}

// Final returns the survival probability at the end of the curve.
func (c SurvivalCurve) Final() float64 {
	if len(c.Points) == 0 {
		return 1.0
	}
	return c.Points[len(c.Points)-1].Survival
}

// HazardPoint is the failure rate per step over one smoothing window.
type HazardPoint struct {
	Timestep int     `json:"timestep"`
	Rate     float64 `json:"rate"`
}

// HazardRate computes the per-step failure rate over fixed windows of the
// given size. Windows with an empty at-risk population are omitted.
func HazardRate(outcomes []engine.Outcome, window int) []HazardPoint {
	if len(outcomes) == 0 || window <= 0 {
		return nil
	}

	maxTime := 0
	for _, o := range outcomes {
		if o.Steps > maxTime {
			maxTime = o.Steps
		}
	}

	var points []HazardPoint
	for t := 0; t < maxTime; t += window {
		atRisk := 0
		failures := 0
		for _, o := range outcomes {
			if o.Steps >= t {
				atRisk++
			}
			if o.Reason == engine.TerminalFailure && o.Steps >= t && o.Steps < t+window {
				failures++
			}
		}
		if atRisk > 0 {
			points = append(points, HazardPoint{
				Timestep: t,
				Rate:     float64(failures) / float64(atRisk*window),
			})
		}
	}
	return points
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// stddev is the population standard deviation.
func stddev(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := mean(xs)
	sum := 0.0
	for _, x := range xs {
		d := x - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(xs)))
}

func formatMedian(m *int) string {
	if m == nil {
		return "n/a (>50% survive)"
	}
	return fmt.Sprintf("%d", *m)
}
