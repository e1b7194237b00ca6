package metrics

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/xailong-6969/LLM-Policy-Stress-Framework/internal/engine"
)

// ErrEmptyDistribution is returned when metrics are requested over an
// empty outcome set.
var ErrEmptyDistribution = errors.New("metrics: empty outcome distribution")

// Report is the full metrics bundle for one batch of runs.
type Report struct {
	TotalRuns int `json:"total_runs"`
	Successes int `json:"successes"`
	Failures  int `json:"failures"`
	Timeouts  int `json:"timeouts"`
	Errors    int `json:"errors"`

	MeanScore *float64 `json:"mean_score"`

	Survival       SurvivalCurve      `json:"survival"`
	MedianSurvival *int               `json:"median_survival"`
	Hazard         []HazardPoint      `json:"hazard"`
	Collapse       CollapseMetrics    `json:"collapse"`
	Regret         RegretDistribution `json:"regret"`
	Brittleness    *float64           `json:"brittleness"`
	Triggers       []EventRisk        `json:"triggers,omitempty"`
}

// hazardWindow is the smoothing window size for the hazard rate, as a
// fraction of max steps.
const hazardWindowFraction = 0.05

// ComputeOptions tunes report computation.
type ComputeOptions struct {
	// HighNoise overrides the default high-noise predicate used for the
	// brittleness score.
	HighNoise HighNoisePredicate
}

// Compute aggregates outcomes into a Report. All statistics are computed
// over the full set; outcome order is irrelevant. Returns
// ErrEmptyDistribution when outcomes is empty.
func Compute(outcomes []engine.Outcome, maxSteps int) (*Report, error) {
	return ComputeWith(outcomes, maxSteps, ComputeOptions{})
}

// ComputeWith is Compute with explicit options.
func ComputeWith(outcomes []engine.Outcome, maxSteps int, opts ComputeOptions) (*Report, error) {
	if len(outcomes) == 0 {
		return nil, ErrEmptyDistribution
	}

	r := &Report{TotalRuns: len(outcomes)}
	var scores []float64
	for _, o := range outcomes {
		switch o.Reason {
		case engine.TerminalSuccess:
			r.Successes++
		case engine.TerminalFailure:
			r.Failures++
		case engine.TerminalTimeout:
			r.Timeouts++
		case engine.TerminalError:
			r.Errors++
		}
		if o.ScoreValid {
			scores = append(scores, o.Score)
		}
	}
	if len(scores) > 0 {
		// Summation order affects the low bits; sort so permuting the
		// outcomes cannot change the reported mean.
		sort.Float64s(scores)
		m := mean(scores)
		r.MeanScore = &m
	}

	r.Survival = NewSurvivalCurve(outcomes)
	r.MedianSurvival = r.Survival.Median()

	window := int(float64(maxSteps) * hazardWindowFraction)
	if window < 1 {
		window = 1
	}
	r.Hazard = HazardRate(outcomes, window)

	r.Collapse = NewCollapseMetrics(outcomes, maxSteps)
	r.Regret = NewRegretDistribution(outcomes)
	r.Brittleness = Brittleness(outcomes, opts.HighNoise)
	r.Triggers = CollapseTriggers(outcomes)
	return r, nil
}

// Text renders the report as plain text.
func (r *Report) Text() string {
	var b strings.Builder

	fmt.Fprintf(&b, "Robustness Report (%d runs)\n", r.TotalRuns)
	fmt.Fprintf(&b, "  Success: %d  Failure: %d  Timeout: %d  Error: %d\n",
		r.Successes, r.Failures, r.Timeouts, r.Errors)
	if r.MeanScore != nil {
		fmt.Fprintf(&b, "  Mean score: %.3f\n", *r.MeanScore)
	}

	b.WriteString("\nSurvival:\n")
	fmt.Fprintf(&b, "  Final survival rate: %.1f%%\n", r.Survival.Final()*100)
	fmt.Fprintf(&b, "  Median survival time: %s\n", formatMedian(r.MedianSurvival))

	b.WriteString("\nCollapse:\n")
	fmt.Fprintf(&b, "  Probability: %.1f%%\n", r.Collapse.Probability*100)
	if r.Collapse.MeanTimeToCollapse != nil {
		fmt.Fprintf(&b, "  Mean time to collapse: %.1f steps (std %.1f)\n",
			*r.Collapse.MeanTimeToCollapse, *r.Collapse.StdTimeToCollapse)
	}
	fmt.Fprintf(&b, "  Early (first 20%%): %.1f%%  Late (last 20%%): %.1f%%\n",
		r.Collapse.EarlyRate*100, r.Collapse.LateRate*100)
	if len(r.Collapse.ByHorizon) > 0 {
		horizons := make([]int, 0, len(r.Collapse.ByHorizon))
		for h := range r.Collapse.ByHorizon {
			horizons = append(horizons, h)
		}
		sort.Ints(horizons)
		b.WriteString("  By horizon:\n")
		for _, h := range horizons {
			fmt.Fprintf(&b, "    step %d: %.1f%%\n", h, r.Collapse.ByHorizon[h]*100)
		}
	}

	if len(r.Regret.Regrets) > 0 {
		b.WriteString("\nRegret:\n")
		fmt.Fprintf(&b, "  Mean: %.3f (std %.3f)\n", r.Regret.Mean, r.Regret.Std)
		fmt.Fprintf(&b, "  Median: %.3f  Max: %.3f\n", r.Regret.Median, r.Regret.Max)
		fmt.Fprintf(&b, "  Tail (worst 10%%): %.3f\n", r.Regret.Tail)
	}

	b.WriteString("\nBrittleness: ")
	if r.Brittleness != nil {
		fmt.Fprintf(&b, "%.3f\n", *r.Brittleness)
	} else {
		b.WriteString("n/a\n")
	}

	if len(r.Triggers) > 0 {
		b.WriteString("\nCollapse triggers (relative risk):\n")
		for _, tr := range r.Triggers {
			fmt.Fprintf(&b, "  %s: %.2f\n", tr.Name, tr.RelativeRisk)
		}
	}
	return b.String()
}

// Markdown renders the report in markdown table form.
func (r *Report) Markdown() string {
	var b strings.Builder

	b.WriteString("# Robustness Report\n\n")
	b.WriteString("## Summary\n\n")
	b.WriteString("| Metric | Value |\n|--------|-------|\n")
	fmt.Fprintf(&b, "| Total runs | %d |\n", r.TotalRuns)
	fmt.Fprintf(&b, "| Successes | %d |\n", r.Successes)
	fmt.Fprintf(&b, "| Failures | %d |\n", r.Failures)
	fmt.Fprintf(&b, "| Timeouts | %d |\n", r.Timeouts)
	fmt.Fprintf(&b, "| Errors | %d |\n", r.Errors)
	if r.MeanScore != nil {
		fmt.Fprintf(&b, "| Mean score | %.3f |\n", *r.MeanScore)
	}
	b.WriteString("\n## Survival\n\n")
	fmt.Fprintf(&b, "- Final survival rate: %.1f%%\n", r.Survival.Final()*100)
	fmt.Fprintf(&b, "- Median survival time: %s\n", formatMedian(r.MedianSurvival))

	b.WriteString("\n## Collapse\n\n")
	fmt.Fprintf(&b, "- Probability: %.1f%%\n", r.Collapse.Probability*100)
	fmt.Fprintf(&b, "- Early rate: %.1f%%\n", r.Collapse.EarlyRate*100)
	fmt.Fprintf(&b, "- Late rate: %.1f%%\n", r.Collapse.LateRate*100)

	if len(r.Regret.Regrets) > 0 {
		b.WriteString("\n## Regret\n\n")
		fmt.Fprintf(&b, "- Mean: %.3f\n", r.Regret.Mean)
		fmt.Fprintf(&b, "- Tail (worst 10%%): %.3f\n", r.Regret.Tail)
	}

	b.WriteString("\n## Brittleness\n\n")
	if r.Brittleness != nil {
		fmt.Fprintf(&b, "- Score: %.3f\n", *r.Brittleness)
	} else {
		b.WriteString("- Score: n/a\n")
	}
	return b.String()
}

// JSON renders the report as indented JSON.
func (r *Report) JSON() (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding report: %w", err)
	}
	return string(data), nil
}
