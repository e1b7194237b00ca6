package metrics

import (
	"sort"

	"github.com/xailong-6969/LLM-Policy-Stress-Framework/internal/engine"
)

// CollapseMetrics describes when and how often runs ended in failure.
// Errored runs count in the denominator (they are part of the batch) but
// never in the failure numerators.
type CollapseMetrics struct {
	// Probability is failures / total runs.
	Probability float64 `json:"probability"`

	// MeanTimeToCollapse and StdTimeToCollapse summarize the step counts
	// of failed runs only. Nil when no run failed.
	MeanTimeToCollapse *float64 `json:"mean_time_to_collapse"`
	StdTimeToCollapse  *float64 `json:"std_time_to_collapse"`

	// ByHorizon maps a step horizon to the probability of having failed
	// at or before it.
	ByHorizon map[int]float64 `json:"by_horizon"`

	// EarlyRate counts failures within the first 20% of max steps;
	// LateRate counts failures within the last 20%.
	EarlyRate float64 `json:"early_rate"`
	LateRate  float64 `json:"late_rate"`

	TotalRuns     int `json:"total_runs"`
	CollapseCount int `json:"collapse_count"`
}

// NewCollapseMetrics computes collapse statistics over the outcomes.
// maxSteps anchors the early/late thresholds and default horizons.
func NewCollapseMetrics(outcomes []engine.Outcome, maxSteps int) CollapseMetrics {
	n := len(outcomes)
	if n == 0 {
		return CollapseMetrics{ByHorizon: map[int]float64{}}
	}

	var failureTimes []float64
	for _, o := range outcomes {
		if o.Reason == engine.TerminalFailure {
			failureTimes = append(failureTimes, float64(o.Steps))
		}
	}
	nFailures := len(failureTimes)

	m := CollapseMetrics{
		Probability:   float64(nFailures) / float64(n),
		ByHorizon:     make(map[int]float64),
		TotalRuns:     n,
		CollapseCount: nFailures,
	}

	if nFailures > 0 {
		mu := mean(failureTimes)
		sigma := stddev(failureTimes)
		m.MeanTimeToCollapse = &mu
		m.StdTimeToCollapse = &sigma
	}

	horizons := []int{
		int(float64(maxSteps) * 0.1),
		int(float64(maxSteps) * 0.25),
		int(float64(maxSteps) * 0.5),
		int(float64(maxSteps) * 0.75),
		maxSteps,
	}
	for _, h := range horizons {
		count := 0
		for _, o := range outcomes {
			if o.Reason == engine.TerminalFailure && o.Steps <= h {
				count++
			}
		}
		m.ByHorizon[h] = float64(count) / float64(n)
	}

	earlyCutoff := float64(maxSteps) * 0.2
	lateCutoff := float64(maxSteps) * 0.8
	early, late := 0, 0
	for _, t := range failureTimes {
		if t <= earlyCutoff {
			early++
		}
		if t >= lateCutoff {
			late++
		}
	}
	m.EarlyRate = float64(early) / float64(n)
	m.LateRate = float64(late) / float64(n)

	return m
}

// ConditionalCollapse returns the probability of failing at exactly step t
// among runs that reached step t, or nil when no run reached t.
func ConditionalCollapse(outcomes []engine.Outcome, t int) *float64 {
	atRisk := 0
	failures := 0
	for _, o := range outcomes {
		if o.Steps >= t {
			atRisk++
		}
		if o.Steps == t && o.Reason == engine.TerminalFailure {
			failures++
		}
	}
	if atRisk == 0 {
		return nil
	}
	p := float64(failures) / float64(atRisk)
	return &p
}

// CollapseTriggers ranks event names by their relative risk: how much more
// often each event appears in failed runs than in successful ones.
// Returns nil when there are no failures or no successes to compare.
func CollapseTriggers(outcomes []engine.Outcome) []EventRisk {
	failureCounts := make(map[string]int)
	successCounts := make(map[string]int)
	nFailures, nSuccesses := 0, 0

	for _, o := range outcomes {
		var counts map[string]int
		switch o.Reason {
		case engine.TerminalFailure:
			nFailures++
			counts = failureCounts
		case engine.TerminalSuccess:
			nSuccesses++
			counts = successCounts
		default:
			continue
		}
		for _, ev := range o.Events {
			counts[ev.Name]++
		}
	}
	if nFailures == 0 || nSuccesses == 0 {
		return nil
	}

	names := make(map[string]bool)
	for name := range failureCounts {
		names[name] = true
	}
	for name := range successCounts {
		names[name] = true
	}

	risks := make([]EventRisk, 0, len(names))
	for name := range names {
		failRate := float64(failureCounts[name]) / float64(nFailures)
		// Add-one smoothing keeps the ratio finite when an event never
		// appears in a success (Inf does not survive JSON encoding).
		successRate := float64(successCounts[name]+1) / float64(nSuccesses+1)
		risks = append(risks, EventRisk{Name: name, RelativeRisk: failRate / successRate})
	}
	sort.Slice(risks, func(i, j int) bool {
		if risks[i].RelativeRisk != risks[j].RelativeRisk {
			return risks[i].RelativeRisk > risks[j].RelativeRisk
		}
		return risks[i].Name < risks[j].Name
	})
	return risks
}

// EventRisk associates an event name with its failure relative risk.
type EventRisk struct {
	Name         string  `json:"name"`
	RelativeRisk float64 `json:"relative_risk"`
}
