// Package policy provides the decision policy variants evaluated by the
// framework: rule-based, random, LLM-backed, and hybrid. All variants
// satisfy engine.Policy.
package policy

import (
	"context"
	"fmt"
	"sort"

	"github.com/xailong-6969/LLM-Policy-Stress-Framework/internal/engine"
)

// Condition evaluates a predicate against the decision context.
type Condition func(engine.DecisionContext) bool

// Rule pairs a condition with the action to take when it matches.
type Rule struct {
	// Name identifies the rule in logs and explanations.
	Name string

	// When is the condition; a nil condition never matches.
	When Condition

	// Action names the action to take on match. The action must be legal
	// in the current state or the rule is skipped.
	Action string

	// Priority orders evaluation: higher priority rules are tried first.
	// Equal priorities keep their declaration order.
	Priority int
}

// RuleBased evaluates an ordered rule list and takes the first match.
// Callers normally end the list with an Always catch-all; without one,
// Decide returns engine.ErrNoMatchingRule when nothing applies.
type RuleBased struct {
	name  string
	rules []Rule
}

// NewRuleBased builds a rule-based policy. Rules are stably sorted by
// descending priority once, at construction.
func NewRuleBased(name string, rules []Rule) *RuleBased {
	sorted := make([]Rule, len(rules))
	copy(sorted, rules)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Priority > sorted[j].Priority })
	return &RuleBased{name: name, rules: sorted}
}

// Name returns the policy's display name.
func (p *RuleBased) Name() string { return p.name }

// Rules returns the rules in evaluation order.
func (p *RuleBased) Rules() []Rule { return p.rules }

// Decide returns the action of the first rule whose condition matches and
// whose action is legal in the current state.
func (p *RuleBased) Decide(_ context.Context, dc engine.DecisionContext) (engine.Action, error) {
	for _, r := range p.rules {
		if r.When == nil || !r.When(dc) {
			continue
		}
		if a, ok := dc.FindAction(r.Action); ok {
			return a, nil
		}
	}
	return engine.Action{}, fmt.Errorf("policy %q: %w", p.name, engine.ErrNoMatchingRule)
}

// Condition helpers for building rule sets.

// VarLT matches when the named state variable is below v.
func VarLT(key string, v float64) Condition {
	return func(dc engine.DecisionContext) bool { return dc.State.Get(key) < v }
}

// VarGT matches when the named state variable is above v.
func VarGT(key string, v float64) Condition {
	return func(dc engine.DecisionContext) bool { return dc.State.Get(key) > v }
}

// VarBetween matches when lo <= state[key] <= hi.
func VarBetween(key string, lo, hi float64) Condition {
	return func(dc engine.DecisionContext) bool {
		v := dc.State.Get(key)
		return v >= lo && v <= hi
	}
}

// Always matches unconditionally; use it for catch-all default rules.
func Always() Condition {
	return func(engine.DecisionContext) bool { return true }
}

// AllOf matches when every condition matches.
func AllOf(conds ...Condition) Condition {
	return func(dc engine.DecisionContext) bool {
		for _, c := range conds {
			if !c(dc) {
				return false
			}
		}
		return true
	}
}
