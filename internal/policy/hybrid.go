package policy

import (
	"context"
	"errors"

	"github.com/xailong-6969/LLM-Policy-Stress-Framework/internal/engine"
)

// Hybrid tries its rule set first and delegates to an external policy only
// when no rule matches. This keeps cheap deterministic coverage for the
// common cases while letting a model handle the long tail.
type Hybrid struct {
	Rules    *RuleBased
	External engine.Policy
}

// Decide consults the rules, falling through to the external policy on
// engine.ErrNoMatchingRule. Any other rule error propagates.
func (p *Hybrid) Decide(ctx context.Context, dc engine.DecisionContext) (engine.Action, error) {
	a, err := p.Rules.Decide(ctx, dc)
	if err == nil {
		return a, nil
	}
	if errors.Is(err, engine.ErrNoMatchingRule) {
		return p.External.Decide(ctx, dc)
	}
	return engine.Action{}, err
}

// SoftFailures reports the external policy's recovery count, if it keeps
// one.
func (p *Hybrid) SoftFailures() int64 {
	if c, ok := p.External.(interface{ SoftFailures() int64 }); ok {
		return c.SoftFailures()
	}
	return 0
}
