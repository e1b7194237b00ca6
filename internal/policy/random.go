package policy

import (
	"context"

	"github.com/xailong-6969/LLM-Policy-Stress-Framework/internal/engine"
)

// Random picks uniformly from the legal actions. It draws from the
// run-scoped random stream in the decision context, never from a source of
// its own, so runs stay reproducible per seed.
type Random struct{}

// Decide returns a uniformly chosen legal action.
func (Random) Decide(_ context.Context, dc engine.DecisionContext) (engine.Action, error) {
	return dc.Legal[dc.Rand.IntN(len(dc.Legal))], nil
}
