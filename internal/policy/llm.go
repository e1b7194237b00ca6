package policy

import (
	"context"
	"sync/atomic"

	"github.com/xailong-6969/LLM-Policy-Stress-Framework/internal/engine"
	"github.com/xailong-6969/LLM-Policy-Stress-Framework/internal/llm"
)

// LLM asks an external language model to choose an action. A malformed or
// unparseable response is a soft failure: the policy falls back to the
// configured default action and counts it, but never lets the error escape.
// One bad response must not abort a whole swarm.
//
// Safe for concurrent use across runs; the soft failure counter is atomic.
type LLM struct {
	client llm.Decider

	// DefaultAction names the fallback when the model response cannot be
	// mapped to a legal action. Empty means "first legal action".
	DefaultAction string

	softFailures atomic.Int64
}

// NewLLM creates an LLM-backed policy over the given client.
func NewLLM(client llm.Decider, defaultAction string) *LLM {
	return &LLM{client: client, DefaultAction: defaultAction}
}

// Decide serializes the context into a prompt, asks the model, and parses
// the reply into one of the legal actions.
func (p *LLM) Decide(ctx context.Context, dc engine.DecisionContext) (engine.Action, error) {
	prompt := llm.DecisionPrompt(dc.State, dc.Legal, dc.Rejected)

	reply, err := p.client.DecideAction(ctx, prompt)
	if err != nil {
		return p.fallback(dc), nil
	}

	names := make([]string, len(dc.Legal))
	for i, a := range dc.Legal {
		names[i] = a.Name
	}
	name, ok := llm.ParseActionReply(reply, names)
	if !ok {
		return p.fallback(dc), nil
	}
	a, _ := dc.FindAction(name)
	return a, nil
}

// SoftFailures returns how many decisions fell back due to an unusable
// model response. Reported alongside swarm results.
func (p *LLM) SoftFailures() int64 {
	return p.softFailures.Load()
}

func (p *LLM) fallback(dc engine.DecisionContext) engine.Action {
	p.softFailures.Add(1)
	if a, ok := dc.FindAction(p.DefaultAction); ok {
		return a
	}
	return dc.Legal[0]
}
