package engine

import (
	"context"
	"fmt"
	"math/rand/v2"
)

// stubWorld is a minimal deterministic world for runner tests. It tracks a
// single counter "x", succeeds when x reaches successAt, and fails once the
// timestep reaches failStep. Either bound is disabled when zero.
type stubWorld struct {
	state     State
	table     *EventTable
	successAt float64
	failStep  int
	legal     []Action
}

func newStubWorld(legal ...string) *stubWorld {
	actions := make([]Action, len(legal))
	for i, name := range legal {
		actions[i] = Action{Name: name}
	}
	return &stubWorld{
		state: NewState(map[string]float64{"x": 0}),
		legal: actions,
	}
}

func (w *stubWorld) Snapshot() State {
	return w.state.Clone()
}

func (w *stubWorld) LegalActions() []Action {
	out := make([]Action, len(w.legal))
	copy(out, w.legal)
	return out
}

func (w *stubWorld) Step(a Action) error {
	if w.state.IsTerminal() {
		return ErrWorldTerminal
	}
	found := false
	for _, l := range w.legal {
		if l.Name == a.Name {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("%w: %q", ErrInvalidAction, a.Name)
	}
	if a.Name == "inc" {
		w.state.Vars["x"]++
	}
	w.state.Timestep++
	return nil
}

func (w *stubWorld) ApplyEvents(rng *rand.Rand) ([]string, error) {
	if w.state.IsTerminal() {
		return nil, ErrWorldTerminal
	}
	if w.table == nil {
		return nil, nil
	}
	return w.table.Sample(&w.state, rng), nil
}

func (w *stubWorld) CheckTerminal() TerminalReason {
	if w.state.IsTerminal() {
		return w.state.Terminal
	}
	if w.successAt > 0 && w.state.Get("x") >= w.successAt {
		w.state.Terminal = TerminalSuccess
	} else if w.failStep > 0 && w.state.Timestep >= w.failStep {
		w.state.Terminal = TerminalFailure
	}
	return w.state.Terminal
}

func (w *stubWorld) Expire() {
	if !w.state.IsTerminal() {
		w.state.Terminal = TerminalTimeout
	}
}

func (w *stubWorld) Score() (float64, error) {
	if !w.state.IsTerminal() {
		return 0, ErrPrematureScore
	}
	return w.state.Get("x"), nil
}

// policyFunc adapts a function to the Policy interface.
type policyFunc func(ctx context.Context, dc DecisionContext) (Action, error)

func (f policyFunc) Decide(ctx context.Context, dc DecisionContext) (Action, error) {
	return f(ctx, dc)
}

func fixedPolicy(name string) Policy {
	return policyFunc(func(_ context.Context, _ DecisionContext) (Action, error) {
		return Action{Name: name}, nil
	})
}
