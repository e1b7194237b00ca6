package engine

import (
	"context"
	"errors"
	"math/rand/v2"
)

// Sentinel errors for world and policy contract violations. Domain failures
// are never errors: a world that fails terminates with TerminalFailure and
// produces a valid outcome.
var (
	// ErrInvalidAction is returned by Step when the action is not legal in
	// the current state, e.g. unknown name or insufficient resources.
	ErrInvalidAction = errors.New("action not legal in current state")

	// ErrWorldTerminal is returned by Step and ApplyEvents after the world
	// has reached a terminal state. Calling either is a usage error.
	ErrWorldTerminal = errors.New("world is terminal")

	// ErrPrematureScore is returned by Score before the world is terminal.
	ErrPrematureScore = errors.New("score requested before terminal state")

	// ErrNoMatchingRule is returned by rule-based policies when no rule
	// condition matches the decision context.
	ErrNoMatchingRule = errors.New("no rule matched decision context")
)

// World is a stochastic state machine advancing in discrete timesteps.
// Implementations are owned by exactly one run and are not safe for
// concurrent use; the swarm executor creates a fresh world per seed.
//
// CheckTerminal must evaluate predicates in fixed priority order: success
// before failure before timeout, so that a state satisfying several
// conditions resolves deterministically.
type World interface {
	// Snapshot returns a copy of the current state.
	Snapshot() State

	// LegalActions returns the actions valid in the current state.
	LegalActions() []Action

	// Step applies the action's deterministic effect and increments the
	// timestep. Returns ErrInvalidAction or ErrWorldTerminal on misuse.
	Step(a Action) error

	// ApplyEvents samples the world's candidate events in declaration
	// order using rng and applies the effects of those that trigger.
	// It returns the names of triggered events. All event probabilities
	// are evaluated against the state as it was before this step's
	// events began, so trigger sets reproduce given the same draws.
	ApplyEvents(rng *rand.Rand) ([]string, error)

	// CheckTerminal evaluates terminal predicates and returns the reason,
	// recording it in the state. Returns TerminalNone while the world
	// is live.
	CheckTerminal() TerminalReason

	// Expire forces the world terminal with TerminalTimeout. The runner
	// calls this when the step bound is reached, or when the world offers
	// no legal actions. No-op on already terminal worlds.
	Expire()

	// Score rates the quality of the final state. Defined for every
	// terminal state; returns ErrPrematureScore before then.
	Score() (float64, error)
}

// Factory produces a fresh, independent world for one seeded run.
// Supplied by the domain; any error is engine-fatal and surfaced to the
// caller rather than recorded as a run outcome.
type Factory func(seed uint64) (World, error)

// DecisionContext is the read-only view a policy decides on.
type DecisionContext struct {
	// State is a snapshot of the world before the action.
	State State

	// Legal is the set of actions valid in State, never empty.
	Legal []Action

	// Prior is the action taken on the previous step, if any.
	Prior *Action

	// Rejected is set when the previous decision was refused by the world,
	// giving the policy one chance to pick a legal action instead.
	Rejected *Action

	// Rand is the run-scoped random stream. Stochastic policies must draw
	// from it rather than any process-global source, or determinism breaks.
	Rand *rand.Rand
}

// FindAction returns the legal action with the given name.
func (dc DecisionContext) FindAction(name string) (Action, bool) {
	for _, a := range dc.Legal {
		if a.Name == name {
			return a, true
		}
	}
	return Action{}, false
}

// Policy maps a decision context to an action. Implementations with
// external calls (LLM backends) must respect ctx and must recover from
// malformed responses locally; see policy.LLM.
type Policy interface {
	Decide(ctx context.Context, dc DecisionContext) (Action, error)
}

// NewRand creates the deterministic random stream for one run. Two streams
// built from the same seed produce identical draw sequences.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed))
}
