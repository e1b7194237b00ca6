// Package project implements the software-project reference world: a
// stochastic simulation of a team racing to finish a project before its
// budget, morale, or code quality collapses. It exercises the full world
// contract (state-dependent events, resource-gated actions, multi-cause
// failure) and ships with three rule-based policies of differing appetite
// for risk.
package project

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/xailong-6969/LLM-Policy-Stress-Framework/internal/engine"
)

// Variable names in the project world state.
const (
	VarProgress     = "progress"
	VarDebt         = "debt"
	VarMorale       = "morale"
	VarBudget       = "budget"
	VarBugs         = "bugs"
	VarProductivity = "productivity"
)

// Failure causes, recorded when the world terminates in failure.
const (
	CauseBudgetExhausted   = "budget_exhausted"
	CauseMoraleCollapse    = "morale_collapse"
	CauseTechnicalCollapse = "technical_collapse"
)

// World simulates one software project, one week per timestep. Owned by a
// single run; not safe for concurrent use.
type World struct {
	state        engine.State
	tuning       Tuning
	events       *engine.EventTable
	failureCause string
}

// New creates a fresh project world with the given tuning. The seed is
// unused here: all randomness flows through the run's stream handed to
// ApplyEvents.
func New(tuning Tuning) (*World, error) {
	if err := tuning.Validate(); err != nil {
		return nil, fmt.Errorf("project world: %w", err)
	}
	table, err := newEventTable()
	if err != nil {
		return nil, fmt.Errorf("project world: %w", err)
	}
	return &World{
		state: engine.NewState(map[string]float64{
			VarProgress:     tuning.InitialProgress,
			VarDebt:         tuning.InitialDebt,
			VarMorale:       tuning.InitialMorale,
			VarBudget:       tuning.InitialBudget,
			VarBugs:         tuning.InitialBugs,
			VarProductivity: 1.0,
		}),
		tuning: tuning,
		events: table,
	}, nil
}

// Factory returns an engine.Factory producing independent project worlds
// with the given tuning.
func Factory(tuning Tuning) engine.Factory {
	return func(seed uint64) (engine.World, error) {
		return New(tuning)
	}
}

// Snapshot returns a copy of the current state.
func (w *World) Snapshot() engine.State {
	return w.state.Clone()
}

// LegalActions returns the actions affordable with the remaining budget.
func (w *World) LegalActions() []engine.Action {
	budget := w.state.Get(VarBudget)
	var legal []engine.Action
	for _, d := range actionDefs {
		if d.Cost <= budget {
			legal = append(legal, toEngineAction(d))
		}
	}
	return legal
}

// Step applies one week of work under the chosen action.
func (w *World) Step(a engine.Action) error {
	if w.state.IsTerminal() {
		return engine.ErrWorldTerminal
	}
	def, ok := w.findAction(a.Name)
	if !ok {
		return fmt.Errorf("%w: unknown action %q", engine.ErrInvalidAction, a.Name)
	}
	if def.Cost > w.state.Get(VarBudget) {
		return fmt.Errorf("%w: %s costs %.0f with budget %.0f",
			engine.ErrInvalidAction, def.Name, def.Cost, w.state.Get(VarBudget))
	}

	progress := w.state.Get(VarProgress)
	debt := w.state.Get(VarDebt)
	morale := w.state.Get(VarMorale)
	budget := w.state.Get(VarBudget)
	bugs := w.state.Get(VarBugs)
	productivity := w.state.Get(VarProductivity)

	// Weekly throughput scales with morale (0.5x to 1x) and productivity.
	moraleFactor := 0.5 + morale/200
	base := w.tuning.BaseProgressRate * moraleFactor * productivity

	var progressDelta, debtDelta, moraleDelta, budgetDelta, bugsDelta float64

	switch a.Name {
	case ActionShipNow:
		progressDelta = base * 1.5
		debtDelta = 8
		moraleDelta = -3
		budgetDelta = -3
		bugsDelta = math.Floor(debt / 20)
	case ActionRefactor:
		progressDelta = base * 0.3
		debtDelta = -15
		moraleDelta = 2
		budgetDelta = -2
		bugsDelta = -3
	case ActionHire:
		progressDelta = base * 0.5
		debtDelta = 2
		moraleDelta = 5
		budgetDelta = -8
		productivity *= 1.2
	case ActionCutScope:
		progressDelta = base*0.8 + 10
		debtDelta = 3
		moraleDelta = -5
		budgetDelta = -1
	case ActionFixBugs:
		progressDelta = base * 0.4
		debtDelta = -5
		moraleDelta = 3
		budgetDelta = -2
		bugsDelta = -math.Max(5, math.Floor(bugs/2))
	case ActionDelay:
		progressDelta = base * 0.2
		moraleDelta = -2
		budgetDelta = -1
	}

	// High debt breeds bugs regardless of the action taken.
	if debt > w.tuning.DebtBugThreshold {
		bugsDelta += math.Floor((debt - w.tuning.DebtBugThreshold) / 20)
	}

	w.state.Timestep++
	w.state.Vars[VarProgress] = clamp(progress+progressDelta, 0, 100)
	w.state.Vars[VarDebt] = clamp(debt+debtDelta, 0, 100)
	w.state.Vars[VarMorale] = clamp(morale+moraleDelta, 0, 100)
	w.state.Vars[VarBudget] = math.Max(0, budget+budgetDelta)
	w.state.Vars[VarBugs] = math.Max(0, bugs+bugsDelta)
	w.state.Vars[VarProductivity] = productivity
	return nil
}

// ApplyEvents samples the project's event table against the current state.
func (w *World) ApplyEvents(rng *rand.Rand) ([]string, error) {
	if w.state.IsTerminal() {
		return nil, engine.ErrWorldTerminal
	}
	return w.events.Sample(&w.state, rng), nil
}

// CheckTerminal evaluates completion before any failure cause, so a state
// that simultaneously finishes and exhausts its budget counts as success.
func (w *World) CheckTerminal() engine.TerminalReason {
	if w.state.IsTerminal() {
		return w.state.Terminal
	}

	if w.state.Get(VarProgress) >= 100 {
		w.state.Terminal = engine.TerminalSuccess
		return w.state.Terminal
	}

	switch {
	case w.state.Get(VarBudget) <= 0:
		w.failureCause = CauseBudgetExhausted
	case w.state.Get(VarMorale) <= 0:
		w.failureCause = CauseMoraleCollapse
	case w.state.Get(VarDebt) >= 90 && w.state.Get(VarBugs) >= 20:
		w.failureCause = CauseTechnicalCollapse
	default:
		return engine.TerminalNone
	}
	w.state.Terminal = engine.TerminalFailure
	return w.state.Terminal
}

// Expire forces a timeout terminal. No-op once terminal.
func (w *World) Expire() {
	if !w.state.IsTerminal() {
		w.state.Terminal = engine.TerminalTimeout
	}
}

// Score rates the final state in [0, 1]. Successes start at 0.7 with
// bonuses for leftover budget and morale; failures cap at 0.3 scaled by
// progress; timeouts get partial credit for progress made.
func (w *World) Score() (float64, error) {
	switch w.state.Terminal {
	case engine.TerminalSuccess:
		score := 0.7 +
			w.state.Get(VarBudget)/100*0.1 +
			w.state.Get(VarMorale)/100*0.1 -
			w.state.Get(VarDebt)/100*0.1
		return math.Min(1.0, score), nil
	case engine.TerminalFailure:
		return w.state.Get(VarProgress) / 100 * 0.3, nil
	case engine.TerminalTimeout:
		return 0.3 + w.state.Get(VarProgress)/100*0.3, nil
	default:
		return 0, engine.ErrPrematureScore
	}
}

// FailureCause names the failure condition that terminated the world, or
// empty if the world has not failed.
func (w *World) FailureCause() string {
	return w.failureCause
}

// EventsTriggered returns the total event triggers so far in this run.
func (w *World) EventsTriggered() int {
	return w.events.Triggered()
}

// Describe renders the state for prompts and logs.
func (w *World) Describe() string {
	return fmt.Sprintf("Week %d: Progress=%.0f%%, Debt=%.0f, Morale=%.0f, Budget=%.0f, Bugs=%.0f",
		w.state.Timestep,
		w.state.Get(VarProgress),
		w.state.Get(VarDebt),
		w.state.Get(VarMorale),
		w.state.Get(VarBudget),
		w.state.Get(VarBugs))
}

func (w *World) findAction(name string) (ActionDef, bool) {
	for _, d := range actionDefs {
		if d.Name == name {
			return d, true
		}
	}
	return ActionDef{}, false
}
