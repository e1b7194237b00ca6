package engine

import (
	"context"
	"errors"
	"fmt"
)

// EventRecord notes a triggered event and when it fired.
type EventRecord struct {
	Timestep int    `json:"timestep"`
	Name     string `json:"name"`
}

// Outcome is the immutable record of one completed run.
type Outcome struct {
	Seed       uint64         `json:"seed"`
	Reason     TerminalReason `json:"reason"`
	Steps      int            `json:"steps"`
	FinalState State          `json:"final_state"`

	// Score rates the final state. Valid only when ScoreValid is true;
	// errored runs carry no score.
	Score      float64 `json:"score"`
	ScoreValid bool    `json:"score_valid"`

	// EventCount is the total number of event triggers during the run,
	// used by the brittleness noise predicate.
	EventCount int `json:"event_count"`

	// Events lists every trigger in order. Populated only when the runner
	// records trajectories.
	Events []EventRecord `json:"events,omitempty"`

	// Trajectory holds the post-step state snapshots when retained.
	Trajectory []State `json:"trajectory,omitempty"`

	// Err describes the contract violation for errored runs.
	Err string `json:"err,omitempty"`
}

// PolicyContractError marks a run-fatal policy misbehavior, e.g. returning
// an illegal action twice in a row. The swarm executor isolates it to the
// single run rather than aborting the batch.
type PolicyContractError struct {
	Seed uint64
	Step int
	Msg  string
}

func (e *PolicyContractError) Error() string {
	return fmt.Sprintf("policy contract violation at seed %d step %d: %s", e.Seed, e.Step, e.Msg)
}

// Runner drives exactly one (world, policy, random stream) triple to a
// terminal state or the step bound.
type Runner struct {
	// MaxSteps bounds the run; reaching it without another terminal
	// condition forces TerminalTimeout.
	MaxSteps int

	// RecordTrajectory retains per-step state snapshots and the full
	// event trigger log on the outcome. Off by default: a swarm of
	// thousands of runs does not need every intermediate state.
	RecordTrajectory bool
}

// Run executes one simulation for the given seed. In-domain failures and
// policy contract violations become outcomes; only engine-fatal conditions
// (malformed factory, cancelled context) return an error.
func (r Runner) Run(ctx context.Context, factory Factory, p Policy, seed uint64) (Outcome, error) {
	if r.MaxSteps <= 0 {
		return Outcome{}, fmt.Errorf("runner: max steps must be positive, got %d", r.MaxSteps)
	}

	world, err := factory(seed)
	if err != nil {
		return Outcome{}, fmt.Errorf("world factory failed for seed %d: %w", seed, err)
	}

	rng := NewRand(seed)
	out := Outcome{Seed: seed}

	var prior *Action
	for step := 0; step < r.MaxSteps; step++ {
		if err := ctx.Err(); err != nil {
			return Outcome{}, err
		}
		if world.CheckTerminal() != TerminalNone {
			break
		}

		legal := world.LegalActions()
		if len(legal) == 0 {
			// Nothing the policy can do; the run expires in place.
			world.Expire()
			break
		}

		snap := world.Snapshot()
		dc := DecisionContext{State: snap, Legal: legal, Prior: prior, Rand: rng}

		action, err := p.Decide(ctx, dc)
		if err != nil {
			return r.errored(out, world, step, fmt.Sprintf("policy error: %v", err)), nil
		}

		if err := world.Step(action); err != nil {
			if !errors.Is(err, ErrInvalidAction) {
				return r.errored(out, world, step, err.Error()), nil
			}
			// One retry with the rejection visible to the policy.
			rejected := action
			dc.Rejected = &rejected
			action, err = p.Decide(ctx, dc)
			if err != nil {
				return r.errored(out, world, step, fmt.Sprintf("policy error after rejection: %v", err)), nil
			}
			if err := world.Step(action); err != nil {
				cv := &PolicyContractError{Seed: seed, Step: step, Msg: fmt.Sprintf("illegal action %q twice in a row", action.Name)}
				return r.errored(out, world, step, cv.Error()), nil
			}
		}

		fired, err := world.ApplyEvents(rng)
		if err != nil {
			return r.errored(out, world, step, err.Error()), nil
		}
		out.EventCount += len(fired)

		world.CheckTerminal()

		if r.RecordTrajectory {
			post := world.Snapshot()
			out.Trajectory = append(out.Trajectory, post)
			for _, name := range fired {
				out.Events = append(out.Events, EventRecord{Timestep: post.Timestep, Name: name})
			}
		}

		a := action
		prior = &a
		out.Steps = step + 1
	}

	if world.CheckTerminal() == TerminalNone {
		world.Expire()
	}

	out.FinalState = world.Snapshot()
	out.Reason = out.FinalState.Terminal

	score, err := world.Score()
	if err != nil {
		return r.errored(out, world, out.Steps, fmt.Sprintf("scoring failed: %v", err)), nil
	}
	out.Score = score
	out.ScoreValid = true
	return out, nil
}

// errored finalizes an outcome for a run-fatal condition. The world's last
// state is preserved for diagnostics but the score stays undefined.
func (r Runner) errored(out Outcome, world World, step int, msg string) Outcome {
	out.FinalState = world.Snapshot()
	out.Reason = TerminalError
	out.Steps = step
	out.Err = msg
	return out
}
