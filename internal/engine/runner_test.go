package engine

import (
	"context"
	"errors"
	"math/rand/v2"
	"reflect"
	"strings"
	"testing"
)

func TestRunner_Timeout(t *testing.T) {
	factory := func(seed uint64) (World, error) {
		return newStubWorld("noop"), nil
	}

	r := Runner{MaxSteps: 10}
	out, err := r.Run(context.Background(), factory, fixedPolicy("noop"), 1)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if out.Reason != TerminalTimeout {
		t.Errorf("Reason = %v, want timeout", out.Reason)
	}
	if out.Steps != 10 {
		t.Errorf("Steps = %d, want 10", out.Steps)
	}
	if !out.ScoreValid {
		t.Error("timeout run should carry a valid score")
	}
}

func TestRunner_Success(t *testing.T) {
	factory := func(seed uint64) (World, error) {
		w := newStubWorld("inc")
		w.successAt = 3
		return w, nil
	}

	r := Runner{MaxSteps: 50}
	out, err := r.Run(context.Background(), factory, fixedPolicy("inc"), 1)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if out.Reason != TerminalSuccess {
		t.Errorf("Reason = %v, want success", out.Reason)
	}
	if out.Steps != 3 {
		t.Errorf("Steps = %d, want 3", out.Steps)
	}
	if out.Score != 3 {
		t.Errorf("Score = %v, want 3", out.Score)
	}
}

func TestRunner_FailureAtFirstStep(t *testing.T) {
	factory := func(seed uint64) (World, error) {
		w := newStubWorld("noop")
		w.failStep = 1
		return w, nil
	}

	r := Runner{MaxSteps: 50}
	out, err := r.Run(context.Background(), factory, fixedPolicy("noop"), 7)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if out.Reason != TerminalFailure {
		t.Errorf("Reason = %v, want failure", out.Reason)
	}
	if out.Steps != 1 {
		t.Errorf("Steps = %d, want 1", out.Steps)
	}
}

func TestRunner_InvalidActionRetry(t *testing.T) {
	factory := func(seed uint64) (World, error) {
		return newStubWorld("inc"), nil
	}

	// First decision is illegal; the retry picks a legal action after
	// seeing the rejection.
	sawRejection := false
	p := policyFunc(func(_ context.Context, dc DecisionContext) (Action, error) {
		if dc.Rejected != nil {
			sawRejection = true
			return Action{Name: "inc"}, nil
		}
		if dc.State.Timestep == 0 {
			return Action{Name: "bogus"}, nil
		}
		return Action{Name: "inc"}, nil
	})

	r := Runner{MaxSteps: 3}
	out, err := r.Run(context.Background(), factory, p, 1)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !sawRejection {
		t.Error("policy never saw the rejected action")
	}
	if out.Reason != TerminalTimeout {
		t.Errorf("Reason = %v, want timeout", out.Reason)
	}
	if out.Steps != 3 {
		t.Errorf("Steps = %d, want 3", out.Steps)
	}
}

func TestRunner_InvalidActionTwiceErrors(t *testing.T) {
	factory := func(seed uint64) (World, error) {
		return newStubWorld("inc"), nil
	}

	r := Runner{MaxSteps: 10}
	out, err := r.Run(context.Background(), factory, fixedPolicy("bogus"), 42)
	if err != nil {
		t.Fatalf("Run() error = %v; contract violations must become outcomes", err)
	}
	if out.Reason != TerminalError {
		t.Errorf("Reason = %v, want error", out.Reason)
	}
	if out.ScoreValid {
		t.Error("errored run must not carry a score")
	}
	if !strings.Contains(out.Err, "twice") {
		t.Errorf("Err = %q, want mention of repeated illegal action", out.Err)
	}
}

func TestRunner_PolicyError(t *testing.T) {
	factory := func(seed uint64) (World, error) {
		return newStubWorld("noop"), nil
	}
	p := policyFunc(func(_ context.Context, _ DecisionContext) (Action, error) {
		return Action{}, errors.New("decide exploded")
	})

	r := Runner{MaxSteps: 10}
	out, err := r.Run(context.Background(), factory, p, 1)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if out.Reason != TerminalError {
		t.Errorf("Reason = %v, want error", out.Reason)
	}
	if !strings.Contains(out.Err, "decide exploded") {
		t.Errorf("Err = %q, want policy error text", out.Err)
	}
}

func TestRunner_NoLegalActionsExpires(t *testing.T) {
	factory := func(seed uint64) (World, error) {
		return newStubWorld(), nil
	}

	r := Runner{MaxSteps: 10}
	out, err := r.Run(context.Background(), factory, fixedPolicy("noop"), 1)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if out.Reason != TerminalTimeout {
		t.Errorf("Reason = %v, want timeout when no actions remain", out.Reason)
	}
	if out.Steps != 0 {
		t.Errorf("Steps = %d, want 0", out.Steps)
	}
}

func TestRunner_FactoryErrorIsFatal(t *testing.T) {
	factory := func(seed uint64) (World, error) {
		return nil, errors.New("bad tuning")
	}

	r := Runner{MaxSteps: 10}
	if _, err := r.Run(context.Background(), factory, fixedPolicy("noop"), 1); err == nil {
		t.Fatal("Run() = nil error, want factory error surfaced")
	}
}

func TestRunner_CancelledContext(t *testing.T) {
	factory := func(seed uint64) (World, error) {
		return newStubWorld("noop"), nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := Runner{MaxSteps: 10}
	if _, err := r.Run(ctx, factory, fixedPolicy("noop"), 1); !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() error = %v, want context.Canceled", err)
	}
}

func TestRunner_Determinism(t *testing.T) {
	factory := func(seed uint64) (World, error) {
		w := newStubWorld("inc", "noop")
		w.successAt = 20
		table, err := NewEventTable(
			Event{
				Name:        "setback",
				Probability: 0.3,
				Apply:       func(s *State, _ *rand.Rand) { s.Vars["x"] -= 1 },
			},
			Event{
				Name:        "windfall",
				Probability: 0.2,
				Cooldown:    3,
				Apply:       func(s *State, _ *rand.Rand) { s.Vars["x"] += 2 },
			},
		)
		if err != nil {
			return nil, err
		}
		w.table = table
		return w, nil
	}

	// Stochastic policy drawing from the run stream.
	p := policyFunc(func(_ context.Context, dc DecisionContext) (Action, error) {
		return dc.Legal[dc.Rand.IntN(len(dc.Legal))], nil
	})

	r := Runner{MaxSteps: 30, RecordTrajectory: true}
	for _, seed := range []uint64{1, 42, 9999} {
		a, err := r.Run(context.Background(), factory, p, seed)
		if err != nil {
			t.Fatalf("seed %d first run: %v", seed, err)
		}
		b, err := r.Run(context.Background(), factory, p, seed)
		if err != nil {
			t.Fatalf("seed %d second run: %v", seed, err)
		}
		if !reflect.DeepEqual(a, b) {
			t.Errorf("seed %d: outcomes differ between identical runs\nfirst:  %+v\nsecond: %+v", seed, a, b)
		}
	}
}

func TestRunner_TerminalPriority(t *testing.T) {
	// A state satisfying both success and failure must resolve as success.
	factory := func(seed uint64) (World, error) {
		w := newStubWorld("inc")
		w.successAt = 1
		w.failStep = 1
		return w, nil
	}

	r := Runner{MaxSteps: 10}
	out, err := r.Run(context.Background(), factory, fixedPolicy("inc"), 1)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if out.Reason != TerminalSuccess {
		t.Errorf("Reason = %v, want success to win over failure", out.Reason)
	}
}

func TestRunner_RejectsNonPositiveMaxSteps(t *testing.T) {
	factory := func(seed uint64) (World, error) {
		return newStubWorld("noop"), nil
	}
	r := Runner{MaxSteps: 0}
	if _, err := r.Run(context.Background(), factory, fixedPolicy("noop"), 1); err == nil {
		t.Fatal("Run() = nil error, want max steps validation error")
	}
}
