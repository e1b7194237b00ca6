package swarm

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"sync/atomic"
	"testing"

	"github.com/xailong-6969/LLM-Policy-Stress-Framework/internal/engine"
	"github.com/xailong-6969/LLM-Policy-Stress-Framework/internal/metrics"
)

// quietWorld is an event-free test world. It times out unless failStep is
// set, in which case it fails once the timestep reaches it.
type quietWorld struct {
	state    engine.State
	failStep int
}

func newQuietWorld(seed uint64) *quietWorld {
	return &quietWorld{state: engine.NewState(map[string]float64{"seed": float64(seed)})}
}

func (w *quietWorld) Snapshot() engine.State { return w.state.Clone() }

func (w *quietWorld) LegalActions() []engine.Action {
	return []engine.Action{{Name: "noop"}}
}

func (w *quietWorld) Step(a engine.Action) error {
	if w.state.IsTerminal() {
		return engine.ErrWorldTerminal
	}
	if a.Name != "noop" {
		return fmt.Errorf("%w: %q", engine.ErrInvalidAction, a.Name)
	}
	w.state.Timestep++
	return nil
}

func (w *quietWorld) ApplyEvents(_ *rand.Rand) ([]string, error) {
	if w.state.IsTerminal() {
		return nil, engine.ErrWorldTerminal
	}
	return nil, nil
}

func (w *quietWorld) CheckTerminal() engine.TerminalReason {
	if w.state.IsTerminal() {
		return w.state.Terminal
	}
	if w.failStep > 0 && w.state.Timestep >= w.failStep {
		w.state.Terminal = engine.TerminalFailure
	}
	return w.state.Terminal
}

func (w *quietWorld) Expire() {
	if !w.state.IsTerminal() {
		w.state.Terminal = engine.TerminalTimeout
	}
}

func (w *quietWorld) Score() (float64, error) {
	if !w.state.IsTerminal() {
		return 0, engine.ErrPrematureScore
	}
	return 0.5, nil
}

type policyFunc func(ctx context.Context, dc engine.DecisionContext) (engine.Action, error)

func (f policyFunc) Decide(ctx context.Context, dc engine.DecisionContext) (engine.Action, error) {
	return f(ctx, dc)
}

func noopPolicy() engine.Policy {
	return policyFunc(func(_ context.Context, _ engine.DecisionContext) (engine.Action, error) {
		return engine.Action{Name: "noop"}, nil
	})
}

func TestExecutor_AllTimeout(t *testing.T) {
	factory := func(seed uint64) (engine.World, error) { return newQuietWorld(seed), nil }

	exec, err := NewExecutor(factory, Config{NWorlds: 20, BaseSeed: 42, MaxSteps: 10, Workers: 4}, nil)
	if err != nil {
		t.Fatalf("NewExecutor() error = %v", err)
	}
	result, err := exec.Run(context.Background(), noopPolicy())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if result.NCompleted != 20 || result.Errored != 0 {
		t.Fatalf("completed %d errored %d, want 20/0", result.NCompleted, result.Errored)
	}
	for _, o := range result.Outcomes {
		if o.Reason != engine.TerminalTimeout {
			t.Errorf("seed %d: reason = %v, want timeout", o.Seed, o.Reason)
		}
		if o.Steps != 10 {
			t.Errorf("seed %d: steps = %d, want 10", o.Seed, o.Steps)
		}
	}

	r, err := metrics.Compute(result.Outcomes, 10)
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}
	if r.Collapse.Probability != 0 {
		t.Errorf("collapse probability = %v, want 0 for a quiet world", r.Collapse.Probability)
	}
}

func TestExecutor_AllFailAtStepOne(t *testing.T) {
	factory := func(seed uint64) (engine.World, error) {
		w := newQuietWorld(seed)
		w.failStep = 1
		return w, nil
	}

	exec, err := NewExecutor(factory, Config{NWorlds: 50, BaseSeed: 1, MaxSteps: 50, Workers: 8}, nil)
	if err != nil {
		t.Fatalf("NewExecutor() error = %v", err)
	}
	result, err := exec.Run(context.Background(), noopPolicy())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	r, err := metrics.Compute(result.Outcomes, 50)
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}
	if r.Collapse.Probability != 1.0 {
		t.Errorf("collapse probability = %v, want 1.0", r.Collapse.Probability)
	}
	if r.MedianSurvival == nil || *r.MedianSurvival != 1 {
		t.Errorf("median survival = %v, want 1", r.MedianSurvival)
	}
}

func TestExecutor_SeedsCoverRange(t *testing.T) {
	factory := func(seed uint64) (engine.World, error) { return newQuietWorld(seed), nil }

	exec, err := NewExecutor(factory, Config{NWorlds: 10, BaseSeed: 100, MaxSteps: 2, Workers: 3}, nil)
	if err != nil {
		t.Fatalf("NewExecutor() error = %v", err)
	}
	result, err := exec.Run(context.Background(), noopPolicy())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	seeds := make([]uint64, len(result.Outcomes))
	for i, o := range result.Outcomes {
		seeds[i] = o.Seed
	}
	sort.Slice(seeds, func(i, j int) bool { return seeds[i] < seeds[j] })
	for i, s := range seeds {
		if s != 100+uint64(i) {
			t.Fatalf("seeds = %v, want contiguous range from 100", seeds)
		}
	}
}

func TestExecutor_ErroredRunsIsolated(t *testing.T) {
	factory := func(seed uint64) (engine.World, error) { return newQuietWorld(seed), nil }

	// Even seeds repeatedly pick an illegal action, odd seeds behave.
	p := policyFunc(func(_ context.Context, dc engine.DecisionContext) (engine.Action, error) {
		if uint64(dc.State.Get("seed"))%2 == 0 {
			return engine.Action{Name: "bogus"}, nil
		}
		return engine.Action{Name: "noop"}, nil
	})

	exec, err := NewExecutor(factory, Config{NWorlds: 10, BaseSeed: 0, MaxSteps: 5, Workers: 2}, nil)
	if err != nil {
		t.Fatalf("NewExecutor() error = %v", err)
	}
	result, err := exec.Run(context.Background(), p)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if result.NCompleted != 10 {
		t.Fatalf("NCompleted = %d, want 10 (errored runs still complete)", result.NCompleted)
	}
	if result.Errored != 5 {
		t.Errorf("Errored = %d, want 5", result.Errored)
	}
	for _, o := range result.Outcomes {
		wantErr := o.Seed%2 == 0
		if gotErr := o.Reason == engine.TerminalError; gotErr != wantErr {
			t.Errorf("seed %d: reason = %v", o.Seed, o.Reason)
		}
	}
}

func TestExecutor_PanicBecomesErroredOutcome(t *testing.T) {
	factory := func(seed uint64) (engine.World, error) { return newQuietWorld(seed), nil }

	p := policyFunc(func(_ context.Context, dc engine.DecisionContext) (engine.Action, error) {
		if uint64(dc.State.Get("seed")) == 3 {
			panic("policy blew up")
		}
		return engine.Action{Name: "noop"}, nil
	})

	exec, err := NewExecutor(factory, Config{NWorlds: 5, BaseSeed: 0, MaxSteps: 3, Workers: 2}, nil)
	if err != nil {
		t.Fatalf("NewExecutor() error = %v", err)
	}
	result, err := exec.Run(context.Background(), p)
	if err != nil {
		t.Fatalf("Run() error = %v, want panic contained", err)
	}

	if result.NCompleted != 5 || result.Errored != 1 {
		t.Fatalf("completed %d errored %d, want 5/1", result.NCompleted, result.Errored)
	}
	for _, o := range result.Outcomes {
		if o.Seed == 3 && o.Reason != engine.TerminalError {
			t.Errorf("panicking run reason = %v, want error", o.Reason)
		}
	}
}

func TestExecutor_CancellationYieldsPartialResult(t *testing.T) {
	factory := func(seed uint64) (engine.World, error) { return newQuietWorld(seed), nil }

	ctx, cancel := context.WithCancel(context.Background())
	var decisions atomic.Int64
	p := policyFunc(func(_ context.Context, _ engine.DecisionContext) (engine.Action, error) {
		if decisions.Add(1) == 25 {
			cancel()
		}
		return engine.Action{Name: "noop"}, nil
	})

	exec, err := NewExecutor(factory, Config{NWorlds: 100, BaseSeed: 7, MaxSteps: 5, Workers: 1}, nil)
	if err != nil {
		t.Fatalf("NewExecutor() error = %v", err)
	}
	result, err := exec.Run(ctx, p)
	if err != nil {
		t.Fatalf("Run() error = %v, want partial result with nil error", err)
	}

	if result.NCompleted >= result.NRequested {
		t.Fatalf("NCompleted = %d, want fewer than %d after cancel", result.NCompleted, result.NRequested)
	}
	if result.NCompleted == 0 {
		t.Fatal("NCompleted = 0, want the runs finished before cancel")
	}

	// The partial outcome set still yields a valid report.
	r, err := metrics.Compute(result.Outcomes, 5)
	if err != nil {
		t.Fatalf("Compute() over partial outcomes: %v", err)
	}
	if r.TotalRuns != result.NCompleted {
		t.Errorf("report covers %d runs, want %d", r.TotalRuns, result.NCompleted)
	}
}

func TestExecutor_FactoryErrorIsFatal(t *testing.T) {
	factory := func(seed uint64) (engine.World, error) { return nil, errors.New("bad tuning") }

	exec, err := NewExecutor(factory, Config{NWorlds: 5, MaxSteps: 5}, nil)
	if err != nil {
		t.Fatalf("NewExecutor() error = %v", err)
	}
	if _, err := exec.Run(context.Background(), noopPolicy()); err == nil {
		t.Fatal("Run() = nil error, want factory error surfaced before dispatch")
	}
}

func TestExecutor_SoftFailureCount(t *testing.T) {
	factory := func(seed uint64) (engine.World, error) { return newQuietWorld(seed), nil }

	p := &countingPolicy{}
	exec, err := NewExecutor(factory, Config{NWorlds: 3, MaxSteps: 2, Workers: 1}, nil)
	if err != nil {
		t.Fatalf("NewExecutor() error = %v", err)
	}
	result, err := exec.Run(context.Background(), p)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.SoftFailures != 6 {
		t.Errorf("SoftFailures = %d, want 6 (one per decision)", result.SoftFailures)
	}
}

// countingPolicy reports every decision as a soft failure.
type countingPolicy struct {
	n atomic.Int64
}

func (p *countingPolicy) Decide(_ context.Context, _ engine.DecisionContext) (engine.Action, error) {
	p.n.Add(1)
	return engine.Action{Name: "noop"}, nil
}

func (p *countingPolicy) SoftFailures() int64 { return p.n.Load() }

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"valid", Config{NWorlds: 1, MaxSteps: 1}, false},
		{"zero worlds", Config{NWorlds: 0, MaxSteps: 1}, true},
		{"zero steps", Config{NWorlds: 1, MaxSteps: 0}, true},
		{"negative workers", Config{NWorlds: 1, MaxSteps: 1, Workers: -1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
