// Package swarm fans a policy out across many independently seeded world
// simulations and gathers their outcomes. Runs share no mutable state, so
// the executor is a plain bounded worker pool with a join step.
package swarm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/xailong-6969/LLM-Policy-Stress-Framework/internal/engine"
	"github.com/xailong-6969/LLM-Policy-Stress-Framework/internal/logging"
)

// Config controls one swarm evaluation.
type Config struct {
	// NWorlds is the number of runs; seeds are [BaseSeed, BaseSeed+NWorlds).
	NWorlds int `json:"n_worlds" yaml:"n_worlds"`

	// BaseSeed is the first seed in the range.
	BaseSeed uint64 `json:"base_seed" yaml:"base_seed"`

	// MaxSteps bounds each run; reaching it forces a timeout terminal.
	MaxSteps int `json:"max_steps" yaml:"max_steps"`

	// Workers bounds concurrency. Zero means runtime.NumCPU().
	Workers int `json:"workers" yaml:"workers"`

	// RecordTrajectories retains full per-step state history in outcomes.
	RecordTrajectories bool `json:"record_trajectories" yaml:"record_trajectories"`
}

// Validate checks config bounds.
func (c Config) Validate() error {
	if c.NWorlds < 1 {
		return fmt.Errorf("n_worlds must be at least 1, got %d", c.NWorlds)
	}
	if c.MaxSteps < 1 {
		return fmt.Errorf("max_steps must be at least 1, got %d", c.MaxSteps)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", c.Workers)
	}
	return nil
}

// Result is the gathered output of one swarm evaluation.
type Result struct {
	// Outcomes holds one record per completed run, in no particular order.
	Outcomes []engine.Outcome `json:"outcomes"`

	// NRequested and NCompleted differ when the evaluation was cancelled
	// before all runs finished.
	NRequested int `json:"n_requested"`
	NCompleted int `json:"n_completed"`

	// Errored counts runs that ended with a contract violation or panic,
	// separately from domain failures.
	Errored int `json:"errored"`

	// SoftFailures counts policy-level recoveries (e.g. unparseable LLM
	// replies replaced by the fallback action).
	SoftFailures int64 `json:"soft_failures"`

	Elapsed time.Duration `json:"elapsed"`
}

// softFailureCounter is implemented by policies that recover from external
// call failures internally and keep count.
type softFailureCounter interface {
	SoftFailures() int64
}

// Executor runs swarm evaluations.
type Executor struct {
	factory engine.Factory
	config  Config
	logger  *slog.Logger
	runLog  *logging.RunLogger
}

// NewExecutor creates an executor for the given world factory.
// A nil logger disables operational logging.
func NewExecutor(factory engine.Factory, config Config, logger *slog.Logger) (*Executor, error) {
	if factory == nil {
		return nil, errors.New("swarm: nil world factory")
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("swarm: %w", err)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Executor{factory: factory, config: config, logger: logger}, nil
}

// WithRunLog attaches a JSONL trace logger; each finished run produces one
// line. A nil logger is accepted and leaves tracing off.
func (e *Executor) WithRunLog(rl *logging.RunLogger) *Executor {
	e.runLog = rl
	return e
}

// Run executes NWorlds simulations of the policy across the seed range and
// gathers their outcomes. Runs are dispatched to a bounded worker pool;
// output order does not track seed order.
//
// Per-run fatal errors (contract violations, panics) are isolated: they
// become errored outcomes and never abort the swarm. World factory errors
// are engine-fatal and abort immediately. Cancelling ctx stops dispatching
// new runs; the partial result is returned with NCompleted < NRequested
// and a nil error.
func (e *Executor) Run(ctx context.Context, p engine.Policy) (*Result, error) {
	start := time.Now()
	workers := e.config.Workers
	if workers == 0 {
		workers = runtime.NumCPU()
	}
	if workers > e.config.NWorlds {
		workers = e.config.NWorlds
	}

	// Probe the factory once up front so a malformed factory surfaces as
	// an immediate error instead of N errored outcomes.
	if _, err := e.factory(e.config.BaseSeed); err != nil {
		return nil, fmt.Errorf("swarm: world factory: %w", err)
	}

	e.logger.Info("starting swarm",
		"n_worlds", e.config.NWorlds,
		"base_seed", e.config.BaseSeed,
		"max_steps", e.config.MaxSteps,
		"workers", workers)

	runner := engine.Runner{
		MaxSteps:         e.config.MaxSteps,
		RecordTrajectory: e.config.RecordTrajectories,
	}

	seeds := make(chan uint64)
	outcomes := make(chan engine.Outcome)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for seed := range seeds {
				outcome, err := e.runOne(ctx, runner, p, seed)
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					// cancelled mid-run: drop the partial run
					continue
				}
				if err != nil {
					outcome = engine.Outcome{
						Seed:   seed,
						Reason: engine.TerminalError,
						Err:    err.Error(),
					}
				}
				outcomes <- outcome
			}
		}()
	}

	go func() {
		defer close(seeds)
		for i := 0; i < e.config.NWorlds; i++ {
			seed := e.config.BaseSeed + uint64(i)
			select {
			case seeds <- seed:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	result := &Result{NRequested: e.config.NWorlds}
	for o := range outcomes {
		result.Outcomes = append(result.Outcomes, o)
		if o.Reason == engine.TerminalError {
			result.Errored++
			e.logger.Debug("run errored", "seed", o.Seed, "error", o.Err)
		}
		e.runLog.Log(map[string]any{
			"seed":   o.Seed,
			"reason": o.Reason.String(),
			"steps":  o.Steps,
			"score":  o.Score,
			"events": o.EventCount,
		})
	}
	result.NCompleted = len(result.Outcomes)
	result.Elapsed = time.Since(start)

	if counter, ok := p.(softFailureCounter); ok {
		result.SoftFailures = counter.SoftFailures()
	}

	e.logger.Info("swarm finished",
		"completed", result.NCompleted,
		"requested", result.NRequested,
		"errored", result.Errored,
		"soft_failures", result.SoftFailures,
		"elapsed", result.Elapsed)
	return result, nil
}

// runOne executes a single simulation, converting panics into errored
// outcomes so one bad run cannot take down the pool.
func (e *Executor) runOne(ctx context.Context, runner engine.Runner, p engine.Policy, seed uint64) (outcome engine.Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			outcome = engine.Outcome{
				Seed:   seed,
				Reason: engine.TerminalError,
				Err:    fmt.Sprintf("panic: %v", r),
			}
			err = nil
		}
	}()
	return runner.Run(ctx, e.factory, p, seed)
}
