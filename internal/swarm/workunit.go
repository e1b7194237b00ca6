package swarm

import (
	"context"
	"fmt"

	"github.com/xailong-6969/LLM-Policy-Stress-Framework/internal/engine"
)

// WorkUnit is the serializable contract handed to a work-distribution
// layer. It names a policy and world by descriptor rather than carrying
// live values, so a remote worker can reconstruct both and run the seed
// range locally. The core treats dispatching a WorkUnit as a remote
// invocation of Executor.Run.
type WorkUnit struct {
	// Policy names a registered policy variant, e.g. "balanced" or "llm".
	Policy string `json:"policy" yaml:"policy"`

	// World names a registered world definition, e.g. "project".
	World string `json:"world" yaml:"world"`

	// SeedStart and SeedCount define the half-open seed range
	// [SeedStart, SeedStart+SeedCount).
	SeedStart uint64 `json:"seed_start" yaml:"seed_start"`
	SeedCount int    `json:"seed_count" yaml:"seed_count"`

	MaxSteps int `json:"max_steps" yaml:"max_steps"`
}

// Validate checks the unit is well formed.
func (w WorkUnit) Validate() error {
	if w.Policy == "" {
		return fmt.Errorf("work unit: empty policy descriptor")
	}
	if w.World == "" {
		return fmt.Errorf("work unit: empty world descriptor")
	}
	if w.SeedCount < 1 {
		return fmt.Errorf("work unit: seed_count must be at least 1, got %d", w.SeedCount)
	}
	if w.MaxSteps < 1 {
		return fmt.Errorf("work unit: max_steps must be at least 1, got %d", w.MaxSteps)
	}
	return nil
}

// Dispatcher executes work units. The local implementation runs them
// in-process; a transport layer would satisfy the same interface by
// shipping units to remote workers.
type Dispatcher interface {
	Dispatch(ctx context.Context, unit WorkUnit) ([]engine.Outcome, error)
}

// Resolver maps work-unit descriptors to live policies and world
// factories.
type Resolver interface {
	ResolvePolicy(name string) (engine.Policy, error)
	ResolveWorld(name string) (engine.Factory, error)
}

// LocalDispatcher satisfies Dispatcher by running units in-process through
// an Executor.
type LocalDispatcher struct {
	Resolver Resolver
}

// Dispatch resolves the unit's descriptors and runs its seed range
// locally, returning the collected outcomes.
func (d *LocalDispatcher) Dispatch(ctx context.Context, unit WorkUnit) ([]engine.Outcome, error) {
	if err := unit.Validate(); err != nil {
		return nil, err
	}
	p, err := d.Resolver.ResolvePolicy(unit.Policy)
	if err != nil {
		return nil, fmt.Errorf("resolving policy %q: %w", unit.Policy, err)
	}
	factory, err := d.Resolver.ResolveWorld(unit.World)
	if err != nil {
		return nil, fmt.Errorf("resolving world %q: %w", unit.World, err)
	}

	exec, err := NewExecutor(factory, Config{
		NWorlds:  unit.SeedCount,
		BaseSeed: unit.SeedStart,
		MaxSteps: unit.MaxSteps,
	}, nil)
	if err != nil {
		return nil, err
	}
	result, err := exec.Run(ctx, p)
	if err != nil {
		return nil, err
	}
	return result.Outcomes, nil
}
