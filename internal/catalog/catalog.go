// Package catalog maps policy and world descriptor names to live values.
// It is the single place where the built-in worlds and policy variants are
// registered, shared by the CLI, the MCP server, and the work-distribution
// boundary.
package catalog

import (
	"fmt"
	"sort"

	"github.com/xailong-6969/LLM-Policy-Stress-Framework/internal/engine"
	"github.com/xailong-6969/LLM-Policy-Stress-Framework/internal/llm"
	"github.com/xailong-6969/LLM-Policy-Stress-Framework/internal/policy"
	"github.com/xailong-6969/LLM-Policy-Stress-Framework/internal/worlds/project"
)

// Catalog resolves descriptor names. It satisfies swarm.Resolver.
type Catalog struct {
	llmConfig llm.ClientConfig
	tuning    project.Tuning
}

// Option adjusts a Catalog.
type Option func(*Catalog)

// WithLLM supplies the backend configuration for the "llm" and "hybrid"
// policies. Without it those policies run on the fallback action only.
func WithLLM(cfg llm.ClientConfig) Option {
	return func(c *Catalog) { c.llmConfig = cfg }
}

// WithTuning overrides the project world tuning.
func WithTuning(t project.Tuning) Option {
	return func(c *Catalog) { c.tuning = t }
}

// New creates a catalog with default tuning.
func New(opts ...Option) *Catalog {
	c := &Catalog{tuning: project.DefaultTuning()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PolicyNames lists the registered policy descriptors.
func (c *Catalog) PolicyNames() []string {
	names := []string{"aggressive", "conservative", "balanced", "random", "llm", "hybrid"}
	sort.Strings(names)
	return names
}

// WorldNames lists the registered world descriptors.
func (c *Catalog) WorldNames() []string {
	return []string{"project"}
}

// ResolvePolicy builds the named policy variant.
func (c *Catalog) ResolvePolicy(name string) (engine.Policy, error) {
	switch name {
	case "aggressive":
		return project.AggressivePolicy(), nil
	case "conservative":
		return project.ConservativePolicy(), nil
	case "balanced":
		return project.BalancedPolicy(), nil
	case "random":
		return policy.Random{}, nil
	case "llm":
		return c.llmPolicy()
	case "hybrid":
		llmPolicy, err := c.llmPolicy()
		if err != nil {
			return nil, err
		}
		return &policy.Hybrid{
			Rules:    project.EmergencyPolicy(),
			External: llmPolicy,
		}, nil
	default:
		return nil, fmt.Errorf("unknown policy %q", name)
	}
}

// ResolveWorld builds the named world factory.
func (c *Catalog) ResolveWorld(name string) (engine.Factory, error) {
	switch name {
	case "project":
		return project.Factory(c.tuning), nil
	default:
		return nil, fmt.Errorf("unknown world %q", name)
	}
}

func (c *Catalog) llmPolicy() (*policy.LLM, error) {
	provider := c.llmConfig.Provider
	if provider == "" {
		provider = "mock"
	}
	cfg := c.llmConfig
	cfg.Provider = provider
	client, err := llm.NewDecider(cfg)
	if err != nil {
		return nil, fmt.Errorf("building llm policy: %w", err)
	}
	return policy.NewLLM(client, project.ActionDelay), nil
}
