// Package llm provides the external decision backends for LLM-backed
// policies. It supports the Anthropic and OpenAI APIs, OpenAI-compatible
// endpoints such as ollama, a local GGUF model, and a mock for tests.
package llm

import (
	"context"
	"fmt"
	"time"
)

// Decider is the boundary the policy layer calls through. Implementations
// turn a decision prompt into a raw model reply; parsing the reply into an
// action stays with the caller so fallback behavior is uniform across
// backends.
type Decider interface {
	// DecideAction sends the prompt and returns the model's reply text.
	DecideAction(ctx context.Context, prompt string) (string, error)

	// Available reports whether the backend is configured and ready.
	Available() bool
}

// Closer is an optional interface for backends holding resources that need
// cleanup. Consumers type-assert: if c, ok := d.(Closer); ok { c.Close() }.
type Closer interface {
	Close() error
}

// ClientConfig configures a decision backend.
type ClientConfig struct {
	// Provider identifies the backend: "anthropic", "openai", "ollama",
	// "local", or "mock".
	Provider string `json:"provider" yaml:"provider"`

	// APIKey is the provider credential. Not used for ollama, local, or mock.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// BaseURL overrides the API endpoint. Used for ollama or custom
	// OpenAI-compatible endpoints.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`

	// Model is the model identifier to request.
	Model string `json:"model,omitempty" yaml:"model,omitempty"`

	// Timeout bounds each request. Defaults to 30s.
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`

	// LocalModelPath points at a GGUF model file for the local provider.
	LocalModelPath string `json:"local_model_path,omitempty" yaml:"local_model_path,omitempty"`

	// LocalLibPath is the directory holding the yzma shared libraries.
	// Falls back to the YZMA_LIB environment variable.
	LocalLibPath string `json:"local_lib_path,omitempty" yaml:"local_lib_path,omitempty"`

	// LocalGPULayers is the number of layers to offload to GPU.
	LocalGPULayers int `json:"local_gpu_layers,omitempty" yaml:"local_gpu_layers,omitempty"`
}

// RedactedAPIKey returns the key with most characters masked, for logs.
func (c ClientConfig) RedactedAPIKey() string {
	if c.APIKey == "" {
		return ""
	}
	if len(c.APIKey) < 12 {
		return "(set)"
	}
	return c.APIKey[:4] + "..." + c.APIKey[len(c.APIKey)-4:]
}

// String implements fmt.Stringer to prevent accidental API key logging.
func (c ClientConfig) String() string {
	return fmt.Sprintf("ClientConfig{Provider:%s, Model:%s, APIKey:%s}", c.Provider, c.Model, c.RedactedAPIKey())
}

// NewDecider constructs the backend named by config.Provider.
func NewDecider(config ClientConfig) (Decider, error) {
	switch config.Provider {
	case "anthropic":
		return NewAnthropicClient(config), nil
	case "openai", "ollama":
		return NewOpenAIClient(config), nil
	case "local":
		return NewLocalClient(LocalConfig{
			LibPath:   config.LocalLibPath,
			ModelPath: config.LocalModelPath,
			GPULayers: config.LocalGPULayers,
		}), nil
	case "mock":
		return NewMockClient(), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", config.Provider)
	}
}
