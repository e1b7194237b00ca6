//go:build !llamacpp

package llm

import (
	"context"
	"fmt"
)

// LocalClient is a stub implementation used when the llamacpp build tag is
// not set. It returns Available()=false so callers fall back to other
// providers.
type LocalClient struct {
	modelPath string
}

// LocalConfig configures the local LLM client.
type LocalConfig struct {
	// LibPath is the directory containing yzma shared libraries (.so/.dylib).
	// Falls back to YZMA_LIB env var at runtime.
	LibPath string

	// ModelPath is the path to the GGUF model file.
	ModelPath string

	// GPULayers is the number of layers to offload to GPU (0 = CPU only).
	GPULayers int
}

// NewLocalClient creates a new LocalClient. In the stub build (without the
// llamacpp tag), this client is always unavailable.
func NewLocalClient(cfg LocalConfig) *LocalClient {
	return &LocalClient{modelPath: cfg.ModelPath}
}

// DecideAction returns an error because the local model is not compiled in.
func (c *LocalClient) DecideAction(_ context.Context, _ string) (string, error) {
	return "", fmt.Errorf("local LLM not available: build with -tags llamacpp")
}

// Available returns false because the local LLM is not compiled in without
// the llamacpp build tag.
func (c *LocalClient) Available() bool {
	return false
}

// Close is a no-op for the stub client.
func (c *LocalClient) Close() error {
	return nil
}
