// Package config provides unified configuration loading for polstress.
// It supports loading from YAML files and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/xailong-6969/LLM-Policy-Stress-Framework/internal/llm"
	"github.com/xailong-6969/LLM-Policy-Stress-Framework/internal/swarm"
)

// Config contains all polstress configuration settings.
type Config struct {
	// LLM configures the external backend for LLM-backed policies.
	LLM llm.ClientConfig `json:"llm" yaml:"llm"`

	// Swarm holds the default swarm execution parameters. Command-line
	// flags override these per invocation.
	Swarm swarm.Config `json:"swarm" yaml:"swarm"`

	// Logging configures operational and run-trace logging.
	Logging LoggingConfig `json:"logging" yaml:"logging"`
}

// LoggingConfig configures polstress's logging behavior.
type LoggingConfig struct {
	// Level sets the log verbosity: "info" (default), "debug", or "trace".
	// "debug" enables run logging to .polstress/runs.jsonl.
	// "trace" additionally includes full LLM prompt/response content.
	Level string `json:"level" yaml:"level"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		LLM: llm.ClientConfig{
			Provider: "",
			Model:    "",
			Timeout:  30 * time.Second,
		},
		Swarm: swarm.Config{
			NWorlds:  100,
			BaseSeed: 42,
			MaxSteps: 50,
			Workers:  0,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from the default locations and environment
// variables. Order: defaults -> projectRoot/.polstress/config.yaml ->
// environment variables.
func Load(projectRoot string) (*Config, error) {
	config := Default()

	configPath := filepath.Join(projectRoot, ".polstress", "config.yaml")
	if _, err := os.Stat(configPath); err == nil {
		fileConfig, loadErr := LoadFromFile(configPath)
		if loadErr != nil {
			return nil, fmt.Errorf("loading config file: %w", loadErr)
		}
		config = fileConfig
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// LoadFromFile loads configuration from a specific YAML file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Expand environment variables in API key
	config.LLM.APIKey = expandEnvVars(config.LLM.APIKey)

	return config, nil
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	validProviders := map[string]bool{"": true, "anthropic": true, "openai": true, "ollama": true, "local": true, "mock": true}
	if !validProviders[c.LLM.Provider] {
		return fmt.Errorf("invalid provider: %s (valid: anthropic, openai, ollama, local, mock, or empty)", c.LLM.Provider)
	}

	if c.LLM.Timeout < 0 {
		return fmt.Errorf("timeout must be non-negative, got %v", c.LLM.Timeout)
	}

	if err := c.Swarm.Validate(); err != nil {
		return err
	}

	validLevels := map[string]bool{"info": true, "debug": true, "trace": true}
	if c.Logging.Level != "" && !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (valid: info, debug, trace, or empty for default)", c.Logging.Level)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("POLSTRESS_LLM_PROVIDER"); v != "" {
		config.LLM.Provider = v
	}

	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" && config.LLM.Provider == "anthropic" {
		config.LLM.APIKey = v
	}

	if v := os.Getenv("OPENAI_API_KEY"); v != "" && config.LLM.Provider == "openai" {
		config.LLM.APIKey = v
	}

	// Ollama uses OLLAMA_HOST for base URL (no API key needed)
	if config.LLM.Provider == "ollama" {
		if v := os.Getenv("OLLAMA_HOST"); v != "" {
			config.LLM.BaseURL = v
		}
	}

	if v := os.Getenv("POLSTRESS_LOCAL_MODEL_PATH"); v != "" {
		config.LLM.LocalModelPath = v
	}
	if v := os.Getenv("POLSTRESS_LOCAL_GPU_LAYERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.LLM.LocalGPULayers = n
		}
	}

	if v := os.Getenv("POLSTRESS_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Swarm.Workers = n
		}
	}

	if v := os.Getenv("POLSTRESS_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
}

// expandEnvVars expands ${VAR} patterns in a string with environment
// variable values.
func expandEnvVars(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return os.Expand(s, os.Getenv)
}
