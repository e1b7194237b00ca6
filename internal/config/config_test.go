package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	c := Default()
	if c.LLM.Timeout != 30*time.Second {
		t.Errorf("LLM.Timeout = %v, want 30s", c.LLM.Timeout)
	}
	if c.Swarm.NWorlds != 100 || c.Swarm.BaseSeed != 42 || c.Swarm.MaxSteps != 50 {
		t.Errorf("swarm defaults = %+v", c.Swarm)
	}
	if c.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want info", c.Logging.Level)
	}
	if err := c.Validate(); err != nil {
		t.Errorf("Default().Validate() error = %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
llm:
  provider: mock
  model: test-model
swarm:
  n_worlds: 500
  max_steps: 25
logging:
  level: debug
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}
	if c.LLM.Provider != "mock" || c.LLM.Model != "test-model" {
		t.Errorf("llm = %+v", c.LLM)
	}
	if c.Swarm.NWorlds != 500 || c.Swarm.MaxSteps != 25 {
		t.Errorf("swarm = %+v", c.Swarm)
	}
	// Unset fields keep the defaults.
	if c.Swarm.BaseSeed != 42 {
		t.Errorf("BaseSeed = %d, want default 42", c.Swarm.BaseSeed)
	}
	if c.Logging.Level != "debug" {
		t.Errorf("level = %q, want debug", c.Logging.Level)
	}
}

func TestLoadFromFile_ExpandsAPIKey(t *testing.T) {
	t.Setenv("POLSTRESS_TEST_KEY", "sk-secret")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "llm:\n  provider: anthropic\n  api_key: ${POLSTRESS_TEST_KEY}\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}
	if c.LLM.APIKey != "sk-secret" {
		t.Errorf("APIKey = %q, want expanded value", c.LLM.APIKey)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	c, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if c.Swarm.NWorlds != 100 {
		t.Errorf("NWorlds = %d, want default 100", c.Swarm.NWorlds)
	}
}

func TestLoad_ReadsProjectConfig(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, ".polstress"), 0o755); err != nil {
		t.Fatal(err)
	}
	content := "swarm:\n  n_worlds: 7\n"
	if err := os.WriteFile(filepath.Join(root, ".polstress", "config.yaml"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := Load(root)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if c.Swarm.NWorlds != 7 {
		t.Errorf("NWorlds = %d, want 7 from project config", c.Swarm.NWorlds)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("POLSTRESS_LLM_PROVIDER", "anthropic")
	t.Setenv("ANTHROPIC_API_KEY", "sk-from-env")
	t.Setenv("POLSTRESS_WORKERS", "12")
	t.Setenv("POLSTRESS_LOG_LEVEL", "trace")

	c, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if c.LLM.Provider != "anthropic" {
		t.Errorf("Provider = %q, want anthropic", c.LLM.Provider)
	}
	if c.LLM.APIKey != "sk-from-env" {
		t.Errorf("APIKey = %q, want env value", c.LLM.APIKey)
	}
	if c.Swarm.Workers != 12 {
		t.Errorf("Workers = %d, want 12", c.Swarm.Workers)
	}
	if c.Logging.Level != "trace" {
		t.Errorf("Level = %q, want trace", c.Logging.Level)
	}
}

func TestLoad_ProviderScopedKeys(t *testing.T) {
	// An OpenAI key must not leak into an anthropic configuration.
	t.Setenv("POLSTRESS_LLM_PROVIDER", "anthropic")
	t.Setenv("OPENAI_API_KEY", "sk-openai")

	c, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if c.LLM.APIKey == "sk-openai" {
		t.Error("OPENAI_API_KEY applied to anthropic provider")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"default", func(*Config) {}, false},
		{"mock provider", func(c *Config) { c.LLM.Provider = "mock" }, false},
		{"unknown provider", func(c *Config) { c.LLM.Provider = "skynet" }, true},
		{"negative timeout", func(c *Config) { c.LLM.Timeout = -time.Second }, true},
		{"zero worlds", func(c *Config) { c.Swarm.NWorlds = 0 }, true},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, true},
		{"empty log level", func(c *Config) { c.Logging.Level = "" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(c)
			err := c.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
