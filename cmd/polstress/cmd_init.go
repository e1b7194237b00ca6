package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

const defaultConfigYAML = `# polstress configuration
llm:
  # provider: anthropic | openai | ollama | local | mock
  provider: ""
  # api_key: ${ANTHROPIC_API_KEY}
  # model: claude-3-5-haiku-20241022

swarm:
  n_worlds: 100
  base_seed: 42
  max_steps: 50
  # workers: 0 means one per CPU
  workers: 0

logging:
  # level: info | debug | trace
  level: info
`

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize a .polstress directory with a default config",
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")
			jsonOut, _ := cmd.Flags().GetBool("json")

			dir := filepath.Join(root, ".polstress")
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("creating %s: %w", dir, err)
			}

			configPath := filepath.Join(dir, "config.yaml")
			if _, err := os.Stat(configPath); err == nil {
				if jsonOut {
					return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
						"initialized": false,
						"reason":      "config already exists",
						"path":        configPath,
					})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Already initialized: %s\n", configPath)
				return nil
			}

			if err := os.WriteFile(configPath, []byte(defaultConfigYAML), 0644); err != nil {
				return fmt.Errorf("writing config: %w", err)
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
					"initialized": true,
					"path":        configPath,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Initialized %s\n", configPath)
			return nil
		},
	}
}
