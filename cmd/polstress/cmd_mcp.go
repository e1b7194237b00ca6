package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/xailong-6969/LLM-Policy-Stress-Framework/internal/catalog"
	"github.com/xailong-6969/LLM-Policy-Stress-Framework/internal/config"
	"github.com/xailong-6969/LLM-Policy-Stress-Framework/internal/logging"
	"github.com/xailong-6969/LLM-Policy-Stress-Framework/internal/mcp"
)

func newMCPServerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp-server",
		Short: "Run the MCP server over stdio",
		Long: `Starts a Model Context Protocol server exposing polstress evaluation
as tools (polstress_run, polstress_report, polstress_list,
polstress_catalog) for AI agents.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")

			cfg, err := config.Load(root)
			if err != nil {
				return err
			}
			logger := logging.NewLogger(cfg.Logging.Level, os.Stderr)

			server, err := mcp.NewServer(&mcp.Config{
				Name:    "polstress",
				Version: version,
				Root:    root,
				Catalog: catalog.New(catalog.WithLLM(cfg.LLM)),
				Logger:  logger,
			})
			if err != nil {
				return err
			}
			return server.Run(cmd.Context())
		},
	}
}
