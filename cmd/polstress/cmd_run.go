package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/xailong-6969/LLM-Policy-Stress-Framework/internal/catalog"
	"github.com/xailong-6969/LLM-Policy-Stress-Framework/internal/config"
	"github.com/xailong-6969/LLM-Policy-Stress-Framework/internal/logging"
	"github.com/xailong-6969/LLM-Policy-Stress-Framework/internal/metrics"
	"github.com/xailong-6969/LLM-Policy-Stress-Framework/internal/store"
	"github.com/xailong-6969/LLM-Policy-Stress-Framework/internal/swarm"
	"github.com/xailong-6969/LLM-Policy-Stress-Framework/internal/worlds/project"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a swarm evaluation of a policy",
		Long: `Run simulates a policy across many independently seeded worlds and
computes the outcome-distribution metrics: survival curve, collapse
probability, regret distribution, and brittleness score.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")
			jsonOut, _ := cmd.Flags().GetBool("json")
			policyName, _ := cmd.Flags().GetString("policy")
			worldName, _ := cmd.Flags().GetString("world")
			nWorlds, _ := cmd.Flags().GetInt("worlds")
			baseSeed, _ := cmd.Flags().GetUint64("base-seed")
			maxSteps, _ := cmd.Flags().GetInt("max-steps")
			workers, _ := cmd.Flags().GetInt("workers")
			trajectories, _ := cmd.Flags().GetBool("trajectories")
			tuningPath, _ := cmd.Flags().GetString("tuning")
			format, _ := cmd.Flags().GetString("format")
			save, _ := cmd.Flags().GetBool("save")

			cfg, err := config.Load(root)
			if err != nil {
				return err
			}
			logger := logging.NewLogger(cfg.Logging.Level, os.Stderr)

			swarmCfg := cfg.Swarm
			if cmd.Flags().Changed("worlds") {
				swarmCfg.NWorlds = nWorlds
			}
			if cmd.Flags().Changed("base-seed") {
				swarmCfg.BaseSeed = baseSeed
			}
			if cmd.Flags().Changed("max-steps") {
				swarmCfg.MaxSteps = maxSteps
			}
			if cmd.Flags().Changed("workers") {
				swarmCfg.Workers = workers
			}
			swarmCfg.RecordTrajectories = trajectories

			opts := []catalog.Option{catalog.WithLLM(cfg.LLM)}
			if tuningPath != "" {
				tuning, err := project.LoadTuning(tuningPath)
				if err != nil {
					return err
				}
				opts = append(opts, catalog.WithTuning(tuning))
			}
			cat := catalog.New(opts...)

			p, err := cat.ResolvePolicy(policyName)
			if err != nil {
				return err
			}
			factory, err := cat.ResolveWorld(worldName)
			if err != nil {
				return err
			}

			exec, err := swarm.NewExecutor(factory, swarmCfg, logger)
			if err != nil {
				return err
			}
			runLog := logging.NewRunLogger(filepath.Join(root, ".polstress"), cfg.Logging.Level)
			defer runLog.Close()
			result, err := exec.WithRunLog(runLog).Run(cmd.Context(), p)
			if err != nil {
				return err
			}

			report, err := metrics.Compute(result.Outcomes, swarmCfg.MaxSteps)
			if err != nil {
				return fmt.Errorf("computing metrics: %w", err)
			}

			if save {
				reportJSON, err := json.Marshal(report)
				if err != nil {
					return fmt.Errorf("encoding report: %w", err)
				}
				st, err := store.New(root)
				if err != nil {
					return err
				}
				defer st.Close()

				id, err := st.SaveBatch(cmd.Context(), &store.Batch{
					Policy:       policyName,
					World:        worldName,
					BaseSeed:     swarmCfg.BaseSeed,
					MaxSteps:     swarmCfg.MaxSteps,
					NRequested:   result.NRequested,
					NCompleted:   result.NCompleted,
					Errored:      result.Errored,
					SoftFailures: result.SoftFailures,
					Elapsed:      result.Elapsed,
					Report:       reportJSON,
				}, result.Outcomes)
				if err != nil {
					return fmt.Errorf("saving batch: %w", err)
				}
				fmt.Fprintf(os.Stderr, "saved batch %s\n", id)
			}

			return renderReport(cmd, report, result, jsonOut, format)
		},
	}

	cmd.Flags().String("policy", "balanced", "Policy to evaluate: aggressive, conservative, balanced, random, llm, hybrid")
	cmd.Flags().String("world", "project", "World definition to run against")
	cmd.Flags().Int("worlds", 100, "Number of seeded runs")
	cmd.Flags().Uint64("base-seed", 42, "First seed of the range")
	cmd.Flags().Int("max-steps", 50, "Step bound per run (timeout terminal when reached)")
	cmd.Flags().Int("workers", 0, "Worker pool size (0 = one per CPU)")
	cmd.Flags().Bool("trajectories", false, "Record full per-step state history")
	cmd.Flags().String("tuning", "", "Path to a YAML world tuning file")
	cmd.Flags().String("format", "text", "Report format: text, markdown, json")
	cmd.Flags().Bool("save", false, "Persist the batch to .polstress/polstress.db")

	return cmd
}

func renderReport(cmd *cobra.Command, report *metrics.Report, result *swarm.Result, jsonOut bool, format string) error {
	if jsonOut || format == "json" {
		return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
			"n_requested":   result.NRequested,
			"n_completed":   result.NCompleted,
			"errored":       result.Errored,
			"soft_failures": result.SoftFailures,
			"elapsed_ms":    result.Elapsed.Milliseconds(),
			"report":        report,
		})
	}

	if result.NCompleted < result.NRequested {
		fmt.Fprintf(cmd.OutOrStdout(), "NOTE: cancelled early, %d of %d runs completed\n\n",
			result.NCompleted, result.NRequested)
	}

	switch format {
	case "markdown":
		fmt.Fprint(cmd.OutOrStdout(), report.Markdown())
	default:
		fmt.Fprint(cmd.OutOrStdout(), report.Text())
	}
	return nil
}
