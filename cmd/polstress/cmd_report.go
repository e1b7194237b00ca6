package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xailong-6969/LLM-Policy-Stress-Framework/internal/metrics"
	"github.com/xailong-6969/LLM-Policy-Stress-Framework/internal/store"
)

func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report <batch-id>",
		Short: "Render the metrics report for a stored batch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")
			jsonOut, _ := cmd.Flags().GetBool("json")
			format, _ := cmd.Flags().GetString("format")
			recompute, _ := cmd.Flags().GetBool("recompute")

			st, err := store.New(root)
			if err != nil {
				return err
			}
			defer st.Close()

			batch, err := st.GetBatch(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			var report *metrics.Report
			if !recompute && len(batch.Report) > 0 {
				report = &metrics.Report{}
				if err := json.Unmarshal(batch.Report, report); err != nil {
					return fmt.Errorf("decoding stored report: %w", err)
				}
			} else {
				outcomes, err := st.LoadOutcomes(cmd.Context(), batch.ID)
				if err != nil {
					return err
				}
				report, err = metrics.Compute(outcomes, batch.MaxSteps)
				if err != nil {
					return err
				}
			}

			if jsonOut || format == "json" {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
					"batch":  batch,
					"report": report,
				})
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Batch %s (%s on %s, %s)\n\n",
				batch.ID, batch.Policy, batch.World, batch.CreatedAt.Format("2006-01-02 15:04"))
			switch format {
			case "markdown":
				fmt.Fprint(cmd.OutOrStdout(), report.Markdown())
			default:
				fmt.Fprint(cmd.OutOrStdout(), report.Text())
			}
			return nil
		},
	}

	cmd.Flags().String("format", "text", "Report format: text, markdown, json")
	cmd.Flags().Bool("recompute", false, "Recompute metrics from stored outcomes instead of using the saved report")

	return cmd
}
