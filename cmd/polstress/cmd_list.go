package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/xailong-6969/LLM-Policy-Stress-Framework/internal/catalog"
	"github.com/xailong-6969/LLM-Policy-Stress-Framework/internal/store"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored evaluation batches",
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")
			jsonOut, _ := cmd.Flags().GetBool("json")

			st, err := store.New(root)
			if err != nil {
				return err
			}
			defer st.Close()

			batches, err := st.ListBatches(cmd.Context())
			if err != nil {
				return err
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
					"batches": batches,
					"count":   len(batches),
				})
			}

			if len(batches) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No batches stored. Run 'polstress run --save' first.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tCREATED\tPOLICY\tWORLD\tRUNS\tERRORED")
			for _, b := range batches {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d/%d\t%d\n",
					b.ID, b.CreatedAt.Format("2006-01-02 15:04"),
					b.Policy, b.World, b.NCompleted, b.NRequested, b.Errored)
			}
			return w.Flush()
		},
	}
}

func newCatalogCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "List registered policies and worlds",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			cat := catalog.New()
			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
					"policies": cat.PolicyNames(),
					"worlds":   cat.WorldNames(),
				})
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Policies:")
			for _, name := range cat.PolicyNames() {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", name)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Worlds:")
			for _, name := range cat.WorldNames() {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", name)
			}
			return nil
		},
	}
}
