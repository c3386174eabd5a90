// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/citeassist/internal/ledger"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect previously produced citation sheets",
	Long: `History reads the sheet ledger, a local SQLite database with one row per
annotate run (from the CLI or the server). Use subcommands to list sheets,
count outcomes, or export the ledger as YAML.`,
}

// --- list subcommand ---

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent sheets, newest first",
	Args:  cobra.NoArgs,
	RunE:  runHistoryList,
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	store, opts, err := openLedger(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	recs, err := store.List(context.Background(), opts)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(recs)
	}
	if len(recs) == 0 {
		fmt.Fprintln(out, "No sheets recorded.")
		return nil
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CREATED\tKEY\tSTAGE\tDEGRADED\tPAGES\tJOB\tELAPSED")
	for _, r := range recs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%d\t%s\t%s\n",
			r.CreatedAt.Local().Format(time.DateTime), r.ReferenceKey, r.Stage,
			r.Degraded, r.Pages, r.JobID, r.Elapsed.Round(time.Millisecond))
	}
	return tw.Flush()
}

// --- stats subcommand ---

var historyStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Count sheets by outcome",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _, err := openLedger(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		st, err := store.Stats(context.Background())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d sheets: %d done, %d failed, %d degraded\n",
			st.Total, st.Done, st.Failed, st.Degraded)
		return nil
	},
}

// --- export subcommand ---

var historyExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the ledger to stdout as YAML",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, opts, err := openLedger(cmd)
		if err != nil {
			return err
		}
		defer store.Close()
		return store.ExportYAML(context.Background(), cmd.OutOrStdout(), opts)
	},
}

func openLedger(cmd *cobra.Command) (*ledger.Store, ledger.ListOptions, error) {
	if cfg.Ledger.Path == "" {
		return nil, ledger.ListOptions{}, fmt.Errorf("no ledger configured (set ledger.path or --ledger)")
	}
	store, err := ledger.Open(cfg.Ledger.Path)
	if err != nil {
		return nil, ledger.ListOptions{}, err
	}
	key, _ := cmd.Flags().GetString("key")
	degraded, _ := cmd.Flags().GetBool("degraded")
	limit, _ := cmd.Flags().GetInt("limit")
	return store, ledger.ListOptions{ReferenceKey: key, DegradedOnly: degraded, Limit: limit}, nil
}

func init() {
	for _, c := range []*cobra.Command{historyListCmd, historyExportCmd} {
		c.Flags().String("key", "", "filter by reference key")
		c.Flags().Bool("degraded", false, "only sheets drawn by the fallback renderer")
		c.Flags().Int("limit", 50, "maximum number of sheets")
	}
	historyListCmd.Flags().Bool("json", false, "output as JSON")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyStatsCmd)
	historyCmd.AddCommand(historyExportCmd)
	rootCmd.AddCommand(historyCmd)
}
