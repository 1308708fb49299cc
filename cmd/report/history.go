package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/dvloznov/finance-reports/internal/runs"
)

var (
	historyLimit  int
	historyStatus string
)

func runHistory(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	if cfg.RunStore.Path == "" {
		fmt.Fprintln(cmd.OutOrStdout(), "No run store configured; set RUN_STORE_PATH or run_store.path to keep history.")
		return nil
	}

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	list, err := store.ListRuns(ctx, runs.Filter{Status: runs.Status(historyStatus), Limit: historyLimit})
	if err != nil {
		return err
	}
	return printRuns(cmd.OutOrStdout(), list)
}

// printRuns writes one aligned line per run.
func printRuns(w io.Writer, list []*runs.Run) error {
	if len(list) == 0 {
		_, err := fmt.Fprintln(w, "No runs recorded.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN ID\tSTARTED\tSTATUS\tROWS\tKEPT\tWRITTEN\tSKIPPED\tFAILED\tINPUT")
	for _, r := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%d\t%d\t%s\n",
			r.RunID,
			r.StartedAt.Local().Format(time.DateTime),
			r.Status,
			r.Rows,
			r.Filtered,
			r.Count(runs.OutcomeWritten),
			r.Count(runs.OutcomeSkipped),
			r.Count(runs.OutcomeFailed),
			r.InputPath,
		)
	}
	return tw.Flush()
}
