package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"mec/internal/history"
	"mec/internal/testing"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List, show and delete recorded runs",
	}
	cmd.AddCommand(newHistoryListCmd(), newHistoryShowCmd(), newHistoryDeleteCmd())
	return cmd
}

// withHistory opens the history store for the duration of fn.
func withHistory(fn func(cmd *cobra.Command, args []string, store *history.Store) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		store, err := openHistory(appConfig)
		if err != nil {
			return err
		}
		defer store.Close()
		return fn(cmd, args, store)
	}
}

func newHistoryListCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded runs, most recent first",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = withHistory(func(cmd *cobra.Command, _ []string, store *history.Store) error {
		runs, err := store.List(cmd.Context(), limit)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(runs) == 0 {
			fmt.Fprintln(out, "No runs recorded")
			return nil
		}
		renderRunList(out, runs)
		return nil
	})
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to list (0 for all)")
	return cmd
}

func newHistoryShowCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show the suites of a recorded run",
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = withHistory(func(cmd *cobra.Command, args []string, store *history.Store) error {
		run, err := store.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if asJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(run)
		}
		renderRun(out, run)
		return nil
	})
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the stored record as JSON")
	return cmd
}

func newHistoryDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <run-id>...",
		Short: "Delete recorded runs",
		Args:  cobra.MinimumNArgs(1),
	}
	cmd.RunE = withHistory(func(cmd *cobra.Command, args []string, store *history.Store) error {
		for _, id := range args {
			if err := store.Delete(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted run %s\n", id)
		}
		return nil
	})
	return cmd
}

func renderRunList(out io.Writer, runs []history.Summary) {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"RUN", "STARTED", "SUITES", "PASSED", "FAILED", "SKIPPED", "DURATION"})
	for _, r := range runs {
		failed := r.Failed + r.Errors
		failedCell := fmt.Sprint(failed)
		if failed > 0 {
			failedCell = text.FgRed.Sprint(failed)
		}
		t.AppendRow(table.Row{
			text.FgHiCyan.Sprint(r.ID),
			r.Start.Local().Format(time.DateTime),
			r.Total,
			r.Passed,
			failedCell,
			r.Skipped,
			r.Duration.Round(time.Millisecond),
		})
	}
	t.Render()
}

func renderRun(out io.Writer, run *testing.TestRunResult) {
	fmt.Fprintf(out, "Run %s started %s, took %v\n", run.ID, run.StartTime.Local().Format(time.DateTime), run.Duration.Round(time.Millisecond))

	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"SUITE", "RESULT", "PASSED", "FAILED", "SKIPPED", "DURATION", "FILE"})
	for _, s := range run.SuiteResults {
		t.AppendRow(table.Row{
			s.Name,
			testing.ColorResult(s.Result),
			s.Stats.Passed,
			s.Stats.Failed,
			s.Stats.Skipped,
			s.Duration.Round(time.Millisecond),
			s.File,
		})
	}
	t.Render()
}
