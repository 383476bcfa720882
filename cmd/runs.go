package main

import (
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sells-group/trade-cli/internal/model"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent batch calculation runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		limit, _ := cmd.Flags().GetInt("limit")

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		runs, err := st.ListCalcRuns(ctx, limit)
		if err != nil {
			return err
		}
		printRuns(runs)
		return nil
	},
}

func init() {
	runsCmd.Flags().Int("limit", 20, "maximum runs to list")
	rootCmd.AddCommand(runsCmd)
}

func printRuns(runs []model.CalcRun) {
	if len(runs) == 0 {
		fmt.Println("No calc runs recorded.")
		return
	}

	fmt.Printf("%-36s %-9s %8s %-20s %10s\n", "Run ID", "Status", "Rows", "Started", "Duration")
	fmt.Println(strings.Repeat("-", 88))
	for _, r := range runs {
		fmt.Printf("%-36s %-9s %8d %-20s %10s\n",
			r.ID, r.Status, r.RowsWritten,
			r.StartedAt.Format("2006-01-02 15:04:05"),
			runDuration(r))
	}
}

func runDuration(r model.CalcRun) string {
	if r.FinishedAt == nil {
		return "-"
	}
	return r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond).String()
}
