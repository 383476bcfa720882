package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/trade-cli/internal/export"
	"github.com/sells-group/trade-cli/internal/model"
	"github.com/sells-group/trade-cli/internal/raiv"
	"github.com/sells-group/trade-cli/internal/store"
)

var calcCmd = &cobra.Command{
	Use:   "calc",
	Short: "Run the RAIV batch calculation",
	Long: `Join the loaded import, LPI, and risk premium tables, compute the
risk-adjusted import value for every country and year, and write the results
and per-year summary statistics.

Results go to the store (RAIV_Results is rebuilt) and to two CSV files.
A year with missing source data is logged and skipped; the other years still
run.

Examples:
  # Run with configured output paths
  calc

  # Write outputs elsewhere
  calc --results /tmp/raiv.csv --summary /tmp/raiv_stats.csv`,
	RunE: runCalc,
}

func init() {
	f := calcCmd.Flags()
	f.String("results", "", "results CSV path (default from config)")
	f.String("summary", "", "summary statistics CSV path (default from config)")
	f.Int("preview", 10, "countries to print per year (0=skip preview)")

	rootCmd.AddCommand(calcCmd)
}

func runCalc(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	resultsPath, _ := cmd.Flags().GetString("results")
	summaryPath, _ := cmd.Flags().GetString("summary")
	preview, _ := cmd.Flags().GetInt("preview")
	if resultsPath == "" {
		resultsPath = cfg.Calc.ResultsCSV
	}
	if summaryPath == "" {
		summaryPath = cfg.Calc.SummaryCSV
	}

	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck

	log := zap.L().With(zap.String("command", "calc"))

	run, err := st.CreateCalcRun(ctx)
	if err != nil {
		return err
	}
	log.Info("calc run started", zap.String("run_id", run.ID))

	records := raiv.NewEngine(st).CalculateAll(ctx)
	summaries := raiv.Summarize(records)

	if err := writeCalcOutputs(ctx, st, records, summaries, resultsPath, summaryPath); err != nil {
		failCalcRun(ctx, st, run.ID, log)
		return err
	}

	if err := st.CompleteCalcRun(ctx, run.ID, model.CalcRunComplete, int64(len(records))); err != nil {
		return err
	}
	log.Info("calc run complete", zap.String("run_id", run.ID), zap.Int("records", len(records)))

	fmt.Printf("Wrote %d RAIV records to %s\n", len(records), resultsPath)
	fmt.Printf("Wrote %d year summaries to %s\n", len(summaries), summaryPath)

	if preview > 0 {
		printTopPerYear(records, preview)
	}
	printYearSummaries(summaries)
	return nil
}

func writeCalcOutputs(ctx context.Context, st store.Store, records []model.RAIVRecord, summaries []model.YearSummary, resultsPath, summaryPath string) error {
	if _, err := st.ReplaceResults(ctx, records); err != nil {
		return err
	}

	rf, err := os.Create(resultsPath)
	if err != nil {
		return eris.Wrapf(err, "calc: create results file %s", resultsPath)
	}
	defer rf.Close() //nolint:errcheck
	if err := export.WriteResults(rf, records); err != nil {
		return err
	}

	sf, err := os.Create(summaryPath)
	if err != nil {
		return eris.Wrapf(err, "calc: create summary file %s", summaryPath)
	}
	defer sf.Close() //nolint:errcheck
	return export.WriteSummary(sf, summaries)
}

func failCalcRun(ctx context.Context, st store.Store, runID string, log *zap.Logger) {
	if err := st.CompleteCalcRun(ctx, runID, model.CalcRunFailed, 0); err != nil {
		log.Error("marking calc run failed", zap.String("run_id", runID), zap.Error(err))
	}
}

// printTopPerYear prints the highest-RAIV countries for each covered year.
func printTopPerYear(records []model.RAIVRecord, top int) {
	byYear := make(map[int][]model.RAIVRecord)
	for _, r := range records {
		byYear[r.Year] = append(byYear[r.Year], r)
	}

	for _, year := range raiv.Years {
		rows := byYear[year]
		if len(rows) == 0 {
			continue
		}
		sort.Slice(rows, func(i, j int) bool { return rows[i].RAIV > rows[j].RAIV })
		if len(rows) > top {
			rows = rows[:top]
		}

		fmt.Printf("\nTop %d by RAIV, %d:\n", len(rows), year)
		fmt.Printf("%-30s %15s %11s %6s %15s\n", "Country", "ImportValue", "Timeliness", "Risk", "RAIV")
		fmt.Println(strings.Repeat("-", 82))
		for _, r := range rows {
			fmt.Printf("%-30s %15.1f %11.2f %6.3f %15.1f\n",
				truncate(r.Country, 30), r.ImportValue, r.TimelinessScore, r.RiskPremium, r.RAIV)
		}
	}
}

func printYearSummaries(summaries []model.YearSummary) {
	if len(summaries) == 0 {
		fmt.Println("\nNo records to summarize.")
		return
	}
	fmt.Printf("\n--- RAIV summary ---\n")
	fmt.Printf("%-6s %7s %14s %14s %14s %14s %14s\n", "Year", "Count", "Mean", "Median", "Std", "Min", "Max")
	for _, s := range summaries {
		fmt.Printf("%-6d %7d %14.4f %14.4f %14.4f %14.4f %14.4f\n",
			s.Year, s.Count, s.RAIVMean, s.RAIVMedian, s.RAIVStd, s.RAIVMin, s.RAIVMax)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
