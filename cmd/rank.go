package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/trade-cli/internal/export"
	"github.com/sells-group/trade-cli/internal/model"
	"github.com/sells-group/trade-cli/internal/rank"
)

var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Rank country recommendations by composite score",
	Long: `Rank countries by weighted composite score over a RAIV table. RAIV is
summed per country across the selected years; timeliness and risk are
averaged. Weights are normalized to sum to 1 before scoring.

By default RAIV and risk are min-max scaled over the filtered set and
timeliness is scaled by the LPI ceiling of 5; --raw scores on unscaled
values instead.

Examples:
  # Top 10 from the batch output with configured weights
  rank

  # Risk-averse weighting over 2024 only
  rank --years 2024 --raiv-weight 0.1 --timeliness-weight 0.2 --risk-weight 0.7

  # Read from the store instead of a CSV, export as CSV
  rank --from-store --format csv --output top_recommendations_3years.csv`,
	RunE: runRank,
}

func init() {
	f := rankCmd.Flags()
	f.String("input", "", "RAIV table CSV path (default from config)")
	f.Bool("from-store", false, "read the RAIV table from the store instead of a CSV")
	f.Float64("raiv-weight", -1, "RAIV weight (default from config)")
	f.Float64("timeliness-weight", -1, "timeliness weight (default from config)")
	f.Float64("risk-weight", -1, "risk weight (default from config)")
	f.IntSlice("years", nil, "restrict to these years (default: all)")
	f.String("hs-codes", "", "comma-separated HS code filter")
	f.Int("top", 0, "number of rows to return (default from config, 0=config)")
	f.Bool("raw", false, "score on raw values instead of min-max scaled")
	f.String("format", "table", "output format: table or csv")
	f.String("output", "", "output file path (default: stdout)")

	rootCmd.AddCommand(rankCmd)
}

func runRank(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fromStore, _ := cmd.Flags().GetBool("from-store")
	inputPath, _ := cmd.Flags().GetString("input")
	years, _ := cmd.Flags().GetIntSlice("years")
	hsCodes, _ := cmd.Flags().GetString("hs-codes")
	top, _ := cmd.Flags().GetInt("top")
	raw, _ := cmd.Flags().GetBool("raw")
	format, _ := cmd.Flags().GetString("format")
	outputPath, _ := cmd.Flags().GetString("output")

	if format != "table" && format != "csv" {
		return eris.Errorf("rank: --format must be table or csv (got %q)", format)
	}
	if inputPath == "" {
		inputPath = cfg.Rank.Input
	}
	if top == 0 {
		top = cfg.Rank.Top
	}

	weights := rankWeights(cmd)

	var records []model.RAIVRecord
	var err error
	if fromStore {
		st, openErr := openStore(ctx)
		if openErr != nil {
			return openErr
		}
		defer st.Close() //nolint:errcheck
		records, err = st.Results(ctx)
	} else {
		records, err = readRAIVFile(inputPath)
	}
	if err != nil {
		return err
	}

	filter := rank.Filter{Years: years, HSCodes: splitAndTrim(hsCodes)}
	ranked, err := rank.Rank(records, weights, filter, rank.Options{RawValues: raw, Top: top})
	if err != nil {
		return err
	}

	zap.L().Info("ranked recommendations",
		zap.Int("input_rows", len(records)),
		zap.Int("ranked", len(ranked)),
		zap.Ints("years", years),
		zap.Bool("raw", raw),
	)

	return outputRanked(ranked, format, outputPath)
}

// rankWeights merges CLI weight overrides onto the configured defaults. A
// negative flag value means "not set"; explicit zeros are kept so a user can
// drop a factor entirely.
func rankWeights(cmd *cobra.Command) rank.Weights {
	w := rank.Weights{
		RAIV:       cfg.Rank.RAIVWeight,
		Timeliness: cfg.Rank.TimelinessWeight,
		Risk:       cfg.Rank.RiskWeight,
	}
	if v, _ := cmd.Flags().GetFloat64("raiv-weight"); v >= 0 {
		w.RAIV = v
	}
	if v, _ := cmd.Flags().GetFloat64("timeliness-weight"); v >= 0 {
		w.Timeliness = v
	}
	if v, _ := cmd.Flags().GetFloat64("risk-weight"); v >= 0 {
		w.Risk = v
	}
	return w
}

func readRAIVFile(path string) ([]model.RAIVRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "rank: open input %s", path)
	}
	defer f.Close() //nolint:errcheck
	return export.ReadRAIVTable(f)
}

func outputRanked(ranked []model.RankedCountry, format, outputPath string) error {
	var w *os.File
	if outputPath != "" {
		var err error
		w, err = os.Create(outputPath)
		if err != nil {
			return eris.Wrapf(err, "rank: create output file %s", outputPath)
		}
		defer w.Close() //nolint:errcheck
	} else {
		w = os.Stdout
	}

	if format == "csv" {
		return export.WriteRanked(w, ranked)
	}
	return writeRankedTable(w, ranked)
}

func writeRankedTable(w *os.File, ranked []model.RankedCountry) error {
	if len(ranked) == 0 {
		_, err := fmt.Fprintln(w, "No countries matched the filter.")
		return err
	}

	if _, err := fmt.Fprintf(w, "%-4s %-30s %15s %11s %6s %10s\n",
		"#", "Country", "RAIV", "Timeliness", "Risk", "Score"); err != nil {
		return eris.Wrap(err, "rank: write table header")
	}
	if _, err := fmt.Fprintln(w, strings.Repeat("-", 81)); err != nil {
		return eris.Wrap(err, "rank: write table separator")
	}
	for i, r := range ranked {
		if _, err := fmt.Fprintf(w, "%-4d %-30s %15.1f %11.2f %6.3f %10.4f\n",
			i+1, truncate(r.Country, 30), r.RAIV, r.TimelinessScore, r.RiskScore, r.CompositeScore); err != nil {
			return eris.Wrap(err, "rank: write table row")
		}
	}
	return nil
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	var result []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			result = append(result, p)
		}
	}
	return result
}
