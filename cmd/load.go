package main

import (
	"fmt"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/trade-cli/internal/fetcher"
	"github.com/sells-group/trade-cli/internal/source"
)

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Load source datasets into the store",
	Long: `Load the raw source datasets into the trade store: per-year import
CSVs, the LPI workbook, and the risk premium lookup. Each target table is
replaced in full.

Examples:
  # Load all three import years plus LPI and risk premiums
  load --imports 2022=data/Cleaned_Imports_2022.csv \
       --imports 2023=data/Cleaned_Imports_2023.csv \
       --imports 2024=data/Cleaned_Imports_2024.csv \
       --lpi data/LPI_2023.xlsx --risk data/Risk_Premium_Lookup.csv

  # Refresh a single year
  load --imports 2023=data/Cleaned_Imports_2023.csv`,
	RunE: runLoad,
}

func init() {
	f := loadCmd.Flags()
	f.StringSlice("imports", nil, "import CSV per year as year=path (repeatable)")
	f.String("lpi", "", "LPI workbook path (XLSX)")
	f.String("lpi-sheet", "", "LPI sheet name (default: first sheet)")
	f.Int("lpi-skip-rows", 0, "rows to skip before the LPI header row")
	f.String("risk", "", "risk premium CSV path")

	rootCmd.AddCommand(loadCmd)
}

func runLoad(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	importSpecs, _ := cmd.Flags().GetStringSlice("imports")
	lpiPath, _ := cmd.Flags().GetString("lpi")
	lpiSheet, _ := cmd.Flags().GetString("lpi-sheet")
	lpiSkip, _ := cmd.Flags().GetInt("lpi-skip-rows")
	riskPath, _ := cmd.Flags().GetString("risk")

	imports, err := parseImportSpecs(importSpecs)
	if err != nil {
		return err
	}
	if len(imports) == 0 && lpiPath == "" && riskPath == "" {
		return eris.New("load: nothing to load (use --imports, --lpi, or --risk)")
	}

	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck

	log := zap.L().With(zap.String("command", "load"))

	// The targets are independent tables, so they load concurrently.
	g, gctx := errgroup.WithContext(ctx)

	for year, path := range imports {
		year, path := year, path
		g.Go(func() error {
			n, err := source.LoadImports(gctx, st, year, path)
			if err != nil {
				return err
			}
			fmt.Printf("Loaded %d import rows for %d from %s\n", n, year, path)
			return nil
		})
	}

	if lpiPath != "" {
		g.Go(func() error {
			n, err := source.LoadLPI(gctx, st, lpiPath, fetcher.XLSXOptions{
				SheetName: lpiSheet,
				SkipRows:  lpiSkip,
			})
			if err != nil {
				return err
			}
			fmt.Printf("Loaded %d LPI rows from %s\n", n, lpiPath)
			return nil
		})
	}

	if riskPath != "" {
		g.Go(func() error {
			n, err := source.LoadRisk(gctx, st, riskPath)
			if err != nil {
				return err
			}
			fmt.Printf("Loaded %d risk premium rows from %s\n", n, riskPath)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	log.Info("load complete",
		zap.Int("import_years", len(imports)),
		zap.Bool("lpi", lpiPath != ""),
		zap.Bool("risk", riskPath != ""),
	)
	return nil
}

// parseImportSpecs parses repeated year=path flags into a year-to-path map.
func parseImportSpecs(specs []string) (map[int]string, error) {
	imports := make(map[int]string, len(specs))
	for _, spec := range specs {
		year, path, ok := strings.Cut(spec, "=")
		if !ok || path == "" {
			return nil, eris.Errorf("load: invalid --imports value %q (want year=path)", spec)
		}
		y, err := strconv.Atoi(strings.TrimSpace(year))
		if err != nil {
			return nil, eris.Errorf("load: invalid year in --imports value %q", spec)
		}
		if _, dup := imports[y]; dup {
			return nil, eris.Errorf("load: duplicate year %d in --imports", y)
		}
		imports[y] = strings.TrimSpace(path)
	}
	return imports, nil
}
