// Package source ingests the raw external datasets (per-year import CSVs,
// the LPI workbook, the risk premium CSV) into the trade store. Each loader
// validates the expected header columns before touching a row, filters null
// scores, and replaces the target table in full.
package source

import (
	"context"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/trade-cli/internal/fetcher"
	"github.com/sells-group/trade-cli/internal/model"
	"github.com/sells-group/trade-cli/internal/store"
)

// Sink is the subset of the store the loaders write to.
type Sink interface {
	ReplaceImports(ctx context.Context, year int, rows []model.ImportRecord) (int64, error)
	ReplaceLPI(ctx context.Context, rows []model.LPIRecord) (int64, error)
	ReplaceRisk(ctx context.Context, rows []model.RiskRecord) (int64, error)
}

var _ Sink = (store.Store)(nil)

// LoadImports ingests one year's import transactions from CSV. Expected
// columns: PartnerName, TradeValuein1000USD. Rows keep their raw partner
// labels (including the World aggregate); normalization and grouping happen
// at calculation time.
func LoadImports(ctx context.Context, sink Sink, year int, path string) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, eris.Wrapf(err, "source: open imports %d", year)
	}
	defer f.Close()

	table, err := fetcher.ReadCSV(f, fetcher.CSVOptions{TrimSpace: true})
	if err != nil {
		return 0, eris.Wrapf(err, "source: parse imports %d", year)
	}
	if err := table.RequireColumns("PartnerName", "TradeValuein1000USD"); err != nil {
		return 0, eris.Wrapf(err, "source: imports %d schema", year)
	}

	partnerCol, _ := table.Column("PartnerName")
	valueCol, _ := table.Column("TradeValuein1000USD")

	records := make([]model.ImportRecord, 0, len(table.Rows))
	for i, row := range table.Rows {
		value, err := strconv.ParseFloat(row[valueCol], 64)
		if err != nil {
			return 0, eris.Wrapf(err, "source: imports %d row %d: parse trade value", year, i+1)
		}
		records = append(records, model.ImportRecord{Country: row[partnerCol], ImportValue: value})
	}

	n, err := sink.ReplaceImports(ctx, year, records)
	if err != nil {
		return 0, err
	}
	zap.L().Info("loaded imports", zap.Int("year", year), zap.Int64("rows", n), zap.String("path", path))
	return n, nil
}

// LoadLPI ingests the LPI workbook. Expected columns: Economy,
// TimelinessScore. Rows with a blank score are dropped.
func LoadLPI(ctx context.Context, sink Sink, path string, opts fetcher.XLSXOptions) (int64, error) {
	table, err := fetcher.ReadXLSX(path, opts)
	if err != nil {
		return 0, eris.Wrap(err, "source: parse LPI workbook")
	}
	if err := table.RequireColumns("Economy", "TimelinessScore"); err != nil {
		return 0, eris.Wrap(err, "source: LPI schema")
	}

	economyCol, _ := table.Column("Economy")
	scoreCol, _ := table.Column("TimelinessScore")

	records := make([]model.LPIRecord, 0, len(table.Rows))
	for i, row := range table.Rows {
		raw := cell(row, scoreCol)
		if raw == "" {
			continue
		}
		score, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return 0, eris.Wrapf(err, "source: LPI row %d: parse timeliness score", i+1)
		}
		records = append(records, model.LPIRecord{Country: cell(row, economyCol), TimelinessScore: score})
	}

	n, err := sink.ReplaceLPI(ctx, records)
	if err != nil {
		return 0, err
	}
	zap.L().Info("loaded LPI", zap.Int64("rows", n), zap.String("path", path))
	return n, nil
}

// LoadRisk ingests the risk premium lookup from CSV. Expected columns:
// Economy, RiskPremium. Rows with a blank premium are dropped.
func LoadRisk(ctx context.Context, sink Sink, path string) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, eris.Wrap(err, "source: open risk premiums")
	}
	defer f.Close()

	table, err := fetcher.ReadCSV(f, fetcher.CSVOptions{TrimSpace: true})
	if err != nil {
		return 0, eris.Wrap(err, "source: parse risk premiums")
	}
	if err := table.RequireColumns("Economy", "RiskPremium"); err != nil {
		return 0, eris.Wrap(err, "source: risk premium schema")
	}

	economyCol, _ := table.Column("Economy")
	premiumCol, _ := table.Column("RiskPremium")

	records := make([]model.RiskRecord, 0, len(table.Rows))
	for i, row := range table.Rows {
		raw := cell(row, premiumCol)
		if raw == "" {
			continue
		}
		premium, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return 0, eris.Wrapf(err, "source: risk row %d: parse premium", i+1)
		}
		records = append(records, model.RiskRecord{Country: cell(row, economyCol), RiskPremium: premium})
	}

	n, err := sink.ReplaceRisk(ctx, records)
	if err != nil {
		return 0, err
	}
	zap.L().Info("loaded risk premiums", zap.Int64("rows", n), zap.String("path", path))
	return n, nil
}

// cell tolerates short rows (XLSX sheets often omit trailing empty cells).
func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
