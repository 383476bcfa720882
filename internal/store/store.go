// Package store persists the trade source tables, RAIV results, and calc run
// history, with SQLite and Postgres backends.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/trade-cli/internal/model"
)

// Table and column names are an external contract shared with upstream data
// preparation; the queries depend on them verbatim.
const (
	lpiTable     = "LPI_2023_only"
	riskTable    = "Risk_Premium_Lookup"
	resultsTable = "RAIV_Results"
	runsTable    = "calc_runs"
)

// importsTableForYear maps a year to its import table name. Restricting to
// the known years also keeps table names out of reach of query parameters.
func importsTableForYear(year int) (string, error) {
	switch year {
	case 2022:
		return "Cleaned_Imports_2022", nil
	case 2023:
		return "Cleaned_Imports_2023", nil
	case 2024:
		return "Cleaned_Imports_2024", nil
	default:
		return "", eris.Errorf("store: no import table for year %d", year)
	}
}

// Store is the persistence interface for the pipeline. The read side
// (ImportsByYear, LPI, RiskPremiums) satisfies raiv.Source.
type Store interface {
	// Sources. ImportsByYear groups by raw partner name, sums trade value,
	// and excludes the "World" aggregate row. LPI and RiskPremiums filter
	// out null scores.
	ImportsByYear(ctx context.Context, year int) ([]model.ImportRecord, error)
	LPI(ctx context.Context) ([]model.LPIRecord, error)
	RiskPremiums(ctx context.Context) ([]model.RiskRecord, error)

	// Ingestion. ReplaceImports takes raw per-transaction rows (Country is
	// the raw partner label, World rows included). ReplaceLPI and
	// ReplaceRisk upsert by economy name.
	ReplaceImports(ctx context.Context, year int, rows []model.ImportRecord) (int64, error)
	ReplaceLPI(ctx context.Context, rows []model.LPIRecord) (int64, error)
	ReplaceRisk(ctx context.Context, rows []model.RiskRecord) (int64, error)

	// Results. ReplaceResults rebuilds the RAIV_Results table each run.
	ReplaceResults(ctx context.Context, records []model.RAIVRecord) (int64, error)
	Results(ctx context.Context) ([]model.RAIVRecord, error)

	// Calc run history.
	CreateCalcRun(ctx context.Context) (*model.CalcRun, error)
	CompleteCalcRun(ctx context.Context, runID string, status model.CalcRunStatus, rowsWritten int64) error
	ListCalcRuns(ctx context.Context, limit int) ([]model.CalcRun, error)

	// Lifecycle.
	Migrate(ctx context.Context) error
	Close() error
}

// New opens a Store for the given driver ("sqlite" or "postgres").
func New(ctx context.Context, driver, dsn string, poolCfg *PoolConfig) (Store, error) {
	switch driver {
	case "sqlite":
		return NewSQLite(dsn)
	case "postgres":
		return NewPostgres(ctx, dsn, poolCfg)
	default:
		return nil, eris.Errorf("store: unknown driver %q (valid: sqlite, postgres)", driver)
	}
}
