package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/trade-cli/internal/db"
	"github.com/sells-group/trade-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(5)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// Source table names carry mixed case, so every identifier is quoted.
const postgresMigration = `
CREATE TABLE IF NOT EXISTS "Cleaned_Imports_2022" (
	"PartnerName"         TEXT NOT NULL,
	"TradeValuein1000USD" DOUBLE PRECISION NOT NULL
);

CREATE TABLE IF NOT EXISTS "Cleaned_Imports_2023" (
	"PartnerName"         TEXT NOT NULL,
	"TradeValuein1000USD" DOUBLE PRECISION NOT NULL
);

CREATE TABLE IF NOT EXISTS "Cleaned_Imports_2024" (
	"PartnerName"         TEXT NOT NULL,
	"TradeValuein1000USD" DOUBLE PRECISION NOT NULL
);

CREATE TABLE IF NOT EXISTS "LPI_2023_only" (
	"Economy"         TEXT PRIMARY KEY,
	"TimelinessScore" DOUBLE PRECISION
);

CREATE TABLE IF NOT EXISTS "Risk_Premium_Lookup" (
	"Economy"     TEXT PRIMARY KEY,
	"RiskPremium" DOUBLE PRECISION
);

CREATE TABLE IF NOT EXISTS "RAIV_Results" (
	"Country"         TEXT NOT NULL,
	"Year"            INTEGER NOT NULL,
	"ImportValue"     DOUBLE PRECISION NOT NULL,
	"TimelinessScore" DOUBLE PRECISION NOT NULL,
	"RiskPremium"     DOUBLE PRECISION NOT NULL,
	"t_value"         INTEGER NOT NULL,
	"RAIV"            DOUBLE PRECISION NOT NULL
);

CREATE TABLE IF NOT EXISTS calc_runs (
	id           TEXT PRIMARY KEY,
	status       TEXT NOT NULL DEFAULT 'running',
	rows_written BIGINT NOT NULL DEFAULT 0,
	started_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	finished_at  TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_raiv_results_year ON "RAIV_Results"("Year");
CREATE INDEX IF NOT EXISTS idx_raiv_results_country ON "RAIV_Results"("Country");
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) ImportsByYear(ctx context.Context, year int) ([]model.ImportRecord, error) {
	table, err := importsTableForYear(year)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(
		`SELECT "PartnerName", SUM("TradeValuein1000USD") FROM %s WHERE "PartnerName" != 'World' GROUP BY "PartnerName"`,
		pgx.Identifier{table}.Sanitize(),
	)
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: query imports %d", year)
	}
	defer rows.Close()

	var records []model.ImportRecord
	for rows.Next() {
		var r model.ImportRecord
		if err := rows.Scan(&r.Country, &r.ImportValue); err != nil {
			return nil, eris.Wrapf(err, "postgres: scan imports %d", year)
		}
		records = append(records, r)
	}
	return records, eris.Wrapf(rows.Err(), "postgres: iterate imports %d", year)
}

func (s *PostgresStore) LPI(ctx context.Context) ([]model.LPIRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT "Economy", "TimelinessScore" FROM "LPI_2023_only" WHERE "TimelinessScore" IS NOT NULL`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query LPI")
	}
	defer rows.Close()

	var records []model.LPIRecord
	for rows.Next() {
		var r model.LPIRecord
		if err := rows.Scan(&r.Country, &r.TimelinessScore); err != nil {
			return nil, eris.Wrap(err, "postgres: scan LPI")
		}
		records = append(records, r)
	}
	return records, eris.Wrap(rows.Err(), "postgres: iterate LPI")
}

func (s *PostgresStore) RiskPremiums(ctx context.Context) ([]model.RiskRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT "Economy", "RiskPremium" FROM "Risk_Premium_Lookup" WHERE "RiskPremium" IS NOT NULL`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query risk premiums")
	}
	defer rows.Close()

	var records []model.RiskRecord
	for rows.Next() {
		var r model.RiskRecord
		if err := rows.Scan(&r.Country, &r.RiskPremium); err != nil {
			return nil, eris.Wrap(err, "postgres: scan risk premiums")
		}
		records = append(records, r)
	}
	return records, eris.Wrap(rows.Err(), "postgres: iterate risk premiums")
}

func (s *PostgresStore) ReplaceImports(ctx context.Context, year int, records []model.ImportRecord) (int64, error) {
	table, err := importsTableForYear(year)
	if err != nil {
		return 0, err
	}

	rows := make([][]any, len(records))
	for i, r := range records {
		rows[i] = []any{r.Country, r.ImportValue}
	}
	return db.ReplaceTable(ctx, s.pool, table, []string{"PartnerName", "TradeValuein1000USD"}, rows)
}

func (s *PostgresStore) ReplaceLPI(ctx context.Context, records []model.LPIRecord) (int64, error) {
	rows := make([][]any, len(records))
	for i, r := range records {
		rows[i] = []any{r.Country, r.TimelinessScore}
	}
	return db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        lpiTable,
		Columns:      []string{"Economy", "TimelinessScore"},
		ConflictKeys: []string{"Economy"},
	}, rows)
}

func (s *PostgresStore) ReplaceRisk(ctx context.Context, records []model.RiskRecord) (int64, error) {
	rows := make([][]any, len(records))
	for i, r := range records {
		rows[i] = []any{r.Country, r.RiskPremium}
	}
	return db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        riskTable,
		Columns:      []string{"Economy", "RiskPremium"},
		ConflictKeys: []string{"Economy"},
	}, rows)
}

func (s *PostgresStore) ReplaceResults(ctx context.Context, records []model.RAIVRecord) (int64, error) {
	rows := make([][]any, len(records))
	for i, r := range records {
		rows[i] = []any{r.Country, r.Year, r.ImportValue, r.TimelinessScore, r.RiskPremium, r.T, r.RAIV}
	}
	return db.ReplaceTable(ctx, s.pool, resultsTable,
		[]string{"Country", "Year", "ImportValue", "TimelinessScore", "RiskPremium", "t_value", "RAIV"}, rows)
}

func (s *PostgresStore) Results(ctx context.Context) ([]model.RAIVRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT "Country", "Year", "ImportValue", "TimelinessScore", "RiskPremium", "t_value", "RAIV"
		 FROM "RAIV_Results" ORDER BY "Country", "Year"`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query results")
	}
	defer rows.Close()

	var records []model.RAIVRecord
	for rows.Next() {
		var r model.RAIVRecord
		if err := rows.Scan(&r.Country, &r.Year, &r.ImportValue, &r.TimelinessScore, &r.RiskPremium, &r.T, &r.RAIV); err != nil {
			return nil, eris.Wrap(err, "postgres: scan result")
		}
		records = append(records, r)
	}
	return records, eris.Wrap(rows.Err(), "postgres: iterate results")
}

func (s *PostgresStore) CreateCalcRun(ctx context.Context) (*model.CalcRun, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO calc_runs (id, status, started_at) VALUES ($1, $2, $3)`,
		id, string(model.CalcRunRunning), now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert calc run")
	}

	return &model.CalcRun{ID: id, Status: model.CalcRunRunning, StartedAt: now}, nil
}

func (s *PostgresStore) CompleteCalcRun(ctx context.Context, runID string, status model.CalcRunStatus, rowsWritten int64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE calc_runs SET status = $1, rows_written = $2, finished_at = $3 WHERE id = $4`,
		string(status), rowsWritten, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete calc run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: calc run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) ListCalcRuns(ctx context.Context, limit int) ([]model.CalcRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, status, rows_written, started_at, finished_at
		 FROM calc_runs ORDER BY started_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list calc runs")
	}
	defer rows.Close()

	var runs []model.CalcRun
	for rows.Next() {
		var r model.CalcRun
		var finished *time.Time
		if err := rows.Scan(&r.ID, &r.Status, &r.RowsWritten, &r.StartedAt, &finished); err != nil {
			return nil, eris.Wrap(err, "postgres: scan calc run")
		}
		r.FinishedAt = finished
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: iterate calc runs")
}
