package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/trade-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS Cleaned_Imports_2022 (
	PartnerName         TEXT NOT NULL,
	TradeValuein1000USD REAL NOT NULL
);

CREATE TABLE IF NOT EXISTS Cleaned_Imports_2023 (
	PartnerName         TEXT NOT NULL,
	TradeValuein1000USD REAL NOT NULL
);

CREATE TABLE IF NOT EXISTS Cleaned_Imports_2024 (
	PartnerName         TEXT NOT NULL,
	TradeValuein1000USD REAL NOT NULL
);

CREATE TABLE IF NOT EXISTS LPI_2023_only (
	Economy         TEXT PRIMARY KEY,
	TimelinessScore REAL
);

CREATE TABLE IF NOT EXISTS Risk_Premium_Lookup (
	Economy     TEXT PRIMARY KEY,
	RiskPremium REAL
);

CREATE TABLE IF NOT EXISTS RAIV_Results (
	Country         TEXT NOT NULL,
	Year            INTEGER NOT NULL,
	ImportValue     REAL NOT NULL,
	TimelinessScore REAL NOT NULL,
	RiskPremium     REAL NOT NULL,
	t_value         INTEGER NOT NULL,
	RAIV            REAL NOT NULL
);

CREATE TABLE IF NOT EXISTS calc_runs (
	id           TEXT PRIMARY KEY,
	status       TEXT NOT NULL DEFAULT 'running',
	rows_written INTEGER NOT NULL DEFAULT 0,
	started_at   DATETIME NOT NULL DEFAULT (datetime('now')),
	finished_at  DATETIME
);

CREATE INDEX IF NOT EXISTS idx_raiv_results_year ON RAIV_Results(Year);
CREATE INDEX IF NOT EXISTS idx_raiv_results_country ON RAIV_Results(Country);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) ImportsByYear(ctx context.Context, year int) ([]model.ImportRecord, error) {
	table, err := importsTableForYear(year)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(
		`SELECT PartnerName, SUM(TradeValuein1000USD) FROM %s WHERE PartnerName != 'World' GROUP BY PartnerName`,
		table,
	)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: query imports %d", year)
	}
	defer rows.Close()

	var records []model.ImportRecord
	for rows.Next() {
		var r model.ImportRecord
		if err := rows.Scan(&r.Country, &r.ImportValue); err != nil {
			return nil, eris.Wrapf(err, "sqlite: scan imports %d", year)
		}
		records = append(records, r)
	}
	return records, eris.Wrapf(rows.Err(), "sqlite: iterate imports %d", year)
}

func (s *SQLiteStore) LPI(ctx context.Context) ([]model.LPIRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT Economy, TimelinessScore FROM LPI_2023_only WHERE TimelinessScore IS NOT NULL`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query LPI")
	}
	defer rows.Close()

	var records []model.LPIRecord
	for rows.Next() {
		var r model.LPIRecord
		if err := rows.Scan(&r.Country, &r.TimelinessScore); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan LPI")
		}
		records = append(records, r)
	}
	return records, eris.Wrap(rows.Err(), "sqlite: iterate LPI")
}

func (s *SQLiteStore) RiskPremiums(ctx context.Context) ([]model.RiskRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT Economy, RiskPremium FROM Risk_Premium_Lookup WHERE RiskPremium IS NOT NULL`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query risk premiums")
	}
	defer rows.Close()

	var records []model.RiskRecord
	for rows.Next() {
		var r model.RiskRecord
		if err := rows.Scan(&r.Country, &r.RiskPremium); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan risk premiums")
		}
		records = append(records, r)
	}
	return records, eris.Wrap(rows.Err(), "sqlite: iterate risk premiums")
}

func (s *SQLiteStore) ReplaceImports(ctx context.Context, year int, records []model.ImportRecord) (int64, error) {
	table, err := importsTableForYear(year)
	if err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin replace imports")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s`, table)); err != nil {
		return 0, eris.Wrapf(err, "sqlite: clear %s", table)
	}

	stmt, err := tx.PrepareContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (PartnerName, TradeValuein1000USD) VALUES (?, ?)`, table))
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: prepare insert %s", table)
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx, r.Country, r.ImportValue); err != nil {
			return 0, eris.Wrapf(err, "sqlite: insert into %s", table)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrapf(err, "sqlite: commit replace %s", table)
	}
	return int64(len(records)), nil
}

func (s *SQLiteStore) ReplaceLPI(ctx context.Context, records []model.LPIRecord) (int64, error) {
	rows := make([][]any, len(records))
	for i, r := range records {
		rows[i] = []any{r.Country, r.TimelinessScore}
	}
	return s.upsertByEconomy(ctx, lpiTable, "TimelinessScore", rows)
}

func (s *SQLiteStore) ReplaceRisk(ctx context.Context, records []model.RiskRecord) (int64, error) {
	rows := make([][]any, len(records))
	for i, r := range records {
		rows[i] = []any{r.Country, r.RiskPremium}
	}
	return s.upsertByEconomy(ctx, riskTable, "RiskPremium", rows)
}

func (s *SQLiteStore) upsertByEconomy(ctx context.Context, table, valueCol string, rows [][]any) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: begin upsert %s", table)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		`INSERT INTO %s (Economy, %s) VALUES (?, ?)
		 ON CONFLICT(Economy) DO UPDATE SET %s = excluded.%s`,
		table, valueCol, valueCol, valueCol,
	))
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: prepare upsert %s", table)
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return 0, eris.Wrapf(err, "sqlite: upsert into %s", table)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrapf(err, "sqlite: commit upsert %s", table)
	}
	return int64(len(rows)), nil
}

func (s *SQLiteStore) ReplaceResults(ctx context.Context, records []model.RAIVRecord) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin replace results")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM RAIV_Results`); err != nil {
		return 0, eris.Wrap(err, "sqlite: clear results")
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO RAIV_Results (Country, Year, ImportValue, TimelinessScore, RiskPremium, t_value, RAIV)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare insert results")
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx,
			r.Country, r.Year, r.ImportValue, r.TimelinessScore, r.RiskPremium, r.T, r.RAIV,
		); err != nil {
			return 0, eris.Wrap(err, "sqlite: insert result")
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit replace results")
	}
	return int64(len(records)), nil
}

func (s *SQLiteStore) Results(ctx context.Context) ([]model.RAIVRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT Country, Year, ImportValue, TimelinessScore, RiskPremium, t_value, RAIV
		 FROM RAIV_Results ORDER BY Country, Year`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query results")
	}
	defer rows.Close()

	var records []model.RAIVRecord
	for rows.Next() {
		var r model.RAIVRecord
		if err := rows.Scan(&r.Country, &r.Year, &r.ImportValue, &r.TimelinessScore, &r.RiskPremium, &r.T, &r.RAIV); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan result")
		}
		records = append(records, r)
	}
	return records, eris.Wrap(rows.Err(), "sqlite: iterate results")
}

func (s *SQLiteStore) CreateCalcRun(ctx context.Context) (*model.CalcRun, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO calc_runs (id, status, started_at) VALUES (?, ?, ?)`,
		id, string(model.CalcRunRunning), now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert calc run")
	}

	return &model.CalcRun{ID: id, Status: model.CalcRunRunning, StartedAt: now}, nil
}

func (s *SQLiteStore) CompleteCalcRun(ctx context.Context, runID string, status model.CalcRunStatus, rowsWritten int64) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE calc_runs SET status = ?, rows_written = ?, finished_at = ? WHERE id = ?`,
		string(status), rowsWritten, now, runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete calc run %s", runID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Errorf("sqlite: calc run not found: %s", runID)
	}
	return nil
}

func (s *SQLiteStore) ListCalcRuns(ctx context.Context, limit int) ([]model.CalcRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, status, rows_written, started_at, finished_at
		 FROM calc_runs ORDER BY started_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list calc runs")
	}
	defer rows.Close()

	var runs []model.CalcRun
	for rows.Next() {
		var r model.CalcRun
		var finished sql.NullTime
		if err := rows.Scan(&r.ID, &r.Status, &r.RowsWritten, &r.StartedAt, &finished); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan calc run")
		}
		if finished.Valid {
			t := finished.Time
			r.FinishedAt = &t
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: iterate calc runs")
}
