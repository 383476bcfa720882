package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/trade-cli/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

func TestPostgres_ImportsByYear(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	rows := pgxmock.NewRows([]string{"PartnerName", "SUM"}).
		AddRow("France+Monac", 50.0).
		AddRow("USA", 100.0)
	mock.ExpectQuery(`SELECT "PartnerName", SUM\("TradeValuein1000USD"\) FROM "Cleaned_Imports_2022"`).
		WillReturnRows(rows)

	records, err := s.ImportsByYear(context.Background(), 2022)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, model.ImportRecord{Country: "France+Monac", ImportValue: 50}, records[0])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_ImportsByYear_InvalidYear(t *testing.T) {
	s, _ := newMockPostgresStore(t)

	_, err := s.ImportsByYear(context.Background(), 1999)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no import table for year")
}

func TestPostgres_LPI_QueryError(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT "Economy", "TimelinessScore" FROM "LPI_2023_only"`).
		WillReturnError(pgx.ErrNoRows)

	_, err := s.LPI(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query LPI")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_RiskPremiums(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	rows := pgxmock.NewRows([]string{"Economy", "RiskPremium"}).
		AddRow("France", 0.05)
	mock.ExpectQuery(`SELECT "Economy", "RiskPremium" FROM "Risk_Premium_Lookup"`).
		WillReturnRows(rows)

	records, err := s.RiskPremiums(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "France", records[0].Country)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_ReplaceResults(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "RAIV_Results"`).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"RAIV_Results"},
		[]string{"Country", "Year", "ImportValue", "TimelinessScore", "RiskPremium", "t_value", "RAIV"}).
		WillReturnResult(1)
	mock.ExpectCommit()
	mock.ExpectRollback()

	n, err := s.ReplaceResults(context.Background(), []model.RAIVRecord{
		{Country: "France", Year: 2022, ImportValue: 50, TimelinessScore: 4.0, RiskPremium: 0.05, T: 0, RAIV: 200},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_Results(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	rows := pgxmock.NewRows([]string{"Country", "Year", "ImportValue", "TimelinessScore", "RiskPremium", "t_value", "RAIV"}).
		AddRow("France", 2022, 50.0, 4.0, 0.05, 0, 200.0)
	mock.ExpectQuery(`SELECT "Country", "Year", .+ FROM "RAIV_Results" ORDER BY "Country", "Year"`).
		WillReturnRows(rows)

	records, err := s.Results(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.InDelta(t, 200.0, records[0].RAIV, 1e-9)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_CalcRunLifecycle(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO calc_runs`).
		WithArgs(pgxmock.AnyArg(), "running", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	run, err := s.CreateCalcRun(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)

	mock.ExpectExec(`UPDATE calc_runs SET status = \$1, rows_written = \$2, finished_at = \$3 WHERE id = \$4`).
		WithArgs("complete", int64(7), pgxmock.AnyArg(), run.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, s.CompleteCalcRun(context.Background(), run.ID, model.CalcRunComplete, 7))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_CompleteCalcRun_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE calc_runs`).
		WithArgs("complete", int64(0), pgxmock.AnyArg(), "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.CompleteCalcRun(context.Background(), "missing", model.CalcRunComplete, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_ListCalcRuns(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	started := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	finished := started.Add(3 * time.Second)
	rows := pgxmock.NewRows([]string{"id", "status", "rows_written", "started_at", "finished_at"}).
		AddRow("run-1", model.CalcRunComplete, int64(42), started, &finished).
		AddRow("run-2", model.CalcRunRunning, int64(0), started, (*time.Time)(nil))
	mock.ExpectQuery(`SELECT id, status, rows_written, started_at, finished_at`).
		WithArgs(10).
		WillReturnRows(rows)

	runs, err := s.ListCalcRuns(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, model.CalcRunComplete, runs[0].Status)
	require.NotNil(t, runs[0].FinishedAt)
	assert.Nil(t, runs[1].FinishedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}
