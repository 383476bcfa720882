package db

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })
	return mock
}

func TestBulkUpsert_EmptyRows(t *testing.T) {
	n, err := BulkUpsert(context.Background(), nil, UpsertConfig{
		Table:        "lpi_2023",
		Columns:      []string{"economy", "timeliness_score"},
		ConflictKeys: []string{"economy"},
	}, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestBulkUpsert_NoColumns(t *testing.T) {
	_, err := BulkUpsert(context.Background(), nil, UpsertConfig{
		Table:        "lpi_2023",
		ConflictKeys: []string{"economy"},
	}, [][]any{{"France", 4.0}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no columns specified")
}

func TestBulkUpsert_NoConflictKeys(t *testing.T) {
	_, err := BulkUpsert(context.Background(), nil, UpsertConfig{
		Table:   "lpi_2023",
		Columns: []string{"economy", "timeliness_score"},
	}, [][]any{{"France", 4.0}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no conflict keys specified")
}

func TestBulkUpsert_Flow(t *testing.T) {
	mock := newMockPool(t)

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE "_tmp_upsert_lpi_2023"`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_lpi_2023"}, []string{"economy", "timeliness_score"}).
		WillReturnResult(2)
	mock.ExpectExec(`INSERT INTO "lpi_2023" .+ ON CONFLICT \("economy"\) DO UPDATE SET "timeliness_score" = EXCLUDED."timeliness_score"`).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()
	mock.ExpectRollback()

	n, err := BulkUpsert(context.Background(), mock, UpsertConfig{
		Table:        "lpi_2023",
		Columns:      []string{"economy", "timeliness_score"},
		ConflictKeys: []string{"economy"},
	}, [][]any{{"France", 4.0}, {"Germany", 4.2}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceTable_Flow(t *testing.T) {
	mock := newMockPool(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "raiv_results"`).
		WillReturnResult(pgxmock.NewResult("DELETE", 5))
	mock.ExpectCopyFrom(pgx.Identifier{"raiv_results"}, []string{"country", "year", "raiv"}).
		WillReturnResult(3)
	mock.ExpectCommit()
	mock.ExpectRollback()

	n, err := ReplaceTable(context.Background(), mock, "raiv_results",
		[]string{"country", "year", "raiv"},
		[][]any{{"France", 2022, 200.0}, {"France", 2023, 190.0}, {"Vietnam", 2022, 150.0}},
	)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceTable_EmptyRowsStillClears(t *testing.T) {
	mock := newMockPool(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "raiv_results"`).
		WillReturnResult(pgxmock.NewResult("DELETE", 5))
	mock.ExpectCommit()
	mock.ExpectRollback()

	n, err := ReplaceTable(context.Background(), mock, "raiv_results", []string{"country"}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSanitizeTable(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"simple", `"simple"`},
		{"trade.lpi_2023", `"trade"."lpi_2023"`},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeTable(tt.input))
		})
	}
}

func TestQuoteAndJoin(t *testing.T) {
	assert.Equal(t, `"economy", "risk_premium"`, quoteAndJoin([]string{"economy", "risk_premium"}))
}
