package db

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	d, err := OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })

	_, err = d.Exec(`
INSERT INTO dim_agents (agent_id, name) VALUES ('agent-1', 'Ralph'), ('agent-2', 'Mia');
INSERT INTO fact_calls (call_id, agent_id, call_timestamp, summary, issue_type, sentiment, duration_seconds)
VALUES
  ('c1', 'agent-1', '2025-05-01T10:00:00Z', 'Refund for damaged item', 'Returns & Refunds', 'negative', 320),
  ('c2', 'agent-1', '2025-05-02T11:00:00Z', 'Tracking update', 'Shipping & Logistics', 'positive', 180),
  ('c3', 'agent-2', '2025-05-03T12:00:00Z', 'Password reset', 'Account Management', 'positive', 95);
`)
	require.NoError(t, err)
	return d
}

func TestOpenMemory(t *testing.T) {
	d, err := OpenMemory()
	require.NoError(t, err)
	defer d.Close()

	for _, table := range []string{"fact_calls", "dim_agents", "dim_customers"} {
		var count int
		err := d.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&count)
		assert.NoError(t, err, "table %s", table)
	}
	assert.Equal(t, "SQLite", d.Dialect())
}

func TestMigrateIdempotent(t *testing.T) {
	d, err := OpenMemory()
	require.NoError(t, err)
	defer d.Close()

	require.NoError(t, d.migrate())
}

func TestOpenSQLiteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "calls.db")
	d, err := Open(t.Context(), DriverSQLite, path)
	require.NoError(t, err)
	defer d.Close()
	assert.Equal(t, DriverSQLite, d.Driver())
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(t.Context(), "mysql", "x")
	assert.Error(t, err)
}

func TestOpenPgxRequiresDSN(t *testing.T) {
	_, err := Open(t.Context(), DriverPgx, "")
	assert.Error(t, err)
}

func TestExecuteAggregate(t *testing.T) {
	d := setupTestDB(t)

	rows, err := d.Execute(t.Context(), "SELECT COUNT(*) AS count FROM fact_calls WHERE sentiment = 'positive';")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.EqualValues(t, 2, rows[0]["count"])
}

func TestExecuteJoin(t *testing.T) {
	d := setupTestDB(t)

	rows, err := d.Execute(t.Context(), `
WITH per_agent AS (
  SELECT agent_id, COUNT(*) AS calls FROM fact_calls GROUP BY agent_id
)
SELECT a.name, p.calls FROM per_agent p JOIN dim_agents a ON a.agent_id = p.agent_id ORDER BY p.calls DESC`)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Ralph", rows[0]["name"])
}

func TestExecuteEmptyResult(t *testing.T) {
	d := setupTestDB(t)

	rows, err := d.Execute(t.Context(), "SELECT call_id FROM fact_calls WHERE issue_type = 'Order Issues'")
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}

func TestExecuteRowsSentinel(t *testing.T) {
	d := setupTestDB(t)

	rows := d.ExecuteRows(t.Context(), "SELECT nope FROM missing_table")
	msg, ok := ErrorOf(rows)
	assert.True(t, ok)
	assert.NotEmpty(t, msg)

	rows = d.ExecuteRows(t.Context(), "DELETE FROM fact_calls")
	_, ok = ErrorOf(rows)
	assert.True(t, ok)

	// Nothing was deleted.
	var count int
	require.NoError(t, d.QueryRow("SELECT COUNT(*) FROM fact_calls").Scan(&count))
	assert.Equal(t, 3, count)
}

func TestErrorOfIgnoresRealRows(t *testing.T) {
	_, ok := ErrorOf([]Row{{"count": 5}})
	assert.False(t, ok)
	_, ok = ErrorOf([]Row{{"error": QueryError("x"), "other": 1}})
	assert.False(t, ok)
	_, ok = ErrorOf([]Row{{"error": "Shipping & Logistics"}})
	assert.False(t, ok, "a plain string column named error is data")
	_, ok = ErrorOf(nil)
	assert.False(t, ok)
}

func TestExecuteRowsColumnNamedError(t *testing.T) {
	d := setupTestDB(t)

	rows := d.ExecuteRows(t.Context(), "SELECT issue_type AS error FROM fact_calls WHERE call_id = 'c2'")
	_, failed := ErrorOf(rows)
	assert.False(t, failed)
	require.Len(t, rows, 1)
	assert.Equal(t, "Shipping & Logistics", rows[0]["error"])
}

func TestSentinelWireShape(t *testing.T) {
	rows := []Row{{"error": QueryError("no such table: missing")}}
	data, err := json.Marshal(rows)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"error":"no such table: missing"}]`, string(data))
}

func TestCheckReadOnly(t *testing.T) {
	tests := []struct {
		query   string
		wantErr bool
	}{
		{"SELECT COUNT(*) FROM fact_calls", false},
		{"  select * from fact_calls;  ", false},
		{"WITH x AS (SELECT 1) SELECT * FROM x", false},
		{"SELECT updated_at, created_by FROM fact_calls", false},
		{"", true},
		{"DELETE FROM fact_calls", true},
		{"SELECT 1; DROP TABLE fact_calls", true},
		{"WITH d AS (DELETE FROM fact_calls RETURNING *) SELECT * FROM d", true},
		{"UPDATE fact_calls SET summary = ''", true},
		{"EXPLAIN SELECT 1", true},
	}
	for _, tt := range tests {
		err := CheckReadOnly(tt.query)
		if tt.wantErr {
			assert.Error(t, err, tt.query)
		} else {
			assert.NoError(t, err, tt.query)
		}
	}
}

func TestExecutePgxUsesReadOnlyTransaction(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT issue_type, COUNT").
		WillReturnRows(sqlmock.NewRows([]string{"issue_type", "count"}).
			AddRow([]byte("Returns & Refunds"), int64(4)).
			AddRow([]byte("Order Issues"), int64(1)))
	mock.ExpectRollback()

	d := New(sqlDB, DriverPgx)
	rows, err := d.Execute(t.Context(), "SELECT issue_type, COUNT(*) AS count FROM fact_calls GROUP BY issue_type")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Returns & Refunds", rows[0]["issue_type"])
	assert.Equal(t, int64(4), rows[0]["count"])
	assert.Equal(t, "PostgreSQL", d.Dialect())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecutePgxQueryError(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT").WillReturnError(errors.New(`column "foo" does not exist`))
	mock.ExpectRollback()

	d := New(sqlDB, DriverPgx)
	rows := d.ExecuteRows(t.Context(), "SELECT foo FROM fact_calls")
	msg, ok := ErrorOf(rows)
	assert.True(t, ok)
	assert.Contains(t, msg, "does not exist")
	assert.NoError(t, mock.ExpectationsWereMet())
}
