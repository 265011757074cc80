package strategy

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/surajshivkumar/ConvoLens/internal/apperr"
	"github.com/surajshivkumar/ConvoLens/internal/db"
)

type mockExecutor struct {
	rows    []db.Row
	queries []string
}

func (m *mockExecutor) ExecuteRows(_ context.Context, query string) []db.Row {
	m.queries = append(m.queries, query)
	return m.rows
}

func (m *mockExecutor) Dialect() string { return "PostgreSQL" }

func TestStructuredCountRoundTrip(t *testing.T) {
	p := newScriptedProvider(
		"SELECT COUNT(*) AS count FROM fact_calls WHERE date_id = CURRENT_DATE",
		`{"answer": "There were 5 calls today."}`,
	)
	exec := &mockExecutor{rows: []db.Row{{"count": 5}}}
	s := NewStructured(testConfig(p), exec)

	res, err := s.Execute(context.Background(), Request{Question: "how many calls happened today"})
	require.NoError(t, err)

	assert.Equal(t, "There were 5 calls today.", res.Answer)
	assert.NotNil(t, res.Sources)
	assert.Empty(t, res.Sources)
	require.Len(t, res.ContextUsed, 1)
	assert.JSONEq(t, `[{"count": 5}]`, res.ContextUsed[0])

	require.Len(t, exec.queries, 1)
	assert.Contains(t, exec.queries[0], "COUNT(*)")
	assert.True(t, p.calls[1].JSONMode, "narration must request JSON")
	assert.Contains(t, p.prompt(1), `"count":5`)
}

func TestStructuredCleansGeneratedSQL(t *testing.T) {
	p := newScriptedProvider(
		"```sql\nSELECT agent_id FROM fact_calls;\n```",
		`{"answer": "One agent."}`,
	)
	exec := &mockExecutor{rows: []db.Row{{"agent_id": "A1"}}}

	_, err := NewStructured(testConfig(p), exec).Execute(context.Background(), Request{Question: "which agents"})
	require.NoError(t, err)
	assert.Equal(t, "SELECT agent_id FROM fact_calls", exec.queries[0])
}

func TestStructuredPromptMentionsSchemaAndDialect(t *testing.T) {
	p := newScriptedProvider("SELECT 1", `{"answer": "ok"}`)
	exec := &mockExecutor{rows: []db.Row{{"1": 1}}}

	_, err := NewStructured(testConfig(p), exec).Execute(context.Background(), Request{Question: "q"})
	require.NoError(t, err)

	prompt := p.prompt(0)
	assert.Contains(t, prompt, "PostgreSQL")
	assert.Contains(t, prompt, "agent_professionalism")
	assert.Contains(t, prompt, "'Returns & Refunds'")
	assert.Contains(t, prompt, "may be NULL")
	assert.Equal(t, float64(0), p.calls[0].Temperature)
}

func TestStructuredEmptyRows(t *testing.T) {
	p := newScriptedProvider("SELECT * FROM fact_calls WHERE 1 = 0")
	exec := &mockExecutor{rows: []db.Row{}}

	res, err := NewStructured(testConfig(p), exec).Execute(context.Background(), Request{Question: "q"})
	require.NoError(t, err)
	assert.Equal(t, NoDataAnswer, res.Answer)
	assert.Empty(t, res.Sources)
	assert.NotNil(t, res.ContextUsed)
	assert.Equal(t, 1, p.callCount(), "narration must be skipped")
}

func TestStructuredExecutionErrorSentinel(t *testing.T) {
	p := newScriptedProvider("SELECT nope FROM fact_calls")
	exec := &mockExecutor{rows: []db.Row{{"error": db.QueryError(`column "nope" does not exist`)}}}

	_, err := NewStructured(testConfig(p), exec).Execute(context.Background(), Request{Question: "q"})
	e := requireCode(t, err, apperr.CodeCollaborator)
	assert.Equal(t, `column "nope" does not exist`, apperr.Detail(e))
	assert.Equal(t, 1, p.callCount())
}

func TestStructuredColumnNamedErrorIsData(t *testing.T) {
	p := newScriptedProvider("SELECT issue_type AS error FROM fact_calls LIMIT 1", `{"answer": "The latest call was about shipping."}`)
	exec := &mockExecutor{rows: []db.Row{{"error": "Shipping & Logistics"}}}

	res, err := NewStructured(testConfig(p), exec).Execute(context.Background(), Request{Question: "what was the latest issue?"})
	require.NoError(t, err)
	assert.Equal(t, "The latest call was about shipping.", res.Answer)
	assert.Equal(t, 2, p.callCount())
}

func TestStructuredGenerationFailure(t *testing.T) {
	p := newScriptedProvider()
	p.errs = []error{errors.New("rate limited")}

	_, err := NewStructured(testConfig(p), &mockExecutor{}).Execute(context.Background(), Request{Question: "q"})
	e := requireCode(t, err, apperr.CodeCollaborator)
	assert.Contains(t, apperr.Detail(e), "rate limited")
}

func TestStructuredNarrationSchemaFailure(t *testing.T) {
	p := newScriptedProvider("SELECT 1 AS n", `{"summary": "wrong key"}`)
	exec := &mockExecutor{rows: []db.Row{{"n": 1}}}

	_, err := NewStructured(testConfig(p), exec).Execute(context.Background(), Request{Question: "q"})
	requireCode(t, err, apperr.CodeCollaborator)
}

func TestStructuredPreviewCapped(t *testing.T) {
	rows := make([]db.Row, 50)
	for i := range rows {
		rows[i] = db.Row{"i": i}
	}
	p := newScriptedProvider("SELECT i FROM t", `{"answer": "fifty rows"}`)

	res, err := NewStructured(testConfig(p), &mockExecutor{rows: rows}).Execute(context.Background(), Request{Question: "q"})
	require.NoError(t, err)
	assert.Equal(t, previewRows, strings.Count(res.ContextUsed[0], `"i":`))
}

func TestStructuredAgainstSQLite(t *testing.T) {
	store, err := db.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	p := newScriptedProvider(
		"SELECT COUNT(*) AS count FROM fact_calls;",
		`{"answer": "The archive is empty."}`,
	)
	res, err := NewStructured(testConfig(p), store).Execute(context.Background(), Request{Question: "how many calls"})
	require.NoError(t, err)
	assert.Equal(t, "The archive is empty.", res.Answer)
	assert.JSONEq(t, `[{"count": 0}]`, res.ContextUsed[0])
	assert.Contains(t, p.prompt(0), "SQLite")
}

func TestStructuredRejectsWritesAgainstSQLite(t *testing.T) {
	store, err := db.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	p := newScriptedProvider("DELETE FROM fact_calls")
	_, err = NewStructured(testConfig(p), store).Execute(context.Background(), Request{Question: "delete everything"})
	requireCode(t, err, apperr.CodeCollaborator)
}
