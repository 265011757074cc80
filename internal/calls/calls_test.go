package calls

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/surajshivkumar/ConvoLens/internal/db"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	database, err := db.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	_, err = database.Exec(`
INSERT INTO fact_calls (call_id, agent_id, customer_id, call_timestamp, summary, issue_type, sentiment, embedding)
VALUES
  ('c1', 'agent-1', 'cust-1', '2025-05-01T10:00:00Z', 'Refund for damaged item', 'Returns & Refunds', 'negative', '[0.1,0.2]'),
  ('c2', 'agent-1', 'cust-2', '2025-05-02T11:00:00Z', 'Tracking update', 'Shipping & Logistics', 'positive', '[0.3,0.4]'),
  ('c3', 'agent-2', NULL, '2025-05-03T12:00:00Z', NULL, NULL, NULL, NULL);
`)
	require.NoError(t, err)
	return NewStore(database)
}

func TestRecentNewestFirst(t *testing.T) {
	store := setupTestStore(t)

	calls, err := store.Recent(t.Context(), 2)
	require.NoError(t, err)
	require.Len(t, calls, 2)
	assert.Equal(t, "c3", calls[0].CallID)
	assert.Equal(t, "c2", calls[1].CallID)
	assert.Empty(t, calls[0].Summary)
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, 1, ClampLimit(0))
	assert.Equal(t, 1, ClampLimit(-3))
	assert.Equal(t, 7, ClampLimit(7))
	assert.Equal(t, MaxLimit, ClampLimit(10_000))
}

func TestStats(t *testing.T) {
	store := setupTestStore(t)

	st, err := store.Stats(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 3, st.TotalCalls)
	assert.Equal(t, 2, st.CallsWithEmbeddings)
	assert.Equal(t, 66.67, st.EmbeddingCoverage)
}

func TestStatsEmptyArchive(t *testing.T) {
	database, err := db.OpenMemory()
	require.NoError(t, err)
	defer database.Close()

	st, err := NewStore(database).Stats(t.Context())
	require.NoError(t, err)
	assert.Zero(t, st.TotalCalls)
	assert.Zero(t, st.EmbeddingCoverage)
}

func TestHandleRecent(t *testing.T) {
	store := setupTestStore(t)
	r := chi.NewRouter()
	RegisterRoutes(r, store)

	req := httptest.NewRequest(http.MethodGet, "/api/calls?limit=1", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Calls []Call `json:"calls"`
		Count int    `json:"count"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, 1, body.Count)
	assert.Equal(t, "c3", body.Calls[0].CallID)
}

func TestHandleRecentLimitClamped(t *testing.T) {
	store := setupTestStore(t)
	r := chi.NewRouter()
	RegisterRoutes(r, store)

	tests := []struct {
		query string
		want  int
	}{
		{"/api/calls?limit=0", 1},
		{"/api/calls?limit=-5", 1},
		{"/api/calls", 3},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.query, nil))

		require.Equal(t, http.StatusOK, rec.Code, tt.query)
		var body struct {
			Count int `json:"count"`
		}
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.Equal(t, tt.want, body.Count, tt.query)
	}
}

func TestHandleRecentBadLimit(t *testing.T) {
	store := setupTestStore(t)
	r := chi.NewRouter()
	RegisterRoutes(r, store)

	req := httptest.NewRequest(http.MethodGet, "/api/calls?limit=abc", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"detail"`)
}

func TestHandleStats(t *testing.T) {
	store := setupTestStore(t)
	r := chi.NewRouter()
	RegisterRoutes(r, store)

	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var st Stats
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&st))
	assert.Equal(t, 3, st.TotalCalls)
}

func TestEmbedded(t *testing.T) {
	store := setupTestStore(t)

	records, err := store.Embedded(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "c1", records[0].CallID)
	assert.Equal(t, []float32{0.1, 0.2}, records[0].Embedding)
	assert.Equal(t, "Refund for damaged item", records[0].Content, "summary stands in for a missing transcript")
	assert.Equal(t, "Returns & Refunds", records[0].IssueType)
	assert.Equal(t, "c2", records[1].CallID)
}

func TestEmbeddedBadVector(t *testing.T) {
	store := setupTestStore(t)
	_, err := store.db.Exec(`INSERT INTO fact_calls (call_id, embedding) VALUES ('c4', 'not-a-vector')`)
	require.NoError(t, err)

	_, err = store.Embedded(context.Background())
	assert.ErrorContains(t, err, "c4")
}
