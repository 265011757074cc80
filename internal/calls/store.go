package calls

import (
	"context"
	"database/sql"
	"fmt"
	"math"

	"github.com/surajshivkumar/ConvoLens/internal/db"
)

// Store reads the call archive for browsing endpoints.
type Store struct {
	db *db.DB
}

// NewStore creates a new call store.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// ClampLimit bounds a requested page size to [1, MaxLimit].
func ClampLimit(limit int) int {
	if limit < 1 {
		return 1
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// Recent returns the most recent calls, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Call, error) {
	// Placeholder syntax differs between pgx and sqlite; limit is clamped.
	query := fmt.Sprintf(
		`SELECT call_id, agent_id, customer_id, summary, sentiment, issue_type, call_timestamp
		 FROM fact_calls ORDER BY call_timestamp DESC LIMIT %d`, ClampLimit(limit))

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing calls: %w", err)
	}
	defer rows.Close()

	result := []Call{}
	for rows.Next() {
		var c Call
		var agentID, customerID, summary, sentiment, issueType, ts sql.NullString
		if err := rows.Scan(&c.CallID, &agentID, &customerID, &summary, &sentiment, &issueType, &ts); err != nil {
			return nil, fmt.Errorf("scanning call: %w", err)
		}
		c.AgentID = agentID.String
		c.CustomerID = customerID.String
		c.Summary = summary.String
		c.Sentiment = sentiment.String
		c.IssueType = issueType.String
		c.CallTimestamp = ts.String
		result = append(result, c)
	}
	return result, rows.Err()
}

// Count returns the number of calls in the archive.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM fact_calls`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting calls: %w", err)
	}
	return n, nil
}

// Stats returns archive totals and the share of calls that carry an embedding.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	total, err := s.Count(ctx)
	if err != nil {
		return nil, err
	}

	var embedded int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM fact_calls WHERE embedding IS NOT NULL`).Scan(&embedded); err != nil {
		return nil, fmt.Errorf("counting embedded calls: %w", err)
	}

	st := &Stats{TotalCalls: total, CallsWithEmbeddings: embedded}
	if total > 0 {
		st.EmbeddingCoverage = math.Round(float64(embedded)/float64(total)*100*100) / 100
	}
	return st, nil
}

// Ping checks the archive connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
