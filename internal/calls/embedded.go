package calls

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/surajshivkumar/ConvoLens/internal/db"
	"github.com/surajshivkumar/ConvoLens/internal/vectordb"
)

// Embedded returns every call that has a stored embedding, with the vector
// decoded, ready to load into a local retrieval snapshot.
func (s *Store) Embedded(ctx context.Context) ([]vectordb.Record, error) {
	embedding := "embedding"
	if s.db.Driver() == db.DriverPgx {
		embedding = "embedding::text"
	}
	query := fmt.Sprintf(
		`SELECT call_id, agent_id, transcript, summary, sentiment, issue_type, call_timestamp, %s
		 FROM fact_calls WHERE embedding IS NOT NULL ORDER BY call_timestamp`, embedding)

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing embedded calls: %w", err)
	}
	defer rows.Close()

	var result []vectordb.Record
	for rows.Next() {
		var r vectordb.Record
		var agentID, transcript, summary, sentiment, issueType, ts, vec sql.NullString
		if err := rows.Scan(&r.CallID, &agentID, &transcript, &summary, &sentiment, &issueType, &ts, &vec); err != nil {
			return nil, fmt.Errorf("scanning call: %w", err)
		}
		r.Embedding, err = vectordb.ParseVectorLiteral(vec.String)
		if err != nil {
			return nil, fmt.Errorf("call %s: %w", r.CallID, err)
		}
		r.AgentID = agentID.String
		r.Summary = summary.String
		r.Content = transcript.String
		if r.Content == "" {
			r.Content = summary.String
		}
		r.Sentiment = sentiment.String
		r.IssueType = issueType.String
		r.CallTimestamp = ts.String
		result = append(result, r)
	}
	return result, rows.Err()
}
