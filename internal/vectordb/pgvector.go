package vectordb

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

// searchSQL calls the archive's similarity RPC. The function filters by
// threshold and orders by similarity itself.
const searchSQL = `SELECT call_id::text, agent_id, transcript, summary, sentiment, issue_type,
       call_timestamp::text, similarity
FROM search_similar_calls($1::vector, $2, $3)`

// PgvectorSearcher runs similarity search inside PostgreSQL via pgvector.
type PgvectorSearcher struct {
	pool *pgxpool.Pool
}

// NewPgvectorSearcher connects a pool to the archive database.
func NewPgvectorSearcher(ctx context.Context, dsn string) (*PgvectorSearcher, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("creating pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return &PgvectorSearcher{pool: pool}, nil
}

// SearchSimilar implements Searcher.
func (s *PgvectorSearcher) SearchSimilar(ctx context.Context, vec []float32, threshold float64, limit int) ([]Record, error) {
	rows, err := s.pool.Query(ctx, searchSQL, VectorLiteral(vec), threshold, limit)
	if err != nil {
		return nil, fmt.Errorf("search_similar_calls: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		var agentID, transcript, summary, sentiment, issueType, ts *string
		if err := rows.Scan(&r.CallID, &agentID, &transcript, &summary, &sentiment, &issueType, &ts, &r.Similarity); err != nil {
			return nil, fmt.Errorf("scanning search result: %w", err)
		}
		r.AgentID = deref(agentID)
		r.Summary = deref(summary)
		r.Sentiment = deref(sentiment)
		r.IssueType = deref(issueType)
		r.CallTimestamp = deref(ts)
		r.Content = contentOf(deref(transcript), r.Summary)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading search results: %w", err)
	}
	return records, nil
}

// Close releases the pool.
func (s *PgvectorSearcher) Close() {
	s.pool.Close()
}

// VectorLiteral formats vec in pgvector's text input form, e.g. [0.1,0.2].
func VectorLiteral(vec []float32) string {
	var b strings.Builder
	b.Grow(len(vec) * 10)
	b.WriteByte('[')
	for i, v := range vec {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(v), 'g', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}

// ParseVectorLiteral is the inverse of VectorLiteral. It also accepts the
// JSON array text stored by SQLite archives.
func ParseVectorLiteral(s string) ([]float32, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "[") || !strings.HasSuffix(s, "]") {
		return nil, fmt.Errorf("not a vector literal")
	}
	body := strings.TrimSpace(s[1 : len(s)-1])
	if body == "" {
		return nil, nil
	}
	parts := strings.Split(body, ",")
	vec := make([]float32, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return nil, fmt.Errorf("vector component %d: %w", i, err)
		}
		vec[i] = float32(f)
	}
	return vec, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
