package calls

// Call is the browsing projection of a fact_calls row.
type Call struct {
	CallID        string `json:"call_id"`
	AgentID       string `json:"agent_id"`
	CustomerID    string `json:"customer_id"`
	Summary       string `json:"summary"`
	Sentiment     string `json:"sentiment"`
	IssueType     string `json:"issue_type"`
	CallTimestamp string `json:"call_timestamp"`
}

// Stats summarizes archive size and embedding coverage.
type Stats struct {
	TotalCalls          int     `json:"total_calls"`
	CallsWithEmbeddings int     `json:"calls_with_embeddings"`
	EmbeddingCoverage   float64 `json:"embedding_coverage"`
}

const (
	DefaultLimit = 20
	MaxLimit     = 200
)
