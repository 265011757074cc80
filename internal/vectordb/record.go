package vectordb

import "context"

// Record is one call returned by similarity search.
type Record struct {
	CallID        string
	AgentID       string
	Content       string // transcript, or summary when there is none
	Summary       string
	Sentiment     string
	IssueType     string
	CallTimestamp string
	Similarity    float64

	// Embedding is only populated when building a local snapshot.
	Embedding []float32
}

// Searcher finds the calls most similar to a query vector. Results are
// ordered by descending similarity, all at or above threshold, at most limit.
type Searcher interface {
	SearchSimilar(ctx context.Context, vec []float32, threshold float64, limit int) ([]Record, error)
}

// contentOf prefers the transcript and falls back to the summary.
func contentOf(transcript, summary string) string {
	if transcript != "" {
		return transcript
	}
	return summary
}
