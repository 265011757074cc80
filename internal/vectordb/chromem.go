package vectordb

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	chromem "github.com/philippgille/chromem-go"

	"github.com/surajshivkumar/ConvoLens/internal/embeddings"
)

const collectionName = "fact_calls"

// ChromemStore is a local similarity index over call embeddings, persisted
// as a single gzip-compressed snapshot file.
type ChromemStore struct {
	db         *chromem.DB
	collection *chromem.Collection
	embedFunc  chromem.EmbeddingFunc
}

// NewChromemStore creates an empty in-memory store. The embedder is only
// used for documents added without a precomputed vector.
func NewChromemStore(embedder embeddings.Embedder) (*ChromemStore, error) {
	db := chromem.NewDB()
	ef := embeddings.ToChromemFunc(embedder)

	col, err := db.GetOrCreateCollection(collectionName, nil, ef)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}

	return &ChromemStore{db: db, collection: col, embedFunc: ef}, nil
}

// OpenChromemStore loads a snapshot written by Persist.
func OpenChromemStore(path string, embedder embeddings.Embedder) (*ChromemStore, error) {
	s, err := NewChromemStore(embedder)
	if err != nil {
		return nil, err
	}
	if err := s.Load(path); err != nil {
		return nil, err
	}
	return s, nil
}

// AddRecords indexes records that already carry their embedding.
func (s *ChromemStore) AddRecords(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	docs := make([]chromem.Document, len(records))
	for i, r := range records {
		docs[i] = chromem.Document{
			ID:        r.CallID,
			Content:   r.Content,
			Embedding: r.Embedding,
			Metadata:  recordToMetadata(r),
		}
	}

	return s.collection.AddDocuments(ctx, docs, runtime.NumCPU())
}

// SearchSimilar implements Searcher.
func (s *ChromemStore) SearchSimilar(ctx context.Context, vec []float32, threshold float64, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 5
	}

	// chromem-go requires nResults <= collection size.
	count := s.collection.Count()
	if count == 0 {
		return nil, nil
	}
	if limit > count {
		limit = count
	}

	results, err := s.collection.QueryEmbedding(ctx, vec, limit, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem query: %w", err)
	}

	records := make([]Record, 0, len(results))
	for _, r := range results {
		if float64(r.Similarity) < threshold {
			continue
		}
		rec := metadataToRecord(r.Metadata)
		rec.CallID = r.ID
		rec.Content = r.Content
		rec.Similarity = float64(r.Similarity)
		records = append(records, rec)
	}
	return records, nil
}

// Persist writes the snapshot to path, creating parent directories.
func (s *ChromemStore) Persist(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating snapshot directory: %w", err)
	}
	return s.db.ExportToFile(path, true, "")
}

// Load replaces the store's contents with the snapshot at path.
func (s *ChromemStore) Load(path string) error {
	if err := s.db.ImportFromFile(path, ""); err != nil {
		return fmt.Errorf("import from file: %w", err)
	}

	// Re-acquire collection reference after import.
	col := s.db.GetCollection(collectionName, s.embedFunc)
	if col == nil {
		return fmt.Errorf("collection %q not found in %s", collectionName, path)
	}
	s.collection = col
	return nil
}

func (s *ChromemStore) Count() int {
	return s.collection.Count()
}

func recordToMetadata(r Record) map[string]string {
	return map[string]string{
		"agent_id":       r.AgentID,
		"summary":        r.Summary,
		"sentiment":      r.Sentiment,
		"issue_type":     r.IssueType,
		"call_timestamp": r.CallTimestamp,
	}
}

func metadataToRecord(m map[string]string) Record {
	return Record{
		AgentID:       m["agent_id"],
		Summary:       m["summary"],
		Sentiment:     m["sentiment"],
		IssueType:     m["issue_type"],
		CallTimestamp: m["call_timestamp"],
	}
}
