package vectordb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8"
)

// ElasticConfig locates the call index.
type ElasticConfig struct {
	Addresses []string
	Index     string
	Username  string
	Password  string
}

// ElasticSearcher runs approximate kNN search against an index of calls
// with a dense_vector "embedding" field (cosine similarity).
type ElasticSearcher struct {
	client *elasticsearch.Client
	index  string
}

// NewElasticSearcher creates a client for the configured cluster.
func NewElasticSearcher(cfg ElasticConfig) (*ElasticSearcher, error) {
	esCfg := elasticsearch.Config{
		Addresses: cfg.Addresses,
	}
	if cfg.Username != "" {
		esCfg.Username = cfg.Username
		esCfg.Password = cfg.Password
	}

	es, err := elasticsearch.NewClient(esCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}
	return &ElasticSearcher{client: es, index: cfg.Index}, nil
}

var sourceFields = []string{"call_id", "agent_id", "transcript", "summary", "sentiment", "issue_type", "call_timestamp"}

type knnQuery struct {
	Field         string    `json:"field"`
	QueryVector   []float32 `json:"query_vector"`
	K             int       `json:"k"`
	NumCandidates int       `json:"num_candidates"`
	Similarity    float64   `json:"similarity"`
}

type knnRequest struct {
	KNN    knnQuery `json:"knn"`
	Source []string `json:"_source"`
	Size   int      `json:"size"`
}

type knnResponse struct {
	Hits struct {
		Hits []struct {
			ID     string  `json:"_id"`
			Score  float64 `json:"_score"`
			Source struct {
				CallID        string `json:"call_id"`
				AgentID       string `json:"agent_id"`
				Transcript    string `json:"transcript"`
				Summary       string `json:"summary"`
				Sentiment     string `json:"sentiment"`
				IssueType     string `json:"issue_type"`
				CallTimestamp string `json:"call_timestamp"`
			} `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// SearchSimilar implements Searcher.
func (s *ElasticSearcher) SearchSimilar(ctx context.Context, vec []float32, threshold float64, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 5
	}
	body, err := json.Marshal(knnRequest{
		KNN: knnQuery{
			Field:         "embedding",
			QueryVector:   vec,
			K:             limit,
			NumCandidates: max(limit*10, 100),
			Similarity:    threshold,
		},
		Source: sourceFields,
		Size:   limit,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding knn query: %w", err)
	}

	res, err := s.client.Search(
		s.client.Search.WithContext(ctx),
		s.client.Search.WithIndex(s.index),
		s.client.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch search failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("elasticsearch search error: %s", res.Status())
	}

	var parsed knnResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decoding search response: %w", err)
	}

	records := make([]Record, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		// For cosine fields Elasticsearch scores hits as (1 + cosine) / 2.
		sim := 2*hit.Score - 1
		if sim < threshold {
			continue
		}
		src := hit.Source
		callID := src.CallID
		if callID == "" {
			callID = hit.ID
		}
		records = append(records, Record{
			CallID:        callID,
			AgentID:       src.AgentID,
			Content:       contentOf(src.Transcript, src.Summary),
			Summary:       src.Summary,
			Sentiment:     src.Sentiment,
			IssueType:     src.IssueType,
			CallTimestamp: src.CallTimestamp,
			Similarity:    sim,
		})
	}
	return records, nil
}
