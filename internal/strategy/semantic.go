package strategy

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/surajshivkumar/ConvoLens/internal/apperr"
	"github.com/surajshivkumar/ConvoLens/internal/embeddings"
	"github.com/surajshivkumar/ConvoLens/internal/llm"
	"github.com/surajshivkumar/ConvoLens/internal/vectordb"
)

// NoTranscriptsAnswer is returned when nothing clears the similarity threshold.
const NoTranscriptsAnswer = "No relevant transcripts found."

const contextSnippets = 3

// Source describes one retrieved call cited by a semantic answer.
type Source struct {
	CallID        string  `json:"call_id"`
	AgentID       string  `json:"agent_id"`
	Summary       string  `json:"summary"`
	Sentiment     string  `json:"sentiment"`
	IssueType     string  `json:"issue_type"`
	CallTimestamp string  `json:"call_timestamp"`
	Similarity    float64 `json:"similarity"`
	Relevance     string  `json:"relevance,omitempty"`
	Excerpt       string  `json:"excerpt,omitempty"`
}

// SemanticOptions tunes retrieval.
type SemanticOptions struct {
	TopK      int
	Threshold float64
}

// Semantic answers open-ended questions from the most similar transcripts.
type Semantic struct {
	cfg      Config
	embedder embeddings.Embedder
	searcher vectordb.Searcher
	opts     SemanticOptions
}

// NewSemantic creates the semantic-retrieval strategy.
func NewSemantic(cfg Config, embedder embeddings.Embedder, searcher vectordb.Searcher, opts SemanticOptions) *Semantic {
	if opts.TopK <= 0 {
		opts.TopK = 5
	}
	return &Semantic{cfg: cfg, embedder: embedder, searcher: searcher, opts: opts}
}

type synthesis struct {
	Answer     string          `json:"answer"`
	Confidence string          `json:"confidence"`
	Calls      []synthesisCall `json:"calls"`
}

type synthesisCall struct {
	CallID    string  `json:"call_id"`
	Relevance *string `json:"relevance"`
	Excerpt   *string `json:"excerpt"`
}

// Execute implements Strategy.
func (s *Semantic) Execute(ctx context.Context, req Request) (*Result, error) {
	log := s.cfg.logger()

	embedCtx, cancel := s.cfg.callContext(ctx)
	vec, err := embeddings.EmbedOne(embedCtx, s.embedder, req.Question)
	cancel()
	if err != nil {
		return nil, apperr.Collaborator(fmt.Sprintf("embedding question: %v", err), err)
	}

	records := s.search(ctx, vec, log)
	if len(records) == 0 {
		return &Result{Answer: NoTranscriptsAnswer, Sources: []any{}, ContextUsed: []string{}}, nil
	}

	content, err := s.cfg.complete(ctx, llm.CompletionRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: synthesisSystemPrompt},
			{Role: llm.RoleUser, Content: buildSynthesisPrompt(req.Question, req.History, records)},
		},
		MaxTokens:   800,
		Temperature: 0.7,
		JSONMode:    true,
	})
	if err != nil {
		return nil, apperr.Collaborator(fmt.Sprintf("synthesizing answer: %v", err), err)
	}

	doc, err := validatedJSON(synthesisSchema, content)
	if err != nil {
		return nil, apperr.Collaborator(fmt.Sprintf("parsing synthesis: %v", err), err)
	}
	var out synthesis
	if err := json.Unmarshal([]byte(doc), &out); err != nil {
		return nil, apperr.Collaborator(fmt.Sprintf("parsing synthesis: %v", err), err)
	}

	return &Result{
		Answer:      strings.TrimSpace(out.Answer),
		Sources:     buildSources(records, out.Calls, log),
		ContextUsed: contextSnippetsOf(records),
		Confidence:  out.Confidence,
	}, nil
}

// search treats a backend failure as an empty result set.
func (s *Semantic) search(ctx context.Context, vec []float32, log *zap.Logger) []vectordb.Record {
	searchCtx, cancel := s.cfg.callContext(ctx)
	defer cancel()

	found, err := s.searcher.SearchSimilar(searchCtx, vec, s.opts.Threshold, s.opts.TopK)
	if err != nil {
		log.Warn("similarity search failed", zap.Error(err))
		return nil
	}

	records := make([]vectordb.Record, 0, len(found))
	for _, r := range found {
		if strings.TrimSpace(r.Content) == "" {
			continue
		}
		records = append(records, r)
	}
	return records
}

// buildSources cites every retrieved call in similarity order, attaching the
// model's relevance notes. Calls the model names that were not retrieved are
// dropped.
func buildSources(records []vectordb.Record, cited []synthesisCall, log *zap.Logger) []any {
	notes := make(map[string]synthesisCall, len(cited))
	for _, c := range cited {
		notes[c.CallID] = c
	}

	sources := make([]any, 0, len(records))
	seen := make(map[string]bool, len(records))
	for _, r := range records {
		seen[r.CallID] = true
		src := Source{
			CallID:        r.CallID,
			AgentID:       r.AgentID,
			Summary:       truncateRunes(r.Summary, summaryLimit),
			Sentiment:     r.Sentiment,
			IssueType:     r.IssueType,
			CallTimestamp: r.CallTimestamp,
			Similarity:    roundSimilarity(r.Similarity),
		}
		if n, ok := notes[r.CallID]; ok {
			if n.Relevance != nil {
				src.Relevance = *n.Relevance
			}
			if n.Excerpt != nil {
				src.Excerpt = truncateRunes(*n.Excerpt, snippetLimit)
			}
		}
		sources = append(sources, src)
	}

	for _, c := range cited {
		if !seen[c.CallID] {
			log.Warn("dropping call not in retrieved set", zap.String("call_id", c.CallID))
		}
	}
	return sources
}

func contextSnippetsOf(records []vectordb.Record) []string {
	n := min(len(records), contextSnippets)
	out := make([]string, n)
	for i := range n {
		out[i] = truncateRunes(records[i].Content, snippetLimit)
	}
	return out
}

// SourceLine renders the source as a single line of text.
func (s Source) SourceLine() string {
	line := fmt.Sprintf("%s (agent %s, similarity %.3f)", s.CallID, orUnknown(s.AgentID), s.Similarity)
	if s.Summary != "" {
		line += ": " + s.Summary
	}
	return line
}
