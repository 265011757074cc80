package strategy

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/surajshivkumar/ConvoLens/internal/apperr"
	"github.com/surajshivkumar/ConvoLens/internal/db"
	"github.com/surajshivkumar/ConvoLens/internal/llm"
)

// NoDataAnswer is returned when a generated query matches no rows.
const NoDataAnswer = "No data found for your query."

const (
	previewRows   = 20
	narrationRows = 100
)

// QueryExecutor runs read-only SQL. A failed execution is reported as a
// single {"error": msg} row rather than an error.
type QueryExecutor interface {
	ExecuteRows(ctx context.Context, query string) []db.Row
	Dialect() string
}

// Structured answers aggregate and filter questions by generating SQL.
type Structured struct {
	cfg  Config
	exec QueryExecutor
}

// NewStructured creates the structured-query strategy.
func NewStructured(cfg Config, exec QueryExecutor) *Structured {
	return &Structured{cfg: cfg, exec: exec}
}

// Execute implements Strategy.
func (s *Structured) Execute(ctx context.Context, req Request) (*Result, error) {
	log := s.cfg.logger()

	query, err := s.generateSQL(ctx, req.Question)
	if err != nil {
		return nil, apperr.Collaborator(err.Error(), err)
	}
	log.Debug("generated sql", zap.String("sql", query))

	execCtx, cancel := s.cfg.callContext(ctx)
	rows := s.exec.ExecuteRows(execCtx, query)
	cancel()

	if msg, failed := db.ErrorOf(rows); failed {
		log.Warn("query execution failed", zap.String("sql", query), zap.String("error", msg))
		return nil, apperr.Collaborator(msg, nil)
	}

	if len(rows) == 0 {
		return &Result{Answer: NoDataAnswer, Sources: []any{}, ContextUsed: []string{}}, nil
	}

	answer, err := s.narrate(ctx, req.Question, rows)
	if err != nil {
		return nil, apperr.Collaborator(err.Error(), err)
	}

	preview, err := json.Marshal(rows[:min(len(rows), previewRows)])
	if err != nil {
		return nil, apperr.Collaborator("encoding result preview", err)
	}

	return &Result{
		Answer:      answer,
		Sources:     []any{},
		ContextUsed: []string{string(preview)},
	}, nil
}

func (s *Structured) generateSQL(ctx context.Context, question string) (string, error) {
	content, err := s.cfg.complete(ctx, llm.CompletionRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: buildSQLSystemPrompt(s.exec.Dialect())},
			{Role: llm.RoleUser, Content: question},
		},
		MaxTokens:   500,
		Temperature: 0,
	})
	if err != nil {
		return "", fmt.Errorf("generating query: %w", err)
	}
	return cleanSQL(content), nil
}

func (s *Structured) narrate(ctx context.Context, question string, rows []db.Row) (string, error) {
	data, err := json.Marshal(rows[:min(len(rows), narrationRows)])
	if err != nil {
		return "", fmt.Errorf("encoding rows: %w", err)
	}

	content, err := s.cfg.complete(ctx, llm.CompletionRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: narrationSystemPrompt},
			{Role: llm.RoleUser, Content: buildNarrationPrompt(question, string(data), len(rows))},
		},
		MaxTokens:   800,
		Temperature: 0.2,
		JSONMode:    true,
	})
	if err != nil {
		return "", fmt.Errorf("narrating results: %w", err)
	}

	doc, err := validatedJSON(narrationSchema, content)
	if err != nil {
		return "", fmt.Errorf("parsing narration: %w", err)
	}
	var out struct {
		Answer string `json:"answer"`
	}
	if err := json.Unmarshal([]byte(doc), &out); err != nil {
		return "", fmt.Errorf("parsing narration: %w", err)
	}
	return strings.TrimSpace(out.Answer), nil
}

// cleanSQL strips markdown fences and trailing semicolons from generated SQL.
func cleanSQL(s string) string {
	s = llm.StripCodeFences(s)
	return strings.TrimSpace(strings.TrimRight(strings.TrimSpace(s), ";"))
}
