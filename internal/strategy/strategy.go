// Package strategy implements the three ways a question can be answered:
// a generated SQL query, retrieval over similar calls, or booking a
// calendar event. Each strategy is stateless between calls.
package strategy

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/surajshivkumar/ConvoLens/internal/llm"
)

// Request is the strategy-facing view of a question.
type Request struct {
	Question string
	// History is already truncated by the router; only semantic retrieval reads it.
	History        []llm.Message
	IdempotencyKey string
}

// Result is a strategy's answer before the router stamps and normalizes it.
type Result struct {
	Answer      string   `json:"answer"`
	Sources     []any    `json:"sources"`
	ContextUsed []string `json:"context_used"`
	// Confidence is the self-reported tier of a semantic answer, if any.
	Confidence string `json:"confidence,omitempty"`
}

// Strategy answers a question one particular way.
type Strategy interface {
	Execute(ctx context.Context, req Request) (*Result, error)
}

// Config holds the collaborators every strategy shares.
type Config struct {
	Provider llm.Provider
	Model    string
	// Timeout bounds each individual collaborator call. Zero means no bound
	// beyond the request context.
	Timeout time.Duration
	Logger  *zap.Logger
}

func (c Config) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}

// callContext derives the context for one collaborator call.
func (c Config) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.Timeout)
}

// complete runs one bounded completion and returns the trimmed content.
func (c Config) complete(ctx context.Context, req llm.CompletionRequest) (string, error) {
	if req.Model == "" {
		req.Model = c.Model
	}
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.Provider.Complete(callCtx, req)
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}
