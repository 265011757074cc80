package intent

import (
	"context"
	"fmt"

	"github.com/surajshivkumar/ConvoLens/internal/llm"
)

const classifierSystemPrompt = `You route questions about a call-center transcript archive to exactly one handler.

Reply with exactly one of these labels and nothing else:
- structured_query: counts, totals, averages, rankings, or filters over known call fields (agent, date, issue type, sentiment, duration, resolution, quality scores). Example: "How many negative calls were there last week?"
- semantic_retrieval: questions about what was said in calls, topics, examples, or anything that needs reading transcripts. Example: "What do customers complain about when returning blenders?"
- scheduling: requests to create, book, or schedule a calendar event or follow-up call. Example: "Schedule a call with Ralph tomorrow at 6pm."

If unsure, answer semantic_retrieval.`

// Classifier labels questions with a single LLM call.
type Classifier struct {
	provider llm.Provider
	model    string
}

// NewClassifier creates a classifier backed by the given provider.
func NewClassifier(provider llm.Provider, model string) *Classifier {
	return &Classifier{provider: provider, model: model}
}

// Classify returns the parsed intent together with the raw label the model
// produced. Output that matches no label yields Unknown with a nil error.
func (c *Classifier) Classify(ctx context.Context, question string) (Intent, string, error) {
	resp, err := c.provider.Complete(ctx, llm.CompletionRequest{
		Model: c.model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: classifierSystemPrompt},
			{Role: llm.RoleUser, Content: question},
		},
		MaxTokens:   10,
		Temperature: 0,
	})
	if err != nil {
		return Unknown, "", fmt.Errorf("classifying question: %w", err)
	}
	return Parse(resp.Content), resp.Content, nil
}
