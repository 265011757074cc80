// Package answer routes a question to one answering strategy and wraps the
// result in the uniform response envelope.
package answer

import (
	"github.com/surajshivkumar/ConvoLens/internal/llm"
)

// MaxHistoryTurns is how many prior messages reach the semantic strategy.
const MaxHistoryTurns = 4

// Question is one incoming request.
type Question struct {
	Text           string
	History        []llm.Message
	IdempotencyKey string
}

// Envelope is the response shape shared by every strategy. Sources and
// ContextUsed are never nil.
type Envelope struct {
	Answer      string   `json:"answer"`
	Sources     []any    `json:"sources"`
	ContextUsed []string `json:"context_used"`
	Timestamp   string   `json:"timestamp"`
}

// HistoryMessage is the wire form of a conversation turn.
type HistoryMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ToMessages converts wire history to LLM messages. Turns with an unknown
// role or no content are skipped.
func ToMessages(history []HistoryMessage) []llm.Message {
	out := make([]llm.Message, 0, len(history))
	for _, h := range history {
		if h.Content == "" {
			continue
		}
		switch llm.Role(h.Role) {
		case llm.RoleUser, llm.RoleAssistant:
			out = append(out, llm.Message{Role: llm.Role(h.Role), Content: h.Content})
		}
	}
	return out
}

// truncateHistory keeps the most recent MaxHistoryTurns messages.
func truncateHistory(history []llm.Message) []llm.Message {
	if len(history) <= MaxHistoryTurns {
		return history
	}
	return history[len(history)-MaxHistoryTurns:]
}
