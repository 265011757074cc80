package strategy

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"

	"github.com/surajshivkumar/ConvoLens/internal/llm"
)

// TimeExtractor finds the requested start time in free text. ok is false
// when the text contains no usable date or time.
type TimeExtractor interface {
	Extract(ctx context.Context, text string, now time.Time) (t time.Time, ok bool, err error)
}

// RuleExtractor parses English date and time expressions locally.
type RuleExtractor struct {
	parser *when.Parser
}

// NewRuleExtractor creates a RuleExtractor with the English and common rules.
func NewRuleExtractor() *RuleExtractor {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return &RuleExtractor{parser: w}
}

// Extract implements TimeExtractor. Relative expressions resolve against
// now, in now's location. A bare clock time that has already passed today
// resolves to the same time tomorrow.
func (r *RuleExtractor) Extract(_ context.Context, text string, now time.Time) (time.Time, bool, error) {
	res, err := r.parser.Parse(text, now)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parsing time: %w", err)
	}
	if res == nil {
		return time.Time{}, false, nil
	}

	t := res.Time.In(now.Location()).Truncate(time.Minute)
	if t.Before(now) && sameDay(t, now) && !strings.Contains(strings.ToLower(res.Text), "today") {
		t = t.AddDate(0, 0, 1)
	}
	return t, true, nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// LLMExtractor asks the language model for an RFC 3339 start time.
type LLMExtractor struct {
	cfg Config
}

// NewLLMExtractor creates an extractor backed by cfg's provider.
func NewLLMExtractor(cfg Config) *LLMExtractor {
	return &LLMExtractor{cfg: cfg}
}

// Extract implements TimeExtractor.
func (l *LLMExtractor) Extract(ctx context.Context, text string, now time.Time) (time.Time, bool, error) {
	content, err := l.cfg.complete(ctx, llm.CompletionRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: datetimeSystemPrompt},
			{Role: llm.RoleUser, Content: buildDatetimePrompt(text, now)},
		},
		MaxTokens:   60,
		Temperature: 0,
		JSONMode:    true,
	})
	if err != nil {
		return time.Time{}, false, fmt.Errorf("extracting time: %w", err)
	}

	doc, err := validatedJSON(datetimeSchema, content)
	if err != nil {
		// An unusable answer means the model found no time.
		l.cfg.logger().Debug("datetime extraction returned invalid json")
		return time.Time{}, false, nil
	}
	var out struct {
		Datetime string `json:"datetime"`
	}
	if err := json.Unmarshal([]byte(doc), &out); err != nil {
		return time.Time{}, false, nil
	}

	raw := strings.TrimSpace(out.Datetime)
	if raw == "" {
		return time.Time{}, false, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		t, err = time.ParseInLocation("2006-01-02T15:04:05", raw, now.Location())
		if err != nil {
			return time.Time{}, false, nil
		}
	}
	return t.In(now.Location()).Truncate(time.Minute), true, nil
}
