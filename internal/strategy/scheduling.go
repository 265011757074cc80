package strategy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/surajshivkumar/ConvoLens/internal/apperr"
	"github.com/surajshivkumar/ConvoLens/internal/calendar"
	"github.com/surajshivkumar/ConvoLens/internal/llm"
)

const (
	// NoTimeDetail is the client error for a request without a usable time.
	NoTimeDetail = "Could not extract time from your prompt."
	defaultTitle = "Scheduled Call"
	startLayout  = "Monday, January 2, 2006 at 3:04 PM MST"
)

// Idempotency remembers scheduling results by client-supplied key.
// *calendar.IdempotencyStore satisfies it.
type Idempotency interface {
	Reserve(ctx context.Context, key string) (cached []byte, reserved bool, err error)
	Complete(ctx context.Context, key string, result []byte) error
	Release(ctx context.Context, key string) error
}

// EventSource is the single source descriptor of a scheduling answer.
type EventSource struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Start    string `json:"start"`
	End      string `json:"end"`
	TimeZone string `json:"timezone"`
	EventID  string `json:"event_id"`
	Link     string `json:"link"`
}

// SchedulingOptions configures the scheduling strategy.
type SchedulingOptions struct {
	Location *time.Location
	// Now defaults to time.Now.
	Now func() time.Time
	// Idempotency is optional; without it every request creates an event.
	Idempotency Idempotency
}

// Scheduling books calendar events from natural-language requests.
type Scheduling struct {
	cfg       Config
	extractor TimeExtractor
	creator   calendar.Creator
	opts      SchedulingOptions
}

// NewScheduling creates the scheduling strategy.
func NewScheduling(cfg Config, extractor TimeExtractor, creator calendar.Creator, opts SchedulingOptions) *Scheduling {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Scheduling{cfg: cfg, extractor: extractor, creator: creator, opts: opts}
}

// Execute implements Strategy.
func (s *Scheduling) Execute(ctx context.Context, req Request) (*Result, error) {
	key := strings.TrimSpace(req.IdempotencyKey)
	if key == "" || s.opts.Idempotency == nil {
		return s.schedule(ctx, req.Question)
	}

	cached, reserved, err := s.opts.Idempotency.Reserve(ctx, key)
	switch {
	case errors.Is(err, calendar.ErrInProgress):
		return nil, apperr.Conflict("A scheduling request with this idempotency key is already in progress.")
	case err != nil:
		return nil, apperr.Collaborator(fmt.Sprintf("Scheduling failed: %v", err), err)
	case !reserved:
		var res Result
		if err := json.Unmarshal(cached, &res); err != nil {
			return nil, apperr.Collaborator("Scheduling failed: stored result is unreadable", err)
		}
		s.cfg.logger().Info("replaying scheduling result", zap.String("idempotency_key", key))
		return &res, nil
	}

	res, err := s.schedule(ctx, req.Question)
	if err != nil {
		if relErr := s.opts.Idempotency.Release(context.WithoutCancel(ctx), key); relErr != nil {
			s.cfg.logger().Warn("releasing idempotency key", zap.String("idempotency_key", key), zap.Error(relErr))
		}
		return nil, err
	}

	data, err := json.Marshal(res)
	if err == nil {
		err = s.opts.Idempotency.Complete(context.WithoutCancel(ctx), key, data)
	}
	if err != nil {
		// The event exists; a lost record only weakens replay.
		s.cfg.logger().Warn("storing scheduling result", zap.String("idempotency_key", key), zap.Error(err))
	}
	return res, nil
}

func (s *Scheduling) schedule(ctx context.Context, question string) (*Result, error) {
	log := s.cfg.logger()
	now := s.opts.Now().In(s.opts.Location)

	extractCtx, cancel := s.cfg.callContext(ctx)
	start, ok, err := s.extractor.Extract(extractCtx, question, now)
	cancel()
	if err != nil {
		return nil, apperr.Collaborator(fmt.Sprintf("Scheduling failed: %v", err), err)
	}
	if !ok {
		return nil, apperr.ClientInput(NoTimeDetail)
	}
	start = start.In(s.opts.Location)
	end := start.Add(calendar.EventDuration)

	title, err := s.title(ctx, question)
	if err != nil {
		return nil, apperr.Collaborator(fmt.Sprintf("Scheduling failed: %v", err), err)
	}

	createCtx, cancel := s.cfg.callContext(ctx)
	created, err := s.creator.CreateEvent(createCtx, calendar.Event{
		Title:       title,
		Description: question,
		Start:       start,
		End:         end,
		TimeZone:    s.opts.Location.String(),
	})
	cancel()
	if err != nil {
		return nil, apperr.Collaborator(fmt.Sprintf("Scheduling failed: %v", err), err)
	}

	log.Info("event created",
		zap.String("event_id", created.ID),
		zap.Time("start", start),
	)

	return &Result{
		Answer: fmt.Sprintf("Scheduled %q for %s. Event link: %s", title, start.Format(startLayout), created.Link),
		Sources: []any{EventSource{
			Type:     "calendar_event",
			Title:    title,
			Start:    start.Format(time.RFC3339),
			End:      end.Format(time.RFC3339),
			TimeZone: s.opts.Location.String(),
			EventID:  created.ID,
			Link:     created.Link,
		}},
		ContextUsed: []string{},
	}, nil
}

func (s *Scheduling) title(ctx context.Context, question string) (string, error) {
	content, err := s.cfg.complete(ctx, llm.CompletionRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: titleSystemPrompt},
			{Role: llm.RoleUser, Content: question},
		},
		MaxTokens:   20,
		Temperature: 0,
	})
	if err != nil {
		return "", fmt.Errorf("generating title: %w", err)
	}
	title := strings.Trim(strings.TrimSpace(content), "\"'")
	if title == "" {
		return defaultTitle, nil
	}
	return title, nil
}

// SourceLine renders the event as a single line of text.
func (e EventSource) SourceLine() string {
	return fmt.Sprintf("Calendar event %q at %s: %s", e.Title, e.Start, e.Link)
}
