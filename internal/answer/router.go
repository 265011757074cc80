package answer

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/surajshivkumar/ConvoLens/internal/apperr"
	"github.com/surajshivkumar/ConvoLens/internal/intent"
	"github.com/surajshivkumar/ConvoLens/internal/metrics"
	"github.com/surajshivkumar/ConvoLens/internal/strategy"
)

// Classifier labels a question with the strategy that should answer it.
// The raw label is returned alongside for logging.
type Classifier interface {
	Classify(ctx context.Context, question string) (intent.Intent, string, error)
}

// ClassifierFunc adapts a function to Classifier.
type ClassifierFunc func(ctx context.Context, question string) (intent.Intent, string, error)

// Classify implements Classifier.
func (f ClassifierFunc) Classify(ctx context.Context, question string) (intent.Intent, string, error) {
	return f(ctx, question)
}

// Strategies holds one implementation per intent.
type Strategies struct {
	Structured strategy.Strategy
	Semantic   strategy.Strategy
	Scheduling strategy.Strategy
}

// Router is the single entry point for answering questions. It is safe for
// concurrent use.
type Router struct {
	classifier Classifier
	strategies Strategies
	timeout    time.Duration
	logger     *zap.Logger
	now        func() time.Time
}

// Option configures a Router.
type Option func(*Router)

// WithTimeout bounds the classification call.
func WithTimeout(d time.Duration) Option {
	return func(r *Router) { r.timeout = d }
}

// WithLogger sets the router's logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Router) { r.logger = l }
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(r *Router) { r.now = now }
}

// NewRouter creates a Router.
func NewRouter(classifier Classifier, strategies Strategies, opts ...Option) *Router {
	r := &Router{
		classifier: classifier,
		strategies: strategies,
		logger:     zap.NewNop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Handle answers q. Every error it returns is an *apperr.Error.
func (r *Router) Handle(ctx context.Context, q Question) (*Envelope, error) {
	text := strings.TrimSpace(q.Text)
	if text == "" {
		return nil, apperr.ClientInput("question is required")
	}

	label, raw, err := r.classify(ctx, text)
	if err != nil {
		metrics.QuestionFailures.WithLabelValues(intent.Unknown.String(), string(apperr.CodeCollaborator)).Inc()
		return nil, apperr.Collaborator("classification failed: "+err.Error(), err)
	}

	req := strategy.Request{Question: text, IdempotencyKey: q.IdempotencyKey}
	var strat strategy.Strategy
	switch label {
	case intent.StructuredQuery:
		strat = r.strategies.Structured
	case intent.SemanticRetrieval:
		strat = r.strategies.Semantic
		req.History = truncateHistory(q.History)
	case intent.Scheduling:
		strat = r.strategies.Scheduling
	default:
		r.logger.Warn("unrecognized intent, falling back to semantic retrieval", zap.String("raw_label", raw))
		metrics.IntentFallbacks.Inc()
		label = intent.SemanticRetrieval
		strat = r.strategies.Semantic
		req.History = truncateHistory(q.History)
	}

	log := r.logger.With(zap.String("intent", label.String()))
	if strat == nil {
		metrics.QuestionFailures.WithLabelValues(label.String(), string(apperr.CodeCollaborator)).Inc()
		return nil, apperr.Collaborator(label.String()+" is not configured", nil)
	}
	log.Debug("dispatching question")

	start := time.Now()
	res, err := strat.Execute(ctx, req)
	metrics.StrategyDuration.WithLabelValues(label.String()).Observe(time.Since(start).Seconds())

	if err == nil && strings.TrimSpace(res.Answer) == "" {
		err = apperr.Collaborator("strategy produced an empty answer", nil)
	}
	if err != nil {
		if _, ok := apperr.As(err); !ok {
			err = apperr.Collaborator(err.Error(), err)
		}
		code := apperr.CodeOf(err)
		metrics.QuestionFailures.WithLabelValues(label.String(), string(code)).Inc()
		log.Warn("question failed", zap.String("code", string(code)), zap.Error(err))
		return nil, err
	}

	metrics.QuestionsTotal.WithLabelValues(label.String()).Inc()
	if res.Confidence != "" {
		metrics.AnswerConfidence.WithLabelValues(res.Confidence).Inc()
	}

	env := &Envelope{
		Answer:      res.Answer,
		Sources:     res.Sources,
		ContextUsed: res.ContextUsed,
		Timestamp:   r.now().Format(time.RFC3339),
	}
	if env.Sources == nil {
		env.Sources = []any{}
	}
	if env.ContextUsed == nil {
		env.ContextUsed = []string{}
	}
	return env, nil
}

func (r *Router) classify(ctx context.Context, text string) (intent.Intent, string, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	return r.classifier.Classify(ctx, text)
}
