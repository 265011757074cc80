package cmd

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/surajshivkumar/ConvoLens/internal/answer"
	"github.com/surajshivkumar/ConvoLens/internal/auth"
	"github.com/surajshivkumar/ConvoLens/internal/calendar"
	"github.com/surajshivkumar/ConvoLens/internal/calls"
	"github.com/surajshivkumar/ConvoLens/internal/config"
	"github.com/surajshivkumar/ConvoLens/internal/db"
	"github.com/surajshivkumar/ConvoLens/internal/embeddings"
	"github.com/surajshivkumar/ConvoLens/internal/intent"
	"github.com/surajshivkumar/ConvoLens/internal/llm"
	"github.com/surajshivkumar/ConvoLens/internal/logging"
	"github.com/surajshivkumar/ConvoLens/internal/strategy"
	"github.com/surajshivkumar/ConvoLens/internal/vectordb"
)

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `convolens init` to create a config file", err)
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) *zap.Logger {
	return logging.New(cfg.Logging.Level, cfg.Logging.Format)
}

// createLLMProviderFromConfig creates an LLM provider based on config settings.
func createLLMProviderFromConfig(cfg *config.Config, creds *auth.Store) (llm.Provider, error) {
	provider, err := llm.NewProvider(string(cfg.Provider), cfg.Model, creds.APIKey(cfg.Provider))
	if err != nil {
		return nil, err
	}
	if cfg.LLMRequestsPerMin > 0 {
		provider = llm.NewRateLimitedProvider(provider, cfg.LLMRequestsPerMin)
	}
	return provider, nil
}

// createEmbedderFromConfig creates the question embedder. It must match the
// model that produced the stored call vectors, which is always OpenAI.
func createEmbedderFromConfig(cfg *config.Config, creds *auth.Store) (embeddings.Embedder, error) {
	apiKey := creds.APIKey(config.ProviderOpenAI)
	if apiKey == "" {
		return nil, fmt.Errorf("%s is required for question embeddings", config.APIKeyEnvVar(config.ProviderOpenAI))
	}
	return embeddings.NewOpenAIEmbedder(apiKey, embeddings.OpenAIModel(cfg.EmbeddingModel)), nil
}

func openDatabase(ctx context.Context, cfg *config.Config) (*db.DB, error) {
	if cfg.Database.DSN == "" {
		return nil, fmt.Errorf("database.dsn is not set (or set DATABASE_URL)")
	}
	return db.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
}

// createSearcher builds the similarity-search backend. The returned func
// releases its resources.
func createSearcher(ctx context.Context, cfg *config.Config, embedder embeddings.Embedder, log *zap.Logger) (vectordb.Searcher, func(), error) {
	switch cfg.Retrieval.Backend {
	case config.BackendPgvector:
		s, err := vectordb.NewPgvectorSearcher(ctx, cfg.Database.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting pgvector: %w", err)
		}
		return s, s.Close, nil

	case config.BackendChromem:
		s, err := vectordb.OpenChromemStore(cfg.Retrieval.ChromemPath, embedder)
		if err != nil {
			return nil, nil, fmt.Errorf("loading snapshot %s: %w\nRun `convolens index` to build it", cfg.Retrieval.ChromemPath, err)
		}
		log.Info("retrieval snapshot loaded", zap.String("path", cfg.Retrieval.ChromemPath), zap.Int("calls", s.Count()))
		return s, func() {}, nil

	case config.BackendElasticsearch:
		es := cfg.Retrieval.Elasticsearch
		s, err := vectordb.NewElasticSearcher(vectordb.ElasticConfig{
			Addresses: es.Addresses,
			Index:     es.Index,
			Username:  es.Username,
			Password:  es.Password,
		})
		if err != nil {
			return nil, nil, err
		}
		return s, func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unsupported retrieval backend: %s", cfg.Retrieval.Backend)
	}
}

// createCalendar returns nil when neither a service-account file nor a
// stored calendar grant is available, which leaves scheduling unconfigured.
func createCalendar(ctx context.Context, cfg *config.Config, creds *auth.Store) (calendar.Creator, error) {
	if cfg.Calendar.CredentialsFile != "" {
		return calendar.NewGoogleCreator(ctx, cfg.Calendar.CalendarID,
			option.WithCredentialsFile(cfg.Calendar.CredentialsFile), option.WithScopes(auth.CalendarScope))
	}

	stored, err := creds.Load()
	if err != nil {
		return nil, fmt.Errorf("loading credentials: %w", err)
	}
	if !stored.Calendar.Usable() {
		return nil, nil
	}
	ts := auth.CalendarTokenSource(ctx, creds, stored.Calendar)
	return calendar.NewGoogleCreator(ctx, cfg.Calendar.CalendarID, option.WithTokenSource(ts))
}

// createIdempotencyStore returns nil when redis is not configured.
func createIdempotencyStore(ctx context.Context, cfg *config.Config) (*calendar.IdempotencyStore, func(), error) {
	if cfg.Redis.Addr == "" {
		return nil, func() {}, nil
	}
	rdb, err := calendar.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, nil, err
	}
	return calendar.NewIdempotencyStore(rdb, cfg.IdempotencyTTL()), func() { rdb.Close() }, nil
}

// app is the fully wired question-answering stack.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	db      *db.DB
	archive *calls.Store
	router  *answer.Router
	closers []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	_ = a.logger.Sync()
}

// newApp constructs every collaborator from config and injects them into
// the strategies and router.
func newApp(ctx context.Context, cfg *config.Config) (_ *app, err error) {
	log := newLogger(cfg)
	a := &app{cfg: cfg, logger: log}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	creds, err := auth.DefaultStore()
	if err != nil {
		return nil, err
	}

	provider, err := createLLMProviderFromConfig(cfg, creds)
	if err != nil {
		return nil, fmt.Errorf("creating LLM provider: %w", err)
	}

	embedder, err := createEmbedderFromConfig(cfg, creds)
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}

	a.db, err = openDatabase(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	a.closers = append(a.closers, func() { a.db.Close() })
	a.archive = calls.NewStore(a.db)

	searcher, closeSearcher, err := createSearcher(ctx, cfg, embedder, log)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, closeSearcher)

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	stratCfg := strategy.Config{
		Provider: provider,
		Model:    cfg.Model,
		Timeout:  cfg.CallTimeout(),
		Logger:   log,
	}

	strategies := answer.Strategies{
		Structured: strategy.NewStructured(stratCfg, a.db),
		Semantic: strategy.NewSemantic(stratCfg, embedder, searcher, strategy.SemanticOptions{
			TopK:      cfg.Retrieval.TopK,
			Threshold: cfg.Retrieval.Threshold,
		}),
	}

	creator, err := createCalendar(ctx, cfg, creds)
	if err != nil {
		return nil, fmt.Errorf("creating calendar client: %w", err)
	}
	if creator == nil {
		log.Warn("no Google credentials; scheduling is disabled (run `convolens auth google`)")
	} else {
		idem, closeIdem, err := createIdempotencyStore(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("connecting redis: %w", err)
		}
		a.closers = append(a.closers, closeIdem)

		opts := strategy.SchedulingOptions{Location: loc}
		if idem != nil {
			opts.Idempotency = idem
		}
		strategies.Scheduling = strategy.NewScheduling(stratCfg, createTimeExtractor(cfg, stratCfg), creator, opts)
	}

	a.router = answer.NewRouter(
		intent.NewClassifier(provider, cfg.Model),
		strategies,
		answer.WithTimeout(cfg.CallTimeout()),
		answer.WithLogger(log),
	)

	log.Info("convolens ready",
		zap.String("provider", provider.Name()),
		zap.String("model", cfg.Model),
		zap.String("database", a.db.Dialect()),
		zap.String("retrieval", cfg.Retrieval.Backend),
		zap.Bool("scheduling", creator != nil),
		zap.Duration("call_timeout", cfg.CallTimeout()),
	)
	return a, nil
}

func createTimeExtractor(cfg *config.Config, stratCfg strategy.Config) strategy.TimeExtractor {
	if cfg.Calendar.Extractor == config.ExtractorLLM {
		return strategy.NewLLMExtractor(stratCfg)
	}
	return strategy.NewRuleExtractor()
}

// shutdownTimeout bounds graceful HTTP shutdown.
const shutdownTimeout = 10 * time.Second
