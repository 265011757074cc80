package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// EnvPrefix marks environment variables that override config keys.
// Nested keys use a double underscore: CONVOLENS_SERVER__PORT -> server.port.
const EnvPrefix = "CONVOLENS_"

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (CONVOLENS_*). A .env file in the working
// directory is loaded first and never overrides variables already set.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading .env: %w", err)
	}

	k := koanf.New(".")

	// Start from defaults.
	cfg := DefaultConfig()

	// Load YAML file if it exists.
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if cfg.Database.DSN == "" {
		cfg.Database.DSN = os.Getenv("DATABASE_URL")
	}

	return cfg, nil
}

// envKey maps CONVOLENS_RETRIEVAL__TOP_K to retrieval.top_k.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(key, "__", ".")
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

var validProviders = map[ProviderType]bool{
	ProviderOpenAI:    true,
	ProviderAnthropic: true,
}

var validDrivers = map[string]bool{
	DriverPgx:    true,
	DriverSQLite: true,
}

var validBackends = map[string]bool{
	BackendPgvector:      true,
	BackendChromem:       true,
	BackendElasticsearch: true,
}

var validExtractors = map[string]bool{
	ExtractorRules: true,
	ExtractorLLM:   true,
}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if c.Provider == "" {
		return fmt.Errorf("provider is required")
	}
	if !validProviders[c.Provider] {
		return fmt.Errorf("invalid provider %q: must be one of openai, anthropic", c.Provider)
	}
	if c.Model == "" {
		return fmt.Errorf("model is required")
	}
	if c.EmbeddingModel == "" {
		return fmt.Errorf("embedding_model is required")
	}
	if c.LLMRequestsPerMin < 0 {
		return fmt.Errorf("llm_rpm must be non-negative")
	}
	if c.CallTimeoutSeconds <= 0 {
		return fmt.Errorf("call_timeout_seconds must be positive")
	}

	if !validDrivers[c.Database.Driver] {
		return fmt.Errorf("invalid database.driver %q: must be one of pgx, sqlite", c.Database.Driver)
	}

	if !validBackends[c.Retrieval.Backend] {
		return fmt.Errorf("invalid retrieval.backend %q: must be one of pgvector, chromem, elasticsearch", c.Retrieval.Backend)
	}
	if c.Retrieval.TopK <= 0 {
		return fmt.Errorf("retrieval.top_k must be positive")
	}
	if c.Retrieval.Threshold < 0 || c.Retrieval.Threshold > 1 {
		return fmt.Errorf("retrieval.threshold must be within [0, 1]")
	}
	if c.Retrieval.Backend == BackendChromem && c.Retrieval.ChromemPath == "" {
		return fmt.Errorf("retrieval.chromem_path is required for the chromem backend")
	}
	if c.Retrieval.Backend == BackendElasticsearch {
		if len(c.Retrieval.Elasticsearch.Addresses) == 0 {
			return fmt.Errorf("retrieval.elasticsearch.addresses is required for the elasticsearch backend")
		}
		if c.Retrieval.Elasticsearch.Index == "" {
			return fmt.Errorf("retrieval.elasticsearch.index is required for the elasticsearch backend")
		}
	}

	if c.Calendar.CalendarID == "" {
		return fmt.Errorf("calendar.calendar_id is required")
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("invalid calendar.timezone %q: %w", c.Calendar.TimeZone, err)
	}
	if !validExtractors[c.Calendar.Extractor] {
		return fmt.Errorf("invalid calendar.extractor %q: must be one of rules, llm", c.Calendar.Extractor)
	}

	if c.Redis.IdempotencyTTLSeconds < 0 {
		return fmt.Errorf("redis.idempotency_ttl_seconds must be non-negative")
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}

	return nil
}

// APIKeyEnvVar returns the conventional environment variable name for
// the API key of the given provider.
func APIKeyEnvVar(provider ProviderType) string {
	switch provider {
	case ProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	case ProviderOpenAI:
		return "OPENAI_API_KEY"
	default:
		return ""
	}
}
