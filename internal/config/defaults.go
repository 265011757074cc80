package config

import "time"

// modelPresets maps each provider to its default chat model.
var modelPresets = map[ProviderType]string{
	ProviderOpenAI:    "gpt-4o-mini",
	ProviderAnthropic: "claude-haiku-4-5-20251001",
}

// DefaultEmbeddingModel matches the vectors written by the ingestion job.
const DefaultEmbeddingModel = "text-embedding-ada-002"

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Provider:           ProviderOpenAI,
		Model:              modelPresets[ProviderOpenAI],
		EmbeddingModel:     DefaultEmbeddingModel,
		CallTimeoutSeconds: 30,
		Database: DatabaseConfig{
			Driver: DriverPgx,
		},
		Retrieval: RetrievalConfig{
			Backend:     BackendPgvector,
			TopK:        5,
			Threshold:   0.7,
			ChromemPath: ".convolens/calls.gob.gz",
			Elasticsearch: ElasticsearchConfig{
				Addresses: []string{"http://localhost:9200"},
				Index:     "fact_calls",
			},
		},
		Calendar: CalendarConfig{
			CalendarID: "primary",
			TimeZone:   "UTC",
			Extractor:  ExtractorRules,
		},
		Redis: RedisConfig{
			IdempotencyTTLSeconds: 86400,
		},
		Server: ServerConfig{
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3001"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// ModelFor returns the default chat model for a provider.
func ModelFor(provider ProviderType) string {
	if m, ok := modelPresets[provider]; ok {
		return m
	}
	return modelPresets[ProviderOpenAI]
}

// CallTimeout is the bound applied to every collaborator call.
func (c *Config) CallTimeout() time.Duration {
	return time.Duration(c.CallTimeoutSeconds) * time.Second
}

// IdempotencyTTL is how long a scheduling key is remembered.
func (c *Config) IdempotencyTTL() time.Duration {
	return time.Duration(c.Redis.IdempotencyTTLSeconds) * time.Second
}

// Location resolves the configured calendar timezone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Calendar.TimeZone)
}
