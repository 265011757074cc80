package config

// ProviderType identifies an LLM provider.
type ProviderType string

const (
	ProviderOpenAI    ProviderType = "openai"
	ProviderAnthropic ProviderType = "anthropic"
)

// Database drivers understood by db.Open.
const (
	DriverPgx    = "pgx"
	DriverSQLite = "sqlite"
)

// Retrieval backends for similarity search.
const (
	BackendPgvector      = "pgvector"
	BackendChromem       = "chromem"
	BackendElasticsearch = "elasticsearch"
)

// Time extractors for the scheduling strategy.
const (
	ExtractorRules = "rules"
	ExtractorLLM   = "llm"
)

// Config is the top-level convolens configuration, corresponding to .convolens.yml.
type Config struct {
	Provider           ProviderType    `yaml:"provider" koanf:"provider"`
	Model              string          `yaml:"model" koanf:"model"`
	EmbeddingModel     string          `yaml:"embedding_model" koanf:"embedding_model"`
	LLMRequestsPerMin  int             `yaml:"llm_rpm" koanf:"llm_rpm"`
	CallTimeoutSeconds int             `yaml:"call_timeout_seconds" koanf:"call_timeout_seconds"`
	Database           DatabaseConfig  `yaml:"database" koanf:"database"`
	Retrieval          RetrievalConfig `yaml:"retrieval" koanf:"retrieval"`
	Calendar           CalendarConfig  `yaml:"calendar" koanf:"calendar"`
	Redis              RedisConfig     `yaml:"redis" koanf:"redis"`
	Server             ServerConfig    `yaml:"server" koanf:"server"`
	Logging            LoggingConfig   `yaml:"logging" koanf:"logging"`
}

// DatabaseConfig points at the call archive.
type DatabaseConfig struct {
	Driver string `yaml:"driver" koanf:"driver"`
	DSN    string `yaml:"dsn" koanf:"dsn"`
}

// RetrievalConfig selects and tunes the similarity-search backend.
type RetrievalConfig struct {
	Backend       string              `yaml:"backend" koanf:"backend"`
	TopK          int                 `yaml:"top_k" koanf:"top_k"`
	Threshold     float64             `yaml:"threshold" koanf:"threshold"`
	ChromemPath   string              `yaml:"chromem_path" koanf:"chromem_path"`
	Elasticsearch ElasticsearchConfig `yaml:"elasticsearch" koanf:"elasticsearch"`
}

// ElasticsearchConfig holds cluster settings for the kNN backend.
type ElasticsearchConfig struct {
	Addresses []string `yaml:"addresses" koanf:"addresses"`
	Index     string   `yaml:"index" koanf:"index"`
	Username  string   `yaml:"username,omitempty" koanf:"username"`
	Password  string   `yaml:"password,omitempty" koanf:"password"`
}

// CalendarConfig scopes event creation to a single calendar.
type CalendarConfig struct {
	CalendarID      string `yaml:"calendar_id" koanf:"calendar_id"`
	TimeZone        string `yaml:"timezone" koanf:"timezone"`
	Extractor       string `yaml:"extractor" koanf:"extractor"`
	CredentialsFile string `yaml:"credentials_file,omitempty" koanf:"credentials_file"`
}

// RedisConfig is only needed for scheduling idempotency keys.
type RedisConfig struct {
	Addr                  string `yaml:"addr" koanf:"addr"`
	Password              string `yaml:"password,omitempty" koanf:"password"`
	DB                    int    `yaml:"db" koanf:"db"`
	IdempotencyTTLSeconds int    `yaml:"idempotency_ttl_seconds" koanf:"idempotency_ttl_seconds"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Port        int      `yaml:"port" koanf:"port"`
	CORSOrigins []string `yaml:"cors_origins" koanf:"cors_origins"`
}

// LoggingConfig controls the zap logger.
type LoggingConfig struct {
	Level  string `yaml:"level" koanf:"level"`
	Format string `yaml:"format" koanf:"format"`
}
