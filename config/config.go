package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. CATALOGMATCH_SERVER_PORT
const EnvPrefix = "CATALOGMATCH"

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Catalog  CatalogConfig  `mapstructure:"catalog"`
	Cache    CacheConfig    `mapstructure:"cache"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Vector   VectorConfig   `mapstructure:"vector"`
	Matching MatchingConfig `mapstructure:"matching"`
	Events   EventsConfig   `mapstructure:"events"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	Environment     string        `mapstructure:"environment"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "json" or "console"
}

// CatalogConfig selects the catalog store
type CatalogConfig struct {
	Backend    string `mapstructure:"backend"` // "memory" or "sqlite"
	SQLitePath string `mapstructure:"sqlite_path"`
	SeedFile   string `mapstructure:"seed_file"`
}

// CacheConfig holds cache-related configuration
type CacheConfig struct {
	Type             string        `mapstructure:"type"` // "memory" or "redis"
	RedisURL         string        `mapstructure:"redis_url"`
	TTL              time.Duration `mapstructure:"ttl"`
	EmbeddingLRUSize int           `mapstructure:"embedding_lru_size"`
	CleanupInterval  time.Duration `mapstructure:"cleanup_interval"`
}

// LLMConfig selects the chat and embedding providers
type LLMConfig struct {
	Provider          string  `mapstructure:"provider"` // "none", "openai", "ollama" or "anthropic"
	Model             string  `mapstructure:"model"`
	EmbeddingProvider string  `mapstructure:"embedding_provider"`
	EmbeddingModel    string  `mapstructure:"embedding_model"`
	APIKey            string  `mapstructure:"api_key"`
	BaseURL           string  `mapstructure:"base_url"`
	EmbeddingAPIKey   string  `mapstructure:"embedding_api_key"`  // defaults to api_key when the providers match
	EmbeddingBaseURL  string  `mapstructure:"embedding_base_url"` // defaults to base_url when the providers match
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
}

// VectorConfig selects the vector index
type VectorConfig struct {
	Backend    string `mapstructure:"backend"` // "hnsw" or "qdrant"
	QdrantAddr string `mapstructure:"qdrant_addr"`
	Collection string `mapstructure:"collection"`
	Dimensions int    `mapstructure:"dimensions"`
}

// MatchingConfig tunes the matching pipeline
type MatchingConfig struct {
	RecallTopK          int           `mapstructure:"recall_top_k"`
	MaxTopK             int           `mapstructure:"max_top_k"`
	SubqueryConcurrency int           `mapstructure:"subquery_concurrency"`
	ProviderTimeout     time.Duration `mapstructure:"provider_timeout"`
	RelevanceFailClosed bool          `mapstructure:"relevance_fail_closed"`
	DebugLogging        bool          `mapstructure:"debug_logging"`
}

// EventsConfig enables catalog change events; an empty URL disables them
type EventsConfig struct {
	NatsURL string `mapstructure:"nats_url"`
	Subject string `mapstructure:"subject"`
}

// Load loads configuration from .env, environment variables and config files
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile is Load with an explicit config file; an empty path searches the default locations
func LoadFile(path string) (*Config, error) {
	_ = godotenv.Load() // a missing .env is fine

	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/catalogmatch/")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults registers every key so environment overrides apply to all of them
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:*"})
	v.SetDefault("server.shutdown_timeout", "15s")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("catalog.backend", "memory")
	v.SetDefault("catalog.sqlite_path", "data/catalog.db")
	v.SetDefault("catalog.seed_file", "")

	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.redis_url", "")
	v.SetDefault("cache.ttl", "720h") // 30 days
	v.SetDefault("cache.embedding_lru_size", 1000)
	v.SetDefault("cache.cleanup_interval", "10m")

	v.SetDefault("llm.provider", "none")
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.embedding_provider", "")
	v.SetDefault("llm.embedding_model", "")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.embedding_api_key", "")
	v.SetDefault("llm.embedding_base_url", "")
	v.SetDefault("llm.requests_per_second", 5)

	v.SetDefault("vector.backend", "hnsw")
	v.SetDefault("vector.qdrant_addr", "localhost:6334")
	v.SetDefault("vector.collection", "catalog_items")
	v.SetDefault("vector.dimensions", 0)

	v.SetDefault("matching.recall_top_k", 10)
	v.SetDefault("matching.max_top_k", 50)
	v.SetDefault("matching.subquery_concurrency", 4)
	v.SetDefault("matching.provider_timeout", "8s")
	v.SetDefault("matching.relevance_fail_closed", false)
	v.SetDefault("matching.debug_logging", false)

	v.SetDefault("events.nats_url", "")
	v.SetDefault("events.subject", "catalog.items.changed")
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}

	if config.Log.Format != "json" && config.Log.Format != "console" {
		return fmt.Errorf("log format must be 'json' or 'console', got: %s", config.Log.Format)
	}

	switch config.Catalog.Backend {
	case "memory":
	case "sqlite":
		if config.Catalog.SQLitePath == "" {
			return fmt.Errorf("catalog sqlite_path is required when backend is 'sqlite'")
		}
	default:
		return fmt.Errorf("catalog backend must be 'memory' or 'sqlite', got: %s", config.Catalog.Backend)
	}

	if config.Cache.Type != "memory" && config.Cache.Type != "redis" {
		return fmt.Errorf("cache type must be 'memory' or 'redis', got: %s", config.Cache.Type)
	}
	if config.Cache.Type == "redis" && config.Cache.RedisURL == "" {
		return fmt.Errorf("redis url is required when cache type is 'redis'")
	}

	switch config.LLM.Provider {
	case "none", "ollama":
	case "openai", "anthropic":
		if config.LLM.APIKey == "" {
			return fmt.Errorf("llm api key is required for provider %s (set %s_LLM_API_KEY)", config.LLM.Provider, EnvPrefix)
		}
	default:
		return fmt.Errorf("llm provider must be one of none, openai, ollama, anthropic, got: %s", config.LLM.Provider)
	}
	switch config.LLM.EmbeddingProvider {
	case "", "none", "ollama", "openai":
	default:
		return fmt.Errorf("embedding provider must be one of none, openai, ollama, got: %s", config.LLM.EmbeddingProvider)
	}
	if config.LLM.EmbeddingProvider == "" && config.LLM.Provider == "anthropic" {
		return fmt.Errorf("anthropic has no embeddings; set llm.embedding_provider")
	}
	if config.LLM.EmbeddingProvider == "openai" && config.LLM.Provider != "openai" && config.LLM.EmbeddingAPIKey == "" {
		return fmt.Errorf("llm embedding api key is required for openai embeddings (set %s_LLM_EMBEDDING_API_KEY)", EnvPrefix)
	}
	if config.LLM.RequestsPerSecond < 0 {
		return fmt.Errorf("llm requests_per_second must not be negative")
	}

	switch config.Vector.Backend {
	case "hnsw":
	case "qdrant":
		if config.Vector.QdrantAddr == "" || config.Vector.Collection == "" {
			return fmt.Errorf("qdrant_addr and collection are required when vector backend is 'qdrant'")
		}
		if config.Vector.Dimensions <= 0 {
			return fmt.Errorf("vector dimensions are required when vector backend is 'qdrant'")
		}
	default:
		return fmt.Errorf("vector backend must be 'hnsw' or 'qdrant', got: %s", config.Vector.Backend)
	}

	m := config.Matching
	if m.RecallTopK < 1 {
		return fmt.Errorf("matching recall_top_k must be at least 1")
	}
	if m.MaxTopK < m.RecallTopK {
		return fmt.Errorf("matching max_top_k (%d) must not be below recall_top_k (%d)", m.MaxTopK, m.RecallTopK)
	}
	if m.SubqueryConcurrency < 1 {
		return fmt.Errorf("matching subquery_concurrency must be at least 1")
	}
	if m.ProviderTimeout <= 0 {
		return fmt.Errorf("matching provider_timeout must be positive")
	}

	return nil
}

// EmbeddingsEnabled reports whether semantic search has an embedding provider
func (c *Config) EmbeddingsEnabled() bool {
	provider := c.LLM.EmbeddingProvider
	if provider == "" {
		provider = c.LLM.Provider
	}
	return provider != "none" && provider != ""
}

// ChatEnabled reports whether a chat model backs decomposition and relevance filtering
func (c *Config) ChatEnabled() bool {
	return c.LLM.Provider != "none" && c.LLM.Provider != ""
}
