package domain

import (
	"time"
)

// Config holds the complete Harrier configuration.
type Config struct {
	// Server settings
	Server ServerConfig `json:"server"`

	// Tier determines feature availability
	Tier Tier `json:"tier"`

	// Engine settings for the tariff pipeline
	Engine EngineConfig `json:"engine"`

	// Component configurations
	Repository RepositoryConfig `json:"repository"`
	Cache      CacheConfig      `json:"cache"`
	EventBus   EventBusConfig   `json:"eventBus"`

	// Observability
	Logging LoggingConfig `json:"logging"`
	Tracing TracingConfig `json:"tracing"`
}

// EngineConfig holds tariff engine settings.
type EngineConfig struct {
	// TablePath is the HTS reference CSV. Empty falls back to the
	// embedded sample table.
	TablePath string `json:"tablePath"`

	// PolicyPath is an optional JSON policy table override.
	PolicyPath string `json:"policyPath"`

	// RulesPath is an optional JSON watch-rule file loaded at startup.
	RulesPath string `json:"rulesPath"`

	// MaxWorkers bounds concurrent item analysis in a cart.
	MaxWorkers int `json:"maxWorkers"`

	// ItemTimeout bounds a single item's classify+tariff+impact work.
	ItemTimeout time.Duration `json:"itemTimeout"`

	// MaxAlternatives caps returned alternatives per product.
	MaxAlternatives int `json:"maxAlternatives"`

	// MaxSwaps caps swap suggestions per cart.
	MaxSwaps int `json:"maxSwaps"`

	// AltsPerSwap caps ranked alternatives per swap suggestion.
	AltsPerSwap int `json:"altsPerSwap"`

	// ClassifierURL points at a remote classification service. Empty
	// keeps the built-in keyword classifier.
	ClassifierURL    string `json:"classifierURL"`
	ClassifierAPIKey string `json:"-"`

	// SearchURL points at a shopping-results search API. Empty keeps
	// the built-in catalog searcher.
	SearchURL        string `json:"searchURL"`
	SearchAPIKey     string `json:"-"`
	SearchDailyQuota int64  `json:"searchDailyQuota"`

	// ClassifyCacheTTL and SearchCacheTTL bound cached lookups.
	ClassifyCacheTTL time.Duration `json:"classifyCacheTTL"`
	SearchCacheTTL   time.Duration `json:"searchCacheTTL"`

	// NationalAvgAnnual is the benchmark yearly tariff cost per
	// household used on the dashboard.
	NationalAvgAnnual float64 `json:"nationalAvgAnnual"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string `json:"host"`
	Port         int    `json:"port"`
	ReadTimeout  int    `json:"readTimeout"`  // seconds
	WriteTimeout int    `json:"writeTimeout"` // seconds
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // json, text
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled      bool   `json:"enabled"`
	ServiceName  string `json:"serviceName"`
	ExporterType string `json:"exporterType"` // stdout, otlp, jaeger
	Endpoint     string `json:"endpoint"`
}

// Tier represents the product tier.
type Tier string

const (
	// TierCommunity is the free tier with SQLite + channels
	TierCommunity Tier = "community"

	// TierPro is the paid tier with PostgreSQL + NATS + Redis
	TierPro Tier = "pro"
)

// DefaultConfig returns a default configuration for Community tier.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30,
			WriteTimeout: 30,
		},
		Tier: TierCommunity,
		Engine: EngineConfig{
			MaxWorkers:        8,
			ItemTimeout:       10 * time.Second,
			MaxAlternatives:   5,
			MaxSwaps:          3,
			AltsPerSwap:       2,
			SearchDailyQuota:  1000,
			ClassifyCacheTTL:  time.Hour,
			SearchCacheTTL:    15 * time.Minute,
			NationalAvgAnnual: 1300,
		},
		Repository: RepositoryConfig{
			Driver:     "sqlite",
			SQLitePath: "./harrier.db",
		},
		Cache: CacheConfig{
			Type:         "memory",
			LocalMaxSize: 10000,
			LocalTTL:     300, // 5 minutes
		},
		EventBus: EventBusConfig{
			Type:              "channel",
			ChannelBufferSize: 1000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "harrier",
		},
	}
}

// ProConfig returns a configuration for Pro tier.
func ProConfig() *Config {
	cfg := DefaultConfig()
	cfg.Tier = TierPro
	cfg.Repository = RepositoryConfig{
		Driver:       "postgres",
		PostgresHost: "localhost",
		PostgresPort: 5432,
		PostgresDB:   "harrier",
	}
	cfg.Cache = CacheConfig{
		Type:           "redis",
		RedisAddr:      "localhost:6379",
		EnableTwoPhase: true,
		LocalMaxSize:   1000,
	}
	cfg.EventBus = EventBusConfig{
		Type:              "nats",
		NATSUrl:           "nats://localhost:4222",
		NATSMaxReconnects: 10,
		NATSReconnectWait: 5,
	}
	cfg.Tracing.Enabled = true
	return cfg
}
