// Package config loads the Harrier configuration from the environment.
// The tier selects a base config; HARRIER_* variables override single
// fields on top of it.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
	"github.com/tariffshield/harrier/internal/domain"
)

// EnvPrefix namespaces all Harrier environment variables.
const EnvPrefix = "HARRIER_"

// Load builds the configuration from the environment. A .env file in
// the working directory is read first when present.
func Load() (*domain.Config, error) {
	// Best effort: a missing .env file is the normal case.
	_ = godotenv.Load()

	cfg := domain.DefaultConfig()
	if strings.EqualFold(os.Getenv(EnvPrefix+"TIER"), string(domain.TierPro)) {
		cfg = domain.ProConfig()
	}

	k := koanf.New(".")
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "_", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	applyOverrides(k, cfg)

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyOverrides copies set environment keys onto the base config.
// Key names follow the struct layout with underscores as separators,
// e.g. HARRIER_SERVER_PORT or HARRIER_ENGINE_TABLEPATH.
func applyOverrides(k *koanf.Koanf, cfg *domain.Config) {
	setString(k, "server.host", &cfg.Server.Host)
	setInt(k, "server.port", &cfg.Server.Port)
	setInt(k, "server.readtimeout", &cfg.Server.ReadTimeout)
	setInt(k, "server.writetimeout", &cfg.Server.WriteTimeout)

	setString(k, "engine.tablepath", &cfg.Engine.TablePath)
	setString(k, "engine.policypath", &cfg.Engine.PolicyPath)
	setString(k, "engine.rulespath", &cfg.Engine.RulesPath)
	setInt(k, "engine.maxworkers", &cfg.Engine.MaxWorkers)
	setInt(k, "engine.maxalternatives", &cfg.Engine.MaxAlternatives)
	setInt(k, "engine.maxswaps", &cfg.Engine.MaxSwaps)
	setInt(k, "engine.altsperswap", &cfg.Engine.AltsPerSwap)
	setString(k, "engine.classifierurl", &cfg.Engine.ClassifierURL)
	setString(k, "engine.classifierapikey", &cfg.Engine.ClassifierAPIKey)
	setString(k, "engine.searchurl", &cfg.Engine.SearchURL)
	setString(k, "engine.searchapikey", &cfg.Engine.SearchAPIKey)
	if k.Exists("engine.searchdailyquota") {
		cfg.Engine.SearchDailyQuota = k.Int64("engine.searchdailyquota")
	}
	setSeconds(k, "engine.itemtimeout", &cfg.Engine.ItemTimeout)
	setSeconds(k, "engine.classifycachettl", &cfg.Engine.ClassifyCacheTTL)
	setSeconds(k, "engine.searchcachettl", &cfg.Engine.SearchCacheTTL)
	setFloat(k, "engine.nationalavgannual", &cfg.Engine.NationalAvgAnnual)

	setString(k, "repository.driver", &cfg.Repository.Driver)
	setString(k, "repository.sqlitepath", &cfg.Repository.SQLitePath)
	setString(k, "repository.postgres.host", &cfg.Repository.PostgresHost)
	setInt(k, "repository.postgres.port", &cfg.Repository.PostgresPort)
	setString(k, "repository.postgres.user", &cfg.Repository.PostgresUser)
	setString(k, "repository.postgres.password", &cfg.Repository.PostgresPassword)
	setString(k, "repository.postgres.db", &cfg.Repository.PostgresDB)
	setString(k, "repository.postgres.sslmode", &cfg.Repository.PostgresSSLMode)

	setString(k, "cache.type", &cfg.Cache.Type)
	setInt(k, "cache.localmaxsize", &cfg.Cache.LocalMaxSize)
	setString(k, "cache.redisaddr", &cfg.Cache.RedisAddr)
	setString(k, "cache.redispassword", &cfg.Cache.RedisPassword)
	setInt(k, "cache.redisdb", &cfg.Cache.RedisDB)
	if k.Exists("cache.twophase") {
		cfg.Cache.EnableTwoPhase = k.Bool("cache.twophase")
	}

	setString(k, "eventbus.type", &cfg.EventBus.Type)
	setInt(k, "eventbus.channelbuffersize", &cfg.EventBus.ChannelBufferSize)
	setString(k, "eventbus.natsurl", &cfg.EventBus.NATSUrl)
	setString(k, "eventbus.natstoken", &cfg.EventBus.NATSToken)
	setInt(k, "eventbus.natsmaxreconnects", &cfg.EventBus.NATSMaxReconnects)
	setInt(k, "eventbus.natsreconnectwait", &cfg.EventBus.NATSReconnectWait)

	setString(k, "logging.level", &cfg.Logging.Level)
	setString(k, "logging.format", &cfg.Logging.Format)

	if k.Exists("tracing.enabled") {
		cfg.Tracing.Enabled = k.Bool("tracing.enabled")
	}
	setString(k, "tracing.servicename", &cfg.Tracing.ServiceName)
	setString(k, "tracing.exportertype", &cfg.Tracing.ExporterType)
	setString(k, "tracing.endpoint", &cfg.Tracing.Endpoint)
}

func validate(cfg *domain.Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("%w: server port %d out of range", domain.ErrInvalidInput, cfg.Server.Port)
	}
	switch cfg.Repository.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("%w: unknown repository driver %q", domain.ErrInvalidInput, cfg.Repository.Driver)
	}
	switch cfg.Cache.Type {
	case "memory", "redis":
	default:
		return fmt.Errorf("%w: unknown cache type %q", domain.ErrInvalidInput, cfg.Cache.Type)
	}
	switch cfg.EventBus.Type {
	case "channel", "nats":
	default:
		return fmt.Errorf("%w: unknown event bus type %q", domain.ErrInvalidInput, cfg.EventBus.Type)
	}
	if cfg.Engine.MaxWorkers <= 0 {
		return fmt.Errorf("%w: engine maxWorkers must be positive", domain.ErrInvalidInput)
	}
	return nil
}

func setString(k *koanf.Koanf, key string, dst *string) {
	if k.Exists(key) {
		*dst = k.String(key)
	}
}

func setInt(k *koanf.Koanf, key string, dst *int) {
	if k.Exists(key) {
		*dst = k.Int(key)
	}
}

func setFloat(k *koanf.Koanf, key string, dst *float64) {
	if k.Exists(key) {
		*dst = k.Float64(key)
	}
}

// setSeconds reads a duration given as whole seconds.
func setSeconds(k *koanf.Koanf, key string, dst *time.Duration) {
	if k.Exists(key) {
		*dst = time.Duration(k.Int(key)) * time.Second
	}
}
