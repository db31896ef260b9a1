package domain

import (
	"context"
	"time"
)

// Repository defines the interface for data persistence.
// All methods require tenantID for strict multi-tenancy isolation.
type Repository interface {
	// Analysis results
	SaveAnalysis(ctx context.Context, tenantID string, analysis *ProductAnalysis) error
	GetAnalysis(ctx context.Context, tenantID string, analysisID string) (*ProductAnalysis, error)
	ListAnalyses(ctx context.Context, tenantID string, since time.Time, limit int) ([]*ProductAnalysis, error)

	// Cart analyses
	SaveCartAnalysis(ctx context.Context, tenantID string, cart *CartAnalysis) error
	GetCartAnalysis(ctx context.Context, tenantID string, cartID string) (*CartAnalysis, error)

	// Purchase history for the dashboard
	SavePurchase(ctx context.Context, tenantID string, purchase *Purchase) error
	GetPurchasesSince(ctx context.Context, tenantID string, userID string, since time.Time) ([]*Purchase, error)

	// Watch rule configuration
	SaveWatchRule(ctx context.Context, tenantID string, rule *WatchRuleConfig) error
	GetWatchRule(ctx context.Context, tenantID string, ruleID string) (*WatchRuleConfig, error)
	ListWatchRules(ctx context.Context, tenantID string) ([]*WatchRuleConfig, error)

	// Alerts
	SaveAlert(ctx context.Context, tenantID string, alert *Alert) error

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is the database driver: "sqlite" or "postgres"
	Driver string

	// SQLite specific
	SQLitePath string

	// PostgreSQL specific
	PostgresHost     string
	PostgresPort     int
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Purchase is one recorded purchase with its computed tariff share.
type Purchase struct {
	ID           string    `json:"id"`
	TenantID     string    `json:"tenantId"`
	UserID       string    `json:"userId"`
	ProductName  string    `json:"productName"`
	Category     string    `json:"category"`
	Country      string    `json:"country"`
	Price        float64   `json:"price"`
	TariffYouPay float64   `json:"tariffYouPay"`
	Timestamp    time.Time `json:"timestamp"`
}
