// Package repository provides data persistence implementations.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/tariffshield/harrier/internal/domain"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")
)

// SQLRepository implements domain.Repository using database/sql.
// Works with both SQLite and PostgreSQL drivers.
type SQLRepository struct {
	db     *sql.DB
	driver string
}

// New creates a new repository based on configuration.
func New(cfg domain.RepositoryConfig) (domain.Repository, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	repo := &SQLRepository{
		db:     db,
		driver: cfg.Driver,
	}

	// Run migrations
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

func (r *SQLRepository) migrate() error {
	for _, schema := range AllSchemas() {
		if _, err := r.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

// SaveAnalysis stores a product analysis with tenant isolation.
func (r *SQLRepository) SaveAnalysis(ctx context.Context, tenantID string, analysis *domain.ProductAnalysis) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	classification, _ := json.Marshal(analysis.Classification)
	tariff, _ := json.Marshal(analysis.Tariff)
	impact, _ := json.Marshal(analysis.Impact)
	alternatives, _ := json.Marshal(analysis.Alternatives)
	verdict, _ := json.Marshal(analysis.Verdict)
	metadata, _ := json.Marshal(analysis.Metadata)

	query := `
		INSERT INTO analyses (
			id, tenant_id, product_name, price, timestamp,
			classification, tariff, impact, alternatives, verdict,
			headline, metadata
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		analysis.ID, tenantID, analysis.ProductName, analysis.Price, analysis.Timestamp,
		string(classification), string(tariff), string(impact), string(alternatives), string(verdict),
		analysis.Headline, string(metadata),
	)
	return err
}

// GetAnalysis retrieves a product analysis by ID with tenant isolation.
func (r *SQLRepository) GetAnalysis(ctx context.Context, tenantID string, analysisID string) (*domain.ProductAnalysis, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, tenant_id, product_name, price, timestamp,
			   classification, tariff, impact, alternatives, verdict,
			   headline, metadata
		FROM analyses
		WHERE tenant_id = ? AND id = ?
	`

	row := r.db.QueryRowContext(ctx, r.rebind(query), tenantID, analysisID)
	analysis, err := scanAnalysis(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return analysis, err
}

// ListAnalyses retrieves recent analyses for a tenant.
func (r *SQLRepository) ListAnalyses(ctx context.Context, tenantID string, since time.Time, limit int) ([]*domain.ProductAnalysis, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, tenant_id, product_name, price, timestamp,
			   classification, tariff, impact, alternatives, verdict,
			   headline, metadata
		FROM analyses
		WHERE tenant_id = ? AND timestamp >= ?
		ORDER BY timestamp DESC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), tenantID, since, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var analyses []*domain.ProductAnalysis
	for rows.Next() {
		analysis, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		analyses = append(analyses, analysis)
	}
	return analyses, rows.Err()
}

// scanner covers both sql.Row and sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanAnalysis(s scanner) (*domain.ProductAnalysis, error) {
	var a domain.ProductAnalysis
	var classification, tariff, impact, alternatives, verdict, metadata sql.NullString

	err := s.Scan(
		&a.ID, &a.TenantID, &a.ProductName, &a.Price, &a.Timestamp,
		&classification, &tariff, &impact, &alternatives, &verdict,
		&a.Headline, &metadata,
	)
	if err != nil {
		return nil, err
	}

	if classification.Valid {
		json.Unmarshal([]byte(classification.String), &a.Classification)
	}
	if tariff.Valid && tariff.String != "null" {
		json.Unmarshal([]byte(tariff.String), &a.Tariff)
	}
	if impact.Valid && impact.String != "null" {
		json.Unmarshal([]byte(impact.String), &a.Impact)
	}
	if alternatives.Valid && alternatives.String != "null" {
		json.Unmarshal([]byte(alternatives.String), &a.Alternatives)
	}
	if verdict.Valid && verdict.String != "null" {
		json.Unmarshal([]byte(verdict.String), &a.Verdict)
	}
	if metadata.Valid {
		json.Unmarshal([]byte(metadata.String), &a.Metadata)
	}
	return &a, nil
}

// SaveCartAnalysis stores a cart analysis with tenant isolation.
func (r *SQLRepository) SaveCartAnalysis(ctx context.Context, tenantID string, cart *domain.CartAnalysis) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	items, _ := json.Marshal(cart.Items)
	summary, _ := json.Marshal(cart.Summary)
	swaps, _ := json.Marshal(cart.Swaps)
	metadata, _ := json.Marshal(cart.Metadata)

	query := `
		INSERT INTO cart_analyses (
			id, tenant_id, timestamp, items, summary, swaps, headline, metadata
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		cart.ID, tenantID, cart.Timestamp,
		string(items), string(summary), string(swaps), cart.Headline, string(metadata),
	)
	return err
}

// GetCartAnalysis retrieves a cart analysis by ID with tenant isolation.
func (r *SQLRepository) GetCartAnalysis(ctx context.Context, tenantID string, cartID string) (*domain.CartAnalysis, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, tenant_id, timestamp, items, summary, swaps, headline, metadata
		FROM cart_analyses
		WHERE tenant_id = ? AND id = ?
	`

	var cart domain.CartAnalysis
	var items, summary, swaps, metadata sql.NullString

	err := r.db.QueryRowContext(ctx, r.rebind(query), tenantID, cartID).Scan(
		&cart.ID, &cart.TenantID, &cart.Timestamp,
		&items, &summary, &swaps, &cart.Headline, &metadata,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if items.Valid {
		json.Unmarshal([]byte(items.String), &cart.Items)
	}
	if summary.Valid {
		json.Unmarshal([]byte(summary.String), &cart.Summary)
	}
	if swaps.Valid && swaps.String != "null" {
		json.Unmarshal([]byte(swaps.String), &cart.Swaps)
	}
	if metadata.Valid {
		json.Unmarshal([]byte(metadata.String), &cart.Metadata)
	}
	return &cart, nil
}

// SavePurchase stores a purchase record with tenant isolation.
func (r *SQLRepository) SavePurchase(ctx context.Context, tenantID string, purchase *domain.Purchase) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		INSERT INTO purchases (
			id, tenant_id, user_id, product_name, category, country,
			price, tariff_you_pay, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		purchase.ID, tenantID, purchase.UserID, purchase.ProductName,
		purchase.Category, purchase.Country,
		purchase.Price, purchase.TariffYouPay, purchase.Timestamp,
	)
	return err
}

// GetPurchasesSince retrieves a user's purchases since a point in time.
func (r *SQLRepository) GetPurchasesSince(ctx context.Context, tenantID string, userID string, since time.Time) ([]*domain.Purchase, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, tenant_id, user_id, product_name, category, country,
			   price, tariff_you_pay, timestamp
		FROM purchases
		WHERE tenant_id = ? AND user_id = ? AND timestamp >= ?
		ORDER BY timestamp DESC
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), tenantID, userID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var purchases []*domain.Purchase
	for rows.Next() {
		var p domain.Purchase
		if err := rows.Scan(
			&p.ID, &p.TenantID, &p.UserID, &p.ProductName, &p.Category, &p.Country,
			&p.Price, &p.TariffYouPay, &p.Timestamp,
		); err != nil {
			return nil, err
		}
		purchases = append(purchases, &p)
	}
	return purchases, rows.Err()
}

// SaveWatchRule stores a watch rule configuration with tenant isolation.
func (r *SQLRepository) SaveWatchRule(ctx context.Context, tenantID string, rule *domain.WatchRuleConfig) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	bands, _ := json.Marshal(rule.Bands)

	enabled := 0
	if rule.Enabled {
		enabled = 1
	}

	now := time.Now().UTC()

	query := `
		INSERT INTO watch_rules (
			id, tenant_id, name, description, version, expression, bands, weight, enabled, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id, tenant_id, version) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			expression = excluded.expression,
			bands = excluded.bands,
			weight = excluded.weight,
			enabled = excluded.enabled,
			updated_at = excluded.updated_at
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		rule.ID, tenantID, rule.Name, rule.Description,
		rule.Version, rule.Expression, string(bands), rule.Weight, enabled,
		now, now,
	)
	return err
}

// GetWatchRule retrieves a watch rule configuration with tenant isolation.
func (r *SQLRepository) GetWatchRule(ctx context.Context, tenantID string, ruleID string) (*domain.WatchRuleConfig, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, tenant_id, name, description, version, expression, bands, weight, enabled
		FROM watch_rules
		WHERE tenant_id = ? AND id = ? AND enabled = 1
		ORDER BY version DESC
		LIMIT 1
	`

	var cfg domain.WatchRuleConfig
	var bands string
	var enabled int

	err := r.db.QueryRowContext(ctx, r.rebind(query), tenantID, ruleID).Scan(
		&cfg.ID, &cfg.TenantID, &cfg.Name, &cfg.Description,
		&cfg.Version, &cfg.Expression, &bands, &cfg.Weight, &enabled,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	cfg.Enabled = enabled == 1
	json.Unmarshal([]byte(bands), &cfg.Bands)

	return &cfg, nil
}

// ListWatchRules retrieves all active watch rules for a tenant.
func (r *SQLRepository) ListWatchRules(ctx context.Context, tenantID string) ([]*domain.WatchRuleConfig, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, tenant_id, name, description, version, expression, bands, weight, enabled
		FROM watch_rules
		WHERE tenant_id = ? AND enabled = 1
		ORDER BY name
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var configs []*domain.WatchRuleConfig
	for rows.Next() {
		var cfg domain.WatchRuleConfig
		var bands string
		var enabled int

		if err := rows.Scan(
			&cfg.ID, &cfg.TenantID, &cfg.Name, &cfg.Description,
			&cfg.Version, &cfg.Expression, &bands, &cfg.Weight, &enabled,
		); err != nil {
			return nil, err
		}

		cfg.Enabled = enabled == 1
		json.Unmarshal([]byte(bands), &cfg.Bands)
		configs = append(configs, &cfg)
	}

	return configs, rows.Err()
}

// SaveAlert stores an alert record with tenant isolation.
func (r *SQLRepository) SaveAlert(ctx context.Context, tenantID string, alert *domain.Alert) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	reasons, _ := json.Marshal(alert.Reasons)

	query := `
		INSERT INTO alerts (
			id, tenant_id, subject_id, kind, score, reasons, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		alert.ID, tenantID, alert.SubjectID, alert.Kind,
		alert.Score, string(reasons), alert.Timestamp,
	)
	return err
}

// Ping verifies database connectivity.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

// rebind converts ? placeholders to $1, $2, etc. for PostgreSQL.
func (r *SQLRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}

	// Convert ? to $1, $2, etc.
	var result []byte
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result = append(result, '$')
			result = append(result, fmt.Sprintf("%d", n)...)
			n++
		} else {
			result = append(result, query[i])
		}
	}
	return string(result)
}
