package repository

// Schema definitions for the Harrier database.
// Compatible with both SQLite and PostgreSQL.

const schemaAnalyses = `
CREATE TABLE IF NOT EXISTS analyses (
    id TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    product_name TEXT NOT NULL,
    price REAL NOT NULL,
    timestamp TIMESTAMP NOT NULL,
    classification TEXT NOT NULL,
    tariff TEXT,
    impact TEXT,
    alternatives TEXT,
    verdict TEXT,
    headline TEXT,
    metadata TEXT
);

CREATE INDEX IF NOT EXISTS idx_analyses_tenant ON analyses(tenant_id);
CREATE INDEX IF NOT EXISTS idx_analyses_timestamp ON analyses(tenant_id, timestamp);
`

const schemaCartAnalyses = `
CREATE TABLE IF NOT EXISTS cart_analyses (
    id TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    timestamp TIMESTAMP NOT NULL,
    items TEXT NOT NULL,
    summary TEXT NOT NULL,
    swaps TEXT,
    headline TEXT,
    metadata TEXT
);

CREATE INDEX IF NOT EXISTS idx_cart_analyses_tenant ON cart_analyses(tenant_id);
`

const schemaPurchases = `
CREATE TABLE IF NOT EXISTS purchases (
    id TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    user_id TEXT NOT NULL,
    product_name TEXT NOT NULL,
    category TEXT NOT NULL,
    country TEXT NOT NULL,
    price REAL NOT NULL,
    tariff_you_pay REAL NOT NULL,
    timestamp TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_purchases_user ON purchases(tenant_id, user_id);
CREATE INDEX IF NOT EXISTS idx_purchases_timestamp ON purchases(tenant_id, user_id, timestamp);
`

const schemaWatchRules = `
CREATE TABLE IF NOT EXISTS watch_rules (
    id TEXT NOT NULL,
    tenant_id TEXT NOT NULL,
    name TEXT NOT NULL,
    description TEXT,
    version TEXT NOT NULL,
    expression TEXT NOT NULL,
    bands TEXT NOT NULL,
    weight REAL NOT NULL DEFAULT 1.0,
    enabled INTEGER NOT NULL DEFAULT 1,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    PRIMARY KEY (id, tenant_id, version)
);

CREATE INDEX IF NOT EXISTS idx_watch_rules_tenant ON watch_rules(tenant_id);
CREATE INDEX IF NOT EXISTS idx_watch_rules_enabled ON watch_rules(tenant_id, enabled);
`

const schemaAlerts = `
CREATE TABLE IF NOT EXISTS alerts (
    id TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    subject_id TEXT NOT NULL,
    kind TEXT NOT NULL,
    score REAL NOT NULL,
    reasons TEXT,
    timestamp TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_alerts_tenant ON alerts(tenant_id);
CREATE INDEX IF NOT EXISTS idx_alerts_subject ON alerts(tenant_id, subject_id);
`

// AllSchemas returns all schema statements in creation order.
func AllSchemas() []string {
	return []string{
		schemaAnalyses,
		schemaCartAnalyses,
		schemaPurchases,
		schemaWatchRules,
		schemaAlerts,
	}
}
