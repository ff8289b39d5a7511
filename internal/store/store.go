// Package store persists rule documents in Postgres. The raw YAML text
// is the source of truth (see internal/rules for the on-disk loader), and
// the store durably tracks which rules are known and enabled so the
// process can resume without a filesystem rescan.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// Postgres wraps a *sql.DB opened against the lib/pq driver.
type Postgres struct {
	db *sql.DB
}

// Open opens and pings a Postgres connection using the given DSN.
func Open(dsn string) (*Postgres, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	return &Postgres{db: db}, nil
}

// New wraps an already-opened *sql.DB, e.g. one built against sqlmock in
// tests.
func New(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// DB exposes the underlying connection pool, for callers that need it
// directly (migrations, health checks).
func (p *Postgres) DB() *sql.DB {
	return p.db
}

// RuleRecord is a rule document as tracked in the store.
type RuleRecord struct {
	ID      string
	Title   string
	Level   string
	YAML    string
	Enabled bool
}

// InitSchema creates the rules table if it does not already exist. Kept
// separate from RunMigrations so a fresh process can always start even
// without a migrations directory on disk.
func (p *Postgres) InitSchema(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS rules (
	rule_id    TEXT PRIMARY KEY,
	title      TEXT NOT NULL,
	level      TEXT NOT NULL DEFAULT '',
	yaml_text  TEXT NOT NULL,
	enabled    BOOLEAN NOT NULL DEFAULT TRUE,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`)
	if err != nil {
		return fmt.Errorf("store: init schema: %w", err)
	}
	return nil
}

// SaveRule upserts a rule record, keyed by rule ID.
func (p *Postgres) SaveRule(ctx context.Context, r RuleRecord) error {
	_, err := p.db.ExecContext(ctx, `
INSERT INTO rules(rule_id, title, level, yaml_text, enabled, updated_at)
VALUES ($1, $2, $3, $4, $5, now())
ON CONFLICT (rule_id) DO UPDATE SET
	title = EXCLUDED.title,
	level = EXCLUDED.level,
	yaml_text = EXCLUDED.yaml_text,
	enabled = EXCLUDED.enabled,
	updated_at = now()`,
		r.ID, r.Title, r.Level, r.YAML, r.Enabled,
	)
	if err != nil {
		return fmt.Errorf("store: save rule %s: %w", r.ID, err)
	}
	return nil
}

// SetEnabled toggles a rule's enabled flag.
func (p *Postgres) SetEnabled(ctx context.Context, ruleID string, enabled bool) error {
	res, err := p.db.ExecContext(ctx,
		`UPDATE rules SET enabled = $1, updated_at = now() WHERE rule_id = $2`, enabled, ruleID)
	if err != nil {
		return fmt.Errorf("store: set enabled for %s: %w", ruleID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: rows affected for %s: %w", ruleID, err)
	}
	if n == 0 {
		return fmt.Errorf("store: rule %s not found", ruleID)
	}
	return nil
}

// LoadEnabledRules returns every enabled rule's YAML text, for compiling a
// fresh Ruleset at startup or after a rule change.
func (p *Postgres) LoadEnabledRules(ctx context.Context) ([]RuleRecord, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT rule_id, title, level, yaml_text, enabled FROM rules WHERE enabled ORDER BY rule_id`)
	if err != nil {
		return nil, fmt.Errorf("store: load enabled rules: %w", err)
	}
	defer rows.Close()

	var out []RuleRecord
	for rows.Next() {
		var r RuleRecord
		if err := rows.Scan(&r.ID, &r.Title, &r.Level, &r.YAML, &r.Enabled); err != nil {
			return nil, fmt.Errorf("store: scan rule row: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate rule rows: %w", err)
	}
	return out, nil
}
