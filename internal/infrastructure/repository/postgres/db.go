package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kirillkom/support-agent/internal/core/domain"
)

const schemaLockID int64 = 2026101801

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

// EnsureSchema creates the faq and event tables and seeds the built-in FAQs
// into an empty knowledge base.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, schemaLockID); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const ddl = `
CREATE TABLE IF NOT EXISTS faqs (
	id INTEGER PRIMARY KEY,
	question TEXT NOT NULL,
	answer TEXT NOT NULL,
	category TEXT NOT NULL DEFAULT 'general',
	verified BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_faqs_verified ON faqs(verified);

CREATE TABLE IF NOT EXISTS agent_events (
	id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	event_type TEXT NOT NULL,
	data JSONB NOT NULL DEFAULT '{}'::jsonb,
	occurred_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_agent_events_session ON agent_events(session_id, occurred_at);
`
	if _, err := tx.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	var count int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM faqs`).Scan(&count); err != nil {
		return fmt.Errorf("count faqs: %w", err)
	}
	if count == 0 {
		for _, item := range domain.DefaultFAQs() {
			if _, err := tx.ExecContext(ctx, `
INSERT INTO faqs (id, question, answer, category, verified)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (id) DO NOTHING
`, item.ID, item.Question, item.Answer, item.Category, item.Verified); err != nil {
				return fmt.Errorf("seed faq %d: %w", item.ID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}
