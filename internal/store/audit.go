package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/ErenErgin78/Openai-Emotion-Animals-Chatbot/internal/domain"
)

// Audit records routing decisions and block events in SQLite. The store
// is best-effort end to end: a nil *Audit is a valid no-op store and a
// failed insert is logged, never propagated.
type Audit struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewAudit(dbPath string, logger *slog.Logger) (*Audit, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create database directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}

	// Single connection for SQLite
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	a := &Audit{db: db, logger: logger}
	if err := a.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database migration failed: %w", err)
	}
	return a, nil
}

func (a *Audit) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS audit_log (
		id          TEXT PRIMARY KEY,
		kind        TEXT NOT NULL,
		channel     TEXT,
		flow        TEXT,
		pattern     TEXT,
		detail      TEXT,
		created_at  DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_audit_time ON audit_log(created_at);
	`
	_, err := a.db.Exec(schema)
	return err
}

func (a *Audit) LogBlock(ctx context.Context, channel, pattern, detail string) {
	a.insert(ctx, domain.AuditEntry{
		Kind:    domain.AuditBlock,
		Channel: channel,
		Pattern: pattern,
		Detail:  detail,
	})
}

func (a *Audit) LogFlow(ctx context.Context, channel string, flow domain.Flow, detail string) {
	a.insert(ctx, domain.AuditEntry{
		Kind:    domain.AuditFlow,
		Channel: channel,
		Flow:    flow,
		Detail:  detail,
	})
}

func (a *Audit) insert(ctx context.Context, entry domain.AuditEntry) {
	if a == nil {
		return
	}
	entry.ID = uuid.NewString()
	entry.Time = time.Now().UTC()
	_, err := a.db.ExecContext(ctx,
		`INSERT INTO audit_log (id, kind, channel, flow, pattern, detail, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, string(entry.Kind), entry.Channel, string(entry.Flow), entry.Pattern, entry.Detail, entry.Time,
	)
	if err != nil {
		a.logger.Warn("audit write failed", "kind", entry.Kind, "error", err)
	}
}

// Recent returns the newest n entries, newest first.
func (a *Audit) Recent(ctx context.Context, n int) ([]domain.AuditEntry, error) {
	if a == nil {
		return nil, nil
	}
	rows, err := a.db.QueryContext(ctx,
		`SELECT id, kind, channel, flow, pattern, detail, created_at
		 FROM audit_log ORDER BY created_at DESC LIMIT ?`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.AuditEntry
	for rows.Next() {
		var e domain.AuditEntry
		var kind, flow string
		if err := rows.Scan(&e.ID, &kind, &e.Channel, &flow, &e.Pattern, &e.Detail, &e.Time); err != nil {
			return nil, err
		}
		e.Kind = domain.AuditKind(kind)
		e.Flow = domain.Flow(flow)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (a *Audit) Close() error {
	if a == nil {
		return nil
	}
	return a.db.Close()
}
