package repository

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	// pure-Go driver, registered as "sqlite"
	_ "modernc.org/sqlite"
)

const outboxSchema = `
CREATE TABLE IF NOT EXISTS ledger_outbox (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    kind        TEXT    NOT NULL,
    key         TEXT    NOT NULL,
    payload     BLOB    NOT NULL,
    attempts    INTEGER NOT NULL DEFAULT 0,
    last_error  TEXT    NOT NULL DEFAULT '',
    created_at  TEXT    NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_ledger_outbox_key ON ledger_outbox(key);
`

// SQLiteOutbox keeps unsent ledger writes on the terminal's disk so they
// survive restarts while the shared database is unreachable.
type SQLiteOutbox struct {
	db *sql.DB
}

// OpenOutbox opens (or creates) the outbox file at path.
func OpenOutbox(path string) (*SQLiteOutbox, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("outbox: create dir: %w", err)
		}
	}
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("outbox: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(outboxSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("outbox: apply schema: %w", err)
	}
	return &SQLiteOutbox{db: db}, nil
}

func (o *SQLiteOutbox) Close() error {
	return o.db.Close()
}

func (o *SQLiteOutbox) Enqueue(ctx context.Context, kind OutboxKind, key string, payload []byte) error {
	_, err := o.db.ExecContext(ctx,
		`INSERT INTO ledger_outbox (kind, key, payload, created_at) VALUES (?, ?, ?, ?)`,
		string(kind), key, payload, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("outbox: enqueue %s %s: %w", kind, key, err)
	}
	return nil
}

// Pending returns up to limit entries, all of them when limit <= 0.
func (o *SQLiteOutbox) Pending(ctx context.Context, limit int) ([]OutboxEntry, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := o.db.QueryContext(ctx, `
		SELECT id, kind, key, payload, attempts, last_error, created_at
		FROM ledger_outbox
		ORDER BY id
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("outbox: pending: %w", err)
	}
	defer rows.Close()

	var out []OutboxEntry
	for rows.Next() {
		var (
			e         OutboxEntry
			kind      string
			createdAt string
		)
		if err := rows.Scan(&e.ID, &kind, &e.Key, &e.Payload, &e.Attempts, &e.LastError, &createdAt); err != nil {
			return nil, fmt.Errorf("outbox: scan: %w", err)
		}
		e.Kind = OutboxKind(kind)
		if e.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("outbox: entry %d created_at: %w", e.ID, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (o *SQLiteOutbox) Done(ctx context.Context, id int64) error {
	if _, err := o.db.ExecContext(ctx, `DELETE FROM ledger_outbox WHERE id = ?`, id); err != nil {
		return fmt.Errorf("outbox: done %d: %w", id, err)
	}
	return nil
}

func (o *SQLiteOutbox) Failed(ctx context.Context, id int64, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	_, err := o.db.ExecContext(ctx,
		`UPDATE ledger_outbox SET attempts = attempts + 1, last_error = ? WHERE id = ?`, msg, id)
	if err != nil {
		return fmt.Errorf("outbox: mark failed %d: %w", id, err)
	}
	return nil
}
