// Package postgres implements store.Driver on lib/pq.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	// PostgreSQL driver.
	_ "github.com/lib/pq"
	"github.com/pkg/errors"
)

// DB wraps a PostgreSQL connection pool.
type DB struct {
	db *sql.DB
}

// New opens a connection pool for the given DSN.
func New(dsn string) (*DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open postgres")
	}
	return &DB{db: db}, nil
}

// Migrate creates the chat tables if they do not exist.
func (d *DB) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS chat_session (
			id         SERIAL PRIMARY KEY,
			uid        TEXT NOT NULL UNIQUE,
			creator_id TEXT NOT NULL,
			title      TEXT NOT NULL DEFAULT 'New Chat',
			created_ts BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW()),
			updated_ts BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())
		)`,
		`CREATE INDEX IF NOT EXISTS idx_chat_session_creator ON chat_session(creator_id)`,
		`CREATE TABLE IF NOT EXISTS chat_message (
			id         SERIAL PRIMARY KEY,
			session_id INTEGER NOT NULL REFERENCES chat_session(id) ON DELETE CASCADE,
			role       TEXT NOT NULL,
			content    TEXT NOT NULL,
			created_ts BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())
		)`,
		`CREATE INDEX IF NOT EXISTS idx_chat_message_session ON chat_message(session_id)`,
	}
	for _, s := range stmts {
		if _, err := d.db.ExecContext(ctx, s); err != nil {
			return errors.Wrap(err, "migrate postgres")
		}
	}
	return nil
}

// Close closes the connection pool.
func (d *DB) Close() error {
	return d.db.Close()
}

func placeholder(n int) string {
	return fmt.Sprintf("$%d", n)
}
