// Package mysql implements store.Driver on go-sql-driver/mysql.
package mysql

import (
	"context"
	"database/sql"

	// MySQL driver.
	_ "github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"
)

// DB wraps a MySQL connection pool.
type DB struct {
	db *sql.DB
}

// New opens a connection pool for the given DSN.
func New(dsn string) (*DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open mysql")
	}
	return &DB{db: db}, nil
}

// Migrate creates the chat tables if they do not exist.
func (d *DB) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS chat_session (
			id         INT NOT NULL AUTO_INCREMENT PRIMARY KEY,
			uid        VARCHAR(256) NOT NULL UNIQUE,
			creator_id VARCHAR(256) NOT NULL,
			title      TEXT NOT NULL,
			created_ts BIGINT NOT NULL,
			updated_ts BIGINT NOT NULL,
			INDEX idx_chat_session_creator (creator_id)
		)`,
		`CREATE TABLE IF NOT EXISTS chat_message (
			id         INT NOT NULL AUTO_INCREMENT PRIMARY KEY,
			session_id INT NOT NULL,
			role       VARCHAR(256) NOT NULL,
			content    TEXT NOT NULL,
			created_ts BIGINT NOT NULL,
			INDEX idx_chat_message_session (session_id),
			CONSTRAINT fk_chat_message_session FOREIGN KEY (session_id) REFERENCES chat_session(id) ON DELETE CASCADE
		)`,
	}
	for _, s := range stmts {
		if _, err := d.db.ExecContext(ctx, s); err != nil {
			return errors.Wrap(err, "migrate mysql")
		}
	}
	return nil
}

// Close closes the connection pool.
func (d *DB) Close() error {
	return d.db.Close()
}
