// Package sqlite stores session credentials in a local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/csg33k/visits-dashboard/internal/ports"
)

const schema = `
CREATE TABLE IF NOT EXISTS credentials (
	session_id    TEXT PRIMARY KEY,
	authorization TEXT NOT NULL,
	expires_at    INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS credentials_expires_at ON credentials (expires_at);`

// Repository keeps credentials keyed by session id. expires_at is unix
// seconds.
type Repository struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

// New opens the SQLite database and creates the credentials table if it is
// missing. Stored credentials expire ttl after they were last written.
func New(dsn string, ttl time.Duration) (*Repository, error) {
	db, err := sql.Open("sqlite3", dsn+"?_busy_timeout=5000")
	if err != nil {
		return nil, err
	}
	if dsn == ":memory:" {
		// every pooled connection would get its own empty database
		db.SetMaxOpenConns(1)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Repository{db: db, ttl: ttl, now: time.Now}, nil
}

var _ ports.CredentialStore = (*Repository)(nil)

// ── Credentials ───────────────────────────────────────────────────────────────

func (r *Repository) Get(ctx context.Context, sessionID string) (string, error) {
	var authorization string
	err := r.db.QueryRowContext(ctx,
		`SELECT authorization FROM credentials WHERE session_id=? AND expires_at > ?`,
		sessionID, r.now().Unix(),
	).Scan(&authorization)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ports.ErrNoCredentials
	}
	if err != nil {
		return "", err
	}
	return authorization, nil
}

func (r *Repository) Put(ctx context.Context, sessionID, authorization string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO credentials (session_id, authorization, expires_at) VALUES (?,?,?)
		ON CONFLICT(session_id) DO UPDATE SET
			authorization=excluded.authorization,
			expires_at=excluded.expires_at`,
		sessionID, authorization, r.now().Add(r.ttl).Unix(),
	)
	return err
}

func (r *Repository) Delete(ctx context.Context, sessionID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM credentials WHERE session_id=?`, sessionID)
	return err
}

// PurgeExpired deletes expired credentials and returns how many were removed.
func (r *Repository) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM credentials WHERE expires_at <= ?`, r.now().Unix())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *Repository) Close() error { return r.db.Close() }
