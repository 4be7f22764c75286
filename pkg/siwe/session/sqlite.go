package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLite is a Store backed by a SQLite file.
type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLite opens (and creates when needed) the session database at path.
func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open session db: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		nonce TEXT NOT NULL DEFAULT '',
		address TEXT NOT NULL DEFAULT '',
		chain_id INTEGER NOT NULL DEFAULT 0,
		expires_at INTEGER NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create sessions table: %w", err)
	}
	return &SQLite{db: db, now: time.Now}, nil
}

func (s *SQLite) Get(ctx context.Context, id string) (Session, bool, error) {
	var (
		sess    = Session{ID: id}
		expires int64
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT nonce, address, chain_id, expires_at FROM sessions WHERE id = ? AND expires_at > ?",
		id, s.now().UnixNano(),
	).Scan(&sess.Nonce, &sess.Address, &sess.ChainID, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, false, nil
	}
	if err != nil {
		return Session{}, false, fmt.Errorf("failed to load session: %w", err)
	}
	sess.ExpiresAt = time.Unix(0, expires)
	return sess, true, nil
}

func (s *SQLite) Save(ctx context.Context, sess Session) error {
	if _, err := s.db.ExecContext(ctx,
		"REPLACE INTO sessions (id, nonce, address, chain_id, expires_at) VALUES (?, ?, ?, ?, ?)",
		sess.ID, sess.Nonce, sess.Address, sess.ChainID, sess.ExpiresAt.UnixNano(),
	); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (s *SQLite) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (s *SQLite) Purge(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at <= ?", s.now().UnixNano())
	if err != nil {
		return 0, fmt.Errorf("failed to purge sessions: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
