package sessions

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/loginapp/pkg/errors"
)

// Schema creates the login_sessions table used by PostgresStore.
const Schema = `
CREATE TABLE IF NOT EXISTS login_sessions (
	session_key TEXT PRIMARY KEY,
	account_id  TEXT NOT NULL,
	org         TEXT NOT NULL DEFAULT '',
	name        TEXT NOT NULL DEFAULT '',
	role        TEXT NOT NULL DEFAULT '',
	expires_at  TIMESTAMPTZ,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// PostgresStore implements Store using PostgreSQL
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("failed to create login_sessions table: %w", err)
	}
	return nil
}

func (s *PostgresStore) Put(ctx context.Context, session ActiveSession) error {
	query := `
		INSERT INTO login_sessions (session_key, account_id, org, name, role, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (session_key) DO UPDATE SET
			account_id = EXCLUDED.account_id,
			org = EXCLUDED.org,
			name = EXCLUDED.name,
			role = EXCLUDED.role,
			expires_at = EXCLUDED.expires_at
	`

	_, err := s.pool.Exec(ctx, query,
		session.Key,
		session.Identity.ID,
		session.Identity.Org,
		session.Identity.Name,
		session.Identity.Role,
		nullableTime(session.ExpiresAt),
	)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeUnavailable, "failed to store session")
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, key string) (ActiveSession, bool, error) {
	query := `
		SELECT session_key, account_id, org, name, role, expires_at
		FROM login_sessions
		WHERE session_key = $1
		  AND (expires_at IS NULL OR expires_at > NOW())
	`

	session, err := scanSession(s.pool.QueryRow(ctx, query, key))
	if errors.Is(err, pgx.ErrNoRows) {
		return ActiveSession{}, false, nil
	}
	if err != nil {
		return ActiveSession{}, false, errors.Wrap(err, errors.ErrCodeUnavailable, "failed to read session")
	}
	return session, true, nil
}

func (s *PostgresStore) Delete(ctx context.Context, key string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM login_sessions WHERE session_key = $1`, key); err != nil {
		return errors.Wrap(err, errors.ErrCodeUnavailable, "failed to delete session")
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context) ([]ActiveSession, error) {
	query := `
		SELECT session_key, account_id, org, name, role, expires_at
		FROM login_sessions
		WHERE expires_at IS NULL OR expires_at > NOW()
		ORDER BY created_at
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeUnavailable, "failed to list sessions")
	}
	defer rows.Close()

	var sessions []ActiveSession
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

// DeleteExpired removes rows past their expiry.
func (s *PostgresStore) DeleteExpired(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM login_sessions WHERE expires_at <= NOW()`)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanSession(row pgx.Row) (ActiveSession, error) {
	var session ActiveSession
	var expiresAt *time.Time
	err := row.Scan(
		&session.Key,
		&session.Identity.ID,
		&session.Identity.Org,
		&session.Identity.Name,
		&session.Identity.Role,
		&expiresAt,
	)
	if err != nil {
		return ActiveSession{}, err
	}
	if expiresAt != nil {
		session.ExpiresAt = *expiresAt
	}
	return session, nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
