package account

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/loginapp/pkg/errors"
)

// Schema creates the accounts table used by PostgresRepository.
const Schema = `
CREATE TABLE IF NOT EXISTS accounts (
	id            TEXT PRIMARY KEY,
	org           TEXT NOT NULL DEFAULT '',
	name          TEXT NOT NULL DEFAULT '',
	role          TEXT NOT NULL DEFAULT '',
	password_hash TEXT NOT NULL,
	approved      BOOLEAN NOT NULL DEFAULT FALSE,
	verified      BOOLEAN NOT NULL DEFAULT FALSE,
	totp_secret   TEXT NOT NULL DEFAULT '',
	last_login_at TIMESTAMPTZ,
	last_login_ip TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

const uniqueViolation = "23505"

// PostgresRepository implements Repository using PostgreSQL
type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Migrate creates the accounts table if it does not exist.
func (r *PostgresRepository) Migrate(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("failed to create accounts table: %w", err)
	}
	return nil
}

func (r *PostgresRepository) FindByID(ctx context.Context, id string) (Account, error) {
	query := `
		SELECT id, org, name, role, password_hash, approved, verified, totp_secret,
		       last_login_at, last_login_ip, created_at, updated_at
		FROM accounts
		WHERE id = $1
	`

	var acct Account
	var lastLoginAt *time.Time
	err := r.pool.QueryRow(ctx, query, NormalizeID(id)).Scan(
		&acct.ID,
		&acct.Org,
		&acct.Name,
		&acct.Role,
		&acct.PasswordHash,
		&acct.Approved,
		&acct.Verified,
		&acct.TotpSecret,
		&lastLoginAt,
		&acct.LastLoginIP,
		&acct.CreatedAt,
		&acct.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, errors.AccountNotFound(id)
	}
	if err != nil {
		return Account{}, fmt.Errorf("failed to get account: %w", err)
	}
	if lastLoginAt != nil {
		acct.LastLoginAt = *lastLoginAt
	}
	return acct, nil
}

func (r *PostgresRepository) Create(ctx context.Context, acct Account) (Account, error) {
	query := `
		INSERT INTO accounts (id, org, name, role, password_hash, approved, verified, totp_secret)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`

	acct.ID = NormalizeID(acct.ID)
	err := r.pool.QueryRow(ctx, query,
		acct.ID,
		acct.Org,
		acct.Name,
		acct.Role,
		acct.PasswordHash,
		acct.Approved,
		acct.Verified,
		acct.TotpSecret,
	).Scan(&acct.CreatedAt, &acct.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return Account{}, errors.AlreadyExists("account", acct.ID)
		}
		return Account{}, fmt.Errorf("failed to create account: %w", err)
	}
	return acct, nil
}

func (r *PostgresRepository) UpdateLoginStats(ctx context.Context, id string, at time.Time, ip string) error {
	query := `
		UPDATE accounts
		SET last_login_at = $2, last_login_ip = $3, updated_at = NOW()
		WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query, NormalizeID(id), at, ip)
	if err != nil {
		return fmt.Errorf("failed to update login stats: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return errors.AccountNotFound(id)
	}
	return nil
}

func (r *PostgresRepository) SetApproved(ctx context.Context, id string, approved bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE accounts SET approved = $2, updated_at = NOW() WHERE id = $1`, NormalizeID(id), approved)
	if err != nil {
		return fmt.Errorf("failed to set approved: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return errors.AccountNotFound(id)
	}
	return nil
}
