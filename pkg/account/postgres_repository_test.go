package account

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/tendant/loginapp/pkg/errors"
)

func TestPostgresRepository(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()

	postgresContainer, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:15-alpine"),
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)
	defer func() {
		if err := postgresContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}()

	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	defer pool.Close()

	repo := NewPostgresRepository(pool)
	require.NoError(t, repo.Migrate(ctx))

	t.Run("CreateAndFind", func(t *testing.T) {
		_, err := repo.Create(ctx, Account{ID: "Grace@Example.com", Org: "acme", Role: "admin", PasswordHash: "hash", Approved: true})
		require.NoError(t, err)

		acct, err := repo.FindByID(ctx, "grace@example.com")
		require.NoError(t, err)
		assert.Equal(t, "grace@example.com", acct.ID)
		assert.Equal(t, "acme", acct.Org)
		assert.True(t, acct.Approved)
		assert.True(t, acct.LastLoginAt.IsZero())
	})

	t.Run("Duplicate", func(t *testing.T) {
		_, err := repo.Create(ctx, Account{ID: "grace@example.com", PasswordHash: "hash"})
		assert.True(t, errors.IsCode(err, errors.ErrCodeAlreadyExists))
	})

	t.Run("UpdateLoginStats", func(t *testing.T) {
		at := time.Now().UTC().Truncate(time.Second)
		require.NoError(t, repo.UpdateLoginStats(ctx, "grace@example.com", at, "198.51.100.7"))

		acct, err := repo.FindByID(ctx, "grace@example.com")
		require.NoError(t, err)
		assert.True(t, at.Equal(acct.LastLoginAt))
		assert.Equal(t, "198.51.100.7", acct.LastLoginIP)
	})

	t.Run("NotFound", func(t *testing.T) {
		_, err := repo.FindByID(ctx, "nobody@example.com")
		assert.True(t, errors.IsCode(err, errors.ErrCodeAccountNotFound))

		err = repo.SetApproved(ctx, "nobody@example.com", false)
		assert.True(t, errors.IsCode(err, errors.ErrCodeAccountNotFound))
	})
}
