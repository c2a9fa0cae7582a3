package state

import (
	"context"
	"testing"
	"time"

	"noor-storefront/internal/domain"
	"noor-storefront/internal/migrate"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestPostgresRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping postgres container test in short mode")
	}
	ctx := context.Background()
	pool := postgresPool(ctx, t)

	require.NoError(t, migrate.Apply(ctx, pool))
	require.NoError(t, migrate.Apply(ctx, pool), "second apply must be a no-op")

	version, dirty, err := migrate.Version(ctx, pool)
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)

	repo := NewPostgres(pool, nil)
	require.NoError(t, repo.Ping(ctx))

	_, err = repo.Load(ctx, "auth-storage")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, repo.Save(ctx, "auth-storage", []byte(`{"accessToken":"a","user":null}`)))
	require.NoError(t, repo.Save(ctx, "auth-storage", []byte(`{"accessToken":"b","user":null}`)))

	got, err := repo.Load(ctx, "auth-storage")
	require.NoError(t, err)
	assert.JSONEq(t, `{"accessToken":"b","user":null}`, string(got))

	require.NoError(t, repo.Delete(ctx, "auth-storage"))
	_, err = repo.Load(ctx, "auth-storage")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func postgresPool(ctx context.Context, t *testing.T) *pgxpool.Pool {
	t.Helper()
	container, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("storefront"),
		postgres.WithUsername("storefront"),
		postgres.WithPassword("storefront"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = testcontainers.TerminateContainer(container)
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}
