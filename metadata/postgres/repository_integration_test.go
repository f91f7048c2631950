//go:build integration

package postgres

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/przemekbroda/sessionstore/metadata"
)

func setupPostgresRepository(t *testing.T, ctx context.Context) (*Repository, func()) {
	req := testcontainers.ContainerRequest{
		Image:        "postgres:18-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)

	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	cfg := PoolConfig{
		ConnString: fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port()),
	}
	pool, err := NewPool(ctx, cfg)
	require.NoError(t, err)

	repo := NewRepository(pool)
	require.NoError(t, repo.Migrate(ctx))

	cleanup := func() {
		pool.Close()
		_ = container.Terminate(ctx)
	}
	return repo, cleanup
}

func TestIntegration_RecordLifecycle(t *testing.T) {
	ctx := context.Background()
	repo, cleanup := setupPostgresRepository(t, ctx)
	defer cleanup()

	expires := time.Now().Add(time.Hour).UTC()

	t.Run("upsert and get", func(t *testing.T) {
		err := repo.Upsert(ctx, &metadata.Record{
			SessionID: "sid-1",
			UserID:    "u-1",
			ExpiresAt: &expires,
			Origin:    "test-agent",
		})
		require.NoError(t, err)

		rec, err := repo.Get(ctx, "sid-1")
		require.NoError(t, err)
		require.Equal(t, "u-1", rec.UserID)
		require.Equal(t, "test-agent", rec.Origin)
		require.NotNil(t, rec.ExpiresAt)
		require.WithinDuration(t, expires, *rec.ExpiresAt, time.Millisecond)
		require.False(t, rec.CreatedAt.IsZero())
	})

	t.Run("upsert existing updates expiry only", func(t *testing.T) {
		later := expires.Add(time.Hour)
		err := repo.Upsert(ctx, &metadata.Record{
			SessionID: "sid-1",
			UserID:    "u-other",
			ExpiresAt: &later,
			Origin:    "other-agent",
		})
		require.NoError(t, err)

		rec, err := repo.Get(ctx, "sid-1")
		require.NoError(t, err)
		require.Equal(t, "u-1", rec.UserID)
		require.WithinDuration(t, later, *rec.ExpiresAt, time.Millisecond)
	})

	t.Run("get unknown is not found", func(t *testing.T) {
		_, err := repo.Get(ctx, "missing")
		require.ErrorIs(t, err, metadata.ErrNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, "sid-1"))
		require.ErrorIs(t, repo.Delete(ctx, "sid-1"), metadata.ErrNotFound)
	})
}

func TestIntegration_ListAndBulkDelete(t *testing.T) {
	ctx := context.Background()
	repo, cleanup := setupPostgresRepository(t, ctx)
	defer cleanup()

	past := time.Now().Add(-time.Hour).UTC()
	future := time.Now().Add(time.Hour).UTC()

	seed := []*metadata.Record{
		{SessionID: "sid-expired", UserID: "u-1", ExpiresAt: &past},
		{SessionID: "sid-live", UserID: "u-1", ExpiresAt: &future},
		{SessionID: "sid-forever", UserID: "u-1"},
		{SessionID: "sid-other", UserID: "u-2", ExpiresAt: &future},
	}
	for _, rec := range seed {
		require.NoError(t, repo.Upsert(ctx, rec))
	}

	t.Run("list all", func(t *testing.T) {
		recs, err := repo.ListByUser(ctx, "u-1", false)
		require.NoError(t, err)
		require.Len(t, recs, 3)
	})

	t.Run("list active only", func(t *testing.T) {
		recs, err := repo.ListByUser(ctx, "u-1", true)
		require.NoError(t, err)
		require.Len(t, recs, 2)
		for _, rec := range recs {
			require.NotEqual(t, "sid-expired", rec.SessionID)
		}
	})

	t.Run("delete expired", func(t *testing.T) {
		n, err := repo.DeleteExpired(ctx, time.Now())
		require.NoError(t, err)
		require.Equal(t, 1, n)

		n, err = repo.DeleteExpired(ctx, time.Now())
		require.NoError(t, err)
		require.Zero(t, n)

		_, err = repo.Get(ctx, "sid-forever")
		require.NoError(t, err)
	})

	t.Run("delete by user", func(t *testing.T) {
		n, err := repo.DeleteByUser(ctx, "u-1")
		require.NoError(t, err)
		require.Equal(t, 2, n)

		_, err = repo.Get(ctx, "sid-other")
		require.NoError(t, err)
	})
}
