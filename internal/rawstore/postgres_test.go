package rawstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"matchlens/ingest-service/internal/db"
)

// setupPostgres starts a PostgreSQL testcontainer and applies the migrations.
func setupPostgres(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping PostgreSQL integration test in short mode")
	}
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:17-alpine",
		postgres.WithDatabase("matchlens_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	_, err = db.Migrate(connStr)
	require.NoError(t, err)

	return connStr
}

func TestPostgresStore(t *testing.T) {
	connStr := setupPostgres(t)
	ctx := context.Background()

	pool, err := db.NewPostgresPool(ctx, connStr, 20)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	storeContract(t, func(t *testing.T) Store {
		_, err := pool.Exec(ctx, `TRUNCATE fd_raw_ingest RESTART IDENTITY`)
		require.NoError(t, err)
		return NewPostgresStore(pool)
	}, func() time.Time { return time.Now().UTC() })
}

func TestPostgresStore_EmptyPayloadIsNull(t *testing.T) {
	connStr := setupPostgres(t)
	ctx := context.Background()

	pool, err := db.NewPostgresPool(ctx, connStr, 4)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	s := NewPostgresStore(pool)
	_, inserted, err := s.InsertIfAbsent(ctx, testSource, testEndpoint, testKey, time.Now(), nil)
	require.NoError(t, err)
	require.True(t, inserted)

	rec, err := s.Get(ctx, testSource, testEndpoint, testKey)
	require.NoError(t, err)
	require.Nil(t, rec.Payload)
}
