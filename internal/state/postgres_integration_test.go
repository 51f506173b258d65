//go:build integration

package state

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/ivanoskov/fintracker/internal/model"
)

func startPostgres(t *testing.T) *sqlx.DB {
	t.Helper()
	ctx := context.Background()

	ctr, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:16-alpine"),
		postgres.WithDatabase("fintracker"),
		postgres.WithUsername("bot"),
		postgres.WithPassword("secret"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ctr.Terminate(ctx) })

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, Migrate(dsn))
	require.NoError(t, Migrate(dsn), "second run is a no-op")

	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestPostgresStoreContract(t *testing.T) {
	db := startPostgres(t)
	n := 0
	storeContract(t, func(t *testing.T) Store {
		n++
		_, err := db.Exec(`DELETE FROM user_states`)
		require.NoError(t, err, fmt.Sprintf("reset %d", n))
		return NewPostgresStore(db, time.Hour)
	})
}

func TestPostgresStoreExpiryAndPurge(t *testing.T) {
	db := startPostgres(t)
	ctx := context.Background()
	s := NewPostgresStore(db, time.Minute)
	now := time.Now()
	s.now = func() time.Time { return now }

	require.NoError(t, s.Set(ctx, 1, TransferDetails(model.Income)))
	now = now.Add(2 * time.Minute)

	snap, err := s.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, Idle, snap.State)

	removed, err := s.Purge(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
}
