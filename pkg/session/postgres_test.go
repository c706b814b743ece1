package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/ottohq/otto-gateway/pkg/docstore"
)

func newTestPostgresStore(t *testing.T) *PostgresStore {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(pgContainer) })

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	port, err := pgContainer.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	docs, err := docstore.NewPostgresStore(ctx, docstore.Config{
		Host: host, Port: port.Int(), User: "test", Password: "test", Database: "test",
		SSLMode: "disable", MaxOpenConns: 5, MaxIdleConns: 2,
		ConnMaxLifetime: time.Hour, ConnMaxIdleTime: 15 * time.Minute,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = docs.Close() })

	return NewPostgresStore(docs)
}

func TestPostgresStore_SaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestPostgresStore(t)
	s := NewSession("s1", "+5511999999999", time.Now().UTC())

	require.NoError(t, store.Save(ctx, s, time.Hour))

	loaded, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, s.ID, loaded.ID)
}

func TestPostgresStore_CompareAndSwapSave_ConflictOnStaleVersion(t *testing.T) {
	ctx := context.Background()
	store := newTestPostgresStore(t)
	s := NewSession("s1", "+5511999999999", time.Now().UTC())
	require.NoError(t, store.Save(ctx, s, time.Hour))

	winner := NewSession("s1", "+5511999999999", time.Now().UTC())
	winner.Version = 1
	require.NoError(t, store.CompareAndSwapSave(ctx, winner, time.Hour))

	loser := NewSession("s1", "+5511999999999", time.Now().UTC())
	loser.Version = 1
	err := store.CompareAndSwapSave(ctx, loser, time.Hour)
	assert.ErrorIs(t, err, ErrConflict)
}
