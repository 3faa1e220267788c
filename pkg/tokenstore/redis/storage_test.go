package redis_test

import (
	"context"
	"os"
	"testing"

	"github.com/aussiebroadwan/examprep/pkg/idx"
	"github.com/aussiebroadwan/examprep/pkg/tokenstore"
	"github.com/aussiebroadwan/examprep/pkg/tokenstore/redis"
	"github.com/stretchr/testify/require"
)

var _ tokenstore.Storage = (*redis.Storage)(nil)

func openRedis(t *testing.T) *redis.Storage {
	t.Helper()

	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}

	s, err := redis.Open(context.Background(), redis.Options{
		Addr:   addr,
		Prefix: "examprep:test:" + idx.New().String() + ":",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStorageCRUD(t *testing.T) {
	s := openRedis(t)

	_, ok, err := s.Get("missing")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.Set("a", "1"))
	v, ok, err := s.Get("a")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "1", v)

	require.NoError(t, s.Delete("a", "b"))
	_, ok, err = s.Get("a")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestStoreOverRedis(t *testing.T) {
	durable := openRedis(t)
	store := tokenstore.New(tokenstore.NewMemory(), durable, nil)

	require.NoError(t, store.SetTokens("a", "r", true))
	require.True(t, store.Remembered())
	require.Equal(t, "r", store.RefreshToken())

	require.NoError(t, store.RemoveTokens())
	_, ok := store.Tokens()
	require.False(t, ok)
}
