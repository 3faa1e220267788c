package tokenstore_test

import (
	"errors"
	"testing"

	"github.com/aussiebroadwan/examprep/pkg/authclient"
	"github.com/aussiebroadwan/examprep/pkg/tokenstore"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) (*tokenstore.Store, *tokenstore.Memory, *tokenstore.Memory) {
	t.Helper()

	ephemeral, durable := tokenstore.NewMemory(), tokenstore.NewMemory()
	return tokenstore.New(ephemeral, durable, nil), ephemeral, durable
}

func get(t *testing.T, s tokenstore.Storage, key string) (string, bool) {
	t.Helper()

	v, ok, err := s.Get(key)
	require.NoError(t, err)
	return v, ok
}

func TestSetTokensExclusivity(t *testing.T) {
	t.Parallel()

	t.Run("remembered goes to durable only", func(t *testing.T) {
		store, ephemeral, durable := newStore(t)
		require.NoError(t, store.SetTokens("e1", "r1", false))
		require.NoError(t, store.SetTokens("a", "r", true))

		v, _ := get(t, durable, tokenstore.KeyAccessToken)
		require.Equal(t, "a", v)
		v, _ = get(t, durable, tokenstore.KeyRefreshToken)
		require.Equal(t, "r", v)
		v, _ = get(t, durable, tokenstore.KeyRememberMe)
		require.Equal(t, "true", v)

		for _, k := range []string{tokenstore.KeyAccessToken, tokenstore.KeyRefreshToken, tokenstore.KeyRememberMe, tokenstore.KeyCurrentUser} {
			_, ok := get(t, ephemeral, k)
			require.False(t, ok, k)
		}
		require.True(t, store.Remembered())
	})

	t.Run("not remembered goes to ephemeral only", func(t *testing.T) {
		store, ephemeral, durable := newStore(t)
		require.NoError(t, store.SetTokens("d1", "r1", true))
		require.NoError(t, store.SetTokens("a", "r", false))

		v, _ := get(t, ephemeral, tokenstore.KeyAccessToken)
		require.Equal(t, "a", v)
		v, _ = get(t, ephemeral, tokenstore.KeyRememberMe)
		require.Equal(t, "false", v)
		require.Zero(t, durable.Len())
		require.False(t, store.Remembered())
	})
}

func TestSetTokensRejectsPartialPair(t *testing.T) {
	t.Parallel()

	store, ephemeral, durable := newStore(t)
	require.ErrorIs(t, store.SetTokens("a", "", false), tokenstore.ErrIncompletePair)
	require.ErrorIs(t, store.SetTokens("", "r", true), tokenstore.ErrIncompletePair)
	require.Zero(t, ephemeral.Len())
	require.Zero(t, durable.Len())
}

func TestPartialPairReadsAsAbsent(t *testing.T) {
	t.Parallel()

	store, ephemeral, _ := newStore(t)
	require.NoError(t, ephemeral.Set(tokenstore.KeyAccessToken, "a"))

	require.Empty(t, store.AccessToken())
	require.Empty(t, store.RefreshToken())
	_, ok := store.Tokens()
	require.False(t, ok)
	require.ErrorIs(t, store.UpdateAccessToken("a2"), tokenstore.ErrNoSession)
}

func TestEphemeralTakesPrecedence(t *testing.T) {
	t.Parallel()

	store, ephemeral, durable := newStore(t)
	require.NoError(t, durable.Set(tokenstore.KeyAccessToken, "da"))
	require.NoError(t, durable.Set(tokenstore.KeyRefreshToken, "dr"))
	require.NoError(t, ephemeral.Set(tokenstore.KeyAccessToken, "ea"))
	require.NoError(t, ephemeral.Set(tokenstore.KeyRefreshToken, "er"))

	require.Equal(t, "ea", store.AccessToken())
	require.Equal(t, "er", store.RefreshToken())
}

func TestUpdateTokensInPlace(t *testing.T) {
	t.Parallel()

	store, ephemeral, durable := newStore(t)
	require.NoError(t, store.SetTokens("a1", "r1", true))

	require.NoError(t, store.UpdateAccessToken("a2"))
	require.Equal(t, "a2", store.AccessToken())
	require.Equal(t, "r1", store.RefreshToken())

	require.NoError(t, store.UpdateRefreshToken("r2"))
	require.Equal(t, "r2", store.RefreshToken())

	require.Zero(t, ephemeral.Len())
	v, _ := get(t, durable, tokenstore.KeyAccessToken)
	require.Equal(t, "a2", v)

	require.ErrorIs(t, store.UpdateAccessToken(""), tokenstore.ErrIncompletePair)
}

func TestRemoveTokensIsIdempotent(t *testing.T) {
	t.Parallel()

	store, ephemeral, durable := newStore(t)
	require.NoError(t, store.SetTokens("a", "r", true))
	require.NoError(t, store.SetUser(authclient.User{ID: "1", Username: "alice"}))
	require.NoError(t, ephemeral.Set(tokenstore.KeyAccessToken, "stray"))

	require.NoError(t, store.RemoveTokens())
	require.NoError(t, store.RemoveTokens())

	require.Zero(t, ephemeral.Len())
	require.Zero(t, durable.Len())
	_, ok := store.User()
	require.False(t, ok)
}

func TestUserCache(t *testing.T) {
	t.Parallel()

	t.Run("requires a session", func(t *testing.T) {
		store, _, _ := newStore(t)
		require.ErrorIs(t, store.SetUser(authclient.User{ID: "1"}), tokenstore.ErrNoSession)
	})

	t.Run("stored next to tokens", func(t *testing.T) {
		store, ephemeral, durable := newStore(t)
		require.NoError(t, store.SetTokens("a", "r", false))
		require.NoError(t, store.SetUser(authclient.User{ID: "1", Username: "alice", Role: authclient.RoleUser}))

		_, ok := get(t, ephemeral, tokenstore.KeyCurrentUser)
		require.True(t, ok)
		require.Zero(t, durable.Len())

		user, ok := store.User()
		require.True(t, ok)
		require.Equal(t, "alice", user.Username)
	})

	t.Run("new pair drops cached user", func(t *testing.T) {
		store, _, _ := newStore(t)
		require.NoError(t, store.SetTokens("a", "r", false))
		require.NoError(t, store.SetUser(authclient.User{ID: "1", Username: "alice"}))
		require.NoError(t, store.SetTokens("a2", "r2", false))

		_, ok := store.User()
		require.False(t, ok)
	})

	t.Run("corrupt user is discarded", func(t *testing.T) {
		store, ephemeral, _ := newStore(t)
		require.NoError(t, store.SetTokens("a", "r", false))
		require.NoError(t, ephemeral.Set(tokenstore.KeyCurrentUser, "{not json"))

		_, ok := store.User()
		require.False(t, ok)
		_, ok = get(t, ephemeral, tokenstore.KeyCurrentUser)
		require.False(t, ok)
	})
}

type failingStorage struct{ tokenstore.Memory }

var errDisk = errors.New("disk on fire")

func (f *failingStorage) Get(string) (string, bool, error) { return "", false, errDisk }

func TestStorageFailureReadsAsNoSession(t *testing.T) {
	t.Parallel()

	store := tokenstore.New(tokenstore.NewMemory(), &failingStorage{}, nil)
	require.Empty(t, store.AccessToken())
	require.False(t, store.Remembered())
	_, ok := store.User()
	require.False(t, ok)
}
