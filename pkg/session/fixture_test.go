package session_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/examprep/internal/devapi"
	"github.com/aussiebroadwan/examprep/internal/devapi/devapitest"
	"github.com/aussiebroadwan/examprep/pkg/authclient"
	"github.com/aussiebroadwan/examprep/pkg/session"
	"github.com/aussiebroadwan/examprep/pkg/tokenstore"
)

type fixture struct {
	env       *devapitest.Env
	ephemeral *tokenstore.Memory
	durable   *tokenstore.Memory
	store     *tokenstore.Store
	ctrl      *session.Controller
}

func newFixture(t *testing.T, opts devapi.Options) *fixture {
	t.Helper()

	env := devapitest.New(t, opts)
	return newFixtureWithBackend(t, env, env.Client())
}

func newFixtureWithBackend(t *testing.T, env *devapitest.Env, backend session.Backend) *fixture {
	t.Helper()

	ephemeral, durable := tokenstore.NewMemory(), tokenstore.NewMemory()
	store := tokenstore.New(ephemeral, durable, nil)
	ctrl := session.NewController(session.Config{Backend: backend, Store: store})
	t.Cleanup(ctrl.Close)

	return &fixture{
		env:       env,
		ephemeral: ephemeral,
		durable:   durable,
		store:     store,
		ctrl:      ctrl,
	}
}

func (f *fixture) login(t *testing.T, remember bool) session.SessionState {
	t.Helper()

	state, err := f.ctrl.Login(context.Background(), authclient.Credentials{
		Username:   devapitest.Username,
		Password:   devapitest.Password,
		RememberMe: remember,
	})
	require.NoError(t, err)
	return state
}

func (f *fixture) requireEmpty(t *testing.T) {
	t.Helper()
	require.Zero(t, f.ephemeral.Len())
	require.Zero(t, f.durable.Len())
}
