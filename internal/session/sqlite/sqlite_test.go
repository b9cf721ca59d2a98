package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/joonyo2/yugwan/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBackend(t *testing.T, dsn, namespace string) *Backend {
	t.Helper()
	backend, err := NewBackend(dsn, namespace)
	require.NoError(t, err)
	t.Cleanup(func() { _ = backend.Close() })
	return backend
}

func TestBackend_GetSetDelete(t *testing.T) {
	ctx := context.Background()
	backend := newTestBackend(t, filepath.Join(t.TempDir(), "session.db"), "")

	_, ok, err := backend.Get(ctx, session.AccessTokenKey)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, backend.Set(ctx, session.AccessTokenKey, "A1"))
	require.NoError(t, backend.Set(ctx, session.AccessTokenKey, "A2"))

	value, ok, err := backend.Get(ctx, session.AccessTokenKey)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "A2", value)

	require.NoError(t, backend.Delete(ctx, session.AccessTokenKey, session.RefreshTokenKey))
	_, ok, err = backend.Get(ctx, session.AccessTokenKey)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBackend_StoreRoundTripAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "session.db")

	first, err := NewBackend(dsn, "device-1")
	require.NoError(t, err)
	require.NoError(t, session.NewStore(first).Set(ctx, "A1", "R1"))
	require.NoError(t, first.Close())

	// reopening re-runs migrations as a no-op and sees the persisted pair
	second := newTestBackend(t, dsn, "device-1")
	sess, err := session.NewStore(second).Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, session.Session{AccessToken: "A1", RefreshToken: "R1"}, sess)
	assert.NoError(t, second.Ping(ctx))
}

func TestBackend_NamespacesAreIsolated(t *testing.T) {
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "session.db")

	alice := session.NewStore(newTestBackend(t, dsn, "alice"))
	require.NoError(t, alice.Set(ctx, "A-alice", "R-alice"))

	bob := session.NewStore(newTestBackend(t, dsn, "bob"))
	sess, err := bob.Get(ctx)
	require.NoError(t, err)
	assert.False(t, sess.Authenticated())

	require.NoError(t, bob.Set(ctx, "A-bob", "R-bob"))
	require.NoError(t, bob.Clear(ctx))

	sess, err = alice.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "A-alice", sess.AccessToken)
}

func TestBackend_ErrorsCarryContext(t *testing.T) {
	backend := newTestBackend(t, filepath.Join(t.TempDir(), "session.db"), "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := backend.Get(ctx, session.AccessTokenKey)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, err.Error(), "failed to read access_token")

	err = backend.Set(ctx, session.AccessTokenKey, "A1")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, err.Error(), "failed to write access_token")

	err = backend.Delete(ctx, session.AccessTokenKey)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, err.Error(), "failed to begin transaction")
}
