package data

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/gotd/td/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "sessions", "userbot.db")

	s, err := NewSessionStore(path, "userbot")
	require.NoError(t, err)

	_, err = s.LoadSession(ctx)
	assert.ErrorIs(t, err, session.ErrNotFound)

	require.NoError(t, s.StoreSession(ctx, []byte(`{"Version":1}`)))
	require.NoError(t, s.StoreSession(ctx, []byte(`{"Version":2}`)))
	require.NoError(t, s.SetUserID(ctx, 777))
	require.NoError(t, s.Close())

	// reopen to check persistence
	s, err = NewSessionStore(path, "userbot")
	require.NoError(t, err)
	defer s.Close()

	data, err := s.LoadSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, `{"Version":2}`, string(data))

	id, err := s.UserID(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(777), id)
}

func TestSessionStore_NamesAreIsolated(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "userbot.db")

	a, err := NewSessionStore(path, "a")
	require.NoError(t, err)
	defer a.Close()
	b, err := NewSessionStore(path, "b")
	require.NoError(t, err)
	defer b.Close()

	require.NoError(t, a.StoreSession(ctx, []byte("A")))

	_, err = b.LoadSession(ctx)
	assert.ErrorIs(t, err, session.ErrNotFound)

	require.NoError(t, a.Delete(ctx))
	_, err = a.LoadSession(ctx)
	assert.ErrorIs(t, err, session.ErrNotFound)

	id, err := a.UserID(ctx)
	require.NoError(t, err)
	assert.Zero(t, id)
}
