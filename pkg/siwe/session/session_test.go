package session

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stores(t *testing.T) map[string]Store {
	t.Helper()
	sqlite, err := NewSQLite(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sqlite.Close() })
	return map[string]Store{"memory": NewMemory(), "sqlite": sqlite}
}

func TestStores(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			live := Session{ID: NewID(), Nonce: "abcdefgh123", ExpiresAt: time.Now().Add(time.Hour)}
			require.NoError(t, store.Save(ctx, live))

			got, ok, err := store.Get(ctx, live.ID)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, live.Nonce, got.Nonce)

			live.Address = "0x0000000000000000000000000000000000000001"
			live.Nonce = ""
			require.NoError(t, store.Save(ctx, live))
			got, _, err = store.Get(ctx, live.ID)
			require.NoError(t, err)
			assert.Equal(t, live.Address, got.Address)
			assert.Empty(t, got.Nonce)

			expired := Session{ID: NewID(), ExpiresAt: time.Now().Add(-time.Minute)}
			require.NoError(t, store.Save(ctx, expired))
			_, ok, err = store.Get(ctx, expired.ID)
			require.NoError(t, err)
			assert.False(t, ok)

			stale := Session{ID: NewID(), ExpiresAt: time.Now().Add(-time.Minute)}
			require.NoError(t, store.Save(ctx, stale))
			n, err := store.Purge(ctx)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, n, 1)

			require.NoError(t, store.Delete(ctx, live.ID))
			_, ok, err = store.Get(ctx, live.ID)
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}
