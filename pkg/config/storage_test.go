package config

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenStorageBackends(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		backend string
		path    string
		wantErr bool
	}{
		{name: "memory", backend: "memory"},
		{name: "file", backend: "file", path: filepath.Join(dir, "state")},
		{name: "sqlite", backend: "sqlite", path: filepath.Join(dir, "state.db")},
		{name: "unknown", backend: "redis", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Storage.Backend = tt.backend
			cfg.Storage.Path = tt.path

			st, err := cfg.OpenStorage(nil)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			defer st.Close()

			ctx := context.Background()
			require.NoError(t, st.SetItem(ctx, "wallet", "mock"))
			var got string
			ok, err := st.GetItem(ctx, "wallet", &got)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "mock", got)
		})
	}
}

func TestOpenSessionStore(t *testing.T) {
	cfg := DefaultConfig()
	st, err := cfg.OpenSessionStore()
	require.NoError(t, err)
	require.NoError(t, st.Close())

	cfg.SIWE.SessionBackend = "sqlite"
	_, err = cfg.OpenSessionStore()
	assert.Error(t, err)

	cfg.SIWE.SessionPath = filepath.Join(t.TempDir(), "sessions.db")
	st, err = cfg.OpenSessionStore()
	require.NoError(t, err)
	require.NoError(t, st.Close())

	cfg.SIWE.SessionBackend = "bolt"
	_, err = cfg.OpenSessionStore()
	assert.Error(t, err)
}
