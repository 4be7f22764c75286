package storage

import (
	"context"
	"math/big"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type persisted struct {
	Connector string   `json:"connector"`
	ChainID   int64    `json:"chainId"`
	Balance   *big.Int `json:"balance"`
}

func backends(t *testing.T) map[string]Backend {
	t.Helper()
	dir := t.TempDir()
	fb, err := NewFileBackend(filepath.Join(dir, "files"))
	require.NoError(t, err)
	sb, err := NewSQLiteBackend(filepath.Join(dir, "kv.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sb.Close() })
	return map[string]Backend{
		"memory": NewMemoryBackend(),
		"file":   fb,
		"sqlite": sb,
	}
}

func TestStorageRoundTrip(t *testing.T) {
	ctx := context.Background()
	balance, _ := new(big.Int).SetString("123456789012345678901234567890", 10)

	for name, backend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := CreateStorage(Options{Backend: backend})

			var missing persisted
			ok, err := s.GetItem(ctx, KeyState, &missing)
			require.NoError(t, err)
			assert.False(t, ok)

			in := persisted{Connector: "mock", ChainID: 1, Balance: balance}
			require.NoError(t, s.SetItem(ctx, KeyState, in))

			var out persisted
			ok, err = s.GetItem(ctx, KeyState, &out)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, in.Connector, out.Connector)
			assert.Equal(t, 0, balance.Cmp(out.Balance))

			require.NoError(t, s.RemoveItem(ctx, KeyState))
			ok, err = s.GetItem(ctx, KeyState, &out)
			require.NoError(t, err)
			assert.False(t, ok)

			// removing twice is fine
			require.NoError(t, s.RemoveItem(ctx, KeyState))
		})
	}
}

func TestStorageKeyPrefix(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()

	require.NoError(t, CreateStorage(Options{Backend: backend}).SetItem(ctx, KeyWallet, "mock"))
	require.NoError(t, CreateStorage(Options{Backend: backend, Key: "other"}).SetItem(ctx, KeyWallet, "local"))

	v, ok, err := backend.GetItem(ctx, "walletkit.wallet")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `"mock"`, v)

	v, ok, err = backend.GetItem(ctx, "other.wallet")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `"local"`, v)
}

func TestStorageCorruptValueRemoved(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	require.NoError(t, backend.SetItem(ctx, "walletkit.connected", "{not json"))

	s := CreateStorage(Options{Backend: backend})
	var connected bool
	ok, err := s.GetItem(ctx, KeyConnected, &connected)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, backend.Len())
}

type fakeOlric struct {
	items  map[string]string
	closed bool
}

func (f *fakeOlric) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := f.items[key]
	return v, ok, nil
}

func (f *fakeOlric) Put(_ context.Context, key, value string) error {
	f.items[key] = value
	return nil
}

func (f *fakeOlric) Delete(_ context.Context, key string) error {
	delete(f.items, key)
	return nil
}

func (f *fakeOlric) Close(context.Context) error {
	f.closed = true
	return nil
}

func TestOlricBackendDelegates(t *testing.T) {
	ctx := context.Background()
	store := &fakeOlric{items: map[string]string{}}
	s := CreateStorage(Options{Backend: &OlricBackend{store: store}})

	require.NoError(t, s.SetItem(ctx, KeyConnected, true))
	assert.Equal(t, "true", store.items["walletkit.connected"])

	var connected bool
	ok, err := s.GetItem(ctx, KeyConnected, &connected)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, connected)

	require.NoError(t, s.Close())
	assert.True(t, store.closed)
}
