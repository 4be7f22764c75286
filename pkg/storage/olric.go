package storage

import (
	"context"

	"github.com/DeBrosOfficial/walletkit/pkg/olric"
	"go.uber.org/zap"
)

// olricStore is the subset of *olric.Client the backend uses.
type olricStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Put(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Close(ctx context.Context) error
}

// OlricBackend stores items in an Olric distributed map, so several
// processes share one client state.
type OlricBackend struct {
	store olricStore
}

// NewOlricBackend connects to the Olric cluster described by cfg.
func NewOlricBackend(cfg olric.Config, logger *zap.Logger) (*OlricBackend, error) {
	c, err := olric.NewClient(cfg, logger)
	if err != nil {
		return nil, err
	}
	return &OlricBackend{store: c}, nil
}

func (o *OlricBackend) GetItem(ctx context.Context, key string) (string, bool, error) {
	return o.store.Get(ctx, key)
}

func (o *OlricBackend) SetItem(ctx context.Context, key, value string) error {
	return o.store.Put(ctx, key, value)
}

func (o *OlricBackend) RemoveItem(ctx context.Context, key string) error {
	return o.store.Delete(ctx, key)
}

// Close closes the cluster client.
func (o *OlricBackend) Close() error {
	return o.store.Close(context.Background())
}
