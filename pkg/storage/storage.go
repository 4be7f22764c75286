package storage

import (
	"context"
	"io"

	"github.com/DeBrosOfficial/walletkit/pkg/errors"
	"github.com/DeBrosOfficial/walletkit/pkg/logging"
	"github.com/DeBrosOfficial/walletkit/pkg/query"
	"go.uber.org/zap"
)

// DefaultKeyPrefix namespaces every key written by a Storage.
const DefaultKeyPrefix = "walletkit"

// Well-known keys written by the client.
const (
	KeyConnected = "connected"
	KeyWallet    = "wallet"
	KeyState     = "store"
)

// Options configures CreateStorage.
type Options struct {
	Backend    Backend          // defaults to a MemoryBackend
	Key        string           // key prefix, defaults to DefaultKeyPrefix
	Serializer query.Serializer // defaults to query.JSONSerializer
	Logger     *logging.ColoredLogger
}

// Storage serializes values into a Backend under prefixed keys.
type Storage struct {
	backend    Backend
	prefix     string
	serializer query.Serializer
	logger     *logging.ColoredLogger
}

// CreateStorage builds a Storage from opts.
func CreateStorage(opts Options) *Storage {
	s := &Storage{
		backend:    opts.Backend,
		prefix:     opts.Key,
		serializer: opts.Serializer,
		logger:     logging.OrNop(opts.Logger),
	}
	if s.backend == nil {
		s.backend = NewMemoryBackend()
	}
	if s.prefix == "" {
		s.prefix = DefaultKeyPrefix
	}
	if s.serializer == nil {
		s.serializer = query.JSONSerializer{}
	}
	return s
}

func (s *Storage) key(key string) string {
	return s.prefix + "." + key
}

// GetItem decodes the value under key into out. It reports false when the key
// is absent. A value that no longer decodes is removed and reported absent.
func (s *Storage) GetItem(ctx context.Context, key string, out any) (bool, error) {
	raw, ok, err := s.backend.GetItem(ctx, s.key(key))
	if err != nil {
		return false, errors.NewStorageError("get", err)
	}
	if !ok {
		return false, nil
	}
	if err := s.serializer.Deserialize(raw, out); err != nil {
		s.logger.ComponentWarn(logging.ComponentStorage, "Dropping corrupt stored value",
			zap.String("key", s.key(key)), zap.Error(err))
		_ = s.backend.RemoveItem(ctx, s.key(key))
		return false, nil
	}
	return true, nil
}

// SetItem serializes value and stores it under key.
func (s *Storage) SetItem(ctx context.Context, key string, value any) error {
	raw, err := s.serializer.Serialize(value)
	if err != nil {
		return errors.NewStorageError("serialize", err)
	}
	if err := s.backend.SetItem(ctx, s.key(key), raw); err != nil {
		return errors.NewStorageError("set", err)
	}
	return nil
}

// RemoveItem deletes key.
func (s *Storage) RemoveItem(ctx context.Context, key string) error {
	if err := s.backend.RemoveItem(ctx, s.key(key)); err != nil {
		return errors.NewStorageError("remove", err)
	}
	return nil
}

// Close releases the backend when it holds resources.
func (s *Storage) Close() error {
	if c, ok := s.backend.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
