package config

import (
	"fmt"

	"github.com/DeBrosOfficial/walletkit/pkg/logging"
	"github.com/DeBrosOfficial/walletkit/pkg/olric"
	"github.com/DeBrosOfficial/walletkit/pkg/query"
	"github.com/DeBrosOfficial/walletkit/pkg/siwe/session"
	"github.com/DeBrosOfficial/walletkit/pkg/storage"
)

// OpenStorage builds the configured storage backend. The caller closes the
// returned Storage.
func (c *Config) OpenStorage(logger *logging.ColoredLogger) (*storage.Storage, error) {
	logger = logging.OrNop(logger)
	sc := c.Storage

	var backend storage.Backend
	switch sc.Backend {
	case "", "memory":
		backend = storage.NewMemoryBackend()
	case "file":
		b, err := storage.NewFileBackend(sc.Path)
		if err != nil {
			return nil, err
		}
		backend = b
	case "sqlite":
		b, err := storage.NewSQLiteBackend(sc.Path)
		if err != nil {
			return nil, err
		}
		backend = b
	case "olric":
		b, err := storage.NewOlricBackend(olric.Config{
			Servers: sc.OlricServers,
			DMap:    sc.OlricDMap,
			Timeout: sc.OlricTimeout,
		}, logger.Logger)
		if err != nil {
			return nil, err
		}
		backend = b
	default:
		return nil, fmt.Errorf("unknown storage backend %q", sc.Backend)
	}

	return storage.CreateStorage(storage.Options{
		Backend: backend,
		Key:     sc.KeyPrefix,
		Logger:  logger,
	}), nil
}

// NewQueryClient builds the result cache from the client section.
func (c *Config) NewQueryClient() *query.Client {
	return query.NewClient(
		query.WithStaleTime(c.Client.StaleTime),
		query.WithCacheTime(c.Client.CacheTime),
	)
}

// OpenSessionStore builds the SIWE session store.
func (c *Config) OpenSessionStore() (session.Store, error) {
	switch c.SIWE.SessionBackend {
	case "", "memory":
		return session.NewMemory(), nil
	case "sqlite":
		if c.SIWE.SessionPath == "" {
			return nil, fmt.Errorf("siwe.session_path is required for the sqlite session backend")
		}
		return session.NewSQLite(c.SIWE.SessionPath)
	default:
		return nil, fmt.Errorf("unknown session backend %q", c.SIWE.SessionBackend)
	}
}
