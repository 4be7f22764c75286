// Package olric wraps an Olric cluster client as a single-DMap string store.
package olric

import (
	"context"
	"errors"
	"fmt"
	"time"

	olriclib "github.com/olric-data/olric"
	"go.uber.org/zap"
)

const (
	defaultServer = "localhost:3320"
	defaultDMap   = "walletkit"
)

// Client wraps an Olric cluster client bound to one DMap.
type Client struct {
	client  olriclib.Client
	dmap    olriclib.DMap
	timeout time.Duration
	logger  *zap.Logger
}

// Config holds configuration for the Olric client
type Config struct {
	// Servers is a list of Olric server addresses (e.g., ["localhost:3320"]).
	// If empty, defaults to ["localhost:3320"].
	Servers []string

	// DMap is the distributed map name. Defaults to "walletkit".
	DMap string

	// Timeout bounds each operation. If zero, defaults to 10 seconds.
	Timeout time.Duration
}

// NewClient connects to the cluster and opens the configured DMap.
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	servers := cfg.Servers
	if len(servers) == 0 {
		servers = []string{defaultServer}
	}
	name := cfg.DMap
	if name == "" {
		name = defaultDMap
	}

	client, err := olriclib.NewClusterClient(servers)
	if err != nil {
		return nil, fmt.Errorf("failed to create Olric cluster client: %w", err)
	}

	dm, err := client.NewDMap(name)
	if err != nil {
		_ = client.Close(context.Background())
		return nil, fmt.Errorf("failed to open DMap %s: %w", name, err)
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	logger.Debug("Olric client ready", zap.Strings("servers", servers), zap.String("dmap", name))
	return &Client{client: client, dmap: dm, timeout: timeout, logger: logger}, nil
}

// Get returns the string stored under key. ok is false when the key is absent.
func (c *Client) Get(ctx context.Context, key string) (string, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	gr, err := c.dmap.Get(ctx, key)
	if err != nil {
		if errors.Is(err, olriclib.ErrKeyNotFound) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("olric get %s: %w", key, err)
	}
	val, err := gr.String()
	if err != nil {
		return "", false, fmt.Errorf("olric value decode %s: %w", key, err)
	}
	return val, true, nil
}

// Put stores value under key.
func (c *Client) Put(ctx context.Context, key, value string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := c.dmap.Put(ctx, key, value); err != nil {
		return fmt.Errorf("olric put %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (c *Client) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if _, err := c.dmap.Delete(ctx, key); err != nil {
		return fmt.Errorf("olric delete %s: %w", key, err)
	}
	return nil
}

// Health round-trips a probe key through the DMap.
func (c *Client) Health(ctx context.Context) error {
	testKey := fmt.Sprintf("_health_%d", time.Now().UnixNano())
	if err := c.Put(ctx, testKey, "ok"); err != nil {
		return fmt.Errorf("health check put failed: %w", err)
	}
	val, ok, err := c.Get(ctx, testKey)
	if err != nil {
		return fmt.Errorf("health check get failed: %w", err)
	}
	if !ok || val != "ok" {
		return fmt.Errorf("health check value mismatch: expected %q, got %q", "ok", val)
	}
	_ = c.Delete(ctx, testKey)
	return nil
}

// Close closes the Olric client connection
func (c *Client) Close(ctx context.Context) error {
	if c.client == nil {
		return nil
	}
	return c.client.Close(ctx)
}
