package chains

import (
	"fmt"
	"sync"
	"time"

	"github.com/DeBrosOfficial/walletkit/pkg/errors"
)

// DefaultPollingInterval is the block polling interval used when no
// websocket client is available.
const DefaultPollingInterval = 4 * time.Second

// DialFunc builds a PublicClient for an endpoint URL.
type DialFunc func(url string) PublicClient

type configureOptions struct {
	pollingInterval time.Duration
	dial            DialFunc
}

// Option configures ConfigureChains.
type Option func(*configureOptions)

// WithPollingInterval sets the block polling interval.
func WithPollingInterval(d time.Duration) Option {
	return func(o *configureOptions) {
		if d > 0 {
			o.pollingInterval = d
		}
	}
}

// WithDialer overrides how endpoint URLs become PublicClients.
func WithDialer(dial DialFunc) Option {
	return func(o *configureOptions) {
		if dial != nil {
			o.dial = dial
		}
	}
}

// Configured holds the chains an application supports and one public client
// (plus an optional websocket client) per chain.
type Configured struct {
	Chains          []Chain
	PollingInterval time.Duration

	mu        sync.Mutex
	endpoints map[int64]ProviderConfig
	dial      DialFunc
	clients   map[int64]PublicClient
	wsClients map[int64]PublicClient
}

// ConfigureChains resolves endpoints for every chain from providers in order;
// the first provider serving a chain wins. A chain no provider serves is an
// error. Clients are created lazily.
func ConfigureChains(list []Chain, providers []ProviderFunc, opts ...Option) (*Configured, error) {
	if len(list) == 0 {
		return nil, errors.NewValidationError("chains", "at least one chain is required", nil)
	}
	if len(providers) == 0 {
		return nil, errors.NewValidationError("providers", "at least one provider is required", nil)
	}

	o := configureOptions{pollingInterval: DefaultPollingInterval, dial: NewPublicClient}
	for _, opt := range opts {
		opt(&o)
	}

	c := &Configured{
		Chains:          append([]Chain(nil), list...),
		PollingInterval: o.pollingInterval,
		endpoints:       make(map[int64]ProviderConfig, len(list)),
		dial:            o.dial,
		clients:         make(map[int64]PublicClient),
		wsClients:       make(map[int64]PublicClient),
	}

	for _, chain := range list {
		var resolved bool
		for _, p := range providers {
			if cfg, ok := p(chain); ok {
				c.endpoints[chain.ID] = cfg
				resolved = true
				break
			}
		}
		if !resolved {
			return nil, fmt.Errorf("could not find a provider for chain %d (%s): %w",
				chain.ID, chain.Name, errors.NewProviderNotFoundError())
		}
	}

	return c, nil
}

// Chain returns the configured chain with id.
func (c *Configured) Chain(id int64) (Chain, bool) {
	return Find(c.Chains, id)
}

// Endpoint returns the resolved endpoints for a chain.
func (c *Configured) Endpoint(id int64) (ProviderConfig, bool) {
	cfg, ok := c.endpoints[id]
	return cfg, ok
}

// PublicClient returns the HTTP client for chainID.
func (c *Configured) PublicClient(chainID int64) (PublicClient, error) {
	cfg, ok := c.endpoints[chainID]
	if !ok {
		return nil, errors.NewChainNotConfiguredError(chainID, "")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if pc, ok := c.clients[chainID]; ok {
		return pc, nil
	}
	pc := c.dial(cfg.HTTP)
	c.clients[chainID] = pc
	return pc, nil
}

// WebSocketPublicClient returns the websocket client for chainID when the
// provider supplied a websocket endpoint.
func (c *Configured) WebSocketPublicClient(chainID int64) (PublicClient, bool) {
	cfg, ok := c.endpoints[chainID]
	if !ok || cfg.WebSocket == "" {
		return nil, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if pc, ok := c.wsClients[chainID]; ok {
		return pc, true
	}
	pc := c.dial(cfg.WebSocket)
	c.wsClients[chainID] = pc
	return pc, true
}

// Close closes every client created so far.
func (c *Configured) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, pc := range c.clients {
		pc.Close()
		delete(c.clients, id)
	}
	for id, pc := range c.wsClients {
		pc.Close()
		delete(c.wsClients, id)
	}
}
