// Package client implements the client handle: the configured pairing of
// chain RPC endpoints with at most one active wallet connector.
package client

import (
	"context"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DeBrosOfficial/walletkit/pkg/chains"
	"github.com/DeBrosOfficial/walletkit/pkg/connectors"
	"github.com/DeBrosOfficial/walletkit/pkg/errors"
	"github.com/DeBrosOfficial/walletkit/pkg/logging"
	"github.com/DeBrosOfficial/walletkit/pkg/metrics"
	"github.com/DeBrosOfficial/walletkit/pkg/storage"
)

// Listener receives every state transition, in order.
type Listener func(state, prev State)

// Client is the handle shared by every hook bound to a Provider. Its
// identity is the pointer; it is created once and closed at shutdown.
type Client struct {
	autoConnect bool
	connectors  []connectors.Connector
	chains      *chains.Configured
	storage     *storage.Storage
	ens         ENSResolver
	logger      *logging.ColoredLogger
	metrics     *metrics.Metrics

	mu        sync.RWMutex
	state     State
	active    connectors.Connector
	pending   connectors.Connector
	stopEvent chan struct{}
	closed    bool

	listenersMu sync.RWMutex
	listeners   map[string]Listener
	order       []string
	notifyMu    sync.Mutex

	blocks *blockWatchers
}

// New builds a Client from cfg. No network calls are made.
func New(cfg *Config) (*Client, error) {
	if err := cfg.validate(); err != nil {
		return nil, errors.NewValidationError("client", err.Error(), nil)
	}
	logger := logging.OrNop(cfg.Logger)
	store := cfg.Storage
	if store == nil {
		store = storage.CreateStorage(storage.Options{Logger: logger})
	}

	c := &Client{
		autoConnect: cfg.AutoConnect,
		connectors:  append([]connectors.Connector(nil), cfg.Connectors...),
		chains:      cfg.Chains,
		storage:     store,
		ens:         cfg.ENS,
		logger:      logger,
		metrics:     cfg.Metrics,
		listeners:   make(map[string]Listener),
	}
	c.state = State{Status: StatusDisconnected, ChainID: cfg.Chains.Chains[0].ID}
	c.blocks = newBlockWatchers(c)
	return c, nil
}

// State returns the current connection snapshot.
func (c *Client) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// AutoConnectEnabled reports the configured auto-connect preference.
func (c *Client) AutoConnectEnabled() bool { return c.autoConnect }

// Connectors returns the registered connectors.
func (c *Client) Connectors() []connectors.Connector {
	return append([]connectors.Connector(nil), c.connectors...)
}

// Connector returns the registered connector with id.
func (c *Client) Connector(id string) (connectors.Connector, error) {
	for _, conn := range c.connectors {
		if conn.ID() == id {
			return conn, nil
		}
	}
	return nil, errors.NewConnectorNotFoundError(id)
}

// ActiveConnector returns the connected connector, or nil.
func (c *Client) ActiveConnector() connectors.Connector {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.active
}

// Chains returns the configured chains.
func (c *Client) Chains() []chains.Chain {
	return append([]chains.Chain(nil), c.chains.Chains...)
}

// Chain returns the configured chain with id.
func (c *Client) Chain(id int64) (chains.Chain, bool) {
	return c.chains.Chain(id)
}

// Storage returns the persisted-state storage.
func (c *Client) Storage() *storage.Storage { return c.storage }

// ENS returns the configured resolver, or nil.
func (c *Client) ENS() ENSResolver { return c.ens }

// Logger returns the client's logger. It is never nil.
func (c *Client) Logger() *logging.ColoredLogger { return c.logger }

// Metrics returns the client's collectors. It may be nil.
func (c *Client) Metrics() *metrics.Metrics { return c.metrics }

// PublicClient returns the RPC client for chainID; zero means the current
// chain.
func (c *Client) PublicClient(chainID int64) (chains.PublicClient, error) {
	if chainID == 0 {
		chainID = c.State().ChainID
	}
	return c.chains.PublicClient(chainID)
}

// WebSocketPublicClient returns the websocket RPC client for chainID when
// one is configured.
func (c *Client) WebSocketPublicClient(chainID int64) (chains.PublicClient, bool) {
	if chainID == 0 {
		chainID = c.State().ChainID
	}
	return c.chains.WebSocketPublicClient(chainID)
}

// PollingInterval is the block polling period for watchers.
func (c *Client) PollingInterval() time.Duration {
	return c.chains.PollingInterval
}

// Subscribe registers l for state transitions and returns its cancel func.
// Listeners run synchronously on the goroutine that changed the state and
// must not call Connect, Disconnect or SwitchChain.
func (c *Client) Subscribe(l Listener) func() {
	id := uuid.NewString()
	c.listenersMu.Lock()
	c.listeners[id] = l
	c.order = append(c.order, id)
	c.listenersMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.listenersMu.Lock()
			defer c.listenersMu.Unlock()
			delete(c.listeners, id)
			for i, v := range c.order {
				if v == id {
					c.order = append(c.order[:i], c.order[i+1:]...)
					break
				}
			}
		})
	}
}

// setState applies fn under the state lock and notifies listeners when the
// state changed.
func (c *Client) setState(fn func(s *State)) {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	prev := c.state
	fn(&c.state)
	next := c.state
	c.mu.Unlock()

	if next == prev {
		return
	}

	c.listenersMu.RLock()
	ls := make([]Listener, 0, len(c.order))
	for _, id := range c.order {
		ls = append(ls, c.listeners[id])
	}
	c.listenersMu.RUnlock()
	for _, l := range ls {
		l(next, prev)
	}
}

// Connect activates connector. It fails with ConnectorAlreadyConnected when
// any connector is active or connecting; the existing connection is kept.
func (c *Client) Connect(ctx context.Context, connector connectors.Connector, chainID int64) (connectors.ConnectResult, error) {
	if connector == nil {
		return connectors.ConnectResult{}, errors.NewConnectorNotFoundError("")
	}
	if err := c.reserve(connector); err != nil {
		return connectors.ConnectResult{}, err
	}
	c.setState(func(s *State) { s.Status = StatusConnecting })
	return c.activate(ctx, connector, chainID)
}

func (c *Client) reserve(connector connectors.Connector) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.Wrap(errors.ErrClosed, "client")
	}
	if c.active != nil {
		return errors.NewConnectorAlreadyConnectedError(c.active.ID())
	}
	if c.pending != nil {
		return errors.NewConnectorAlreadyConnectedError(c.pending.ID())
	}
	c.pending = connector
	return nil
}

// activate runs connector.Connect for a reserved connector and commits the
// result.
func (c *Client) activate(ctx context.Context, connector connectors.Connector, chainID int64) (connectors.ConnectResult, error) {
	res, err := connector.Connect(ctx, connectors.ConnectOptions{ChainID: chainID})
	if err != nil {
		c.mu.Lock()
		c.pending = nil
		c.mu.Unlock()
		c.setState(func(s *State) {
			s.Status = StatusDisconnected
			s.Account = common.Address{}
			s.Connector = ""
		})
		c.logger.ComponentWarn(logging.ComponentClient, "Connect failed",
			zap.String("connector", connector.ID()), zap.Error(err))
		return connectors.ConnectResult{}, errors.Normalize(err)
	}

	stop := make(chan struct{})
	c.mu.Lock()
	c.pending = nil
	c.active = connector
	c.stopEvent = stop
	c.mu.Unlock()

	drainEvents(connector)
	go c.watchConnector(connector, stop)

	c.setState(func(s *State) {
		s.Status = StatusConnected
		s.Account = res.Account
		s.ChainID = res.ChainID
		s.Connector = connector.ID()
	})
	c.persist(ctx, true)

	c.logger.ComponentInfo(logging.ComponentClient, "Connected",
		zap.String("connector", connector.ID()),
		zap.String("account", res.Account.Hex()),
		zap.Int64("chain_id", res.ChainID))
	return res, nil
}

// Disconnect deactivates the active connector. It is a no-op when nothing
// is connected.
func (c *Client) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	active := c.active
	stop := c.stopEvent
	c.active = nil
	c.stopEvent = nil
	if active != nil {
		// the slot stays reserved until the disconnected state is committed
		c.pending = active
	}
	c.mu.Unlock()

	if active == nil {
		return nil
	}
	if stop != nil {
		close(stop)
	}

	err := active.Disconnect(ctx)
	c.reset()
	c.persist(ctx, false)

	c.mu.Lock()
	if c.pending == active {
		c.pending = nil
	}
	c.mu.Unlock()

	c.logger.ComponentInfo(logging.ComponentClient, "Disconnected", zap.String("connector", active.ID()))
	if err != nil {
		return errors.Normalize(err)
	}
	return nil
}

func (c *Client) reset() {
	c.setState(func(s *State) {
		s.Status = StatusDisconnected
		s.Account = common.Address{}
		s.Connector = ""
	})
}

// SwitchChain asks the active connector to change chains.
func (c *Client) SwitchChain(ctx context.Context, chainID int64) (chains.Chain, error) {
	active := c.ActiveConnector()
	if active == nil {
		return chains.Chain{}, errors.NewConnectorNotFoundError("")
	}
	switcher, ok := active.(connectors.ChainSwitcher)
	if !ok {
		return chains.Chain{}, errors.NewSwitchChainNotSupportedError(active.ID())
	}
	if _, ok := c.chains.Chain(chainID); !ok {
		return chains.Chain{}, errors.NewChainNotConfiguredError(chainID, active.ID())
	}
	chain, err := switcher.SwitchChain(ctx, chainID)
	if err != nil {
		return chains.Chain{}, errors.Normalize(err)
	}
	c.setState(func(s *State) { s.ChainID = chain.ID })
	c.persist(ctx, true)
	return chain, nil
}

// AutoConnect restores the last connection when storage says the client was
// connected. The last used connector is tried first; a connector is only
// activated when it is ready and already authorized. It reports whether a
// connection was made.
func (c *Client) AutoConnect(ctx context.Context) (bool, error) {
	var connected bool
	if ok, err := c.storage.GetItem(ctx, storage.KeyConnected, &connected); err != nil {
		return false, err
	} else if !ok || !connected {
		return false, nil
	}
	var last string
	if _, err := c.storage.GetItem(ctx, storage.KeyWallet, &last); err != nil {
		return false, err
	}

	ordered := make([]connectors.Connector, 0, len(c.connectors))
	for _, conn := range c.connectors {
		if conn.ID() == last {
			ordered = append([]connectors.Connector{conn}, ordered...)
		} else {
			ordered = append(ordered, conn)
		}
	}

	for _, conn := range ordered {
		if !conn.Ready() || !conn.IsAuthorized(ctx) {
			continue
		}
		if err := c.reserve(conn); err != nil {
			return false, err
		}
		c.setState(func(s *State) { s.Status = StatusReconnecting })
		if _, err := c.activate(ctx, conn, 0); err != nil {
			c.logger.ComponentDebug(logging.ComponentClient, "Auto-connect attempt failed",
				zap.String("connector", conn.ID()), zap.Error(err))
			continue
		}
		return true, nil
	}

	c.reset()
	return false, nil
}

func (c *Client) persist(ctx context.Context, connected bool) {
	state := c.State()
	if err := c.storage.SetItem(ctx, storage.KeyConnected, connected); err != nil {
		c.logger.ComponentWarn(logging.ComponentClient, "Failed to persist connection flag", zap.Error(err))
	}
	if !connected {
		if err := c.storage.RemoveItem(ctx, storage.KeyWallet); err != nil {
			c.logger.ComponentWarn(logging.ComponentClient, "Failed to clear last connector", zap.Error(err))
		}
		return
	}
	if err := c.storage.SetItem(ctx, storage.KeyWallet, state.Connector); err != nil {
		c.logger.ComponentWarn(logging.ComponentClient, "Failed to persist last connector", zap.Error(err))
	}
	if err := c.storage.SetItem(ctx, storage.KeyState, persistedState{
		Connector: state.Connector,
		Account:   state.Account,
		ChainID:   state.ChainID,
	}); err != nil {
		c.logger.ComponentWarn(logging.ComponentClient, "Failed to persist state", zap.Error(err))
	}
}

// Close stops block watchers and connector event handling and closes the
// RPC clients. The persisted connection is kept for the next AutoConnect.
func (c *Client) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	if c.stopEvent != nil {
		close(c.stopEvent)
		c.stopEvent = nil
	}
	c.mu.Unlock()

	c.blocks.closeAll()
	c.chains.Close()
	c.logger.ComponentInfo(logging.ComponentClient, "Client closed")
}
