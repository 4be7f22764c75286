package client

import (
	"context"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/DeBrosOfficial/walletkit/pkg/chains"
	"github.com/DeBrosOfficial/walletkit/pkg/errors"
	"github.com/DeBrosOfficial/walletkit/pkg/logging"
)

// blockWatchers shares one block source per chain among any number of
// listeners. The source starts with the first listener and stops with the
// last.
type blockWatchers struct {
	c *Client

	mu       sync.Mutex
	watchers map[int64]*blockWatcher
	closed   bool
}

type blockWatcher struct {
	chainID   int64
	cancel    context.CancelFunc
	listeners map[uint64]chan uint64
	nextID    uint64
	last      uint64
	hasLast   bool
}

func newBlockWatchers(c *Client) *blockWatchers {
	return &blockWatchers{c: c, watchers: make(map[int64]*blockWatcher)}
}

// WatchBlocks delivers new block numbers of chainID (zero means the current
// chain). The channel holds only the latest number and is closed by the
// returned release func, which is safe to call more than once.
func (c *Client) WatchBlocks(chainID int64) (<-chan uint64, func(), error) {
	if chainID == 0 {
		chainID = c.State().ChainID
	}
	if _, err := c.chains.PublicClient(chainID); err != nil {
		return nil, nil, err
	}
	return c.blocks.add(chainID)
}

// BlockListeners returns the number of listeners attached for chainID.
func (c *Client) BlockListeners(chainID int64) int {
	c.blocks.mu.Lock()
	defer c.blocks.mu.Unlock()
	if w, ok := c.blocks.watchers[chainID]; ok {
		return len(w.listeners)
	}
	return 0
}

func (b *blockWatchers) add(chainID int64) (<-chan uint64, func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, nil, errors.Wrap(errors.ErrClosed, "client")
	}

	w, ok := b.watchers[chainID]
	if !ok {
		ctx, cancel := context.WithCancel(context.Background())
		w = &blockWatcher{chainID: chainID, cancel: cancel, listeners: make(map[uint64]chan uint64)}
		b.watchers[chainID] = w
		go b.run(ctx, w)
		b.c.logger.ComponentDebug(logging.ComponentClient, "Block watcher started", zap.Int64("chain_id", chainID))
	}

	id := w.nextID
	w.nextID++
	ch := make(chan uint64, 1)
	w.listeners[id] = ch
	if w.hasLast {
		ch <- w.last
	}
	b.c.metrics.BlockListenerAdded()

	var once sync.Once
	release := func() {
		once.Do(func() { b.remove(w, id) })
	}
	return ch, release, nil
}

func (b *blockWatchers) remove(w *blockWatcher, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch, ok := w.listeners[id]
	if !ok {
		return
	}
	delete(w.listeners, id)
	close(ch)
	b.c.metrics.BlockListenerRemoved()

	if len(w.listeners) == 0 {
		w.cancel()
		if b.watchers[w.chainID] == w {
			delete(b.watchers, w.chainID)
		}
		b.c.logger.ComponentDebug(logging.ComponentClient, "Block watcher stopped", zap.Int64("chain_id", w.chainID))
	}
}

func (b *blockWatchers) closeAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	for chainID, w := range b.watchers {
		w.cancel()
		for id, ch := range w.listeners {
			close(ch)
			delete(w.listeners, id)
			b.c.metrics.BlockListenerRemoved()
		}
		delete(b.watchers, chainID)
	}
}

func (b *blockWatchers) publish(w *blockWatcher, n uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if w.hasLast && w.last == n {
		return
	}
	w.last = n
	w.hasLast = true
	for _, ch := range w.listeners {
		// keep only the newest number
		select {
		case <-ch:
		default:
		}
		ch <- n
	}
}

// run prefers a newHeads subscription when a websocket client exists and
// falls back to polling BlockNumber.
func (b *blockWatchers) run(ctx context.Context, w *blockWatcher) {
	if ws, ok := b.c.chains.WebSocketPublicClient(w.chainID); ok {
		err := b.subscribe(ctx, w, ws)
		if err == nil {
			return
		}
		b.c.logger.ComponentDebug(logging.ComponentClient, "newHeads subscription unavailable, polling",
			zap.Int64("chain_id", w.chainID), zap.Error(err))
	}
	b.poll(ctx, w)
}

// subscribe returns nil when ctx ends and an error when the subscription
// could not be made or failed.
func (b *blockWatchers) subscribe(ctx context.Context, w *blockWatcher, ws chains.PublicClient) error {
	heads := make(chan *types.Header, 16)
	sub, err := ws.SubscribeNewHead(ctx, heads)
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-sub.Err():
			if ctx.Err() != nil {
				return nil
			}
			return err
		case h := <-heads:
			if h != nil && h.Number != nil {
				b.publish(w, h.Number.Uint64())
			}
		}
	}
}

func (b *blockWatchers) poll(ctx context.Context, w *blockWatcher) {
	interval := b.c.PollingInterval()
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		pc, err := b.c.chains.PublicClient(w.chainID)
		if err == nil {
			var n uint64
			n, err = pc.BlockNumber(ctx)
			if err == nil {
				b.publish(w, n)
			}
		}
		if err != nil && ctx.Err() == nil {
			b.c.logger.ComponentDebug(logging.ComponentClient, "Block poll failed",
				zap.Int64("chain_id", w.chainID), zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
