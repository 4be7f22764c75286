package query

import (
	"context"
	"sync"
	"time"

	"github.com/DeBrosOfficial/walletkit/pkg/errors"
)

const (
	// DefaultCacheTime is how long an entry outlives its last write.
	DefaultCacheTime = 24 * time.Hour
	// persistKey is the storage key the cache snapshot is written under.
	persistKey = "cache"
)

// Persister is the storage surface the cache snapshot is written to.
type Persister interface {
	GetItem(ctx context.Context, key string, out any) (bool, error)
	SetItem(ctx context.Context, key string, value any) error
}

// Entry is one cached result in serialized form.
type Entry struct {
	Data      string    `json:"data"`
	UpdatedAt time.Time `json:"updatedAt"`
	Stale     bool      `json:"stale,omitempty"`
}

// Client caches the last successful result per query key so new
// subscriptions for the same parameters start from known data.
type Client struct {
	mu         sync.RWMutex
	entries    map[string]Entry
	serializer Serializer
	staleTime  time.Duration
	cacheTime  time.Duration
	now        func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithSerializer sets a custom serialization strategy.
func WithSerializer(s Serializer) Option {
	return func(c *Client) {
		if s != nil {
			c.serializer = s
		}
	}
}

// WithStaleTime sets how long data counts as fresh. Zero means always stale.
func WithStaleTime(d time.Duration) Option {
	return func(c *Client) { c.staleTime = d }
}

// WithCacheTime sets how long entries are retained.
func WithCacheTime(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.cacheTime = d
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// NewClient creates an empty cache.
func NewClient(opts ...Option) *Client {
	c := &Client{
		entries:    make(map[string]Entry),
		serializer: JSONSerializer{},
		cacheTime:  DefaultCacheTime,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Serializer returns the cache's serialization strategy.
func (c *Client) Serializer() Serializer {
	return c.serializer
}

// Set stores data under key.
func (c *Client) Set(key string, data any) error {
	s, err := c.serializer.Serialize(data)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = Entry{Data: s, UpdatedAt: c.now()}
	return nil
}

// Get decodes the entry under key into out. fresh reports whether the entry
// is younger than the stale time and has not been invalidated.
func (c *Client) Get(key string, out any) (found, fresh bool, err error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return false, false, nil
	}
	if c.now().Sub(e.UpdatedAt) > c.cacheTime {
		c.Remove(key)
		return false, false, nil
	}
	if err := c.serializer.Deserialize(e.Data, out); err != nil {
		c.Remove(key)
		return false, false, err
	}
	fresh = !e.Stale && c.staleTime > 0 && c.now().Sub(e.UpdatedAt) < c.staleTime
	return true, fresh, nil
}

// Invalidate marks key stale so the next subscription refetches.
func (c *Client) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		e.Stale = true
		c.entries[key] = e
	}
}

// Remove deletes key.
func (c *Client) Remove(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Clear drops every entry.
func (c *Client) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]Entry)
}

// Len returns the number of entries.
func (c *Client) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// GC drops entries older than the cache time.
func (c *Client) GC() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for k, e := range c.entries {
		if c.now().Sub(e.UpdatedAt) > c.cacheTime {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}

// Persist writes a snapshot of the cache to p.
func (c *Client) Persist(ctx context.Context, p Persister) error {
	c.mu.RLock()
	snapshot := make(map[string]Entry, len(c.entries))
	for k, e := range c.entries {
		snapshot[k] = e
	}
	c.mu.RUnlock()
	if err := p.SetItem(ctx, persistKey, snapshot); err != nil {
		return errors.Wrap(err, "persist query cache")
	}
	return nil
}

// Restore loads a snapshot written by Persist, keeping entries that are
// still within the cache time. Existing entries win over restored ones.
func (c *Client) Restore(ctx context.Context, p Persister) (int, error) {
	var snapshot map[string]Entry
	ok, err := p.GetItem(ctx, persistKey, &snapshot)
	if err != nil {
		return 0, errors.Wrap(err, "restore query cache")
	}
	if !ok {
		return 0, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	restored := 0
	for k, e := range snapshot {
		if c.now().Sub(e.UpdatedAt) > c.cacheTime {
			continue
		}
		if _, exists := c.entries[k]; exists {
			continue
		}
		c.entries[k] = e
		restored++
	}
	return restored, nil
}
