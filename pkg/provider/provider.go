// Package provider makes a Client and its query cache available to hooks
// through context.Context.
package provider

import (
	"context"

	"go.uber.org/zap"

	"github.com/DeBrosOfficial/walletkit/pkg/client"
	"github.com/DeBrosOfficial/walletkit/pkg/errors"
	"github.com/DeBrosOfficial/walletkit/pkg/logging"
	"github.com/DeBrosOfficial/walletkit/pkg/query"
)

// Provider pairs a Client with the query cache shared by hooks.
type Provider struct {
	client  *client.Client
	queries *query.Client
}

type options struct {
	queries    *query.Client
	serializer query.Serializer
}

// Option configures New.
type Option func(*options)

// WithQueryClient uses q instead of a fresh cache.
func WithQueryClient(q *query.Client) Option {
	return func(o *options) { o.queries = q }
}

// WithSerializer sets the serializer of the default cache. It is ignored
// when WithQueryClient is given.
func WithSerializer(s query.Serializer) Option {
	return func(o *options) { o.serializer = s }
}

// New creates a Provider. It makes no network calls.
func New(c *client.Client, opts ...Option) (*Provider, error) {
	if c == nil {
		return nil, errors.NewClientNotFoundError()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.queries == nil {
		o.queries = query.NewClient(query.WithSerializer(o.serializer))
	}
	return &Provider{client: c, queries: o.queries}, nil
}

// Client returns the wrapped client.
func (p *Provider) Client() *client.Client { return p.client }

// Queries returns the shared query cache.
func (p *Provider) Queries() *query.Client { return p.queries }

// Persist writes the query cache to the client's storage.
func (p *Provider) Persist(ctx context.Context) error {
	if err := p.queries.Persist(ctx, p.client.Storage()); err != nil {
		return err
	}
	p.client.Logger().ComponentDebug(logging.ComponentQuery, "Query cache persisted",
		zap.Int("entries", p.queries.Len()))
	return nil
}

// Restore loads a cache snapshot from the client's storage.
func (p *Provider) Restore(ctx context.Context) (int, error) {
	n, err := p.queries.Restore(ctx, p.client.Storage())
	if err != nil {
		return 0, err
	}
	p.client.Logger().ComponentDebug(logging.ComponentQuery, "Query cache restored", zap.Int("entries", n))
	return n, nil
}

type contextKey struct{}

// NewContext returns a context carrying p. A nested NewContext shadows p for
// the derived context only.
func NewContext(parent context.Context, p *Provider) context.Context {
	return context.WithValue(parent, contextKey{}, p)
}

// FromContext returns the nearest Provider installed in ctx. It fails with a
// KindClientNotFound error when there is none.
func FromContext(ctx context.Context) (*Provider, error) {
	if ctx == nil {
		return nil, errors.NewClientNotFoundError()
	}
	p, ok := ctx.Value(contextKey{}).(*Provider)
	if !ok || p == nil {
		return nil, errors.NewClientNotFoundError()
	}
	return p, nil
}
