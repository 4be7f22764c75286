package hooks

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/DeBrosOfficial/walletkit/pkg/client"
	"github.com/DeBrosOfficial/walletkit/pkg/errors"
	"github.com/DeBrosOfficial/walletkit/pkg/logging"
	"github.com/DeBrosOfficial/walletkit/pkg/provider"
	"github.com/DeBrosOfficial/walletkit/pkg/query"
)

// QueryOptions are shared by every subscription hook.
type QueryOptions struct {
	// Disabled keeps the hook idle; no request is made.
	Disabled bool `json:"disabled,omitempty"`
	// Watch refetches on every new block of the hook's chain.
	Watch bool `json:"watch,omitempty"`
}

func (o QueryOptions) queryOptions() QueryOptions { return o }

func (o *QueryOptions) clearQueryOptions() { *o = QueryOptions{} }

// Args is implemented by every hook parameter struct through an embedded
// QueryOptions.
type Args interface {
	queryOptions() QueryOptions
}

// fingerprinter is implemented by parameters holding state that does not
// serialize, such as a contract ABI.
type fingerprinter interface {
	fingerprint() []string
}

// cacheKey identifies the data params select. Options only change how the
// hook fetches, so hooks that differ in options alone share cache entries.
func cacheKey[P Args](name string, params P) string {
	if o, ok := any(&params).(interface{ clearQueryOptions() }); ok {
		o.clearQueryOptions()
	}
	if f, ok := any(params).(fingerprinter); ok {
		return query.Key(name, params, f.fingerprint())
	}
	return query.Key(name, params)
}

// fetchSpec describes one subscription hook.
type fetchSpec[P Args, T any] struct {
	name  string
	fetch func(ctx context.Context, c *client.Client, p P) (T, error)
	// ready reports whether required parameters are present; nil means
	// always ready.
	ready func(p P) bool
	// chainID is the chain whose blocks drive Watch; zero means current.
	chainID func(p P) int64
	// onState refetches whenever the client state changes.
	onState bool
	// noCache disables seeding from and writing to the query cache, for
	// results that cannot round-trip through serialization.
	noCache bool
}

// Subscription is a live query: it fetches on creation, on parameter
// change, on Refetch, and (when configured) on new blocks or client state
// changes. Results of superseded requests are discarded.
type Subscription[P Args, T any] struct {
	spec    fetchSpec[P, T]
	client  *client.Client
	queries *query.Client
	logger  *logging.ColoredLogger

	mu      sync.Mutex
	params  P
	key     string
	result  Result[T]
	gen     uint64
	cancel  context.CancelFunc
	release []func()
	closed  bool
	updates latest[Result[T]]
}

func subscribe[P Args, T any](ctx context.Context, spec fetchSpec[P, T], params P) (*Subscription[P, T], error) {
	p, err := provider.FromContext(ctx)
	if err != nil {
		return nil, err
	}
	s := &Subscription[P, T]{
		spec:    spec,
		client:  p.Client(),
		queries: p.Queries(),
		logger:  p.Client().Logger(),
		updates: newLatest[Result[T]](),
	}
	s.client.Metrics().SubscriptionOpened(spec.name)

	s.mu.Lock()
	s.start(params)
	s.mu.Unlock()
	return s, nil
}

// Result returns the current state.
func (s *Subscription[P, T]) Result() Result[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// Updates delivers the newest result after every change. Unread
// intermediate results are dropped. The channel is closed by Close.
func (s *Subscription[P, T]) Updates() <-chan Result[T] {
	return s.updates.ch
}

// Params returns the current parameters.
func (s *Subscription[P, T]) Params() P {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.params
}

// Update switches to new parameters. Parameters equal by value to the
// current ones are a no-op.
func (s *Subscription[P, T]) Update(params P) {
	s.mu.Lock()
	if s.closed || (cacheKey(s.spec.name, params) == s.key && params.queryOptions() == s.params.queryOptions()) {
		s.mu.Unlock()
		return
	}
	release := s.stop()
	s.start(params)
	s.mu.Unlock()
	for _, fn := range release {
		fn()
	}
}

// Refetch starts a new request with the current parameters, superseding
// any in flight. It does nothing when the hook is disabled.
func (s *Subscription[P, T]) Refetch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || !s.enabled() {
		return
	}
	s.fetch()
}

// Close stops every watch resource. No update is delivered afterwards.
func (s *Subscription[P, T]) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	release := s.stop()
	s.updates.close()
	s.mu.Unlock()

	for _, fn := range release {
		fn()
	}
	s.client.Metrics().SubscriptionClosed(s.spec.name)
}

func (s *Subscription[P, T]) enabled() bool {
	if s.params.queryOptions().Disabled {
		return false
	}
	return s.spec.ready == nil || s.spec.ready(s.params)
}

// start installs params and begins fetching and watching. s.mu is held.
func (s *Subscription[P, T]) start(params P) {
	s.params = params
	s.key = cacheKey(s.spec.name, params)
	s.result = Result[T]{}

	if !s.enabled() {
		s.publish()
		return
	}

	fresh := false
	if !s.spec.noCache {
		var data T
		found, isFresh, err := s.queries.Get(s.key, &data)
		if err != nil {
			s.logger.ComponentDebug(logging.ComponentHooks, "Ignoring unreadable cache entry",
				zap.String("hook", s.spec.name), zap.Error(err))
		} else if found {
			s.result = Result[T]{Data: data, Status: StatusSuccess}
			fresh = isFresh
		}
	}

	if s.spec.onState {
		unsubscribe := s.client.Subscribe(func(_, _ client.State) { s.Refetch() })
		s.release = append(s.release, unsubscribe)
	}
	if params.queryOptions().Watch {
		s.watchBlocks()
	}

	if fresh {
		s.publish()
		return
	}
	s.fetch()
}

// stop cancels the in-flight request and hands back the watch releases,
// which the caller runs after unlocking. s.mu is held.
func (s *Subscription[P, T]) stop() []func() {
	s.gen++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	release := s.release
	s.release = nil
	return release
}

func (s *Subscription[P, T]) watchBlocks() {
	var chainID int64
	if s.spec.chainID != nil {
		chainID = s.spec.chainID(s.params)
	}
	blocks, release, err := s.client.WatchBlocks(chainID)
	if err != nil {
		s.result.Error = err
		s.result.Status = StatusError
		return
	}
	s.release = append(s.release, release)

	// a running watcher replays its latest block; the initial fetch covers it
	select {
	case <-blocks:
	default:
	}

	go func() {
		for range blocks {
			s.Refetch()
		}
	}()
}

// fetch starts a request tagged with a new generation. s.mu is held.
func (s *Subscription[P, T]) fetch() {
	if s.cancel != nil {
		s.cancel()
	}
	s.gen++
	gen := s.gen
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.result.IsFetching = true
	if s.result.Status != StatusSuccess {
		s.result.Status = StatusLoading
	}
	s.publish()

	params := s.params
	go func() {
		defer cancel()
		started := time.Now()
		data, err := s.spec.fetch(ctx, s.client, params)
		s.client.Metrics().ObserveFetch(s.spec.name, started, err)
		s.complete(gen, data, err)
	}()
}

func (s *Subscription[P, T]) complete(gen uint64, data T, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || gen != s.gen {
		return
	}
	s.cancel = nil
	s.result.IsFetching = false
	if err != nil {
		s.result.Error = errors.Normalize(err)
		s.result.Status = StatusError
		s.logger.ComponentDebug(logging.ComponentHooks, "Fetch failed",
			zap.String("hook", s.spec.name), zap.Error(err))
		s.publish()
		return
	}

	s.result.Data = data
	s.result.Error = nil
	s.result.Status = StatusSuccess
	s.result.UpdatedAt = time.Now()
	if !s.spec.noCache {
		if err := s.queries.Set(s.key, data); err != nil {
			s.logger.ComponentDebug(logging.ComponentHooks, "Result not cached",
				zap.String("hook", s.spec.name), zap.Error(err))
		}
	}
	s.publish()
}

// publish sends the current result. s.mu is held and s is not closed.
func (s *Subscription[P, T]) publish() {
	if s.closed {
		return
	}
	s.updates.put(s.result)
}
