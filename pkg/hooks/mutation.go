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
)

// Policy decides what a Mutation does with a call made while another is
// still pending.
type Policy int

const (
	// Supersede runs every call; the observable state follows the latest.
	Supersede Policy = iota
	// RejectWhilePending fails a second call with KindActionPending.
	RejectWhilePending
)

type mutationOptions struct {
	policy Policy
}

// MutationOption configures an action hook.
type MutationOption func(*mutationOptions)

// WithPolicy sets the pending-call policy.
func WithPolicy(p Policy) MutationOption {
	return func(o *mutationOptions) { o.policy = p }
}

// Mutation is an action hook. Creating it triggers nothing; each Mutate
// call runs the action once.
type Mutation[A any, T any] struct {
	name   string
	run    func(ctx context.Context, c *client.Client, args A) (T, error)
	client *client.Client
	logger *logging.ColoredLogger
	policy Policy

	mu      sync.Mutex
	result  Result[T]
	gen     uint64
	pending int
	closed  bool
	updates latest[Result[T]]
}

func newMutation[A any, T any](ctx context.Context, name string, run func(context.Context, *client.Client, A) (T, error), opts []MutationOption) (*Mutation[A, T], error) {
	p, err := provider.FromContext(ctx)
	if err != nil {
		return nil, err
	}
	var o mutationOptions
	for _, opt := range opts {
		opt(&o)
	}
	return &Mutation[A, T]{
		name:    name,
		run:     run,
		client:  p.Client(),
		logger:  p.Client().Logger(),
		policy:  o.policy,
		updates: newLatest[Result[T]](),
	}, nil
}

// Mutate runs the action and returns its own outcome, whatever later calls
// do to the observable state.
func (m *Mutation[A, T]) Mutate(ctx context.Context, args A) (T, error) {
	var zero T
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return zero, errors.Wrap(errors.ErrClosed, m.name)
	}
	if m.policy == RejectWhilePending && m.pending > 0 {
		m.mu.Unlock()
		return zero, errors.NewActionPendingError(m.name)
	}
	m.gen++
	gen := m.gen
	m.pending++
	m.result = Result[T]{Status: StatusLoading, IsFetching: true}
	m.publish()
	m.mu.Unlock()

	data, err := m.run(ctx, m.client, args)
	if err != nil {
		err = errors.Normalize(err)
		m.logger.ComponentDebug(logging.ComponentHooks, "Action failed",
			zap.String("action", m.name), zap.Error(err))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending--
	if m.closed || gen != m.gen {
		return data, err
	}
	if err != nil {
		m.result = Result[T]{Error: err, Status: StatusError, UpdatedAt: time.Now()}
	} else {
		m.result = Result[T]{Data: data, Status: StatusSuccess, UpdatedAt: time.Now()}
	}
	m.publish()
	return data, err
}

// MutateAsync runs Mutate in the background. The returned channel receives
// the call's own outcome and is then closed.
func (m *Mutation[A, T]) MutateAsync(ctx context.Context, args A) <-chan Result[T] {
	out := make(chan Result[T], 1)
	go func() {
		defer close(out)
		data, err := m.Mutate(ctx, args)
		if err != nil {
			out <- Result[T]{Error: err, Status: StatusError, UpdatedAt: time.Now()}
			return
		}
		out <- Result[T]{Data: data, Status: StatusSuccess, UpdatedAt: time.Now()}
	}()
	return out
}

// Result returns the state of the latest call.
func (m *Mutation[A, T]) Result() Result[T] {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.result
}

// Updates delivers the newest state after every change and is closed by
// Close.
func (m *Mutation[A, T]) Updates() <-chan Result[T] {
	return m.updates.ch
}

// Reset returns the state to idle. Calls still in flight no longer update
// it.
func (m *Mutation[A, T]) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.gen++
	m.result = Result[T]{}
	m.publish()
}

// Close releases the hook. In-flight calls still return to their callers.
func (m *Mutation[A, T]) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	m.updates.close()
}

func (m *Mutation[A, T]) publish() {
	if m.closed {
		return
	}
	m.updates.put(m.result)
}
