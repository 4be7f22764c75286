// Package hooks exposes subscription hooks (live, cached reads) and action
// hooks (mutations) bound to the Provider found in a context.
package hooks

import "time"

// Status is the lifecycle phase of a hook result.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusSuccess
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return "idle"
	}
}

// Result is the observable state of a hook. Data keeps the last successful
// value while a refetch is in flight or after a later error.
type Result[T any] struct {
	Data       T
	Error      error
	Status     Status
	IsFetching bool
	UpdatedAt  time.Time
}

func (r Result[T]) IsIdle() bool    { return r.Status == StatusIdle }
func (r Result[T]) IsLoading() bool { return r.Status == StatusLoading }
func (r Result[T]) IsSuccess() bool { return r.Status == StatusSuccess }
func (r Result[T]) IsError() bool   { return r.Status == StatusError }

// latest is a one-slot channel that only ever holds the newest value.
type latest[T any] struct {
	ch chan T
}

func newLatest[T any]() latest[T] {
	return latest[T]{ch: make(chan T, 1)}
}

// put replaces any unread value. Callers serialize put and close.
func (l latest[T]) put(v T) {
	select {
	case <-l.ch:
	default:
	}
	l.ch <- v
}

func (l latest[T]) close() { close(l.ch) }
