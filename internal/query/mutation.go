package query

import (
	"context"
	"sync"
	"time"

	"github.com/anle/alumnet/internal/remoteerr"
)

// MutationOptions configures a Mutation. Mutations default to a longer
// timeout and no automatic retries: retrying a write that may have landed
// risks a duplicate.
type MutationOptions[T any] struct {
	// Timeout bounds each attempt (default 30s).
	Timeout time.Duration

	// Retries is the number of automatic retries (default 0).
	Retries int

	// OnSuccess runs with the result after a successful call.
	OnSuccess func(T)

	// OnError runs with the normalized error after a failed call.
	OnError func(error)

	// OnSettled runs after every call, success or failure.
	OnSettled func()

	// Retryer runs the attempts when Retries > 0.
	Retryer Retryer
}

// MutationState is the snapshot for a side-effecting call.
type MutationState struct {
	Loading bool
	Err     string
}

// Mutation wraps one side-effecting remote call with its own
// loading/error state and completion callbacks.
type Mutation[T any] struct {
	fn   func(ctx context.Context) (T, error)
	opts MutationOptions[T]

	mu    sync.Mutex
	state MutationState
}

// NewMutation creates a Mutation around fn.
func NewMutation[T any](fn func(ctx context.Context) (T, error), opts MutationOptions[T]) *Mutation[T] {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	if opts.Retryer == nil {
		opts.Retryer = backoffRetryer{base: time.Second}
	}
	return &Mutation[T]{fn: fn, opts: opts}
}

// Do runs the mutation once (plus any configured retries) and returns the
// result. Callbacks fire before Do returns.
func (m *Mutation[T]) Do(ctx context.Context) (T, error) {
	m.mu.Lock()
	m.state.Loading = true
	m.mu.Unlock()

	var result T
	err := m.opts.Retryer.ExecuteWithRetry(ctx, func(ctx context.Context) error {
		attemptCtx, cancel := context.WithTimeout(ctx, m.opts.Timeout)
		defer cancel()

		r, err := m.fn(attemptCtx)
		if err == nil {
			result = r
		}
		return err
	}, m.opts.Retries)

	m.mu.Lock()
	m.state.Loading = false
	if err != nil {
		m.state.Err = remoteerr.Normalize(err).Message
	} else {
		m.state.Err = ""
	}
	m.mu.Unlock()

	if err != nil {
		if m.opts.OnError != nil {
			m.opts.OnError(remoteerr.Normalize(err))
		}
	} else if m.opts.OnSuccess != nil {
		m.opts.OnSuccess(result)
	}
	if m.opts.OnSettled != nil {
		m.opts.OnSettled()
	}

	if err != nil {
		var zero T
		return zero, remoteerr.Normalize(err)
	}
	return result, nil
}

// State returns the current mutation snapshot.
func (m *Mutation[T]) State() MutationState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}
