// Package query holds the request-lifecycle wrappers between feature code
// and the remote backend: queries with timeout, bounded retries and fallback
// data, mutations with completion callbacks, and change-feed subscriptions.
package query

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/anle/alumnet/internal/remoteerr"
)

// Snapshot is the synchronous state a consumer reads: the last resolved
// data, whether a fetch is in flight, the last error message, and whether
// the data came from the fallback path.
type Snapshot[T any] struct {
	Data         T
	Loading      bool
	Err          string
	FromFallback bool
	FetchedAt    time.Time
}

// Options configures a Query.
type Options[T any] struct {
	// Timeout bounds each attempt (default 15s).
	Timeout time.Duration

	// Retries is the number of automatic retries after the first attempt.
	// Zero means the default of 2; negative disables retries.
	Retries int

	// Fallback, when non-nil, is served with FromFallback=true after all
	// attempts fail.
	Fallback *T

	// Retryer runs the attempts. Defaults to plain exponential backoff;
	// the connection monitor is injected here in production wiring.
	Retryer Retryer
}

// Query wraps one asynchronous read with lifecycle state. A generation
// counter discards resolutions of superseded fetches, so a slow old fetch
// can never overwrite a newer one.
type Query[T any] struct {
	name string
	fn   func(ctx context.Context) (T, error)
	opts Options[T]

	gen atomic.Uint64

	mu   sync.Mutex
	snap Snapshot[T]
}

// New creates a Query around fn. name appears in error wrapping only.
func New[T any](name string, fn func(ctx context.Context) (T, error), opts Options[T]) *Query[T] {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.Retries == 0 {
		opts.Retries = 2
	} else if opts.Retries < 0 {
		opts.Retries = 0
	}
	if opts.Retryer == nil {
		opts.Retryer = backoffRetryer{base: time.Second}
	}
	return &Query[T]{name: name, fn: fn, opts: opts}
}

// Fetch runs the query and returns the resulting snapshot. Concurrent
// fetches are not serialized; each gets its own generation and only the
// newest generation may publish its result.
func (q *Query[T]) Fetch(ctx context.Context) Snapshot[T] {
	gen := q.gen.Add(1)

	q.mu.Lock()
	q.snap.Loading = true
	q.mu.Unlock()

	var data T
	err := q.opts.Retryer.ExecuteWithRetry(ctx, func(ctx context.Context) (opErr error) {
		defer func() {
			if r := recover(); r != nil {
				if e, ok := r.(error); ok {
					opErr = e
					return
				}
				opErr = remoteerr.New(remoteerr.CodeUnknown, fmt.Sprintf("%v", r))
			}
		}()

		attemptCtx, cancel := context.WithTimeout(ctx, q.opts.Timeout)
		defer cancel()

		d, opErr := q.fn(attemptCtx)
		if opErr == nil {
			data = d
		}
		return opErr
	}, q.opts.Retries)

	q.complete(gen, data, err)
	return q.State()
}

// Refetch re-runs the query; it is Fetch under the name consumers use when
// reacting to a push event or a manual retry action.
func (q *Query[T]) Refetch(ctx context.Context) Snapshot[T] {
	return q.Fetch(ctx)
}

// complete publishes a fetch result unless a newer fetch has started since.
func (q *Query[T]) complete(gen uint64, data T, err error) {
	if gen != q.gen.Load() {
		// A newer fetch owns the state now; this resolution is stale.
		return
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if gen != q.gen.Load() {
		return
	}

	q.snap.Loading = false
	q.snap.FetchedAt = time.Now()
	if err == nil {
		q.snap.Data = data
		q.snap.Err = ""
		q.snap.FromFallback = false
		return
	}

	q.snap.Err = remoteerr.Normalize(err).Message
	if q.opts.Fallback != nil {
		q.snap.Data = *q.opts.Fallback
		q.snap.FromFallback = true
	}
}

// State returns the current snapshot.
func (q *Query[T]) State() Snapshot[T] {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.snap
}
