package query

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/anle/alumnet/internal/backend"
)

// EventSource is the slice of a backend channel the subscription needs.
// *backend.Channel satisfies it.
type EventSource interface {
	Events() <-chan backend.ChangeEvent
	Connected() bool
	Close() error
}

// Handlers dispatches change events by kind. Nil handlers are skipped.
type Handlers struct {
	OnInsert func(backend.ChangeEvent)
	OnUpdate func(backend.ChangeEvent)
	OnDelete func(backend.ChangeEvent)
}

// Subscription binds an open change-feed channel to handlers and,
// optionally, to query refetches. It owns one goroutine that exits when the
// channel closes or Close is called.
type Subscription struct {
	src     EventSource
	limiter *rate.Limiter

	mu         sync.Mutex
	refetchers []func(context.Context)

	done chan struct{}
}

// Subscribe starts dispatching events from src. ctx is handed to bound
// refetches; cancelling it does not close the channel, Close does.
func Subscribe(ctx context.Context, src EventSource, h Handlers) *Subscription {
	s := &Subscription{
		src: src,
		// Push bursts collapse into at most one refetch per interval;
		// the refetch picks up every row the burst wrote anyway.
		limiter: rate.NewLimiter(rate.Every(2*time.Second), 1),
		done:    make(chan struct{}),
	}
	go s.loop(ctx, h)
	return s
}

// BindRefetch registers a query refetch to run (coalesced) on every event.
func (s *Subscription) BindRefetch(refetch func(context.Context)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refetchers = append(s.refetchers, refetch)
}

// Connected reports whether the underlying channel is still live.
func (s *Subscription) Connected() bool {
	return s.src.Connected()
}

// Close tears down the channel; the dispatch goroutine drains and exits.
func (s *Subscription) Close() error {
	return s.src.Close()
}

// Done is closed once the dispatch goroutine has exited.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

func (s *Subscription) loop(ctx context.Context, h Handlers) {
	defer close(s.done)

	for ev := range s.src.Events() {
		switch ev.Kind {
		case backend.EventInsert:
			if h.OnInsert != nil {
				h.OnInsert(ev)
			}
		case backend.EventUpdate:
			if h.OnUpdate != nil {
				h.OnUpdate(ev)
			}
		case backend.EventDelete:
			if h.OnDelete != nil {
				h.OnDelete(ev)
			}
		}

		if s.limiter.Allow() {
			s.mu.Lock()
			refetchers := make([]func(context.Context), len(s.refetchers))
			copy(refetchers, s.refetchers)
			s.mu.Unlock()
			for _, refetch := range refetchers {
				refetch(ctx)
			}
		}
	}
}
