// Package health tracks connectivity to the hosted backend and provides the
// retry wrapper used by every remote operation.
package health

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/anle/alumnet/internal/remoteerr"
)

// Pinger issues the minimal remote read used as a health probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options configures a Monitor. Zero values fall back to the defaults named
// in the comments.
type Options struct {
	// CheckTimeout bounds a single probe (default 5s).
	CheckTimeout time.Duration

	// Interval is the background check period (default 30s).
	Interval time.Duration

	// MaxRetries bounds Ensure's reconnection attempts (default 3).
	MaxRetries int

	// BaseDelay is the backoff base; attempt i waits BaseDelay * 2^i
	// (default 1s).
	BaseDelay time.Duration

	// Sleep is the wait function, replaceable in tests. Defaults to a
	// context-aware timer sleep.
	Sleep func(ctx context.Context, d time.Duration) error
}

func (o Options) withDefaults() Options {
	if o.CheckTimeout <= 0 {
		o.CheckTimeout = 5 * time.Second
	}
	if o.Interval <= 0 {
		o.Interval = 30 * time.Second
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = 3
	}
	if o.BaseDelay <= 0 {
		o.BaseDelay = time.Second
	}
	if o.Sleep == nil {
		o.Sleep = sleepCtx
	}
	return o
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Status is a point-in-time snapshot of connectivity state.
type Status struct {
	Connected   bool
	RetryCount  int
	LastCheck   time.Time
	LastSuccess time.Time
}

// Monitor owns connectivity state. It is an explicitly constructed object
// with a Start/Stop lifecycle; failures never escape its boundary except
// through ExecuteWithRetry's final exhaustion.
type Monitor struct {
	pinger Pinger
	opts   Options

	mu      sync.Mutex
	status  Status
	stopCh  chan struct{}
	running bool
}

// NewMonitor creates a Monitor around the given pinger.
func NewMonitor(pinger Pinger, opts Options) *Monitor {
	return &Monitor{
		pinger: pinger,
		opts:   opts.withDefaults(),
		stopCh: make(chan struct{}),
	}
}

// Check runs one health probe. It records the outcome and returns the
// resulting connected state; the underlying error is logged, not returned.
func (m *Monitor) Check(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, m.opts.CheckTimeout)
	err := m.pinger.Ping(probeCtx)
	cancel()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.status.LastCheck = time.Now()
	if err != nil {
		m.status.Connected = false
		m.status.RetryCount++
		slog.Warn("backend health check failed",
			"class", classify(err),
			"retry_count", m.status.RetryCount,
			"error", err)
		return false
	}

	m.status.Connected = true
	m.status.RetryCount = 0
	m.status.LastSuccess = m.status.LastCheck
	return true
}

// Ensure retries Check up to MaxRetries with exponential backoff and
// reports whether connectivity was re-established.
func (m *Monitor) Ensure(ctx context.Context) bool {
	for attempt := 0; attempt < m.opts.MaxRetries; attempt++ {
		if m.Check(ctx) {
			return true
		}
		if err := m.opts.Sleep(ctx, m.opts.BaseDelay*(1<<uint(attempt))); err != nil {
			return false
		}
	}
	return m.Check(ctx)
}

// ExecuteWithRetry runs op, attempting it at most maxRetries+1 times. The
// delay before attempt i+1 is BaseDelay * 2^i, and connectivity is
// re-ensured before every retry. The last error is returned on exhaustion.
func (m *Monitor) ExecuteWithRetry(ctx context.Context, op func(ctx context.Context) error, maxRetries int) error {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			if err := m.opts.Sleep(ctx, m.opts.BaseDelay*(1<<uint(attempt-1))); err != nil {
				return remoteerr.Normalize(lastErr)
			}
			if !m.Ensure(ctx) {
				slog.Warn("retrying without confirmed connectivity", "attempt", attempt)
			}
		}

		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			break
		}
	}
	return remoteerr.Normalize(lastErr)
}

// Start launches the background check loop, one probe every Interval for
// the monitor's lifetime. Calling Start twice is a no-op.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return
	}
	m.running = true
	m.mu.Unlock()

	go func() {
		ticker := time.NewTicker(m.opts.Interval)
		defer ticker.Stop()

		m.Check(ctx)
		for {
			select {
			case <-m.stopCh:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.Check(ctx)
			}
		}
	}()
}

// Stop halts the background loop. Safe to call once.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return
	}
	close(m.stopCh)
	m.running = false
}

// Status returns the current connectivity snapshot.
func (m *Monitor) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// classify buckets a probe failure for the warning log.
func classify(err error) string {
	switch {
	case remoteerr.IsTimeout(err):
		return "timeout"
	case remoteerr.IsNetwork(err):
		return "network"
	case remoteerr.Normalize(err).Code != remoteerr.CodeUnknown:
		return "infrastructure"
	default:
		return "unknown"
	}
}
