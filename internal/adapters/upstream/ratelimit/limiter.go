// Package ratelimit spaces outgoing vendor calls with a per-tenant sliding window.
package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/platehub/internal/domain/model"
	"github.com/okian/platehub/pkg/logger"
	"github.com/okian/platehub/pkg/metrics"
)

const (
	DefaultMaxRequests  = 20
	DefaultWindow       = 5 * time.Second
	DefaultSafetyMargin = 100 * time.Millisecond
)

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Limiter admits at most maxRequests calls per tenant inside any window.
// Waiters of one tenant are served in arrival order.
type Limiter struct {
	maxRequests int
	window      time.Duration
	margin      time.Duration

	now   func() time.Time
	sleep SleepFunc

	mu      sync.Mutex
	tenants map[model.Tenant]*slidingWindow

	logger  logger.Logger
	metrics *metrics.Manager
}

type slidingWindow struct {
	turn    chan struct{} // capacity 1; the holder is the next caller to be admitted
	waiting atomic.Int64

	mu     sync.Mutex // guards stamps; never held while sleeping
	stamps []time.Time
}

// New creates a limiter with the given options.
func New(opts ...Option) *Limiter {
	l := &Limiter{
		maxRequests: DefaultMaxRequests,
		window:      DefaultWindow,
		margin:      DefaultSafetyMargin,
		now:         time.Now,
		sleep:       sleepCtx,
		tenants:     make(map[model.Tenant]*slidingWindow),
		logger:      logger.Named("ratelimit"),
		metrics:     metrics.Global(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// AwaitSlot blocks until tenant may issue one more request, then records it.
// It returns ctx.Err() if the context ends first; no slot is recorded then.
func (l *Limiter) AwaitSlot(ctx context.Context, tenant model.Tenant) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	w := l.windowFor(tenant)
	w.waiting.Add(1)
	defer w.waiting.Add(-1)

	select {
	case w.turn <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-w.turn }()

	var waited time.Duration
	for {
		wait, ok := w.tryRecord(l.now(), l.window, l.maxRequests, l.margin)
		if ok {
			if waited > 0 {
				l.metrics.RecordRateLimitWait(string(tenant), float64(waited.Milliseconds()))
			}
			return nil
		}

		l.logger.Debug(ctx, "rate limit reached, waiting",
			logger.String("tenant", string(tenant)),
			logger.Duration("wait", wait),
		)
		if err := l.sleep(ctx, wait); err != nil {
			return err
		}
		waited += wait
	}
}

// InWindow returns how many requests tenant has recorded in the current window.
// It does not wait behind callers blocked in AwaitSlot.
func (l *Limiter) InWindow(tenant model.Tenant) int {
	w := l.windowFor(tenant)
	w.mu.Lock()
	defer w.mu.Unlock()
	w.prune(l.now().Add(-l.window))
	return len(w.stamps)
}

// Waiting returns how many callers of tenant are blocked in AwaitSlot.
func (l *Limiter) Waiting(tenant model.Tenant) int {
	return int(l.windowFor(tenant).waiting.Load())
}

func (l *Limiter) windowFor(tenant model.Tenant) *slidingWindow {
	l.mu.Lock()
	defer l.mu.Unlock()
	w, ok := l.tenants[tenant]
	if !ok {
		w = &slidingWindow{turn: make(chan struct{}, 1)}
		l.tenants[tenant] = w
	}
	return w
}

// tryRecord appends now if the window has room, or reports how long to wait.
func (w *slidingWindow) tryRecord(now time.Time, window time.Duration, limit int, margin time.Duration) (time.Duration, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.prune(now.Add(-window))
	if len(w.stamps) < limit {
		w.stamps = append(w.stamps, now)
		return 0, true
	}
	return window - now.Sub(w.stamps[0]) + margin, false
}

// prune drops stamps at or before cutoff.
func (w *slidingWindow) prune(cutoff time.Time) {
	i := 0
	for i < len(w.stamps) && !w.stamps[i].After(cutoff) {
		i++
	}
	if i > 0 {
		w.stamps = append(w.stamps[:0], w.stamps[i:]...)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
