package ratelimit

import (
	"time"

	"github.com/okian/platehub/pkg/logger"
	"github.com/okian/platehub/pkg/metrics"
)

// Option applies a configuration option to the Limiter.
type Option func(*Limiter)

// WithMaxRequests sets the number of requests allowed per window.
func WithMaxRequests(n int) Option {
	return func(l *Limiter) {
		if n > 0 {
			l.maxRequests = n
		}
	}
}

// WithWindow sets the sliding window length.
func WithWindow(d time.Duration) Option {
	return func(l *Limiter) {
		if d > 0 {
			l.window = d
		}
	}
}

// WithSafetyMargin sets the extra wait added once the window is full.
func WithSafetyMargin(d time.Duration) Option {
	return func(l *Limiter) {
		if d >= 0 {
			l.margin = d
		}
	}
}

// WithClock replaces the time source and sleep, for tests.
func WithClock(now func() time.Time, sleep SleepFunc) Option {
	return func(l *Limiter) {
		if now != nil {
			l.now = now
		}
		if sleep != nil {
			l.sleep = sleep
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(lg logger.Logger) Option {
	return func(l *Limiter) {
		if lg != nil {
			l.logger = lg
		}
	}
}

// WithMetrics sets the metrics manager.
func WithMetrics(m *metrics.Manager) Option {
	return func(l *Limiter) {
		if m != nil {
			l.metrics = m
		}
	}
}
