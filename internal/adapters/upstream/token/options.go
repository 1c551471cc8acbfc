package token

import (
	"net/http"
	"time"

	"github.com/okian/platehub/pkg/logger"
	"github.com/okian/platehub/pkg/metrics"
)

// Option applies a configuration option to the Broker.
type Option func(*Broker)

// WithRefreshBuffer sets how long before expiry a token is considered stale.
func WithRefreshBuffer(d time.Duration) Option {
	return func(b *Broker) {
		if d >= 0 {
			b.buffer = d
		}
	}
}

// WithHTTPClient sets the client used for token requests.
func WithHTTPClient(c *http.Client) Option {
	return func(b *Broker) {
		if c != nil {
			b.httpClient = c
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(b *Broker) {
		if now != nil {
			b.now = now
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(b *Broker) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithMetrics sets the metrics manager.
func WithMetrics(m *metrics.Manager) Option {
	return func(b *Broker) {
		if m != nil {
			b.metrics = m
		}
	}
}
