package upstream

import (
	"net/http"
	"time"

	"github.com/okian/platehub/pkg/logger"
	"github.com/okian/platehub/pkg/metrics"
)

// Option applies a configuration option to the Client.
type Option func(*Client)

// WithTimeout bounds each vendor call. The clock starts once the rate
// limiter has granted the slot, so time spent queued is not counted.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithTransport sets the base round tripper under the OAuth2 transport.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		if rt != nil {
			c.base = rt
		}
	}
}

// WithProfilePageSize sets the limit sent with profile list requests.
func WithProfilePageSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// WithModifiedFrom sets the ModifiedFromUtc lower bound of test list requests.
func WithModifiedFrom(t time.Time) Option {
	return func(c *Client) {
		if !t.IsZero() {
			c.modifiedFrom = t
		}
	}
}

// WithCircuitBreaker sets how many consecutive failures open a tenant's
// breaker and how long it stays open. failures <= 0 disables breaking.
func WithCircuitBreaker(failures int, coolDown time.Duration) Option {
	return func(c *Client) {
		c.breakerFailures = failures
		if coolDown > 0 {
			c.breakerCoolDown = coolDown
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics sets the metrics manager.
func WithMetrics(m *metrics.Manager) Option {
	return func(c *Client) {
		if m != nil {
			c.metrics = m
		}
	}
}
