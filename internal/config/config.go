// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Loading layers defaults, an optional YAML file and PLATEHUB_ env vars.
// - External errors are wrapped with this package's sentinel errors.
package config

import (
	"runtime"
	"time"

	"github.com/okian/platehub/internal/domain/athlete"
	"github.com/okian/platehub/internal/domain/model"
)

// TenantConfig holds credentials and endpoints of one vendor tenant.
type TenantConfig struct {
	TenantID       string `koanf:"tenant_id"`
	ClientID       string `koanf:"client_id"`
	ClientSecret   string `koanf:"client_secret"`
	AuthEndpoint   string `koanf:"auth_endpoint"`
	TenantBaseURL  string `koanf:"tenant_base_url"`
	ProfileBaseURL string `koanf:"profile_base_url"`
	TestsBaseURL   string `koanf:"tests_base_url"`
}

// Credential converts the block into a domain credential for tenant.
func (t TenantConfig) Credential(tenant model.Tenant) model.TenantCredential {
	return model.TenantCredential{
		Tenant:         tenant,
		TenantID:       t.TenantID,
		ClientID:       t.ClientID,
		ClientSecret:   t.ClientSecret,
		AuthEndpoint:   t.AuthEndpoint,
		TenantBaseURL:  t.TenantBaseURL,
		ProfileBaseURL: t.ProfileBaseURL,
		TestsBaseURL:   t.TestsBaseURL,
	}
}

// RateLimitConfig bounds outbound requests per tenant.
type RateLimitConfig struct {
	MaxRequests    int `koanf:"max_requests"`
	WindowMS       int `koanf:"window_ms"`
	SafetyMarginMS int `koanf:"safety_margin_ms"`
}

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects text or json log output.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// HTTPTimeoutMS bounds every outbound vendor call.
	HTTPTimeoutMS int `koanf:"http_timeout_ms"`

	// TokenRefreshBufferMS treats tokens as expired this long before expiry.
	TokenRefreshBufferMS int `koanf:"token_refresh_buffer_ms"`

	RateLimit RateLimitConfig `koanf:"rate_limit"`

	// WorkerCount sets the number of trial fetch workers.
	WorkerCount int `koanf:"worker_count"`

	// QueueSize bounds the trial fetch queue.
	QueueSize int `koanf:"queue_size"`

	// ProfilePageSize is the limit passed to profile list requests.
	ProfilePageSize int `koanf:"profile_page_size"`

	// TestsModifiedFrom is the lower bound sent as ModifiedFromUtc (RFC3339).
	TestsModifiedFrom string `koanf:"tests_modified_from"`

	// ProfessionalGroups are case-insensitive substrings selecting groups to search.
	ProfessionalGroups []string `koanf:"professional_groups"`

	Primary   TenantConfig `koanf:"primary"`
	Secondary TenantConfig `koanf:"secondary"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:             "info",
		LogFormat:            "text",
		Addr:                 ":9080",
		HTTPTimeoutMS:        30_000,
		TokenRefreshBufferMS: 300_000,
		RateLimit: RateLimitConfig{
			MaxRequests:    20,
			WindowMS:       5_000,
			SafetyMarginMS: 100,
		},
		WorkerCount:        runtime.NumCPU() * 2,
		QueueSize:          1_000,
		ProfilePageSize:    1_000,
		TestsModifiedFrom:  "2020-01-01T00:00:00Z",
		ProfessionalGroups: append([]string(nil), athlete.DefaultProfessionalGroups...),
	}
}

// HTTPTimeout returns the outbound call timeout.
func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutMS) * time.Millisecond
}

// TokenRefreshBuffer returns the token expiry buffer.
func (c *Config) TokenRefreshBuffer() time.Duration {
	return time.Duration(c.TokenRefreshBufferMS) * time.Millisecond
}

// ModifiedFrom parses TestsModifiedFrom.
func (c *Config) ModifiedFrom() (time.Time, error) {
	return time.Parse(time.RFC3339, c.TestsModifiedFrom)
}

// Credentials returns the credentials of every configured tenant, primary first.
func (c *Config) Credentials() []model.TenantCredential {
	creds := []model.TenantCredential{c.Primary.Credential(model.TenantPrimary)}
	if sec := c.Secondary.Credential(model.TenantSecondary); sec.Configured() {
		creds = append(creds, sec)
	}
	return creds
}
