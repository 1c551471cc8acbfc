package config

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix     = "PLATEHUB_"
	envConfigPath = "PLATEHUB_CONFIG"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if PLATEHUB_CONFIG is set
//  3. env (prefix PLATEHUB_, "__" separates nested keys)
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv(envConfigPath); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// PLATEHUB_RATE_LIMIT__MAX_REQUESTS -> rate_limit.max_requests
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), strings.ToLower(envPrefix))
		return strings.ReplaceAll(s, "__", ".")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the fields the service cannot run without. Every problem
// is reported, not only the first.
func (c *Config) Validate() error {
	var result *multierror.Error
	invalid := func(format string, args ...any) {
		result = multierror.Append(result, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
	}

	if c.Addr == "" {
		invalid("addr must not be empty")
	}
	if c.RateLimit.MaxRequests < 1 {
		invalid("rate_limit.max_requests must be positive")
	}
	if c.RateLimit.WindowMS < 1 {
		invalid("rate_limit.window_ms must be positive")
	}
	if c.RateLimit.SafetyMarginMS < 0 {
		invalid("rate_limit.safety_margin_ms must not be negative")
	}
	if c.HTTPTimeoutMS < 1 {
		invalid("http_timeout_ms must be positive")
	}
	if _, err := c.ModifiedFrom(); err != nil {
		invalid("tests_modified_from: %w", err)
	}
	if err := c.Primary.validate("primary"); err != nil {
		result = multierror.Append(result, err)
	}
	if c.Secondary.ClientID != "" || c.Secondary.ClientSecret != "" {
		if err := c.Secondary.validate("secondary"); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

func (t TenantConfig) validate(name string) error {
	missing := make([]string, 0, 7)
	for key, v := range map[string]string{
		"tenant_id":        t.TenantID,
		"client_id":        t.ClientID,
		"client_secret":    t.ClientSecret,
		"auth_endpoint":    t.AuthEndpoint,
		"tenant_base_url":  t.TenantBaseURL,
		"profile_base_url": t.ProfileBaseURL,
		"tests_base_url":   t.TestsBaseURL,
	} {
		if v == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return fmt.Errorf("%w: %s tenant missing %s", ErrInvalidConfig, name, strings.Join(missing, ", "))
}
