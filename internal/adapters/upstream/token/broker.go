// Package token acquires and caches OAuth2 client-credentials tokens per tenant.
package token

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/okian/platehub/internal/domain/model"
	"github.com/okian/platehub/pkg/logger"
	"github.com/okian/platehub/pkg/metrics"
)

const (
	defaultRefreshBuffer = 5 * time.Minute
	defaultTimeout       = 30 * time.Second
)

type tenantState struct {
	mu     sync.Mutex // held across a refresh so concurrent callers share it
	oauth  clientcredentials.Config
	cached model.AccessToken
}

// Broker hands out bearer tokens, refreshing lazily when the cached token is
// missing or inside the refresh buffer. There is no background refresh.
type Broker struct {
	tenants    map[model.Tenant]*tenantState
	buffer     time.Duration
	httpClient *http.Client
	now        func() time.Time
	logger     logger.Logger
	metrics    *metrics.Manager
}

// NewBroker creates a broker for the configured credentials. Credentials that
// are not Configured are ignored; asking for their token fails.
func NewBroker(creds []model.TenantCredential, opts ...Option) *Broker {
	b := &Broker{
		tenants:    make(map[model.Tenant]*tenantState, len(creds)),
		buffer:     defaultRefreshBuffer,
		httpClient: &http.Client{Timeout: defaultTimeout},
		now:        time.Now,
		logger:     logger.Named("token"),
		metrics:    metrics.Global(),
	}
	for _, opt := range opts {
		opt(b)
	}

	for _, c := range creds {
		if !c.Configured() {
			continue
		}
		b.tenants[c.Tenant] = &tenantState{
			oauth: clientcredentials.Config{
				ClientID:     c.ClientID,
				ClientSecret: c.ClientSecret,
				TokenURL:     c.AuthEndpoint,
				AuthStyle:    oauth2.AuthStyleInParams,
			},
		}
	}
	return b
}

// Has reports whether tenant has credentials.
func (b *Broker) Has(tenant model.Tenant) bool {
	_, ok := b.tenants[tenant]
	return ok
}

// Token returns a valid token for tenant, refreshing it if needed. Any
// failure is an *AuthenticationError.
func (b *Broker) Token(ctx context.Context, tenant model.Tenant) (model.AccessToken, error) {
	st, ok := b.tenants[tenant]
	if !ok {
		return model.AccessToken{}, &AuthenticationError{Tenant: tenant, Err: ErrTenantNotConfigured}
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	if st.cached.ValidAt(b.now(), b.buffer) {
		return st.cached, nil
	}

	tok, err := b.acquire(ctx, tenant, st)
	if err != nil {
		b.metrics.RecordTokenRefresh(string(tenant), "error")
		b.metrics.SetTenantAvailable(string(tenant), false)
		b.logger.Warn(ctx, "token acquisition failed", logger.String("tenant", string(tenant)), logger.Error(err))
		return model.AccessToken{}, &AuthenticationError{Tenant: tenant, Err: err}
	}

	st.cached = tok
	b.metrics.RecordTokenRefresh(string(tenant), "ok")
	b.metrics.SetTenantAvailable(string(tenant), true)
	b.logger.Debug(ctx, "token refreshed",
		logger.String("tenant", string(tenant)),
		logger.Any("expiresAt", tok.ExpiresAt),
	)
	return tok, nil
}

// Invalidate drops the cached token of tenant, forcing a refresh on next use.
func (b *Broker) Invalidate(tenant model.Tenant) {
	if st, ok := b.tenants[tenant]; ok {
		st.mu.Lock()
		st.cached = model.AccessToken{}
		st.mu.Unlock()
	}
}

func (b *Broker) acquire(ctx context.Context, tenant model.Tenant, st *tenantState) (model.AccessToken, error) {
	issuedAt := b.now()
	ctx = context.WithValue(ctx, oauth2.HTTPClient, b.httpClient)

	tok, err := st.oauth.Token(ctx)
	if err != nil {
		return model.AccessToken{}, err
	}
	if tok.AccessToken == "" {
		return model.AccessToken{}, fmt.Errorf("%w: empty access_token", ErrMalformedToken)
	}
	expiresIn, ok := expiresInSeconds(tok.Extra("expires_in"))
	if !ok {
		return model.AccessToken{}, fmt.Errorf("%w: missing or invalid expires_in", ErrMalformedToken)
	}

	return model.AccessToken{
		Tenant:    tenant,
		Token:     tok.AccessToken,
		ExpiresAt: issuedAt.Add(time.Duration(expiresIn) * time.Second),
	}, nil
}

func expiresInSeconds(v any) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return int64(n), n > 0
	case json.Number:
		i, err := n.Int64()
		return i, err == nil && i > 0
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		return i, err == nil && i > 0
	default:
		return 0, false
	}
}

// TokenSource adapts the broker to oauth2.TokenSource for tenant.
func (b *Broker) TokenSource(ctx context.Context, tenant model.Tenant) oauth2.TokenSource {
	return &brokerSource{ctx: ctx, broker: b, tenant: tenant}
}

type brokerSource struct {
	ctx    context.Context
	broker *Broker
	tenant model.Tenant
}

// Token implements oauth2.TokenSource.
func (s *brokerSource) Token() (*oauth2.Token, error) {
	t, err := s.broker.Token(s.ctx, s.tenant)
	if err != nil {
		return nil, err
	}
	return &oauth2.Token{
		AccessToken: t.Token,
		TokenType:   "Bearer",
		Expiry:      t.ExpiresAt,
	}, nil
}
