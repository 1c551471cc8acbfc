// Package upstream is the HTTP client for the performance-testing vendor's
// tenant APIs: groups, profiles, test lists and trial details.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/oauth2"

	"github.com/okian/platehub/internal/adapters/upstream/token"
	"github.com/okian/platehub/internal/domain/model"
	"github.com/okian/platehub/pkg/logger"
	"github.com/okian/platehub/pkg/metrics"
)

const (
	DefaultTimeout         = 30 * time.Second
	DefaultProfilePageSize = 1000
	DefaultBreakerFailures = 5
	DefaultBreakerCoolDown = 30 * time.Second
)

// Operation names used in errors, logs and metrics.
const (
	OpGroups   = "groups"
	OpProfiles = "profiles"
	OpTests    = "tests"
	OpTrials   = "trials"
)

var defaultModifiedFrom = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

// TokenProvider supplies per-tenant bearer tokens.
type TokenProvider interface {
	TokenSource(ctx context.Context, tenant model.Tenant) oauth2.TokenSource
	Invalidate(tenant model.Tenant)
}

// SlotWaiter gates outbound calls per tenant.
type SlotWaiter interface {
	AwaitSlot(ctx context.Context, tenant model.Tenant) error
}

// Client issues authenticated, rate-limited vendor requests.
type Client struct {
	creds    map[model.Tenant]model.TenantCredential
	breakers map[model.Tenant]*gobreaker.CircuitBreaker
	tokens   TokenProvider
	limiter  SlotWaiter

	breakerFailures int
	breakerCoolDown time.Duration

	base         http.RoundTripper
	timeout      time.Duration
	pageSize     int
	modifiedFrom time.Time

	logger  logger.Logger
	metrics *metrics.Manager
}

// NewClient creates a client for the given tenants.
func NewClient(creds []model.TenantCredential, tokens TokenProvider, limiter SlotWaiter, opts ...Option) *Client {
	c := &Client{
		creds:           make(map[model.Tenant]model.TenantCredential, len(creds)),
		breakers:        make(map[model.Tenant]*gobreaker.CircuitBreaker, len(creds)),
		tokens:          tokens,
		limiter:         limiter,
		breakerFailures: DefaultBreakerFailures,
		breakerCoolDown: DefaultBreakerCoolDown,
		base:            http.DefaultTransport,
		timeout:         DefaultTimeout,
		pageSize:        DefaultProfilePageSize,
		modifiedFrom:    defaultModifiedFrom,
		logger:          logger.Named("vendor"),
		metrics:         metrics.Global(),
	}
	for _, opt := range opts {
		opt(c)
	}
	for _, cr := range creds {
		c.creds[cr.Tenant] = cr
		if c.breakerFailures > 0 {
			c.breakers[cr.Tenant] = c.newBreaker(cr.Tenant)
		}
	}
	return c
}

// newBreaker opens after consecutive transport, 401 or 5xx failures of one
// tenant. Other client errors do not count against the vendor, and neither
// do token failures: those must keep reaching the caller unchanged.
func (c *Client) newBreaker(tenant model.Tenant) *gobreaker.CircuitBreaker {
	threshold := uint32(c.breakerFailures)
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "vendor-" + string(tenant),
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     c.breakerCoolDown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn(context.Background(), "vendor circuit breaker state changed",
				logger.String("breaker", name),
				logger.String("from", from.String()),
				logger.String("to", to.String()),
			)
			c.metrics.SetTenantAvailable(string(tenant), to != gobreaker.StateOpen)
		},
		IsSuccessful: func(err error) bool {
			if errors.Is(err, token.ErrAuthenticationFailed) {
				return true
			}
			var fe *FetchError
			if errors.As(err, &fe) && fe.Status >= 400 && fe.Status < 500 && fe.Status != http.StatusUnauthorized {
				return true
			}
			return err == nil
		},
	})
}

// Has reports whether tenant is known to the client.
func (c *Client) Has(tenant model.Tenant) bool {
	_, ok := c.creds[tenant]
	return ok
}

// Groups lists the tenant's groups.
func (c *Client) Groups(ctx context.Context, tenant model.Tenant) ([]model.Group, error) {
	cred, err := c.credential(tenant, OpGroups)
	if err != nil {
		return nil, err
	}
	q := url.Values{"TenantId": {cred.TenantID}}
	var p groupsPayload
	if err := c.get(ctx, tenant, OpGroups, endpoint(cred.TenantBaseURL, "/groups", q), &p); err != nil {
		return nil, err
	}
	return p.groups(), nil
}

// Profiles lists up to the configured page size of profiles in groupID.
func (c *Client) Profiles(ctx context.Context, tenant model.Tenant, groupID string) ([]model.Profile, error) {
	cred, err := c.credential(tenant, OpProfiles)
	if err != nil {
		return nil, err
	}
	q := url.Values{
		"tenantId": {cred.TenantID},
		"groupId":  {groupID},
		"limit":    {strconv.Itoa(c.pageSize)},
	}
	var p profilesPayload
	if err := c.get(ctx, tenant, OpProfiles, endpoint(cred.ProfileBaseURL, "/profiles", q), &p); err != nil {
		return nil, err
	}
	return p.profiles(), nil
}

// Tests lists the tests recorded for ref, optionally restricted to testType.
// Every summary is tagged with ref's tenant. No content means no tests.
func (c *Client) Tests(ctx context.Context, ref model.ProfileReference, testType string) ([]model.TestSummary, error) {
	cred, err := c.credential(ref.Tenant, OpTests)
	if err != nil {
		return nil, err
	}
	q := url.Values{
		"TenantId":        {cred.TenantID},
		"ModifiedFromUtc": {c.modifiedFrom.UTC().Format(time.RFC3339)},
		"ProfileId":       {ref.ProfileID},
	}
	if testType != "" {
		q.Set("TestType", testType)
	}
	var p testsPayload
	if err := c.get(ctx, ref.Tenant, OpTests, endpoint(cred.TestsBaseURL, "/tests", q), &p); err != nil {
		return nil, err
	}
	return p.summaries(ref.Tenant), nil
}

// Trials loads the trial detail of one test.
func (c *Client) Trials(ctx context.Context, tenant model.Tenant, testID string) ([]model.Trial, error) {
	cred, err := c.credential(tenant, OpTrials)
	if err != nil {
		return nil, err
	}
	path := fmt.Sprintf("/v2019q3/teams/%s/tests/%s/trials", url.PathEscape(cred.TenantID), url.PathEscape(testID))
	var p []trialPayload
	if err := c.get(ctx, tenant, OpTrials, endpoint(cred.TestsBaseURL, path, nil), &p); err != nil {
		return nil, err
	}
	return trialsFromPayload(p), nil
}

func (c *Client) credential(tenant model.Tenant, op string) (model.TenantCredential, error) {
	cred, ok := c.creds[tenant]
	if !ok {
		return model.TenantCredential{}, &FetchError{Tenant: tenant, Op: op, Err: ErrUnknownTenant}
	}
	return cred, nil
}

// get waits for a rate-limiter slot, then issues one bounded GET through the
// tenant's circuit breaker and decodes the JSON body into out. An empty body
// leaves out untouched.
func (c *Client) get(ctx context.Context, tenant model.Tenant, op, target string, out any) error {
	if err := c.limiter.AwaitSlot(ctx, tenant); err != nil {
		return &FetchError{Tenant: tenant, Op: op, Err: err}
	}

	cb, ok := c.breakers[tenant]
	if !ok {
		return c.do(ctx, tenant, op, target, out)
	}
	_, err := cb.Execute(func() (interface{}, error) {
		return nil, c.do(ctx, tenant, op, target, out)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		c.metrics.RecordVendorRequest(string(tenant), op, "breaker_open", 0)
		return &FetchError{Tenant: tenant, Op: op, Err: err}
	}
	return err
}

func (c *Client) do(ctx context.Context, tenant model.Tenant, op, target string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
	if err != nil {
		return &FetchError{Tenant: tenant, Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	httpClient := &http.Client{Transport: &oauth2.Transport{
		Source: c.tokens.TokenSource(ctx, tenant),
		Base:   c.base,
	}}

	start := time.Now()
	resp, err := httpClient.Do(req)
	elapsed := float64(time.Since(start).Milliseconds())
	if err != nil {
		c.metrics.RecordVendorRequest(string(tenant), op, "error", elapsed)
		return &FetchError{Tenant: tenant, Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.RecordVendorRequest(string(tenant), op, "error", elapsed)
		return &FetchError{Tenant: tenant, Op: op, Status: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.metrics.RecordVendorRequest(string(tenant), op, strconv.Itoa(resp.StatusCode), elapsed)
		if resp.StatusCode == http.StatusUnauthorized {
			c.tokens.Invalidate(tenant)
		}
		return &FetchError{Tenant: tenant, Op: op, Status: resp.StatusCode, Err: errors.New(snippet(body))}
	}
	c.metrics.RecordVendorRequest(string(tenant), op, "ok", elapsed)

	if resp.StatusCode == http.StatusNoContent || len(bytes.TrimSpace(body)) == 0 {
		c.logger.Debug(ctx, "vendor returned no content",
			logger.String("tenant", string(tenant)),
			logger.String("op", op),
		)
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &FetchError{Tenant: tenant, Op: op, Status: resp.StatusCode, Err: fmt.Errorf("decode: %w", err)}
	}
	return nil
}

func endpoint(base, path string, q url.Values) string {
	u := strings.TrimRight(base, "/") + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}

func snippet(body []byte) string {
	const limit = 200
	s := strings.TrimSpace(string(body))
	if len(s) > limit {
		s = s[:limit] + "..."
	}
	if s == "" {
		s = "empty body"
	}
	return s
}
