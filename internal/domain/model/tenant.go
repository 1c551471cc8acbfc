// Package model contains domain models passed between layers.
package model

import "time"

// Tenant names one of the two credentialed vendor accounts.
type Tenant string

// Known tenants. Primary is mandatory, secondary is optional.
const (
	TenantPrimary   Tenant = "primary"
	TenantSecondary Tenant = "secondary"
)

// Tenants lists every tenant in dispatch order.
var Tenants = []Tenant{TenantPrimary, TenantSecondary}

// TenantCredential holds the immutable credentials and base URLs of one tenant.
type TenantCredential struct {
	Tenant         Tenant
	TenantID       string // vendor-side tenant identifier
	ClientID       string
	ClientSecret   string
	AuthEndpoint   string
	TenantBaseURL  string // groups
	ProfileBaseURL string // profiles
	TestsBaseURL   string // tests and trials
}

// Configured reports whether the credential carries enough to request a token.
func (c TenantCredential) Configured() bool {
	return c.ClientID != "" && c.ClientSecret != "" && c.AuthEndpoint != ""
}

// AccessToken is a bearer token cached for one tenant.
type AccessToken struct {
	Tenant    Tenant
	Token     string
	ExpiresAt time.Time
}

// ValidAt reports whether the token may still be used at now, treating the
// last buffer before expiry as already expired.
func (t AccessToken) ValidAt(now time.Time, buffer time.Duration) bool {
	if t.Token == "" {
		return false
	}
	return now.Before(t.ExpiresAt.Add(-buffer))
}
