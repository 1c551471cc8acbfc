package token

import (
	"errors"
	"fmt"

	"github.com/okian/platehub/internal/domain/model"
)

// Sentinel kinds for token errors.
var (
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrTenantNotConfigured  = errors.New("tenant not configured")
	ErrMalformedToken       = errors.New("malformed token response")
)

// AuthenticationError reports that a tenant could not obtain a token.
// It matches ErrAuthenticationFailed with errors.Is.
type AuthenticationError struct {
	Tenant model.Tenant
	Err    error
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("authentication failed for tenant %s: %v", e.Tenant, e.Err)
}

func (e *AuthenticationError) Unwrap() error { return e.Err }

// Is makes every AuthenticationError match ErrAuthenticationFailed.
func (e *AuthenticationError) Is(target error) bool {
	return target == ErrAuthenticationFailed
}

// FailedTenant returns the tenant of an AuthenticationError in err's chain.
func FailedTenant(err error) (model.Tenant, bool) {
	var authErr *AuthenticationError
	if errors.As(err, &authErr) {
		return authErr.Tenant, true
	}
	return "", false
}
