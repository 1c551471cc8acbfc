package upstream

import (
	"errors"
	"fmt"

	"github.com/okian/platehub/internal/domain/model"
)

// Sentinel kinds for vendor errors.
var (
	ErrFetchFailed   = errors.New("vendor fetch failed")
	ErrUnknownTenant = errors.New("unknown tenant")
)

// FetchError describes one failed vendor call. Status is zero when no
// response was received. It matches ErrFetchFailed with errors.Is and
// unwraps to the transport or decode error, so an authentication failure
// raised while attaching the token stays visible in the chain.
type FetchError struct {
	Tenant model.Tenant
	Op     string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s %s: status %d: %v", e.Tenant, e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Tenant, e.Op, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Is makes every FetchError match ErrFetchFailed.
func (e *FetchError) Is(target error) bool {
	return target == ErrFetchFailed
}
