package service

import (
	"errors"
	"fmt"

	"github.com/okian/platehub/internal/adapters/upstream/token"
	"github.com/okian/platehub/internal/domain/model"
)

// Sentinel kinds for service errors.
var (
	// ErrPrimaryUnavailable reports that the primary tenant could not
	// authenticate. It is the only failure a fetch or search returns.
	ErrPrimaryUnavailable = errors.New("primary tenant unavailable")
	ErrNotStarted         = errors.New("service not started")
)

// outcome is the tagged result of one vendor call.
type outcome[T any] struct {
	value T
	err   error
}

// attempt runs fn and captures its result so batch code can decide between
// skip-and-log and abort in one place.
func attempt[T any](fn func() (T, error)) outcome[T] {
	v, err := fn()
	return outcome[T]{value: v, err: err}
}

func (o outcome[T]) failed() bool { return o.err != nil }

// fatal reports an authentication failure of the primary tenant.
func (o outcome[T]) fatal() bool {
	tenant, ok := token.FailedTenant(o.err)
	return ok && tenant == model.TenantPrimary
}

// abort wraps a fatal outcome's error for the caller.
func (o outcome[T]) abort() error {
	return fmt.Errorf("%w: %w", ErrPrimaryUnavailable, o.err)
}
