package clients

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/vitwit/l402/types"
)

// errRejected reports that the backend refused the invoice request.
func errRejected(backend types.BackendKind, reason string) error {
	return &types.L402Error{
		Code:    types.ErrBackendRejected,
		Message: fmt.Sprintf("%s backend rejected invoice: %s", backend, reason),
	}
}

// errUnavailable wraps a transport-level failure reaching the backend.
func errUnavailable(backend types.BackendKind, err error) error {
	return &types.L402Error{
		Code:    types.ErrBackendUnavailable,
		Message: fmt.Sprintf("%s backend unavailable: %v", backend, err),
	}
}

// errTimeout reports that the invoice call did not complete in time.
func errTimeout(backend types.BackendKind) error {
	return &types.L402Error{
		Code:    types.ErrBackendTimeout,
		Message: fmt.Sprintf("%s backend timed out", backend),
	}
}

// errTransport classifies a transport failure as timeout or unavailability.
// Both the context and the cause are consulted: a connection deadline
// derived from the context can fire a hair before the context itself.
func errTransport(backend types.BackendKind, ctx context.Context, cause error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return errTimeout(backend)
	}

	var netErr net.Error
	if errors.As(cause, &netErr) && netErr.Timeout() {
		return errTimeout(backend)
	}

	return errUnavailable(backend, cause)
}
