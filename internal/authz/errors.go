package authz

import (
	"fmt"

	"github.com/odyssey-erp/bizops/internal/platform/httpx"
)

// AuthenticationError means no principal could be resolved.
type AuthenticationError struct {
	Reason string
}

func (e *AuthenticationError) Error() string {
	return "authz: authentication context missing: " + e.Reason
}

func (e *AuthenticationError) Unwrap() error { return httpx.ErrUnauthorized }

// AuthorizationError means the principal has no effective role granting Action.
type AuthorizationError struct {
	Action Action
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("authz: access denied for action: %s", e.Action)
}

func (e *AuthorizationError) Unwrap() error { return httpx.ErrForbidden }
