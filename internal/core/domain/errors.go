package domain

import "errors"

var (
	// ErrAuthentication is the only error a sign-in attempt surfaces. Unknown
	// users, disallowed roles and empty credentials all map to it.
	ErrAuthentication = errors.New("authentication failed")

	// ErrAuthorization means the caller is authenticated but lacks the role or
	// feature permission for the route or action.
	ErrAuthorization = errors.New("not authorized")

	// ErrImpersonationState rejects starting while already impersonating and
	// ending while not impersonating. The session is left untouched.
	ErrImpersonationState = errors.New("invalid impersonation state")

	// ErrTransientSessionWrite means the session store could not be read or
	// written. Nothing was persisted and the caller may retry.
	ErrTransientSessionWrite = errors.New("session store unavailable")

	ErrSessionNotFound  = errors.New("session not found")
	ErrUserNotFound     = errors.New("user not found")
	ErrCustomerNotFound = errors.New("customer not found")
	// ErrCustomerInactive rejects impersonating a suspended customer account.
	ErrCustomerInactive = errors.New("customer not active")
	ErrInvalidUser      = errors.New("invalid user")
	ErrInvalidSession   = errors.New("invalid session")
)
