// Package common defines shared constants and sentinel errors used across
// the service layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal = errors.New("internal error")

	// Login and session errors. Unknown email, wrong password, and any
	// token defect all map to ErrInvalidCredentials so callers cannot
	// distinguish between them.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountInactive    = errors.New("account inactive")

	// Registration / user management errors.
	ErrEmailAlreadyExists = errors.New("email already registered")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidRole        = errors.New("invalid role")
	ErrWeakPassword       = errors.New("password does not meet policy")

	// Recovery protocol errors.
	ErrSecretMismatch           = errors.New("recovery secret mismatch")
	ErrSecretExpired            = errors.New("recovery secret expired")
	ErrMissingSecretInput       = errors.New("reset code or token required")
	ErrUnauthorizedVerification = errors.New("verification rejected")
	ErrInvalidMethod            = errors.New("invalid verification method")
	ErrPhoneRequired            = errors.New("phone number required")
)
