package auth

import "errors"

var (
	// ErrTokenMissing is returned when no credential was presented at all.
	ErrTokenMissing = errors.New("auth: token missing")

	// ErrInvalidToken is returned when a presented token fails signature or
	// expiry verification.
	ErrInvalidToken = errors.New("auth: invalid token")

	// ErrConfig is returned for invalid token service configuration.
	ErrConfig = errors.New("auth: invalid config")
)
