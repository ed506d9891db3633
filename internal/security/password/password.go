// Package password is the password hashing capability used by the API layer.
//
// It wraps bcrypt behind a small hash/verify surface so the rest of the
// codebase never touches the primitive directly.
package password

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

const (
	// MinLength is the minimum accepted password length.
	MinLength = 8

	// MaxLength guards against bcrypt's 72-byte input truncation.
	MaxLength = 72
)

var (
	// ErrTooShort is returned when a password is below MinLength.
	ErrTooShort = errors.New("password too short")

	// ErrTooLong is returned when a password exceeds MaxLength bytes.
	ErrTooLong = errors.New("password too long")
)

// Hash returns a bcrypt digest of plain using the default cost.
func Hash(plain string) (string, error) {
	if len(plain) < MinLength {
		return "", ErrTooShort
	}
	if len(plain) > MaxLength {
		return "", ErrTooLong
	}

	digest, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

// Verify reports whether plain matches the stored bcrypt digest.
// It never returns an error for a plain mismatch, only for malformed digests.
func Verify(plain, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plain)) == nil
}
