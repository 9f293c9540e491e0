// Package auth issues and verifies session tokens and adapts OAuth providers.
package auth

import "errors"

var (
	// ErrUnknownProvider is returned for a provider name with no configured strategy.
	ErrUnknownProvider = errors.New("unknown oauth provider")
	// ErrAccountConflict means the profile email belongs to an account already
	// linked to a different identity at the same provider.
	ErrAccountConflict = errors.New("account already linked to another identity")
	// ErrInvalidToken covers malformed, expired, mis-signed and wrong-purpose tokens.
	ErrInvalidToken = errors.New("invalid or expired token")
	// ErrMissingEmail is returned when a provider does not disclose an email address.
	ErrMissingEmail = errors.New("oauth profile has no email")
)
