package errors

import (
	"errors"
	"fmt"
)

// Common error types for the function gateway
var (
	// Client-side acquisition errors
	ErrInteraction      = errors.New("interactive sign-in failed")
	ErrTokenAcquisition = errors.New("token acquisition failed")
	ErrNoActiveAccount  = errors.New("no active account")
	ErrNotInitialized   = errors.New("client not initialized")

	// Bearer validation errors
	ErrUnauthenticated = errors.New("not authenticated")
	ErrInvalidToken    = errors.New("invalid token")
	ErrTokenExpired    = errors.New("token expired")
	ErrInvalidIssuer   = errors.New("invalid issuer")
	ErrInvalidAudience = errors.New("invalid audience")

	// Redirect flow errors
	ErrInvalidAuthState = errors.New("invalid auth state")
	ErrAuthStateExpired = errors.New("auth state expired")
	ErrInvalidNonce     = errors.New("invalid nonce")

	// General errors
	ErrNotFound = errors.New("not found")
	ErrInternal = errors.New("internal error")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
