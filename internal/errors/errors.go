package errors

import (
	"errors"
	"fmt"
)

// Common error types for the OAuth2 server
var (
	// Input validation errors
	ErrInvalidInput = errors.New("invalid input")

	// User errors
	ErrUserExists   = errors.New("user already exists")
	ErrUserNotFound = errors.New("user not found")

	// Client errors
	ErrClientExists   = errors.New("client name already exists")
	ErrClientNotFound = errors.New("client not found")

	// Token errors
	ErrTokenNotFound = errors.New("token not found")
	ErrTokenExpired  = errors.New("token expired")
	ErrTokenRevoked  = errors.New("token revoked")

	// OAuth2 protocol errors (RFC 6749 section 5.2)
	ErrInvalidClient        = errors.New("invalid client")
	ErrInvalidGrant         = errors.New("invalid grant")
	ErrInvalidScope         = errors.New("invalid scope")
	ErrUnauthorizedClient   = errors.New("client not authorized for grant type")
	ErrUnsupportedGrantType = errors.New("unsupported grant type")

	// Bearer authentication errors (RFC 6750)
	ErrUnauthorized = errors.New("unauthorized")
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
