package token

import (
	"time"

	"github.com/jrsteele09/go-otp-auth-server/oauth2"
)

// Token is an issued credential binding a principal to an opaque access
// token string. UserID is empty for machine tokens (client_credentials).
// Refresh tokens are stored only as keyed fingerprints; the plaintext
// leaves the process once, in the token response.
type Token struct {
	ID                 string
	UserID             string
	ClientID           string
	GrantType          oauth2.GrantType
	Scope              string
	AccessToken        string
	RefreshFingerprint string
	IssuedAt           time.Time
	Lifetime           time.Duration
	Revoked            bool
}

// ExpiresAt is the instant the access token stops being valid.
func (t *Token) ExpiresAt() time.Time {
	return t.IssuedAt.Add(t.Lifetime)
}

// IsValid reports whether the token is usable at the given instant: it must
// not be revoked and must not have outlived its configured lifetime.
func (t *Token) IsValid(now time.Time) bool {
	if t == nil || t.Revoked {
		return false
	}
	return now.Before(t.ExpiresAt())
}
