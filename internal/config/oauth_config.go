package config

import (
	"strconv"
	"time"

	"github.com/jrsteele09/go-otp-auth-server/oauth2"
)

type OAuthConfig interface {
	GetTokenLifetimes() map[oauth2.GrantType]time.Duration
	GetDefaultTokenLifetime() time.Duration
	GetRefreshTokenExpiry() time.Duration
}

type OAuth struct{}

var _ OAuthConfig = OAuth{}

// GetTokenLifetimes returns the per-grant access token lifetime table.
// Each entry is overridable via TOKEN_EXPIRY_<GRANT> in seconds.
func (OAuth) GetTokenLifetimes() map[oauth2.GrantType]time.Duration {
	return map[oauth2.GrantType]time.Duration{
		oauth2.PasswordGrant:          getDurationSeconds("TOKEN_EXPIRY_PASSWORD", 864000),
		oauth2.ClientCredentialsGrant: getDurationSeconds("TOKEN_EXPIRY_CLIENT_CREDENTIALS", 864000),
		oauth2.AuthorizationCodeGrant: getDurationSeconds("TOKEN_EXPIRY_AUTHORIZATION_CODE", 864000),
		oauth2.ImplicitGrant:          getDurationSeconds("TOKEN_EXPIRY_IMPLICIT", 3600),
	}
}

// GetDefaultTokenLifetime is the fallback for grant kinds without an entry
// in the lifetime table (e.g. tokens minted on refresh exchange).
func (OAuth) GetDefaultTokenLifetime() time.Duration {
	return getDurationSeconds("TOKEN_EXPIRY_DEFAULT", 3600)
}

// GetRefreshTokenExpiry returns how long an issued refresh token stays
// exchangeable.
func (OAuth) GetRefreshTokenExpiry() time.Duration {
	return getDurationSeconds("REFRESH_TOKEN_EXPIRY", 30*24*3600)
}

func getDurationSeconds(envVar string, defaultSeconds int) time.Duration {
	value := GetEnv(envVar, "")
	if value == "" {
		return time.Duration(defaultSeconds) * time.Second
	}
	seconds, err := strconv.Atoi(value)
	if err != nil || seconds <= 0 {
		return time.Duration(defaultSeconds) * time.Second
	}
	return time.Duration(seconds) * time.Second
}
