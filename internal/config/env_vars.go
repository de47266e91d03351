package config

import (
	"fmt"
	"os"
)

const (
	portEnvVar     = "PORT"
	appNameVar     = "APP_NAME"
	databaseURLVar = "DATABASE_URL"
	secretKeyVar   = "SECRET_KEY"
	otpIssuerVar   = "OTP_ISSUER"
)

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetDatabaseURL() string
	GetSecretKey() string
	GetOTPIssuer() string
	GetEnv() string
}

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetPort() string {
	port := GetEnv(portEnvVar, "8080")
	if port != "" && port[0] != ':' {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "OAuth2 OTP Server")
}

// GetDatabaseURL returns the SQLite DSN. Use ":memory:" for an in-memory
// database (useful for testing).
func (EnvVars) GetDatabaseURL() string {
	return GetEnv(databaseURLVar, "/tmp/dev.db")
}

// GetSecretKey returns the server secret used to fingerprint refresh tokens
// at rest. Must be overridden in any real deployment.
func (EnvVars) GetSecretKey() string {
	return GetEnv(secretKeyVar, "super-secret-change-me")
}

// GetOTPIssuer returns the issuer name embedded in TOTP provisioning URIs.
func (EnvVars) GetOTPIssuer() string {
	return GetEnv(otpIssuerVar, "ThisOAuthServer")
}

func (EnvVars) GetEnv() string {
	env := os.Getenv("ENV")
	if env == "" {
		return "DEV"
	}
	return env
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
