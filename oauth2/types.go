package oauth2

// GrantType represents the OAuth 2.0 grant type used at the token endpoint.
// The supported set is closed and security-sensitive: dispatch happens via
// an explicit switch, never open-ended registration.
type GrantType string

const (
	// PasswordGrant exchanges resource-owner credentials for tokens.
	// Token request includes: username, password, client_id, client_secret, scope
	// Only succeeds for users that have completed TOTP verification.
	PasswordGrant GrantType = "password"

	// ClientCredentialsGrant allows machine-to-machine authentication.
	// Token request includes: client_id, client_secret, scope
	// Returns an access token with no associated user and no refresh token.
	ClientCredentialsGrant GrantType = "client_credentials"

	// RefreshTokenGrant exchanges a refresh token for new tokens.
	// Token request includes: refresh_token, client_id, client_secret
	// The presented refresh token is rotated: the old one is invalidated.
	RefreshTokenGrant GrantType = "refresh_token"

	// AuthorizationCodeGrant and ImplicitGrant are not dispatched by this
	// server. They exist so that client metadata and the per-grant lifetime
	// table can carry them, matching registered client declarations.
	AuthorizationCodeGrant GrantType = "authorization_code"
	ImplicitGrant          GrantType = "implicit"
)

// Error codes defined by RFC 6749 section 5.2.
const (
	ErrorInvalidRequest       = "invalid_request"
	ErrorInvalidClient        = "invalid_client"
	ErrorInvalidGrant         = "invalid_grant"
	ErrorInvalidScope         = "invalid_scope"
	ErrorUnauthorizedClient   = "unauthorized_client"
	ErrorUnsupportedGrantType = "unsupported_grant_type"
)

// ErrorResponse is the standard OAuth2 error body returned by the token
// endpoint on failure.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}
