package auth

import "github.com/jrsteele09/go-otp-auth-server/oauth2"

// TokenParameters holds the parsed body of an OAuth2 token request.
type TokenParameters struct {
	// GrantType selects the protocol variant: password, client_credentials
	// or refresh_token.
	GrantType oauth2.GrantType

	// ClientID identifies the OAuth2 client making the request.
	// Required for all grant types.
	ClientID string

	// ClientSecret is the client credential. Required for all grant types;
	// this server registers confidential clients only.
	// Security: never log or expose this value.
	ClientSecret string

	// Username and Password are the resource-owner credentials.
	// Required only for the password grant.
	Username string
	Password string

	// RefreshToken is the opaque token being exchanged.
	// Required only for the refresh_token grant. Rotated on use.
	RefreshToken string

	// Scope is the requested scope; when empty the client's registered
	// scope is granted.
	Scope string
}
