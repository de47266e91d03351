package oauth2

// TokenResponse represents the response from an OAuth2 token request.
// This is the standard OAuth2 token endpoint response format as defined in
// RFC 6749, returned from the /token endpoint for all grant types.
type TokenResponse struct {
	// AccessToken is the opaque bearer credential used to access protected
	// resources. Include in the Authorization header: "Bearer <access_token>".
	AccessToken string `json:"access_token"`

	// TokenType indicates how to use the access token (always "Bearer").
	TokenType string `json:"token_type"`

	// ExpiresIn is the lifetime in seconds of the access token.
	ExpiresIn int `json:"expires_in,omitempty"`

	// RefreshToken is an opaque token used to obtain new access tokens.
	// Absent for machine tokens (client_credentials grant). Rotates on each
	// use: exchanging it invalidates it.
	RefreshToken string `json:"refresh_token,omitempty"`

	// Scope is the space-separated set of permissions the token carries.
	Scope string `json:"scope,omitempty"`
}
