package clients

import (
	"crypto/subtle"
	"strings"
	"time"

	autherrors "github.com/jrsteele09/go-otp-auth-server/internal/errors"
	"github.com/jrsteele09/go-otp-auth-server/oauth2"
)

// Metadata is the structured blob of client capabilities persisted alongside
// the credentials. It mirrors what the client declared at registration.
type Metadata struct {
	ClientName    string             `json:"client_name"`
	ClientURI     string             `json:"client_uri,omitempty"`
	GrantTypes    []oauth2.GrantType `json:"grant_types"`
	ResponseTypes []string           `json:"response_types"`
	RedirectURIs  []string           `json:"redirect_uris"`
	Scope         string             `json:"scope"`
}

// Client is a registered OAuth2 client. ID and Secret are generated server
// side from a cryptographically secure source and are never user-supplied.
type Client struct {
	ID        string    `json:"client_id"`
	Secret    string    `json:"-"` // never serialize
	Name      string    `json:"client_name"`
	Metadata  Metadata  `json:"metadata"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// CheckSecret compares a presented secret in constant time.
func (c *Client) CheckSecret(secret string) bool {
	return subtle.ConstantTimeCompare([]byte(c.Secret), []byte(secret)) == 1
}

// AllowsGrant reports whether the client declared the given grant type at
// registration.
func (c *Client) AllowsGrant(grant oauth2.GrantType) bool {
	for _, g := range c.Metadata.GrantTypes {
		if g == grant {
			return true
		}
	}
	return false
}

// HasScope checks if the client has permission for a specific scope
func (c *Client) HasScope(scope string) bool {
	for _, s := range strings.Fields(c.Metadata.Scope) {
		if s == scope {
			return true
		}
	}
	return false
}

// ValidateScopes checks if all requested scopes are within what the client
// was registered with.
func (c *Client) ValidateScopes(requestedScopes string) error {
	for _, scope := range strings.Fields(requestedScopes) {
		if !c.HasScope(scope) {
			return autherrors.ErrInvalidScope
		}
	}
	return nil
}
