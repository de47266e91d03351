package clients

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/pkg/errors"

	autherrors "github.com/jrsteele09/go-otp-auth-server/internal/errors"
	"github.com/jrsteele09/go-otp-auth-server/oauth2"
)

const (
	clientIDLength     = 24 // bytes of entropy behind a generated client_id
	clientSecretLength = 48 // bytes of entropy behind a generated client_secret
)

// DefaultGrantTypes is what a client is allowed when it declares nothing at
// registration.
var DefaultGrantTypes = []oauth2.GrantType{
	oauth2.ClientCredentialsGrant,
	oauth2.AuthorizationCodeGrant,
	oauth2.PasswordGrant,
	oauth2.RefreshTokenGrant,
}

const DefaultScope = "profile email"

// Registry owns registered OAuth2 client identities. Secrets are returned
// exactly once from Register and are not retrievable later.
type Registry struct {
	repo    Repo
	nowTime func() time.Time
}

type RegistryOption func(*Registry)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) RegistryOption {
	return func(r *Registry) {
		r.nowTime = nowFunc
	}
}

func NewRegistry(repo Repo, options ...RegistryOption) (*Registry, error) {
	if repo == nil {
		return nil, errors.New("[NewRegistry] client repo is required")
	}
	r := &Registry{
		repo:    repo,
		nowTime: time.Now,
	}
	for _, opt := range options {
		opt(r)
	}
	return r, nil
}

// Register creates a client with generated credentials. Grant types and
// scope default when omitted; name uniqueness is enforced by the store.
func (r *Registry) Register(ctx context.Context, name, redirectURI string, grantTypes []oauth2.GrantType, scope string) (*Client, error) {
	if name == "" || redirectURI == "" {
		return nil, errors.Wrap(autherrors.ErrInvalidInput, "[Registry.Register] client name and redirect URI are required")
	}
	if len(grantTypes) == 0 {
		grantTypes = DefaultGrantTypes
	}
	if scope == "" {
		scope = DefaultScope
	}

	clientID, err := generateCredential(clientIDLength)
	if err != nil {
		return nil, errors.Wrap(err, "[Registry.Register] generate client_id")
	}
	clientSecret, err := generateCredential(clientSecretLength)
	if err != nil {
		return nil, errors.Wrap(err, "[Registry.Register] generate client_secret")
	}

	client := &Client{
		ID:     clientID,
		Secret: clientSecret,
		Name:   name,
		Metadata: Metadata{
			ClientName:    name,
			ClientURI:     redirectURI,
			GrantTypes:    grantTypes,
			ResponseTypes: []string{"code"},
			RedirectURIs:  []string{redirectURI},
			Scope:         scope,
		},
		CreatedAt: r.nowTime(),
	}

	if err := r.repo.Create(ctx, client); err != nil {
		return nil, errors.Wrap(err, "[Registry.Register] repo.Create")
	}
	return client, nil
}

// Lookup resolves a client by its client_id.
func (r *Registry) Lookup(ctx context.Context, clientID string) (*Client, error) {
	client, err := r.repo.Get(ctx, clientID)
	if err != nil {
		return nil, errors.Wrap(err, "[Registry.Lookup] repo.Get")
	}
	return client, nil
}

func generateCredential(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}
