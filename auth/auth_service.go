package auth

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/jrsteele09/go-otp-auth-server/clients"
	autherrors "github.com/jrsteele09/go-otp-auth-server/internal/errors"
	"github.com/jrsteele09/go-otp-auth-server/oauth2"
	"github.com/jrsteele09/go-otp-auth-server/token"
	"github.com/jrsteele09/go-otp-auth-server/users"
)

// Deps holds all service dependencies for the AuthorizationService.
type Deps struct {
	Credentials *users.CredentialService // Password + TOTP gate for the password grant
	Users       users.UserRepo           // Principal resolution for bearer tokens and refresh exchange
	Clients     *clients.Registry        // Client identity and grant/scope authorization
	Tokens      *token.Store             // Token lifecycle engine
}

// AuthorizationService is the grant dispatcher: it decides which grant
// protocol applies to a token request, authenticates the principal per that
// protocol's rules and asks the token store to mint. Grant kinds are a
// closed set dispatched through an explicit switch.
type AuthorizationService struct {
	deps Deps
}

func NewAuthorizationService(deps Deps) (*AuthorizationService, error) {
	if deps.Credentials == nil {
		return nil, errors.New("[NewAuthorizationService] Credentials service is required")
	}
	if deps.Users == nil {
		return nil, errors.New("[NewAuthorizationService] Users repo is required")
	}
	if deps.Clients == nil {
		return nil, errors.New("[NewAuthorizationService] Clients registry is required")
	}
	if deps.Tokens == nil {
		return nil, errors.New("[NewAuthorizationService] Tokens store is required")
	}
	return &AuthorizationService{deps: deps}, nil
}

// Token handles the OAuth 2.0 token request. Client authentication happens
// before any grant-specific logic; grant dispatch is an explicit switch over
// the closed grant set.
func (as *AuthorizationService) Token(ctx context.Context, params TokenParameters) (*oauth2.TokenResponse, error) {
	client, err := as.deps.Clients.Lookup(ctx, params.ClientID)
	if err != nil {
		return nil, errors.Wrap(autherrors.ErrInvalidClient, "[AuthorizationService.Token] unknown client")
	}
	if !client.CheckSecret(params.ClientSecret) {
		return nil, errors.Wrap(autherrors.ErrInvalidClient, "[AuthorizationService.Token] client secret incorrect")
	}

	switch params.GrantType {
	case oauth2.PasswordGrant:
		return as.passwordGrant(ctx, client, params)
	case oauth2.ClientCredentialsGrant:
		return as.clientCredentialsGrant(ctx, client, params)
	case oauth2.RefreshTokenGrant:
		return as.refreshTokenGrant(ctx, client, params)
	default:
		return nil, errors.Wrapf(autherrors.ErrUnsupportedGrantType, "[AuthorizationService.Token] %q", params.GrantType)
	}
}

// passwordGrant authenticates the resource owner through the credential
// service, which embeds the OTP-verified gate. All authentication failures
// collapse to invalid_grant so callers cannot enumerate which factor failed.
func (as *AuthorizationService) passwordGrant(ctx context.Context, client *clients.Client, params TokenParameters) (*oauth2.TokenResponse, error) {
	if !client.AllowsGrant(oauth2.PasswordGrant) {
		return nil, errors.Wrap(autherrors.ErrUnauthorizedClient, "[AuthorizationService.passwordGrant] grant not allowed for client")
	}
	scope, err := resolveScope(client, params.Scope)
	if err != nil {
		return nil, err
	}

	user, err := as.deps.Credentials.Authenticate(ctx, params.Username, params.Password)
	if err != nil {
		return nil, errors.Wrap(err, "[AuthorizationService.passwordGrant] Authenticate")
	}
	if user == nil {
		return nil, errors.Wrap(autherrors.ErrInvalidGrant, "[AuthorizationService.passwordGrant] authentication failed")
	}

	issued, err := as.deps.Tokens.Issue(ctx, user, client, scope, oauth2.PasswordGrant)
	if err != nil {
		return nil, errors.Wrap(err, "[AuthorizationService.passwordGrant] Issue")
	}
	return tokenResponse(issued), nil
}

// clientCredentialsGrant issues a machine token bound only to the client.
func (as *AuthorizationService) clientCredentialsGrant(ctx context.Context, client *clients.Client, params TokenParameters) (*oauth2.TokenResponse, error) {
	if !client.AllowsGrant(oauth2.ClientCredentialsGrant) {
		return nil, errors.Wrap(autherrors.ErrUnauthorizedClient, "[AuthorizationService.clientCredentialsGrant] grant not allowed for client")
	}
	scope, err := resolveScope(client, params.Scope)
	if err != nil {
		return nil, err
	}

	issued, err := as.deps.Tokens.Issue(ctx, nil, client, scope, oauth2.ClientCredentialsGrant)
	if err != nil {
		return nil, errors.Wrap(err, "[AuthorizationService.clientCredentialsGrant] Issue")
	}
	return tokenResponse(issued), nil
}

// refreshTokenGrant delegates to the token store's rotating exchange.
func (as *AuthorizationService) refreshTokenGrant(ctx context.Context, client *clients.Client, params TokenParameters) (*oauth2.TokenResponse, error) {
	if !client.AllowsGrant(oauth2.RefreshTokenGrant) {
		return nil, errors.Wrap(autherrors.ErrUnauthorizedClient, "[AuthorizationService.refreshTokenGrant] grant not allowed for client")
	}
	if params.RefreshToken == "" {
		return nil, errors.Wrap(autherrors.ErrInvalidGrant, "[AuthorizationService.refreshTokenGrant] refresh_token is required")
	}

	issued, err := as.deps.Tokens.ExchangeRefresh(ctx, params.RefreshToken, as.deps.Users, client)
	if err != nil {
		return nil, errors.Wrap(err, "[AuthorizationService.refreshTokenGrant] ExchangeRefresh")
	}
	return tokenResponse(issued), nil
}

func resolveScope(client *clients.Client, requested string) (string, error) {
	if requested == "" {
		return client.Metadata.Scope, nil
	}
	if err := client.ValidateScopes(requested); err != nil {
		return "", errors.Wrap(err, "[AuthorizationService] scope not granted to client")
	}
	return requested, nil
}

func tokenResponse(issued *token.Issued) *oauth2.TokenResponse {
	return &oauth2.TokenResponse{
		AccessToken:  issued.Token.AccessToken,
		TokenType:    "Bearer",
		ExpiresIn:    int(issued.Token.Lifetime / time.Second),
		RefreshToken: issued.RefreshToken,
		Scope:        issued.Token.Scope,
	}
}
