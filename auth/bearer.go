package auth

import (
	"context"

	"github.com/pkg/errors"

	"github.com/jrsteele09/go-otp-auth-server/clients"
	autherrors "github.com/jrsteele09/go-otp-auth-server/internal/errors"
	"github.com/jrsteele09/go-otp-auth-server/token"
	"github.com/jrsteele09/go-otp-auth-server/users"
)

// PrincipalKind distinguishes resource-owner tokens from machine tokens so
// downstream authorization can branch on who is calling.
type PrincipalKind string

const (
	PrincipalUser   PrincipalKind = "user"
	PrincipalClient PrincipalKind = "client"
)

// Principal is the resolved identity behind an accepted bearer token.
// User is set only for resource-owner tokens; Client is always set.
type Principal struct {
	Kind   PrincipalKind
	User   *users.User
	Client *clients.Client
	Token  *token.Token
}

// AuthenticateBearer resolves a presented bearer string to a principal.
// Absent, revoked or expired tokens are rejected with ErrUnauthorized.
func (as *AuthorizationService) AuthenticateBearer(ctx context.Context, bearer string) (*Principal, error) {
	if bearer == "" {
		return nil, errors.Wrap(autherrors.ErrUnauthorized, "[AuthorizationService.AuthenticateBearer] missing bearer token")
	}

	tok, err := as.deps.Tokens.Resolve(ctx, bearer)
	if err != nil {
		return nil, errors.Wrap(autherrors.ErrUnauthorized, "[AuthorizationService.AuthenticateBearer] unknown token")
	}
	if !as.deps.Tokens.IsValid(tok) {
		return nil, errors.Wrap(autherrors.ErrUnauthorized, "[AuthorizationService.AuthenticateBearer] token expired or revoked")
	}

	client, err := as.deps.Clients.Lookup(ctx, tok.ClientID)
	if err != nil {
		return nil, errors.Wrap(autherrors.ErrUnauthorized, "[AuthorizationService.AuthenticateBearer] issuing client no longer exists")
	}

	principal := &Principal{
		Kind:   PrincipalClient,
		Client: client,
		Token:  tok,
	}
	if tok.UserID != "" {
		user, err := as.deps.Users.GetByID(ctx, tok.UserID)
		if err != nil {
			return nil, errors.Wrap(autherrors.ErrUnauthorized, "[AuthorizationService.AuthenticateBearer] token owner no longer exists")
		}
		principal.Kind = PrincipalUser
		principal.User = user
	}
	return principal, nil
}
