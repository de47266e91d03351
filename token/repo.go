package token

import "context"

type Repo interface {
	Insert(ctx context.Context, tok *Token) error
	GetByAccessToken(ctx context.Context, accessToken string) (*Token, error)
	GetByRefreshFingerprint(ctx context.Context, fingerprint string) (*Token, error)
	// Rotate revokes the token identified by oldID and inserts the
	// replacement in a single transaction. Returns errors.ErrTokenRevoked
	// when the old token was already revoked, so a concurrent double
	// exchange loses.
	Rotate(ctx context.Context, oldID string, replacement *Token) error
	Revoke(ctx context.Context, id string) error
}
