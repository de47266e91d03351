package token

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/jrsteele09/go-otp-auth-server/clients"
	autherrors "github.com/jrsteele09/go-otp-auth-server/internal/errors"
	"github.com/jrsteele09/go-otp-auth-server/oauth2"
	"github.com/jrsteele09/go-otp-auth-server/users"
)

const (
	accessTokenLength  = 32 // bytes before hex encoding
	refreshTokenLength = 48 // bytes before hex encoding
)

// Issued pairs a persisted token with the plaintext refresh token, which is
// never stored and must be passed straight back to the caller.
type Issued struct {
	Token        *Token
	RefreshToken string
}

// Store mints, persists and validates tokens. Lifetimes come from a
// per-grant table; refresh tokens rotate on exchange.
type Store struct {
	repo          Repo
	secretKey     []byte
	lifetimes     map[oauth2.GrantType]time.Duration
	defaultExpiry time.Duration
	refreshExpiry time.Duration
	nowTime       func() time.Time
}

type StoreOption func(*Store)

// WithLifetimes sets the per-grant access token lifetime table.
func WithLifetimes(lifetimes map[oauth2.GrantType]time.Duration) StoreOption {
	return func(s *Store) {
		s.lifetimes = lifetimes
	}
}

// WithDefaultLifetime sets the fallback lifetime for grant kinds without a
// table entry.
func WithDefaultLifetime(d time.Duration) StoreOption {
	return func(s *Store) {
		s.defaultExpiry = d
	}
}

// WithRefreshExpiry sets how long a refresh token stays exchangeable.
func WithRefreshExpiry(d time.Duration) StoreOption {
	return func(s *Store) {
		s.refreshExpiry = d
	}
}

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) StoreOption {
	return func(s *Store) {
		s.nowTime = nowFunc
	}
}

func NewStore(repo Repo, secretKey []byte, options ...StoreOption) (*Store, error) {
	if repo == nil {
		return nil, errors.New("[NewStore] token repo is required")
	}
	if len(secretKey) == 0 {
		return nil, errors.New("[NewStore] secret key is required")
	}

	s := &Store{
		repo:          repo,
		secretKey:     secretKey,
		lifetimes:     map[oauth2.GrantType]time.Duration{},
		defaultExpiry: time.Hour,
		refreshExpiry: 30 * 24 * time.Hour,
		nowTime:       time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// Issue mints and persists a token for the given principal. user is nil for
// machine tokens; those get no refresh token.
func (s *Store) Issue(ctx context.Context, user *users.User, client *clients.Client, scope string, grant oauth2.GrantType) (*Issued, error) {
	issued, err := s.mint(user, client, scope, grant)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Insert(ctx, issued.Token); err != nil {
		return nil, errors.Wrap(err, "[Store.Issue] repo.Insert")
	}
	return issued, nil
}

// Resolve returns the token record behind an access token string.
func (s *Store) Resolve(ctx context.Context, accessToken string) (*Token, error) {
	tok, err := s.repo.GetByAccessToken(ctx, accessToken)
	if err != nil {
		return nil, errors.Wrap(err, "[Store.Resolve] GetByAccessToken")
	}
	return tok, nil
}

// IsValid reports whether a resolved token is usable right now.
func (s *Store) IsValid(tok *Token) bool {
	return tok.IsValid(s.nowTime())
}

// Revoke marks a token revoked. Logical revocation suffices; rows are never
// deleted.
func (s *Store) Revoke(ctx context.Context, tok *Token) error {
	if err := s.repo.Revoke(ctx, tok.ID); err != nil {
		return errors.Wrap(err, "[Store.Revoke] repo.Revoke")
	}
	return nil
}

// ExchangeRefresh rotates a refresh token: the presented token must be
// known, unexpired, unrevoked and owned by the presenting client. The old
// token row is revoked in the same transaction that persists the new one,
// so replaying a spent refresh token fails.
func (s *Store) ExchangeRefresh(ctx context.Context, refreshToken string, user UserResolver, client *clients.Client) (*Issued, error) {
	old, err := s.repo.GetByRefreshFingerprint(ctx, s.fingerprint(refreshToken))
	if err != nil {
		return nil, errors.Wrap(autherrors.ErrInvalidGrant, "[Store.ExchangeRefresh] unknown refresh token")
	}
	if old.ClientID != client.ID {
		return nil, errors.Wrap(autherrors.ErrInvalidGrant, "[Store.ExchangeRefresh] refresh token not owned by client")
	}
	if old.Revoked {
		return nil, errors.Wrap(autherrors.ErrInvalidGrant, "[Store.ExchangeRefresh] refresh token revoked")
	}
	if !s.nowTime().Before(old.IssuedAt.Add(s.refreshExpiry)) {
		return nil, errors.Wrap(autherrors.ErrInvalidGrant, "[Store.ExchangeRefresh] refresh token expired")
	}

	owner, err := user.GetByID(ctx, old.UserID)
	if err != nil {
		return nil, errors.Wrap(autherrors.ErrInvalidGrant, "[Store.ExchangeRefresh] token owner no longer exists")
	}

	issued, err := s.mint(owner, client, old.Scope, oauth2.RefreshTokenGrant)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Rotate(ctx, old.ID, issued.Token); err != nil {
		if autherrors.Is(err, autherrors.ErrTokenRevoked) {
			return nil, errors.Wrap(autherrors.ErrInvalidGrant, "[Store.ExchangeRefresh] refresh token already exchanged")
		}
		return nil, errors.Wrap(err, "[Store.ExchangeRefresh] repo.Rotate")
	}
	return issued, nil
}

// UserResolver is the slice of the user repository the store needs to
// re-bind a rotated token to its owner.
type UserResolver interface {
	GetByID(ctx context.Context, id string) (*users.User, error)
}

func (s *Store) mint(user *users.User, client *clients.Client, scope string, grant oauth2.GrantType) (*Issued, error) {
	accessToken, err := generateOpaque(accessTokenLength)
	if err != nil {
		return nil, errors.Wrap(err, "[Store.mint] generate access token")
	}

	tok := &Token{
		ID:          uuid.New().String(),
		ClientID:    client.ID,
		GrantType:   grant,
		Scope:       scope,
		AccessToken: accessToken,
		IssuedAt:    s.nowTime(),
		Lifetime:    s.lifetimeFor(grant),
	}

	issued := &Issued{Token: tok}
	if user != nil {
		tok.UserID = user.ID
		refreshToken, err := generateOpaque(refreshTokenLength)
		if err != nil {
			return nil, errors.Wrap(err, "[Store.mint] generate refresh token")
		}
		tok.RefreshFingerprint = s.fingerprint(refreshToken)
		issued.RefreshToken = refreshToken
	}
	return issued, nil
}

func (s *Store) lifetimeFor(grant oauth2.GrantType) time.Duration {
	if lifetime, ok := s.lifetimes[grant]; ok {
		return lifetime
	}
	return s.defaultExpiry
}

// fingerprint keys the stored refresh token hash with the server secret so
// a leaked database alone cannot be replayed against the token endpoint.
func (s *Store) fingerprint(refreshToken string) string {
	mac := hmac.New(sha256.New, s.secretKey)
	mac.Write([]byte(refreshToken))
	return hex.EncodeToString(mac.Sum(nil))
}

func generateOpaque(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
