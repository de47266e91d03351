package token_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-otp-auth-server/clients"
	autherrors "github.com/jrsteele09/go-otp-auth-server/internal/errors"
	"github.com/jrsteele09/go-otp-auth-server/oauth2"
	"github.com/jrsteele09/go-otp-auth-server/storage/sqlite"
	"github.com/jrsteele09/go-otp-auth-server/token"
	"github.com/jrsteele09/go-otp-auth-server/users"
)

const testSecretKey = "test-secret-key"

type testFixture struct {
	store  *token.Store
	users  users.UserRepo
	user   *users.User
	client *clients.Client
	now    time.Time

	advance func(d time.Duration)
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()
	ctx := context.Background()

	storage, err := sqlite.New(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = storage.Close() })

	f := &testFixture{users: storage.Users(), now: time.Now()}
	f.advance = func(d time.Duration) { f.now = f.now.Add(d) }

	f.store, err = token.NewStore(storage.Tokens(), []byte(testSecretKey),
		token.WithLifetimes(map[oauth2.GrantType]time.Duration{
			oauth2.PasswordGrant:          time.Hour,
			oauth2.ClientCredentialsGrant: time.Hour,
		}),
		token.WithDefaultLifetime(30*time.Minute),
		token.WithRefreshExpiry(24*time.Hour),
		token.WithNowTime(func() time.Time { return f.now }),
	)
	require.NoError(t, err)

	f.user = &users.User{
		ID:          uuid.New().String(),
		Username:    "alice",
		OTPVerified: true,
		CreatedAt:   f.now,
	}
	require.NoError(t, f.users.Create(ctx, f.user))

	registry, err := clients.NewRegistry(storage.Clients())
	require.NoError(t, err)
	f.client, err = registry.Register(ctx, "test-app", "http://localhost/cb", nil, "")
	require.NoError(t, err)

	return f
}

func TestIssue(t *testing.T) {
	t.Run("user token carries a refresh token", func(t *testing.T) {
		f := setupTestFixture(t)

		issued, err := f.store.Issue(context.Background(), f.user, f.client, "profile", oauth2.PasswordGrant)
		require.NoError(t, err)
		require.Len(t, issued.Token.AccessToken, 64) // 32 bytes hex encoded
		require.NotEmpty(t, issued.RefreshToken)
		require.Equal(t, f.user.ID, issued.Token.UserID)
		require.Equal(t, time.Hour, issued.Token.Lifetime)
	})

	t.Run("machine token has no user and no refresh token", func(t *testing.T) {
		f := setupTestFixture(t)

		issued, err := f.store.Issue(context.Background(), nil, f.client, "profile", oauth2.ClientCredentialsGrant)
		require.NoError(t, err)
		require.Empty(t, issued.Token.UserID)
		require.Empty(t, issued.RefreshToken)
		require.Empty(t, issued.Token.RefreshFingerprint)
	})

	t.Run("access tokens are unique across issuance", func(t *testing.T) {
		f := setupTestFixture(t)

		first, err := f.store.Issue(context.Background(), f.user, f.client, "profile", oauth2.PasswordGrant)
		require.NoError(t, err)
		second, err := f.store.Issue(context.Background(), f.user, f.client, "profile", oauth2.PasswordGrant)
		require.NoError(t, err)
		require.NotEqual(t, first.Token.AccessToken, second.Token.AccessToken)
		require.NotEqual(t, first.RefreshToken, second.RefreshToken)
	})
}

func TestResolveAndValidity(t *testing.T) {
	t.Run("valid immediately after issuance, invalid after expiry", func(t *testing.T) {
		f := setupTestFixture(t)

		issued, err := f.store.Issue(context.Background(), f.user, f.client, "profile", oauth2.PasswordGrant)
		require.NoError(t, err)

		resolved, err := f.store.Resolve(context.Background(), issued.Token.AccessToken)
		require.NoError(t, err)
		require.True(t, f.store.IsValid(resolved))

		f.advance(time.Hour - time.Second)
		require.True(t, f.store.IsValid(resolved))

		f.advance(2 * time.Second) // strictly past issued_at + lifetime
		require.False(t, f.store.IsValid(resolved))
	})

	t.Run("invalid immediately once revoked", func(t *testing.T) {
		f := setupTestFixture(t)

		issued, err := f.store.Issue(context.Background(), f.user, f.client, "profile", oauth2.PasswordGrant)
		require.NoError(t, err)
		require.NoError(t, f.store.Revoke(context.Background(), issued.Token))

		resolved, err := f.store.Resolve(context.Background(), issued.Token.AccessToken)
		require.NoError(t, err)
		require.False(t, f.store.IsValid(resolved))
	})

	t.Run("unknown access token is not found", func(t *testing.T) {
		f := setupTestFixture(t)

		_, err := f.store.Resolve(context.Background(), "nope")
		require.ErrorIs(t, err, autherrors.ErrTokenNotFound)
	})
}

func TestExchangeRefresh(t *testing.T) {
	t.Run("rotates and invalidates the old refresh token", func(t *testing.T) {
		f := setupTestFixture(t)
		ctx := context.Background()

		issued, err := f.store.Issue(ctx, f.user, f.client, "profile", oauth2.PasswordGrant)
		require.NoError(t, err)

		rotated, err := f.store.ExchangeRefresh(ctx, issued.RefreshToken, f.users, f.client)
		require.NoError(t, err)
		require.NotEqual(t, issued.Token.AccessToken, rotated.Token.AccessToken)
		require.NotEqual(t, issued.RefreshToken, rotated.RefreshToken)
		require.Equal(t, f.user.ID, rotated.Token.UserID)
		require.Equal(t, "profile", rotated.Token.Scope)

		// replaying the spent refresh token fails
		_, err = f.store.ExchangeRefresh(ctx, issued.RefreshToken, f.users, f.client)
		require.ErrorIs(t, err, autherrors.ErrInvalidGrant)

		// and the old access token is revoked alongside it
		old, err := f.store.Resolve(ctx, issued.Token.AccessToken)
		require.NoError(t, err)
		require.False(t, f.store.IsValid(old))
	})

	t.Run("unknown refresh token fails with invalid grant", func(t *testing.T) {
		f := setupTestFixture(t)

		_, err := f.store.ExchangeRefresh(context.Background(), "bogus", f.users, f.client)
		require.ErrorIs(t, err, autherrors.ErrInvalidGrant)
	})

	t.Run("refresh token owned by another client is rejected", func(t *testing.T) {
		f := setupTestFixture(t)
		ctx := context.Background()

		issued, err := f.store.Issue(ctx, f.user, f.client, "profile", oauth2.PasswordGrant)
		require.NoError(t, err)

		other := &clients.Client{ID: "other-client"}
		_, err = f.store.ExchangeRefresh(ctx, issued.RefreshToken, f.users, other)
		require.ErrorIs(t, err, autherrors.ErrInvalidGrant)
	})

	t.Run("expired refresh token is rejected", func(t *testing.T) {
		f := setupTestFixture(t)
		ctx := context.Background()

		issued, err := f.store.Issue(ctx, f.user, f.client, "profile", oauth2.PasswordGrant)
		require.NoError(t, err)

		f.advance(24*time.Hour + time.Second)
		_, err = f.store.ExchangeRefresh(ctx, issued.RefreshToken, f.users, f.client)
		require.ErrorIs(t, err, autherrors.ErrInvalidGrant)
	})
}
