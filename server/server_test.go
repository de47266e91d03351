package server_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	xoauth2 "golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/jrsteele09/go-otp-auth-server/auth"
	"github.com/jrsteele09/go-otp-auth-server/clients"
	"github.com/jrsteele09/go-otp-auth-server/internal/config"
	"github.com/jrsteele09/go-otp-auth-server/oauth2"
	"github.com/jrsteele09/go-otp-auth-server/server"
	"github.com/jrsteele09/go-otp-auth-server/storage/sqlite"
	"github.com/jrsteele09/go-otp-auth-server/token"
	"github.com/jrsteele09/go-otp-auth-server/users"
)

func setupTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	ctx := context.Background()

	storage, err := sqlite.New(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = storage.Close() })

	credentials, err := users.NewCredentialService(storage.Users(), "TestIssuer")
	require.NoError(t, err)
	registry, err := clients.NewRegistry(storage.Clients())
	require.NoError(t, err)
	tokens, err := token.NewStore(storage.Tokens(), []byte("test-secret-key"),
		token.WithLifetimes(map[oauth2.GrantType]time.Duration{
			oauth2.PasswordGrant:          time.Hour,
			oauth2.ClientCredentialsGrant: time.Hour,
		}),
		token.WithRefreshExpiry(24*time.Hour),
	)
	require.NoError(t, err)
	authService, err := auth.NewAuthorizationService(auth.Deps{
		Credentials: credentials,
		Users:       storage.Users(),
		Clients:     registry,
		Tokens:      tokens,
	})
	require.NoError(t, err)

	srv, err := server.New(config.New(), zerolog.Nop(), credentials, registry, authService)
	require.NoError(t, err)

	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, url string, body any) (int, map[string]any) {
	t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(t, err)

	resp, err := http.Post(url, "application/json", strings.NewReader(string(payload)))
	require.NoError(t, err)
	defer resp.Body.Close()

	decoded := map[string]any{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp.StatusCode, decoded
}

func getJSON(t *testing.T, url, bearer string) (int, map[string]any) {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	decoded := map[string]any{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp.StatusCode, decoded
}

// registerAndVerifyUser walks the full enrollment: register, extract the
// TOTP secret from the provisioning URI, verify the current code.
func registerAndVerifyUser(t *testing.T, baseURL, username, password string) {
	t.Helper()

	status, body := postJSON(t, baseURL+"/register_user", map[string]string{
		"username": username,
		"password": password,
	})
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "User registered", body["message"])

	otpURI, ok := body["otp_uri"].(string)
	require.True(t, ok)

	parsed, err := url.Parse(otpURI)
	require.NoError(t, err)
	secret := parsed.Query().Get("secret")
	require.NotEmpty(t, secret)

	code, err := totp.GenerateCode(secret, time.Now())
	require.NoError(t, err)

	status, body = postJSON(t, baseURL+"/verify_otp", map[string]string{
		"username": username,
		"code":     code,
	})
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, true, body["valid"])
}

func createClient(t *testing.T, baseURL, name string) (string, string) {
	t.Helper()

	status, body := postJSON(t, baseURL+"/create_client", map[string]string{
		"client_name":  name,
		"redirect_uri": "http://localhost:3000/callback",
	})
	require.Equal(t, http.StatusOK, status)

	clientID, _ := body["client_id"].(string)
	clientSecret, _ := body["client_secret"].(string)
	require.NotEmpty(t, clientID)
	require.NotEmpty(t, clientSecret)
	return clientID, clientSecret
}

func TestResourceOwnerFlow(t *testing.T) {
	ts := setupTestServer(t)
	ctx := context.Background()

	registerAndVerifyUser(t, ts.URL, "alice", "secret123")
	clientID, clientSecret := createClient(t, ts.URL, "web-app")

	conf := &xoauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Scopes:       []string{"profile"},
		Endpoint: xoauth2.Endpoint{
			TokenURL:  ts.URL + "/token",
			AuthStyle: xoauth2.AuthStyleInParams,
		},
	}

	tok, err := conf.PasswordCredentialsToken(ctx, "alice", "secret123")
	require.NoError(t, err)
	require.NotEmpty(t, tok.AccessToken)
	require.NotEmpty(t, tok.RefreshToken)
	require.Equal(t, "Bearer", tok.TokenType)

	status, profile := getJSON(t, ts.URL+"/profile", tok.AccessToken)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "user", profile["type"])
	require.Equal(t, "alice", profile["username"])
	require.Equal(t, true, profile["otp_verified"])
}

func TestPasswordGrantRequiresOTPVerification(t *testing.T) {
	ts := setupTestServer(t)

	// register without verifying the second factor
	status, _ := postJSON(t, ts.URL+"/register_user", map[string]string{
		"username": "bob",
		"password": "secret123",
	})
	require.Equal(t, http.StatusOK, status)
	clientID, clientSecret := createClient(t, ts.URL, "web-app")

	form := url.Values{}
	form.Set("grant_type", "password")
	form.Set("client_id", clientID)
	form.Set("client_secret", clientSecret)
	form.Set("username", "bob")
	form.Set("password", "secret123")

	resp, err := http.PostForm(ts.URL+"/token", form)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var errBody oauth2.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&errBody))
	require.Equal(t, oauth2.ErrorInvalidGrant, errBody.Error)
}

func TestMachineTokenFlow(t *testing.T) {
	ts := setupTestServer(t)
	clientID, clientSecret := createClient(t, ts.URL, "machine-app")

	conf := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     ts.URL + "/token",
		Scopes:       []string{"profile"},
		AuthStyle:    xoauth2.AuthStyleInParams,
	}

	tok, err := conf.Token(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, tok.AccessToken)
	require.Empty(t, tok.RefreshToken)

	status, profile := getJSON(t, ts.URL+"/profile", tok.AccessToken)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "client", profile["type"])
	require.Equal(t, clientID, profile["client_id"])
	require.NotContains(t, profile, "username")
}

func TestRefreshRotation(t *testing.T) {
	ts := setupTestServer(t)
	ctx := context.Background()

	registerAndVerifyUser(t, ts.URL, "alice", "secret123")
	clientID, clientSecret := createClient(t, ts.URL, "web-app")

	conf := &xoauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint: xoauth2.Endpoint{
			TokenURL:  ts.URL + "/token",
			AuthStyle: xoauth2.AuthStyleInParams,
		},
	}
	first, err := conf.PasswordCredentialsToken(ctx, "alice", "secret123")
	require.NoError(t, err)

	exchange := func(refreshToken string) (*http.Response, error) {
		form := url.Values{}
		form.Set("grant_type", "refresh_token")
		form.Set("client_id", clientID)
		form.Set("client_secret", clientSecret)
		form.Set("refresh_token", refreshToken)
		return http.PostForm(ts.URL+"/token", form)
	}

	resp, err := exchange(first.RefreshToken)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var refreshed oauth2.TokenResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&refreshed))
	require.NotEqual(t, first.AccessToken, refreshed.AccessToken)
	require.NotEqual(t, first.RefreshToken, refreshed.RefreshToken)

	// replaying the spent refresh token fails
	replay, err := exchange(first.RefreshToken)
	require.NoError(t, err)
	defer replay.Body.Close()
	require.Equal(t, http.StatusBadRequest, replay.StatusCode)

	var errBody oauth2.ErrorResponse
	require.NoError(t, json.NewDecoder(replay.Body).Decode(&errBody))
	require.Equal(t, oauth2.ErrorInvalidGrant, errBody.Error)
}

func TestRegistrationErrors(t *testing.T) {
	ts := setupTestServer(t)

	status, body := postJSON(t, ts.URL+"/register_user", map[string]string{"username": "alice"})
	require.Equal(t, http.StatusBadRequest, status)
	require.Contains(t, body["error"], "required")

	status, _ = postJSON(t, ts.URL+"/register_user", map[string]string{"username": "alice", "password": "pw"})
	require.Equal(t, http.StatusOK, status)

	status, body = postJSON(t, ts.URL+"/register_user", map[string]string{"username": "alice", "password": "pw"})
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "User already exists", body["error"])
}

func TestVerifyOTPErrors(t *testing.T) {
	ts := setupTestServer(t)

	status, body := postJSON(t, ts.URL+"/verify_otp", map[string]string{"username": "ghost", "code": "123456"})
	require.Equal(t, http.StatusNotFound, status)
	require.Equal(t, "User not found", body["error"])

	postJSON(t, ts.URL+"/register_user", map[string]string{"username": "carol", "password": "pw"})
	status, body = postJSON(t, ts.URL+"/verify_otp", map[string]string{"username": "carol", "code": "000000"})
	require.Equal(t, http.StatusUnauthorized, status)
	require.Equal(t, false, body["valid"])
}

func TestCreateClientErrors(t *testing.T) {
	ts := setupTestServer(t)

	status, body := postJSON(t, ts.URL+"/create_client", map[string]string{"client_name": "app"})
	require.Equal(t, http.StatusBadRequest, status)
	require.Contains(t, body["error"], "required")

	createClient(t, ts.URL, "app")
	status, body = postJSON(t, ts.URL+"/create_client", map[string]string{
		"client_name":  "app",
		"redirect_uri": "http://localhost/cb",
	})
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "Client name already exists", body["error"])
}

func TestTokenEndpointErrors(t *testing.T) {
	ts := setupTestServer(t)
	clientID, clientSecret := createClient(t, ts.URL, "app")

	t.Run("unsupported grant type", func(t *testing.T) {
		form := url.Values{}
		form.Set("grant_type", "authorization_code")
		form.Set("client_id", clientID)
		form.Set("client_secret", clientSecret)

		resp, err := http.PostForm(ts.URL+"/token", form)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)

		var errBody oauth2.ErrorResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&errBody))
		require.Equal(t, oauth2.ErrorUnsupportedGrantType, errBody.Error)
	})

	t.Run("invalid client", func(t *testing.T) {
		form := url.Values{}
		form.Set("grant_type", "client_credentials")
		form.Set("client_id", clientID)
		form.Set("client_secret", "wrong")

		resp, err := http.PostForm(ts.URL+"/token", form)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		require.NotEmpty(t, resp.Header.Get("WWW-Authenticate"))

		var errBody oauth2.ErrorResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&errBody))
		require.Equal(t, oauth2.ErrorInvalidClient, errBody.Error)
	})
}

func TestProfileUnauthorized(t *testing.T) {
	ts := setupTestServer(t)

	status, _ := getJSON(t, ts.URL+"/profile", "")
	require.Equal(t, http.StatusUnauthorized, status)

	status, _ = getJSON(t, ts.URL+"/profile", "garbage-token")
	require.Equal(t, http.StatusUnauthorized, status)
}

func TestQRCode(t *testing.T) {
	ts := setupTestServer(t)

	postJSON(t, ts.URL+"/register_user", map[string]string{"username": "dave", "password": "pw"})

	resp, err := http.Get(ts.URL + "/qr_code/dave")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "image/png", resp.Header.Get("Content-Type"))

	missing, err := http.Get(ts.URL + "/qr_code/ghost")
	require.NoError(t, err)
	defer missing.Body.Close()
	require.Equal(t, http.StatusNotFound, missing.StatusCode)
}
