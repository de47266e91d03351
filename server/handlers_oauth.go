package server

import (
	"net/http"

	"github.com/jrsteele09/go-otp-auth-server/auth"
	"github.com/jrsteele09/go-otp-auth-server/oauth2"
)

// TokenHandler exchanges credentials for tokens per RFC 6749. Client
// credentials are accepted from the form body (client_secret_post) or HTTP
// Basic auth (client_secret_basic).
func (s *Server) TokenHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			writeJSON(w, http.StatusBadRequest, oauth2.ErrorResponse{Error: oauth2.ErrorInvalidRequest})
			return
		}

		params := auth.TokenParameters{
			GrantType:    oauth2.GrantType(r.PostFormValue("grant_type")),
			ClientID:     r.PostFormValue("client_id"),
			ClientSecret: r.PostFormValue("client_secret"),
			Username:     r.PostFormValue("username"),
			Password:     r.PostFormValue("password"),
			RefreshToken: r.PostFormValue("refresh_token"),
			Scope:        r.PostFormValue("scope"),
		}
		if id, secret, ok := r.BasicAuth(); ok {
			params.ClientID = id
			params.ClientSecret = secret
		}

		response, err := s.auth.Token(r.Context(), params)
		if err != nil {
			writeOAuthError(w, err)
			return
		}

		// RFC 6749 section 5.1: token responses must not be cached
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("Pragma", "no-cache")
		writeJSON(w, http.StatusOK, response)
	}
}

// ProfileHandler is the protected resource example: it reports which kind of
// principal the presented bearer token resolved to.
func (s *Server) ProfileHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal := PrincipalFromContext(r.Context())
		if principal == nil {
			writeJSONError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		if principal.Kind == auth.PrincipalUser {
			writeJSON(w, http.StatusOK, map[string]any{
				"type":         "user",
				"username":     principal.User.Username,
				"otp_verified": principal.User.OTPVerified,
			})
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"type":      "client",
			"client_id": principal.Client.ID,
			"message":   "Machine token access",
		})
	}
}
