package server

import (
	"encoding/json"
	"net/http"

	autherrors "github.com/jrsteele09/go-otp-auth-server/internal/errors"
	"github.com/jrsteele09/go-otp-auth-server/oauth2"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeOAuthError maps the error taxonomy onto RFC 6749 error responses.
// invalid_client gets 401 plus a WWW-Authenticate challenge; every other
// protocol error is a 400.
func writeOAuthError(w http.ResponseWriter, err error) {
	code := oauth2.ErrorInvalidRequest
	status := http.StatusBadRequest

	switch {
	case autherrors.Is(err, autherrors.ErrInvalidClient):
		code = oauth2.ErrorInvalidClient
		status = http.StatusUnauthorized
		w.Header().Set("WWW-Authenticate", `Basic realm="oauth2"`)
	case autherrors.Is(err, autherrors.ErrInvalidGrant):
		code = oauth2.ErrorInvalidGrant
	case autherrors.Is(err, autherrors.ErrInvalidScope):
		code = oauth2.ErrorInvalidScope
	case autherrors.Is(err, autherrors.ErrUnauthorizedClient):
		code = oauth2.ErrorUnauthorizedClient
	case autherrors.Is(err, autherrors.ErrUnsupportedGrantType):
		code = oauth2.ErrorUnsupportedGrantType
	case autherrors.Is(err, autherrors.ErrInvalidInput):
		code = oauth2.ErrorInvalidRequest
	default:
		status = http.StatusInternalServerError
		code = "server_error"
	}

	writeJSON(w, status, oauth2.ErrorResponse{Error: code})
}
