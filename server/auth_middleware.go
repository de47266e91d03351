package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-otp-auth-server/auth"
)

type contextKey string

const principalContextKey contextKey = "principal"

// RequireBearer authenticates the Authorization header and injects the
// resolved principal into the request context. Handlers behind it can rely
// on PrincipalFromContext returning a non-nil principal.
func (s *Server) RequireBearer(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bearer := bearerToken(r)
		principal, err := s.auth.AuthenticateBearer(r.Context(), bearer)
		if err != nil {
			w.Header().Set("WWW-Authenticate", `Bearer realm="oauth2"`)
			writeJSONError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		ctx := context.WithValue(r.Context(), principalContextKey, principal)
		next(w, r.WithContext(ctx))
	}
}

// PrincipalFromContext returns the principal stored by RequireBearer, or nil
// when the request did not pass bearer authentication.
func PrincipalFromContext(ctx context.Context) *auth.Principal {
	principal, _ := ctx.Value(principalContextKey).(*auth.Principal)
	return principal
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
