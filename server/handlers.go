package server

import (
	"encoding/json"
	"net/http"

	qrcode "github.com/skip2/go-qrcode"

	autherrors "github.com/jrsteele09/go-otp-auth-server/internal/errors"
	"github.com/jrsteele09/go-otp-auth-server/oauth2"
)

// IndexHandler serves the service description document
func (s *Server) IndexHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"message": "OAuth2 Server with OTP Authentication",
			"version": serverVersion,
			"endpoints": map[string]string{
				"register_user": "/register_user",
				"verify_otp":    "/verify_otp",
				"qr_code":       "/qr_code/{username}",
				"create_client": "/create_client",
				"token":         "/token",
				"profile":       "/profile",
			},
		})
	}
}

type registerUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegisterUserHandler creates a user and returns the one-time TOTP
// enrollment material
func (s *Server) RegisterUserHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerUserRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, http.StatusBadRequest, "Invalid JSON body")
			return
		}

		enrollment, err := s.credentials.Register(r.Context(), req.Username, req.Password)
		switch {
		case autherrors.Is(err, autherrors.ErrInvalidInput):
			writeJSONError(w, http.StatusBadRequest, "Username and password are required")
			return
		case autherrors.Is(err, autherrors.ErrUserExists):
			writeJSONError(w, http.StatusBadRequest, "User already exists")
			return
		case err != nil:
			s.log.Error().Err(err).Msg("register user failed")
			writeJSONError(w, http.StatusInternalServerError, "Registration failed")
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{
			"message":     "User registered",
			"otp_uri":     enrollment.ProvisioningURI,
			"qr_code_url": scheme(r) + "://" + r.Host + "/qr_code/" + req.Username,
		})
	}
}

// QRCodeHandler renders the provisioning URI as a PNG QR code for the
// one-time authenticator setup
func (s *Server) QRCodeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		username := r.PathValue("username")

		uri, err := s.credentials.ProvisioningURI(r.Context(), username)
		if err != nil {
			writeJSONError(w, http.StatusNotFound, "User not found")
			return
		}

		png, err := qrcode.Encode(uri, qrcode.Medium, 256)
		if err != nil {
			s.log.Error().Err(err).Msg("qr code encoding failed")
			writeJSONError(w, http.StatusInternalServerError, "Failed to render QR code")
			return
		}

		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(png)
	}
}

type verifyOTPRequest struct {
	Username string `json:"username"`
	Code     string `json:"code"`
}

// VerifyOTPHandler checks a TOTP code and, on the first success, marks the
// user eligible for the password grant
func (s *Server) VerifyOTPHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req verifyOTPRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, http.StatusBadRequest, "Invalid JSON body")
			return
		}

		valid, err := s.credentials.VerifyOTP(r.Context(), req.Username, req.Code)
		if autherrors.Is(err, autherrors.ErrUserNotFound) {
			writeJSONError(w, http.StatusNotFound, "User not found")
			return
		}
		if err != nil {
			s.log.Error().Err(err).Msg("otp verification failed")
			writeJSONError(w, http.StatusInternalServerError, "Verification failed")
			return
		}

		if !valid {
			writeJSON(w, http.StatusUnauthorized, map[string]bool{"valid": false})
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"valid": true})
	}
}

type createClientRequest struct {
	ClientName  string             `json:"client_name"`
	RedirectURI string             `json:"redirect_uri"`
	GrantTypes  []oauth2.GrantType `json:"grant_types,omitempty"`
	Scope       string             `json:"scope,omitempty"`
}

// CreateClientHandler registers an OAuth2 client and returns the generated
// credentials exactly once
func (s *Server) CreateClientHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createClientRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, http.StatusBadRequest, "Invalid JSON body")
			return
		}

		client, err := s.clients.Register(r.Context(), req.ClientName, req.RedirectURI, req.GrantTypes, req.Scope)
		switch {
		case autherrors.Is(err, autherrors.ErrInvalidInput):
			writeJSONError(w, http.StatusBadRequest, "Client name and redirect URI are required")
			return
		case autherrors.Is(err, autherrors.ErrClientExists):
			writeJSONError(w, http.StatusBadRequest, "Client name already exists")
			return
		case err != nil:
			s.log.Error().Err(err).Msg("create client failed")
			writeJSONError(w, http.StatusInternalServerError, "Client registration failed")
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{
			"client_id":     client.ID,
			"client_secret": client.Secret,
		})
	}
}

func scheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if forwarded := r.Header.Get("X-Forwarded-Proto"); forwarded != "" {
		return forwarded
	}
	return "http"
}
