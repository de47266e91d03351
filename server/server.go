package server

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/jrsteele09/go-otp-auth-server/auth"
	"github.com/jrsteele09/go-otp-auth-server/clients"
	"github.com/jrsteele09/go-otp-auth-server/internal/config"
	"github.com/jrsteele09/go-otp-auth-server/users"
)

const serverVersion = "1.0.0"

type Server struct {
	env         string // Environment (e.g., "DEV", "production")
	mux         *http.ServeMux
	routes      []string
	config      config.Config
	log         zerolog.Logger
	credentials *users.CredentialService
	clients     *clients.Registry
	auth        *auth.AuthorizationService
}

func New(cfg config.Config, log zerolog.Logger, credentials *users.CredentialService, registry *clients.Registry, authService *auth.AuthorizationService) (*Server, error) {
	s := &Server{
		mux:         http.NewServeMux(),
		config:      cfg,
		log:         log,
		credentials: credentials,
		clients:     registry,
		auth:        authService,
	}
	s.env = cfg.GetEnv()

	s.initRoutes()
	s.logRoutes()
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		s.log.Info().Str("route", route).Msg("registered")
	}
}
