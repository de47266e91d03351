package server

func (s *Server) initRoutes() {
	s.RegisterRouteFunc("GET /{$}", ChainMiddleware(s.IndexHandler(), s.APIMiddleware()...))

	// User registration and TOTP enrollment
	s.RegisterRouteFunc("POST /register_user", ChainMiddleware(s.RegisterUserHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("GET /qr_code/{username}", ChainMiddleware(s.QRCodeHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("POST /verify_otp", ChainMiddleware(s.VerifyOTPHandler(), s.APIMiddleware()...))

	// OAuth2 client management
	s.RegisterRouteFunc("POST /create_client", ChainMiddleware(s.CreateClientHandler(), s.APIMiddleware()...))

	// OAuth2 token endpoint
	s.RegisterRouteFunc("POST /token", ChainMiddleware(s.TokenHandler(), s.APIMiddleware()...))

	// Protected resource example (bearer auth required)
	s.RegisterRouteFunc("GET /profile", ChainMiddleware(s.ProfileHandler(), s.ProtectedMiddleware()...))
}
