package server

func (s *Server) initRoutes() {
	// Operational
	s.RegisterRouteHandler("GET "+RouteHealthz, ChainMiddleware(s.HealthzHandler(), s.APIMiddleware()...))

	// CORS preflight for the SPA's cross-origin calls; CorsMiddleware answers
	// OPTIONS before the handler is reached
	s.RegisterRouteHandler("OPTIONS /", ChainMiddleware(s.PreflightHandler(), s.APIMiddleware()...))

	// Auth - redirect-flow variant
	s.RegisterRouteHandler("GET "+RouteAuthLogin, ChainMiddleware(s.LoginRedirectHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteAuthCallback, ChainMiddleware(s.AuthCallbackHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteAuthLogout, ChainMiddleware(s.LogoutHandler(), s.APIMiddleware()...))

	// Protected resources - stateless bearer validation on every request
	s.RegisterRouteHandler("GET "+RouteAuthUser, ChainMiddleware(s.AuthUserHandler(), s.ProtectedAPIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteAPIFunctions, ChainMiddleware(s.FunctionsListHandler(), s.ProtectedAPIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteAPIExecuteFunction, ChainMiddleware(s.ExecuteFunctionHandler(), s.ProtectedAPIMiddleware()...))
}
