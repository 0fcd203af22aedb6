package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// Auth Routes
	RouteAuthUser     = "/auth/user"
	RouteAuthLogin    = "/auth/login"
	RouteAuthCallback = "/auth/callback"
	RouteAuthLogout   = "/auth/logout"

	// API Routes
	RouteAPIFunctions       = "/api/functions"
	RouteAPIExecuteFunction = "/api/executeFunction"

	// Operational Routes
	RouteHealthz = "/healthz"
)
