package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/ebulku/xtream-player/internal/handler"    // import the handlers that implement business logic
	"github.com/ebulku/xtream-player/internal/middleware" // import middleware for JWT authentication
)

// RegisterRoutes registers routes that do not require authentication on the
// provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	// Map the GET request at path "/healthz" to the Health handler.  This
	// endpoint can be used by load balancers or monitoring systems to verify
	// that the service is up and running.
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers all authentication‑related routes.  Unauthenticated
// operations live under /api/auth, while the protected identity endpoint is
// guarded by the JWT middleware.  The jwtSecret must match the one used to
// sign access tokens.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	// Group for operations that do not require an existing session
	// (register, login, refresh).  Each of these handlers generates or
	// exchanges tokens itself.
	g := e.Group("/api/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	// Logout does not require JWT middleware: it accepts either a bearer
	// token (revoke all sessions) or a refreshToken body (revoke one).
	g.POST("/logout", a.Logout)

	// The identity endpoint requires a valid access token.
	me := e.Group("/api/auth")
	me.Use(middleware.JWTAuth(jwtSecret))
	me.GET("/me", a.Me)
}

// RegisterProfiles registers the profile CRUD and activation routes.  All of
// them require a valid access token; the JWTAuth middleware injects the
// user_id, email and active_profile claims into the request context before
// any handler runs.
func RegisterProfiles(e *echo.Echo, p *handler.ProfileHandler, jwtSecret string) {
	g := e.Group("/api/profiles")
	g.Use(middleware.JWTAuth(jwtSecret))
	// Full collection plus the active id, as one envelope.
	g.GET("", p.List)
	// Verify-before-persist creation.
	g.POST("", p.Create)
	// Activation: flips the flag and reissues the access token.
	g.POST("/setActive", p.SetActive)
	// Cache-first read of the active profile.
	g.GET("/active", p.Active)
	// Deletion; refuses the active profile.
	g.DELETE("/:id", p.Delete)
}
