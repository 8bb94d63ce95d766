package auth

import (
	"github.com/labstack/echo/v4"
	"github.com/uptrace/bun"
)

// RegisterRoutes registers the session login and logout routes.
func RegisterRoutes(e *echo.Echo, db *bun.DB, jwtSecret string) *Service {
	authService := NewService(db, jwtSecret)

	g := e.Group("/api/2/auth/:username")

	// Login authenticates via the Authorization header itself, so it
	// does not go through the session middleware.
	g.POST("/login.json", authService.login)
	g.POST("/logout.json", authService.logout, authService.Authenticate)

	return authService
}
