package episodes

import (
	"github.com/labstack/echo/v4"
	"github.com/uptrace/bun"

	"github.com/HusseinSarrar05/mygpo/pkg/auth"
	"github.com/HusseinSarrar05/mygpo/pkg/binder"
)

// RegisterRoutes registers the episode action sync routes. maxActions
// caps how many actions a single since-query may return.
func RegisterRoutes(e *echo.Echo, db *bun.DB, authService *auth.Service, maxActions int) *Service {
	episodeService := NewService(db)

	h := &handler{
		episodeService: episodeService,
		maxActions:     maxActions,
	}

	mw := []echo.MiddlewareFunc{
		binder.StripFormatSuffix("username"),
		authService.Authenticate,
		auth.RequireUsernameMatch("username"),
	}

	e.GET("/api/2/episodes/:username", h.history, mw...)
	e.POST("/api/2/episodes/:username", h.upload, mw...)

	return episodeService
}
