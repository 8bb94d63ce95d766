package subscriptions

import (
	"github.com/labstack/echo/v4"
	"github.com/uptrace/bun"

	"github.com/HusseinSarrar05/mygpo/pkg/auth"
	"github.com/HusseinSarrar05/mygpo/pkg/binder"
	"github.com/HusseinSarrar05/mygpo/pkg/devices"
)

// RegisterRoutes registers the subscription sync routes.
func RegisterRoutes(e *echo.Echo, db *bun.DB, authService *auth.Service) *Service {
	subscriptionService := NewService(db)

	h := &handler{
		subscriptionService: subscriptionService,
		deviceService:       devices.NewService(db),
	}

	mw := []echo.MiddlewareFunc{
		binder.StripFormatSuffix("username", "uid"),
		authService.Authenticate,
		auth.RequireUsernameMatch("username"),
	}

	e.GET("/api/2/subscriptions/:username/:uid/list.json", h.list, mw...)
	e.GET("/api/2/subscriptions/:username/:uid", h.delta, mw...)
	e.POST("/api/2/subscriptions/:username/:uid", h.upload, mw...)

	return subscriptionService
}
