package devices

import (
	"github.com/labstack/echo/v4"
	"github.com/uptrace/bun"

	"github.com/HusseinSarrar05/mygpo/pkg/auth"
	"github.com/HusseinSarrar05/mygpo/pkg/binder"
)

// RegisterRoutes registers the device and sync-group routes.
func RegisterRoutes(e *echo.Echo, db *bun.DB, authService *auth.Service, counter SubscriptionCounter) *Service {
	deviceService := NewService(db)

	h := &handler{
		deviceService: deviceService,
		counter:       counter,
	}

	mw := []echo.MiddlewareFunc{
		binder.StripFormatSuffix("username", "uid"),
		authService.Authenticate,
		auth.RequireUsernameMatch("username"),
	}

	e.GET("/api/2/devices/:username", h.list, mw...)
	e.POST("/api/2/devices/:username/:uid", h.update, mw...)
	e.GET("/api/2/sync-devices/:username", h.syncStatus, mw...)
	e.POST("/api/2/sync-devices/:username", h.sync, mw...)

	return deviceService
}
