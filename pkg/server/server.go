package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/echo/v4/health"
	"github.com/robinjoseph08/golib/echo/v4/middleware/logger"
	"github.com/robinjoseph08/golib/echo/v4/middleware/recovery"
	"github.com/uptrace/bun"

	"github.com/HusseinSarrar05/mygpo/pkg/auth"
	"github.com/HusseinSarrar05/mygpo/pkg/binder"
	"github.com/HusseinSarrar05/mygpo/pkg/config"
	"github.com/HusseinSarrar05/mygpo/pkg/devices"
	"github.com/HusseinSarrar05/mygpo/pkg/episodes"
	"github.com/HusseinSarrar05/mygpo/pkg/errcodes"
	"github.com/HusseinSarrar05/mygpo/pkg/subscriptions"
	"github.com/HusseinSarrar05/mygpo/pkg/testutils"
)

// New wires the API server: binder, logging, recovery, CORS, the
// health endpoints, and the sync protocol routes.
func New(cfg *config.Config, db *bun.DB) (*http.Server, error) {
	e := echo.New()

	b, err := binder.New()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	e.Binder = b

	e.Use(logger.Middleware())
	e.Use(recovery.Middleware())
	e.Use(middleware.CORS())

	health.RegisterRoutes(e)

	authService := auth.RegisterRoutes(e, db, cfg.JWTSecret)

	subscriptionService := subscriptions.RegisterRoutes(e, db, authService)
	devices.RegisterRoutes(e, db, authService, subscriptionService)
	episodes.RegisterRoutes(e, db, authService, cfg.MaxEpisodeActions)

	if cfg.Environment == "test" {
		testutils.RegisterRoutes(e, db)
	}

	echo.NotFoundHandler = notFoundHandler
	e.HTTPErrorHandler = errcodes.NewHandler().Handle

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.ServerHost, cfg.ServerPort),
		Handler:           e,
		ReadHeaderTimeout: 3 * time.Second,
	}

	return srv, nil
}

func notFoundHandler(c echo.Context) error {
	c.SetPath("/:path")
	return errcodes.NotFound("Page")
}
