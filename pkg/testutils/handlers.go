package testutils

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"

	"github.com/HusseinSarrar05/mygpo/pkg/auth"
	"github.com/HusseinSarrar05/mygpo/pkg/devices"
	"github.com/HusseinSarrar05/mygpo/pkg/models"
	"github.com/HusseinSarrar05/mygpo/pkg/podcasts"
)

type handler struct {
	db *bun.DB
}

type createUserRequest struct {
	Username string  `json:"username" validate:"required"`
	Password string  `json:"password" validate:"required"`
	Email    *string `json:"email"`
}

type createUserResponse struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
}

// createUser creates a test user.
// POST /test/users.
func (h *handler) createUser(c echo.Context) error {
	ctx := c.Request().Context()

	var req createUserRequest
	if err := c.Bind(&req); err != nil {
		return err
	}

	hashedPassword, err := auth.HashPassword(req.Password)
	if err != nil {
		return err
	}

	now := time.Now()
	user := &models.User{
		CreatedAt:    now,
		UpdatedAt:    now,
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hashedPassword,
		IsActive:     true,
	}
	_, err = h.db.NewInsert().Model(user).Exec(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to create user")
	}

	return c.JSON(http.StatusCreated, createUserResponse{
		ID:       user.ID,
		Username: user.Username,
	})
}

// deleteAllUsers removes all users and their devices, groups, and
// action logs. DELETE /test/users.
func (h *handler) deleteAllUsers(c echo.Context) error {
	ctx := c.Request().Context()

	tables := []string{
		"episode_actions",
		"subscription_actions",
		"devices",
		"sync_groups",
		"user_profiles",
		"users",
	}
	for _, table := range tables {
		_, err := h.db.NewDelete().Table(table).Where("1 = 1").Exec(ctx)
		if err != nil {
			return errors.Wrapf(err, "failed to clear %s", table)
		}
	}

	return c.NoContent(http.StatusNoContent)
}

type createDeviceRequest struct {
	UserID  int    `json:"user_id" validate:"required"`
	UID     string `json:"uid" validate:"required,device_uid"`
	Caption string `json:"caption"`
	Type    string `json:"type"`
}

// createDevice registers a device for a test user.
// POST /test/devices.
func (h *handler) createDevice(c echo.Context) error {
	ctx := c.Request().Context()

	var req createDeviceRequest
	if err := c.Bind(&req); err != nil {
		return err
	}

	device, err := devices.NewService(h.db).ResolveOrCreate(ctx, req.UserID, req.UID, devices.Defaults{
		Caption: req.Caption,
		Type:    req.Type,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, device)
}

type createPodcastRequest struct {
	URL      string   `json:"url" validate:"required,feed_url"`
	Episodes []string `json:"episodes"`
}

// createPodcast seeds a podcast and optional episodes.
// POST /test/podcasts.
func (h *handler) createPodcast(c echo.Context) error {
	ctx := c.Request().Context()

	var req createPodcastRequest
	if err := c.Bind(&req); err != nil {
		return err
	}

	svc := podcasts.NewService(h.db)
	podcast, err := svc.LookupOrCreatePodcast(ctx, req.URL)
	if err != nil {
		return err
	}
	for _, url := range req.Episodes {
		if _, err := svc.LookupOrCreateEpisode(ctx, podcast, url); err != nil {
			return err
		}
	}

	return c.JSON(http.StatusCreated, podcast)
}
