package devices

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/HusseinSarrar05/mygpo/pkg/auth"
	"github.com/HusseinSarrar05/mygpo/pkg/errcodes"
	"github.com/HusseinSarrar05/mygpo/pkg/models"
)

// SubscriptionCounter reports how many podcasts a device is currently
// subscribed to. Implemented by the subscription merge engine.
type SubscriptionCounter interface {
	CountForDevice(ctx context.Context, device *models.Device) (int, error)
}

type handler struct {
	deviceService *Service
	counter       SubscriptionCounter
}

type deviceResponse struct {
	ID            string `json:"id"`
	Caption       string `json:"caption"`
	Type          string `json:"type"`
	Subscriptions int    `json:"subscriptions"`
}

// list handles GET /api/2/devices/:username.json.
func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()
	userID := auth.GetUserID(c)

	devices, err := h.deviceService.List(ctx, userID)
	if err != nil {
		return err
	}

	resp := make([]deviceResponse, 0, len(devices))
	for _, device := range devices {
		count, err := h.counter.CountForDevice(ctx, device)
		if err != nil {
			return err
		}
		resp = append(resp, deviceResponse{
			ID:            device.UID,
			Caption:       device.Caption,
			Type:          device.Type,
			Subscriptions: count,
		})
	}

	return c.JSON(http.StatusOK, resp)
}

type updateDeviceRequest struct {
	Caption *string `json:"caption"`
	Type    *string `json:"type" validate:"omitempty,oneof=desktop laptop mobile server other"`
}

// update handles POST /api/2/devices/:username/:uid.json. The device
// is created when it does not exist yet.
func (h *handler) update(c echo.Context) error {
	ctx := c.Request().Context()
	userID := auth.GetUserID(c)

	uid := c.Param("uid")
	if !models.ValidDeviceUID(uid) {
		return errcodes.ValidationError("Invalid device ID: " + uid)
	}

	var req updateDeviceRequest
	if err := c.Bind(&req); err != nil {
		return err
	}

	_, err := h.deviceService.Update(ctx, userID, uid, UpdateOptions{
		Caption: req.Caption,
		Type:    req.Type,
	})
	if err != nil {
		return err
	}

	return c.NoContent(http.StatusOK)
}

type syncStatusResponse struct {
	Synchronized    [][]string `json:"synchronized"`
	NotSynchronized []string   `json:"not-synchronized"`
}

type syncRequest struct {
	Synchronize     [][]string `json:"synchronize"`
	StopSynchronize []string   `json:"stop-synchronize"`
}

// syncStatus handles GET /api/2/sync-devices/:username.json.
func (h *handler) syncStatus(c echo.Context) error {
	ctx := c.Request().Context()
	userID := auth.GetUserID(c)

	return h.respondSyncStatus(ctx, c, userID)
}

// sync handles POST /api/2/sync-devices/:username.json. Pairs listed
// under synchronize are linked; uids under stop-synchronize are
// unlinked from their groups.
func (h *handler) sync(c echo.Context) error {
	ctx := c.Request().Context()
	userID := auth.GetUserID(c)

	var req syncRequest
	if err := c.Bind(&req); err != nil {
		return err
	}

	for _, pair := range req.Synchronize {
		if len(pair) != 2 {
			return errcodes.ValidationError("Each synchronize entry must name exactly two devices.")
		}
		a, err := h.deviceService.Retrieve(ctx, userID, pair[0])
		if err != nil {
			return err
		}
		b, err := h.deviceService.Retrieve(ctx, userID, pair[1])
		if err != nil {
			return err
		}
		if _, err := h.deviceService.Link(ctx, a, b); err != nil {
			return err
		}
	}

	for _, uid := range req.StopSynchronize {
		device, err := h.deviceService.Retrieve(ctx, userID, uid)
		if err != nil {
			return err
		}
		if err := h.deviceService.Unlink(ctx, device); err != nil {
			return err
		}
	}

	return h.respondSyncStatus(ctx, c, userID)
}

func (h *handler) respondSyncStatus(ctx context.Context, c echo.Context, userID int) error {
	devices, err := h.deviceService.List(ctx, userID)
	if err != nil {
		return err
	}

	groups := map[string][]string{}
	var groupIDs []string
	resp := syncStatusResponse{
		Synchronized:    [][]string{},
		NotSynchronized: []string{},
	}
	for _, device := range devices {
		if device.SyncGroupID == nil {
			resp.NotSynchronized = append(resp.NotSynchronized, device.UID)
			continue
		}
		if _, seen := groups[*device.SyncGroupID]; !seen {
			groupIDs = append(groupIDs, *device.SyncGroupID)
		}
		groups[*device.SyncGroupID] = append(groups[*device.SyncGroupID], device.UID)
	}
	for _, id := range groupIDs {
		resp.Synchronized = append(resp.Synchronized, groups[id])
	}

	return c.JSON(http.StatusOK, resp)
}
