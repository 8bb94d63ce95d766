package subscriptions

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/HusseinSarrar05/mygpo/pkg/auth"
	"github.com/HusseinSarrar05/mygpo/pkg/binder"
	"github.com/HusseinSarrar05/mygpo/pkg/devices"
)

type handler struct {
	subscriptionService *Service
	deviceService       *devices.Service
}

type deltaResponse struct {
	Add       []string `json:"add"`
	Remove    []string `json:"remove"`
	Timestamp int64    `json:"timestamp"`
}

// delta handles GET /api/2/subscriptions/:username/:uid.json. The
// since query parameter is the checkpoint from the previous response.
func (h *handler) delta(c echo.Context) error {
	ctx := c.Request().Context()
	userID := auth.GetUserID(c)

	since, err := binder.SinceParam(c)
	if err != nil {
		return err
	}

	device, err := h.deviceService.ResolveOrCreate(ctx, userID, c.Param("uid"), devices.Defaults{})
	if err != nil {
		return err
	}

	delta, err := h.subscriptionService.DeltaSince(ctx, device, since)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, deltaResponse{
		Add:       delta.Add,
		Remove:    delta.Remove,
		Timestamp: delta.Checkpoint.Unix(),
	})
}

type uploadRequest struct {
	Add    []string `json:"add"`
	Remove []string `json:"remove"`
}

type uploadResponse struct {
	Add        []string    `json:"add"`
	Remove     []string    `json:"remove"`
	Timestamp  int64       `json:"timestamp"`
	UpdateURLs [][2]string `json:"update_urls"`
}

// upload handles POST /api/2/subscriptions/:username/:uid.json. The
// body carries feed URLs to subscribe and unsubscribe; the response
// echoes the accepted lists plus any URL rewrites the normalizer made.
func (h *handler) upload(c echo.Context) error {
	ctx := c.Request().Context()
	userID := auth.GetUserID(c)

	var req uploadRequest
	if err := c.Bind(&req); err != nil {
		return err
	}

	device, err := h.deviceService.ResolveOrCreate(ctx, userID, c.Param("uid"), devices.Defaults{})
	if err != nil {
		return err
	}

	result, err := h.subscriptionService.ApplyBatch(ctx, device, req.Add, req.Remove)
	if err != nil {
		return err
	}

	resp := uploadResponse{
		Add:        accepted(req.Add),
		Remove:     accepted(req.Remove),
		Timestamp:  result.Timestamp.Unix(),
		UpdateURLs: [][2]string{},
	}
	for _, rewrite := range result.Rewrites {
		resp.UpdateURLs = append(resp.UpdateURLs, [2]string{rewrite.Original, rewrite.Normalized})
		resp.Add = dropURL(resp.Add, rewrite.Original, rewrite.Normalized)
		resp.Remove = dropURL(resp.Remove, rewrite.Original, rewrite.Normalized)
	}

	return c.JSON(http.StatusOK, resp)
}

// list handles GET /api/2/subscriptions/:username/:uid/list.json and
// returns the device's full current subscription set.
func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()
	userID := auth.GetUserID(c)

	device, err := h.deviceService.ResolveOrCreate(ctx, userID, c.Param("uid"), devices.Defaults{})
	if err != nil {
		return err
	}

	current, err := h.subscriptionService.Current(ctx, device)
	if err != nil {
		return err
	}

	urls := make([]string, 0, len(current))
	for _, podcast := range current {
		urls = append(urls, podcast.URL)
	}
	return c.JSON(http.StatusOK, urls)
}

func accepted(urls []string) []string {
	if urls == nil {
		return []string{}
	}
	out := make([]string, len(urls))
	copy(out, urls)
	return out
}

// dropURL replaces original with its rewritten form, or removes it
// entirely when the rewrite is empty.
func dropURL(urls []string, original, normalized string) []string {
	out := urls[:0]
	for _, u := range urls {
		switch {
		case u != original:
			out = append(out, u)
		case normalized != "":
			out = append(out, normalized)
		}
	}
	return out
}
