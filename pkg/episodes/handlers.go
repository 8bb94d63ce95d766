package episodes

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/HusseinSarrar05/mygpo/pkg/auth"
	"github.com/HusseinSarrar05/mygpo/pkg/binder"
	"github.com/HusseinSarrar05/mygpo/pkg/errcodes"
	"github.com/HusseinSarrar05/mygpo/pkg/models"
)

type handler struct {
	episodeService *Service
	maxActions     int
}

type actionJSON struct {
	Podcast   string `json:"podcast"`
	Episode   string `json:"episode"`
	Device    string `json:"device,omitempty"`
	Action    string `json:"action"`
	Timestamp string `json:"timestamp"`
	Started   *int   `json:"started,omitempty"`
	Position  *int   `json:"position,omitempty"`
	Total     *int   `json:"total,omitempty"`
}

type historyResponse struct {
	Actions   []actionJSON `json:"actions"`
	Timestamp int64        `json:"timestamp"`
}

// history handles GET /api/2/episodes/:username.json. The limit query
// parameter is honored up to the configured server maximum; clients
// must keep calling with the returned timestamp until a page comes
// back with fewer than limit entries.
func (h *handler) history(c echo.Context) error {
	ctx := c.Request().Context()
	userID := auth.GetUserID(c)

	since, err := binder.SinceParam(c)
	if err != nil {
		return err
	}

	limit := h.maxActions
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return errcodes.ValidationTypeError("Parameter \"limit\" must be an integer.")
		}
		if n <= 0 {
			return errcodes.ValidationError("Parameter \"limit\" must be positive.")
		}
		if n < limit {
			limit = n
		}
	}

	history, err := h.episodeService.ActionsSince(ctx, userID, since, limit)
	if err != nil {
		return err
	}

	resp := historyResponse{
		Actions:   make([]actionJSON, 0, len(history.Actions)),
		Timestamp: history.Checkpoint.Unix(),
	}
	for _, action := range history.Actions {
		resp.Actions = append(resp.Actions, toActionJSON(action))
	}

	return c.JSON(http.StatusOK, resp)
}

type uploadResponse struct {
	Timestamp  int64            `json:"timestamp"`
	Accepted   []int            `json:"accepted"`
	Duplicates []int            `json:"duplicates"`
	Rejected   []RejectedAction `json:"rejected"`
}

// upload handles POST /api/2/episodes/:username.json. The body is a
// JSON array of episode actions; per-event failures are reported in
// the rejected list while valid siblings are still stored.
func (h *handler) upload(c echo.Context) error {
	ctx := c.Request().Context()
	userID := auth.GetUserID(c)

	var events []UploadedAction
	if err := c.Bind(&events); err != nil {
		return errcodes.MalformedPayload()
	}

	result, err := h.episodeService.RecordBatch(ctx, userID, events)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, uploadResponse{
		Timestamp:  result.Timestamp.Unix(),
		Accepted:   result.Accepted,
		Duplicates: result.Duplicates,
		Rejected:   result.Rejected,
	})
}

func toActionJSON(action *models.EpisodeAction) actionJSON {
	out := actionJSON{
		Action:    action.Action,
		Timestamp: action.Timestamp.UTC().Format(TimestampFormat),
		Started:   action.Started,
		Position:  action.Position,
		Total:     action.Total,
	}
	if action.Episode != nil {
		out.Episode = action.Episode.URL
		if action.Episode.Podcast != nil {
			out.Podcast = action.Episode.Podcast.URL
		}
	}
	if action.Device != nil {
		out.Device = action.Device.UID
	}
	return out
}
