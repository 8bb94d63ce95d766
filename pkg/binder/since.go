package binder

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/HusseinSarrar05/mygpo/pkg/errcodes"
)

// SinceParam reads the required "since" query parameter, a
// non-negative unix timestamp in seconds marking the client's last
// checkpoint.
func SinceParam(c echo.Context) (time.Time, error) {
	raw := c.QueryParam("since")
	if raw == "" {
		return time.Time{}, errcodes.MissingParameter("since")
	}

	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, errcodes.ValidationTypeError("Parameter \"since\" must be an integer timestamp.")
	}
	if n < 0 {
		return time.Time{}, errcodes.ValidationError("Parameter \"since\" must not be negative.")
	}

	return time.Unix(n, 0).UTC(), nil
}
