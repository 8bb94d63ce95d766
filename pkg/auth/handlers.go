package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/HusseinSarrar05/mygpo/pkg/errcodes"
)

type loginResponse struct {
	Username  string `json:"username"`
	SessionID string `json:"session_id"`
}

// login handles POST /api/2/auth/:username/login.json. Credentials are
// taken from the Authorization header; on success a session cookie is
// set so subsequent requests can skip basic auth.
func (s *Service) login(c echo.Context) error {
	ctx := c.Request().Context()

	username, password, ok := c.Request().BasicAuth()
	if !ok {
		return errcodes.Unauthorized("Authentication required")
	}

	if !strings.EqualFold(c.Param("username"), username) {
		return errcodes.Forbidden("Logging in as another user")
	}

	user, err := s.VerifyCredentials(ctx, username, password)
	if err != nil {
		return err
	}

	token, err := s.GenerateToken(user)
	if err != nil {
		return err
	}

	c.SetCookie(&http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(TokenExpiry),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return c.JSON(http.StatusOK, loginResponse{
		Username:  user.Username,
		SessionID: token,
	})
}

// logout handles POST /api/2/auth/:username/logout.json by clearing
// the session cookie.
func (s *Service) logout(c echo.Context) error {
	user := GetUser(c)
	if !strings.EqualFold(c.Param("username"), user.Username) {
		return errcodes.Forbidden("Logging out another user")
	}

	c.SetCookie(&http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return c.NoContent(http.StatusOK)
}
