package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/segmentio/encoding/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HusseinSarrar05/mygpo/pkg/errcodes"
)

func TestLoginHandler(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	createTestUser(ctx, t, db, "alice", "correct horse")

	e := echo.New()
	e.HTTPErrorHandler = errcodes.NewHandler().Handle
	svc := RegisterRoutes(e, db, "test-secret")

	t.Run("valid login sets session cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/2/auth/alice/login.json", nil)
		req.SetBasicAuth("alice", "correct horse")
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)

		var resp loginResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "alice", resp.Username)

		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, CookieName, cookies[0].Name)

		claims, err := svc.ValidateToken(cookies[0].Value)
		require.NoError(t, err)
		assert.Equal(t, "alice", claims.Username)
	})

	t.Run("wrong password is rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/2/auth/alice/login.json", nil)
		req.SetBasicAuth("alice", "nope")
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("username mismatch is forbidden", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/2/auth/bob/login.json", nil)
		req.SetBasicAuth("alice", "correct horse")
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("missing credentials", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/2/auth/alice/login.json", nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestLogoutHandler(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	user := createTestUser(ctx, t, db, "bob", "pw")

	e := echo.New()
	e.HTTPErrorHandler = errcodes.NewHandler().Handle
	svc := RegisterRoutes(e, db, "test-secret")

	token, err := svc.GenerateToken(user)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/2/auth/bob/logout.json", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: token})
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, CookieName, cookies[0].Name)
	assert.Empty(t, cookies[0].Value)
	assert.Negative(t, cookies[0].MaxAge)
}
