package binder

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type params struct {
	Hello string `json:"hello" mod:"trim" validate:"max=9"`
	Omit  string `json:"-"`
}

type deviceParams struct {
	DeviceID string `json:"device_id" validate:"device_uid"`
}

type feedParams struct {
	URL string `json:"url" validate:"feed_url"`
}

var (
	goodJSON             = `{"hello":" world "}`
	unknownFieldsErrJSON = `{"hello":"world","foo":"bar"}`
	typeErrJSON          = `{"hello":123}`
	validationErrJSON    = `{"hello":"0123456789"}`
)

func TestNew(t *testing.T) {
	t.Parallel()
	b, err := New()
	require.NoError(t, err)
	assert.NotNil(t, b)

	t.Run("only allows application/json and application/x-www-form-urlencoded", func(tt *testing.T) {
		c := newContext(goodJSON, echo.MIMEApplicationXML)
		p := params{}
		err = b.Bind(&p, c)
		assert.Contains(tt, err.Error(), "Unsupported Media Type")
	})

	t.Run("disallows unknown fields", func(tt *testing.T) {
		c := newContext(unknownFieldsErrJSON, echo.MIMEApplicationJSON)
		p := params{}
		err = b.Bind(&p, c)
		assert.Contains(tt, err.Error(), `Unknown Parameter "foo"`)
	})

	t.Run("returns a good message for type errors", func(tt *testing.T) {
		c := newContext(typeErrJSON, echo.MIMEApplicationJSON)
		p := params{}
		err = b.Bind(&p, c)
		assert.Contains(tt, err.Error(), `"hello" should be of type string`)
	})

	t.Run("use mod tag to modify params", func(tt *testing.T) {
		c := newContext(goodJSON, echo.MIMEApplicationJSON)
		p := params{}
		err = b.Bind(&p, c)
		require.NoError(tt, err)
		assert.Equal(tt, "world", p.Hello)
	})

	t.Run("use validate tag to validate params", func(tt *testing.T) {
		c := newContext(validationErrJSON, echo.MIMEApplicationJSON)
		p := params{}
		err = b.Bind(&p, c)
		assert.Contains(tt, err.Error(), "length must be less than or equal to 9 characters")
	})

	t.Run("validates device uids", func(tt *testing.T) {
		c := newContext(`{"device_id":"phone one"}`, echo.MIMEApplicationJSON)
		p := deviceParams{}
		err = b.Bind(&p, c)
		assert.Contains(tt, err.Error(), "may only contain letters, digits, underscores, and dashes")

		c = newContext(`{"device_id":"phone-1"}`, echo.MIMEApplicationJSON)
		p = deviceParams{}
		err = b.Bind(&p, c)
		require.NoError(tt, err)
	})

	t.Run("validates feed urls", func(tt *testing.T) {
		c := newContext(`{"url":"ftp://example.com/feed.xml"}`, echo.MIMEApplicationJSON)
		p := feedParams{}
		err = b.Bind(&p, c)
		assert.Contains(tt, err.Error(), "is not a valid feed URL")

		c = newContext(`{"url":"https://example.com/feed.xml"}`, echo.MIMEApplicationJSON)
		p = feedParams{}
		err = b.Bind(&p, c)
		require.NoError(tt, err)
	})
}

func newContext(payload, mime string) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(echo.POST, "/", strings.NewReader(payload))
	req.Header.Set(echo.HeaderContentType, mime)
	rr := httptest.NewRecorder()
	return e.NewContext(req, rr)
}
