package binder

import (
	"strings"

	"github.com/labstack/echo/v4"
)

// StripFormatSuffix trims a trailing ".json" from the named route
// parameters. The client API addresses resources as "{name}.json", but
// the router can't split a format suffix out of a path parameter, so
// routes capture the whole segment and this middleware cleans it up
// before handlers and param checks run.
func StripFormatSuffix(params ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			names := c.ParamNames()
			values := c.ParamValues()
			for i, name := range names {
				for _, p := range params {
					if name == p {
						values[i] = strings.TrimSuffix(values[i], ".json")
					}
				}
			}
			c.SetParamNames(names...)
			c.SetParamValues(values...)
			return next(c)
		}
	}
}
