package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/wellcheck/wellcheck/pkg/bilingual"
)

const localeKey = "locale"

// Locale negotiates the response language from the lang query parameter
// and the Accept-Language header and stores it on the echo context.
func Locale() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			loc := bilingual.Negotiate(c.QueryParam("lang"), c.Request().Header.Get("Accept-Language"))
			c.Set(localeKey, loc)
			c.Response().Header().Set("Content-Language", loc.String())
			return next(c)
		}
	}
}

// LocaleFrom returns the negotiated locale, negotiating on the spot when
// the Locale middleware did not run.
func LocaleFrom(c echo.Context) bilingual.Locale {
	if loc, ok := c.Get(localeKey).(bilingual.Locale); ok {
		return loc
	}
	return bilingual.Negotiate(c.QueryParam("lang"), c.Request().Header.Get("Accept-Language"))
}
