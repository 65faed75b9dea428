package middleware

import (
	"herald-api/internal/setup"
	"herald-api/internal/shared"

	"github.com/labstack/echo/v4"
)

// RequireBearer is the auth gate. A connection without a bearer credential is
// rejected with 401 before any session actor is resolved or created. The
// credential itself is opaque and only attached to the request context.
func RequireBearer(next echo.HandlerFunc) echo.HandlerFunc {
	return func(cc echo.Context) error {
		c := cc.(*setup.Context)

		token, err := shared.ExtractBearer(c)
		if err != nil {
			return c.String(401, shared.ErrUnauthorized.Err.Error())
		}
		c.Credential = token
		return next(c)
	}
}
