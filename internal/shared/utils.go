// Package shared
package shared

import (
	"strings"

	"github.com/labstack/echo/v4"
)

// ExtractBearer pulls the bearer credential off an inbound request. The
// credential is treated opaquely: no signature or expiry check happens here,
// it is forwarded as-is to the session layer.
func ExtractBearer(c echo.Context) (string, error) {
	auth := c.Request().Header.Get("Authorization")
	if auth == "" {
		return "", ErrMissingAuth
	}

	parts := strings.Split(auth, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return "", ErrInvalidFormat
	}

	token := parts[1]
	if token == "" {
		return "", ErrMissingAuth
	}

	return token, nil
}
