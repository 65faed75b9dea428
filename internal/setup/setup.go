// Package setup server
package setup

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type Context struct {
	echo.Context
	Log   *zap.SugaredLogger
	Reqid string

	// Credential is the opaque bearer token from the connection, attached
	// by the auth middleware. Read-only for the rest of the request.
	Credential string
}
