// Package httperr turns unexpected failures into client-safe HTTP errors.
package httperr

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

const internalMessage = "internal server error"

// Internal answers 500 with a generic message. The cause stays attached as
// the internal error, so the request logger records it but clients never
// see driver or storage details.
func Internal(err error) *echo.HTTPError {
	return echo.NewHTTPError(http.StatusInternalServerError, internalMessage).SetInternal(err)
}
