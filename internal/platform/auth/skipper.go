package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// publicRoutes lists route patterns (as registered with echo) reachable
// without a token, keyed by "METHOD path".
var publicRoutes = map[string]bool{
	"GET /health":                          true,
	"GET /health/db":                       true,
	"POST /api/v1/auth/register":           true,
	"POST /api/v1/auth/login":              true,
	"GET /api/v1/services":                 true,
	"GET /api/v1/services/:id":             true,
	"GET /api/v1/specialists":              true,
	"GET /api/v1/specialists/:id":          true,
	"GET /api/v1/specialists/:id/schedule": true,
}

// AuthSkipper reports whether the matched route is public.
func AuthSkipper(c echo.Context) bool {
	return IsPublicRoute(c.Request().Method, c.Path())
}

func IsPublicRoute(method, path string) bool {
	if method == http.MethodHead {
		method = http.MethodGet
	}
	return publicRoutes[method+" "+path]
}
