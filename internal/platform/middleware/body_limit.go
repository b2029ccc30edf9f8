package middleware

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

// bodyLimits picks the byte cap for a request: photo uploads get the larger
// uploadBytes, everything else defaultBytes.
type bodyLimits struct {
	defaultBytes int64
	uploadBytes  int64
	uploadPrefix string
}

func (l bodyLimits) forRequest(r *http.Request) int64 {
	if r.Method == http.MethodPost && l.uploadPrefix != "" && strings.HasPrefix(r.URL.Path, l.uploadPrefix) {
		return l.uploadBytes
	}
	return l.defaultBytes
}

func tooLarge(limit int64) error {
	return echo.NewHTTPError(http.StatusRequestEntityTooLarge,
		fmt.Sprintf("request body exceeds maximum allowed size of %d bytes", limit))
}

// BodyLimit caps request body size. uploadLimit applies to POSTs under
// uploadPrefix (skin photo uploads); defaultLimit applies everywhere else.
// Sizes accept K, M and G suffixes; a bare number is bytes.
func BodyLimit(defaultLimit, uploadLimit, uploadPrefix string) echo.MiddlewareFunc {
	limits := bodyLimits{
		defaultBytes: parseLimit(defaultLimit),
		uploadBytes:  parseLimit(uploadLimit),
		uploadPrefix: uploadPrefix,
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if req.Body == nil || req.Body == http.NoBody {
				return next(c)
			}
			limit := limits.forRequest(req)
			if req.ContentLength > limit {
				return tooLarge(limit)
			}
			// Content-Length may be absent or wrong.
			req.Body = &cappedBody{ReadCloser: req.Body, left: limit, limit: limit}
			return next(c)
		}
	}
}

type cappedBody struct {
	io.ReadCloser
	left  int64
	limit int64
	over  bool
}

func (b *cappedBody) Read(p []byte) (int, error) {
	if b.over {
		return 0, tooLarge(b.limit)
	}
	// Allow one byte past the cap so overflow is observable.
	if room := b.left + 1; int64(len(p)) > room {
		p = p[:room]
	}
	n, err := b.ReadCloser.Read(p)
	if b.left -= int64(n); b.left < 0 {
		b.over = true
		return 0, tooLarge(b.limit)
	}
	return n, err
}

// parseLimit converts "512K", "1M", "10M", "1G" or a byte count. Unparseable
// input falls back to 1 MB.
func parseLimit(s string) int64 {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return 1 << 20
	}

	var multiplier int64 = 1
	s = strings.TrimSuffix(s, "B")
	switch {
	case strings.HasSuffix(s, "G"):
		multiplier = 1 << 30
	case strings.HasSuffix(s, "M"):
		multiplier = 1 << 20
	case strings.HasSuffix(s, "K"):
		multiplier = 1 << 10
	}
	if multiplier > 1 {
		s = s[:len(s)-1]
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return 1 << 20
	}
	return n * multiplier
}
