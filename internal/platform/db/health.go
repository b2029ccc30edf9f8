package db

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

// PoolStats represents database connection pool statistics.
type PoolStats struct {
	TotalConns      int32  `json:"total_conns"`
	IdleConns       int32  `json:"idle_conns"`
	AcquiredConns   int32  `json:"acquired_conns"`
	MaxConns        int32  `json:"max_conns"`
	AcquireCount    int64  `json:"acquire_count"`
	AcquireDuration string `json:"acquire_duration"`
}

func GetPoolStats(pool *pgxpool.Pool) *PoolStats {
	stat := pool.Stat()
	return &PoolStats{
		TotalConns:      stat.TotalConns(),
		IdleConns:       stat.IdleConns(),
		AcquiredConns:   stat.AcquiredConns(),
		MaxConns:        stat.MaxConns(),
		AcquireCount:    stat.AcquireCount(),
		AcquireDuration: stat.AcquireDuration().String(),
	}
}

// Check is a named dependency probe reported by HealthHandler.
type Check struct {
	Name  string
	Probe func(ctx context.Context) error
}

// HealthReport is the body returned by the health endpoint.
type HealthReport struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
	Pool   *PoolStats        `json:"pool,omitempty"`
}

// RunChecks probes every dependency and reports "ok" or the error text.
func RunChecks(ctx context.Context, checks []Check) HealthReport {
	report := HealthReport{Status: "healthy", Checks: make(map[string]string, len(checks))}
	for _, chk := range checks {
		if err := chk.Probe(ctx); err != nil {
			report.Status = "unhealthy"
			report.Checks[chk.Name] = err.Error()
			continue
		}
		report.Checks[chk.Name] = "ok"
	}
	return report
}

// HealthHandler pings the database plus any extra dependencies.
func HealthHandler(pool *pgxpool.Pool, extra ...Check) echo.HandlerFunc {
	checks := append([]Check{{Name: "postgres", Probe: pool.Ping}}, extra...)
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()

		report := RunChecks(ctx, checks)
		report.Pool = GetPoolStats(pool)

		status := http.StatusOK
		if report.Status != "healthy" {
			status = http.StatusServiceUnavailable
		}
		return c.JSON(status, report)
	}
}
