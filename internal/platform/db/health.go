package db

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

const healthPingTimeout = 5 * time.Second

// poolSnapshot is the connection-pool portion of the health payload.
type poolSnapshot struct {
	OpenConns int32 `json:"open_conns"`
	IdleConns int32 `json:"idle_conns"`
	InUse     int32 `json:"in_use"`
	MaxConns  int32 `json:"max_conns"`
}

func snapshotPool(pool *pgxpool.Pool) poolSnapshot {
	stat := pool.Stat()
	return poolSnapshot{
		OpenConns: stat.TotalConns(),
		IdleConns: stat.IdleConns(),
		InUse:     stat.AcquiredConns(),
		MaxConns:  stat.MaxConns(),
	}
}

// HealthHandler reports liveness of the database behind the service. A ping
// failure yields 503 with the error alongside the pool snapshot.
func HealthHandler(pool *pgxpool.Pool) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), healthPingTimeout)
		defer cancel()

		if err := pool.Ping(ctx); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]interface{}{
				"status":   "degraded",
				"error":    err.Error(),
				"database": snapshotPool(pool),
			})
		}

		return c.JSON(http.StatusOK, map[string]interface{}{
			"status":   "ok",
			"database": snapshotPool(pool),
		})
	}
}
