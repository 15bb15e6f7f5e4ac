package handler

import (
	"context"
	"net/http"
	"time"

	"cajapos/internal/infra"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Health returns a JSON health check response.
// Checks DB and, when configured, Redis connectivity; never exposes
// credentials or internals. A nil rdb means the report cache is in-process.
// The cache breaker state is informational: reports are recomputed from the
// database while it is open, so it never fails the check.
func Health(db *gorm.DB, rdb *redis.Client, cacheCB *infra.CircuitBreaker) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		dbStatus := "connected"
		sqlDB, err := db.DB()
		if err != nil || sqlDB.PingContext(ctx) != nil {
			dbStatus = "error"
		}

		redisStatus := "disabled"
		if rdb != nil {
			redisStatus = "connected"
			if rdb.Ping(ctx).Err() != nil {
				redisStatus = "error"
			}
		}

		status := http.StatusOK
		if dbStatus != "connected" || redisStatus == "error" {
			status = http.StatusServiceUnavailable
		}

		body := gin.H{
			"ok":    status == http.StatusOK,
			"db":    dbStatus,
			"redis": redisStatus,
		}
		if cacheCB != nil {
			body["cache_breaker"] = cacheCB.State().String()
		}
		c.JSON(status, body)
	}
}
