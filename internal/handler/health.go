package handler

import (
	"context"
	"net/http"
	"time"

	"neuriax/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Health probes the two stores the API cannot serve without: postgres for
// the ledger and invoice tables, redis for the job queues. It also reports
// the invoice email dead letter backlog so operators spot stuck deliveries
// from the same endpoint the load balancer already polls.
func Health(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		checks := gin.H{"postgres": "up", "redis": "up"}
		healthy := true

		sqlDB, err := db.DB()
		if err != nil || sqlDB.PingContext(ctx) != nil {
			checks["postgres"] = "down"
			healthy = false
		}

		if rdb.Ping(ctx).Err() != nil {
			checks["redis"] = "down"
			healthy = false
		} else if depth, err := worker.DeadLetterDepth(ctx, rdb, worker.QueueInvoiceEmail); err == nil {
			checks["email_dlq_depth"] = depth
		}

		status := http.StatusOK
		if !healthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"ok": healthy, "checks": checks})
	}
}
