package controllers

import (
	"context"
	"eventops/models"
	"eventops/utils"
	"eventops/websocket"
	"eventops/workers"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

const apiVersion = "1.0.0"

// HealthController serves liveness and detailed health information.
// database is nil when the in-memory storage driver is used; redis is nil
// when Redis is not configured.
type HealthController struct {
	hub       *websocket.Hub
	sweeper   *workers.TokenSweepWorker
	redis     *redis.Client
	database  func() map[string]interface{}
	startTime time.Time
}

func NewHealthController(hub *websocket.Hub, sweeper *workers.TokenSweepWorker, redis *redis.Client, database func() map[string]interface{}) *HealthController {
	return &HealthController{
		hub:       hub,
		sweeper:   sweeper,
		redis:     redis,
		database:  database,
		startTime: time.Now(),
	}
}

// HealthCheck reports the status of each backing service
func (hc *HealthController) HealthCheck(c *gin.Context) {
	services := hc.serviceStatus(c.Request.Context())
	response := utils.HealthCheckResponse(services, apiVersion, utils.FormatDuration(time.Since(hc.startTime)))

	status := http.StatusOK
	if response.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, response)
}

// DetailedHealthCheck adds host metrics, realtime hub and sweeper stats
func (hc *HealthController) DetailedHealthCheck(c *gin.Context) {
	ctx := c.Request.Context()

	details := gin.H{
		"health":   utils.HealthCheckResponse(hc.serviceStatus(ctx), apiVersion, utils.FormatDuration(time.Since(hc.startTime))),
		"host":     hostStats(ctx),
		"realtime": hc.hub.Stats(),
	}
	if hc.sweeper != nil {
		details["tokenSweeper"] = hc.sweeper.GetStats()
	}
	if hc.database != nil {
		details["database"] = hc.database()
	}

	utils.SuccessResponse(c, "Detailed health retrieved successfully", details)
}

func (hc *HealthController) serviceStatus(ctx context.Context) map[string]string {
	services := map[string]string{
		"realtime": "healthy",
	}

	if hc.database != nil {
		services["database"] = "unhealthy"
		if result := hc.database(); result["status"] == "healthy" {
			services["database"] = "healthy"
		}
	}

	if hc.redis != nil {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		services["redis"] = "healthy"
		if err := hc.redis.Ping(pingCtx).Err(); err != nil {
			services["redis"] = "unhealthy"
		}
	}

	return services
}

func hostStats(ctx context.Context) models.HostStats {
	stats := models.HostStats{
		Goroutines: runtime.NumGoroutine(),
	}

	if percents, err := cpu.PercentWithContext(ctx, 200*time.Millisecond, false); err == nil && len(percents) > 0 {
		stats.CPUPercent = percents[0]
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		stats.MemoryPercent = vm.UsedPercent
		stats.MemoryUsedMB = vm.Used / 1024 / 1024
	}

	return stats
}
