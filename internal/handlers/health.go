package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	natsClient "crm-service/internal/nats"
	redisClient "crm-service/internal/redis"
)

var startTime = time.Now()

// HealthHandler handles health check endpoints
type HealthHandler struct {
	db    *gorm.DB
	nats  *natsClient.Client
	redis *redisClient.Client
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(db *gorm.DB, nc *natsClient.Client, rc *redisClient.Client) *HealthHandler {
	return &HealthHandler{
		db:    db,
		nats:  nc,
		redis: rc,
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string           `json:"status"`
	Service   string           `json:"service"`
	Version   string           `json:"version"`
	Uptime    string           `json:"uptime"`
	Timestamp string           `json:"timestamp"`
	Checks    map[string]Check `json:"checks,omitempty"`
}

// Check represents a single dependency check result
type Check struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// Health godoc
// @Summary Health check
// @Description Get the health status of the service
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	response := HealthResponse{
		Status:    "healthy",
		Service:   "crm-service",
		Version:   "1.0.0",
		Uptime:    time.Since(startTime).String(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	if c.Query("detailed") == "true" {
		response.Checks = h.performChecks(c)
	}

	c.JSON(http.StatusOK, response)
}

// Ready godoc
// @Summary Readiness check
// @Description Get the readiness status of the service and its dependencies
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 503 {object} HealthResponse
// @Router /ready [get]
func (h *HealthHandler) Ready(c *gin.Context) {
	response := HealthResponse{
		Service:   "crm-service",
		Version:   "1.0.0",
		Uptime:    time.Since(startTime).String(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    h.performChecks(c),
	}

	// Only the database is required for readiness. Redis and NATS degrade
	// gracefully (no report cache, no events) so they never fail readiness.
	if response.Checks["database"].Status != "healthy" {
		response.Status = "not ready"
		c.JSON(http.StatusServiceUnavailable, response)
		return
	}

	response.Status = "ready"
	c.JSON(http.StatusOK, response)
}

func (h *HealthHandler) performChecks(c *gin.Context) map[string]Check {
	checks := make(map[string]Check)
	checks["database"] = h.checkDatabase()
	checks["nats"] = h.checkNATS()
	checks["redis"] = h.checkRedis(c)
	return checks
}

func (h *HealthHandler) checkDatabase() Check {
	sqlDB, err := h.db.DB()
	if err != nil {
		return Check{Status: "unhealthy", Message: "Failed to get database instance"}
	}
	if err := sqlDB.Ping(); err != nil {
		return Check{Status: "unhealthy", Message: "Database ping failed"}
	}
	return Check{Status: "healthy", Message: "Database connected"}
}

func (h *HealthHandler) checkNATS() Check {
	if h.nats == nil || !h.nats.IsConnected() {
		return Check{Status: "unhealthy", Message: "NATS disconnected"}
	}
	return Check{Status: "healthy", Message: "NATS connected"}
}

func (h *HealthHandler) checkRedis(c *gin.Context) Check {
	if h.redis == nil {
		return Check{Status: "unhealthy", Message: "Redis client not initialized"}
	}
	if err := h.redis.Ping(c.Request.Context()); err != nil {
		return Check{Status: "unhealthy", Message: "Redis ping failed"}
	}
	return Check{Status: "healthy", Message: "Redis connected"}
}
