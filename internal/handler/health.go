package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// HealthHandler reports liveness and store readiness. DB is nil when the
// in-memory store is in use, which is always ready.
type HealthHandler struct {
	DB     *gorm.DB
	Driver string
	Queue  PopulationStats
}

func (h *HealthHandler) Register(r *gin.Engine) {
	r.GET("/healthz", h.health)
	r.GET("/readyz", h.ready)
}

// @Summary Health check
// @Tags health
// @Success 200 {object} map[string]string
// @Router /healthz [get]
func (h *HealthHandler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// @Summary Readiness check
// @Tags health
// @Success 200 {object} map[string]any
// @Failure 503 {object} map[string]any
// @Router /readyz [get]
func (h *HealthHandler) ready(c *gin.Context) {
	body := gin.H{"store": h.Driver}
	if h.Queue != nil {
		body["population_worker"] = h.Queue.Stats().Running
	}
	if h.DB == nil {
		if h.Driver == "memory" {
			body["status"] = "ready"
			c.JSON(http.StatusOK, body)
			return
		}
		body["status"] = "db_missing"
		c.JSON(http.StatusServiceUnavailable, body)
		return
	}
	sqlDB, err := h.DB.DB()
	if err != nil {
		body["status"] = "db_error"
		c.JSON(http.StatusServiceUnavailable, body)
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		body["status"] = "db_unreachable"
		c.JSON(http.StatusServiceUnavailable, body)
		return
	}
	body["status"] = "ready"
	c.JSON(http.StatusOK, body)
}
