package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// TickStatus reports whether a tick is executing. engine.Engine satisfies it.
type TickStatus interface {
	Running() bool
}

type HealthHandler struct {
	DB     *gorm.DB
	Engine TickStatus
	Stream interface{ Subscribers() int }
}

func (h *HealthHandler) Register(r *gin.Engine) {
	r.GET("/health", h.health)
	r.GET("/healthz", h.liveness)
	r.GET("/readyz", h.ready)
}

// @Summary Service health with tick and stream state
// @Tags health
// @Success 200 {object} map[string]any
// @Router /health [get]
func (h *HealthHandler) health(c *gin.Context) {
	out := gin.H{"status": "ok"}
	if h.Engine != nil {
		out["tick_running"] = h.Engine.Running()
	}
	if h.Stream != nil {
		out["stream_subscribers"] = h.Stream.Subscribers()
	}
	c.JSON(http.StatusOK, out)
}

func (h *HealthHandler) liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// @Summary Readiness check
// @Tags health
// @Success 200 {object} map[string]string
// @Router /readyz [get]
func (h *HealthHandler) ready(c *gin.Context) {
	if h.DB == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "db_missing"})
		return
	}
	sqlDB, err := h.DB.DB()
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "db_error"})
		return
	}
	if err := sqlDB.PingContext(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "db_unreachable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
