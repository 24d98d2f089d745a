package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prian3003/gotchu-auth/internal/store"
	"gorm.io/gorm"
)

// HealthHandler reports service and dependency health.
type HealthHandler struct {
	db       *gorm.DB
	sessions *store.Store
}

// NewHealthHandler creates a new HealthHandler instance.
func NewHealthHandler(db *gorm.DB, sessions *store.Store) *HealthHandler {
	return &HealthHandler{db: db, sessions: sessions}
}

// Check godoc
// @Summary Health check
// @Description Check service health including database and session store
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /health [get]
func (h *HealthHandler) Check(c *gin.Context) {
	status := http.StatusOK
	checks := gin.H{
		"database":      "ok",
		"session_store": "ok",
	}

	if h.db != nil {
		if sqlDB, err := h.db.DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
			checks["database"] = "unavailable"
			status = http.StatusServiceUnavailable
		}
	}

	if h.sessions != nil {
		if err := h.sessions.Connect(c.Request.Context()); err != nil {
			checks["session_store"] = "unavailable"
			status = http.StatusServiceUnavailable
		}
	}

	checks["status"] = "healthy"
	if status != http.StatusOK {
		checks["status"] = "degraded"
	}
	c.JSON(status, checks)
}
