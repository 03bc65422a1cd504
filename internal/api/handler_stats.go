package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"sorti-backend/internal/store"
)

// GetStatsTotal handles GET /api/stats/total (public).
func (h *Handler) GetStatsTotal(c *gin.Context) {
	row, err := h.store.Totals(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute totals"})
		return
	}
	c.JSON(http.StatusOK, row)
}

// GetStatsByMaterial handles GET /api/stats/by_material (public).
func (h *Handler) GetStatsByMaterial(c *gin.Context) {
	rows, err := h.store.ByMaterial(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute by-material stats"})
		return
	}
	if rows == nil {
		rows = []store.MaterialRow{}
	}
	c.JSON(http.StatusOK, rows)
}

// GetStatsDaily handles GET /api/stats/daily?days= (public). The days
// parameter clamps silently to [1,365]; a malformed value falls back
// to the default window.
func (h *Handler) GetStatsDaily(c *gin.Context) {
	days := parseDays(c.DefaultQuery("days", "30"))
	rows, err := h.store.Daily(c.Request.Context(), days, time.Now().UTC())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute daily stats"})
		return
	}
	c.JSON(http.StatusOK, rows)
}

func parseDays(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 30
	}
	return n
}

// GetHealth handles GET /health: a trivial query proves the database
// is reachable.
func (h *Handler) GetHealth(c *gin.Context) {
	var one int
	if err := h.store.DB().WithContext(c.Request.Context()).Raw("SELECT 1").Scan(&one).Error; err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
