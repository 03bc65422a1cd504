package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"sorti-backend/internal/store"
)

type binConfigRequest struct {
	CapacityG float64 `json:"capacity_g" binding:"required,gt=0"`
	IngestKey *string `json:"ingest_key"`
}

// PostBinConfig handles POST /api/bins/:bin_id/config (admin only).
// Upsert semantics: creates the bin when absent, otherwise updates
// capacity (and the per-bin ingest key when given).
func (h *Handler) PostBinConfig(c *gin.Context) {
	if !h.requireAdmin(c) {
		return
	}

	binID := c.Param("bin_id")
	var req binConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "capacity_g must be a positive number"})
		return
	}

	now := time.Now().UTC()
	bin, err := h.store.UpsertBin(c.Request.Context(), binID, &req.CapacityG, req.IngestKey, h.cfg.Ingest.DefaultCapacityG, now)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to configure bin"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":         true,
		"bin_id":     bin.BinID,
		"capacity_g": bin.CapacityG,
	})
}

// PostBinEmpty handles POST /api/bins/:bin_id/empty (admin only).
func (h *Handler) PostBinEmpty(c *gin.Context) {
	if !h.requireAdmin(c) {
		return
	}

	binID := c.Param("bin_id")
	now := time.Now().UTC()

	bin, err := h.store.EmptyBin(c.Request.Context(), binID, now)
	if err != nil {
		if errors.Is(err, store.ErrBinNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "bin not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to empty bin"})
		return
	}

	h.hub.Publish(liveUpdate{
		Type:           "bin_emptied",
		Ts:             now,
		BinID:          bin.BinID,
		CurrentWeightG: bin.CurrentWeightG,
		FillPercent:    bin.FillPercent(),
	})

	c.JSON(http.StatusOK, gin.H{
		"ok":         true,
		"bin_id":     bin.BinID,
		"emptied_at": now,
	})
}

// GetBins handles GET /api/bins (public).
func (h *Handler) GetBins(c *gin.Context) {
	bins, err := h.store.ListBins(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list bins"})
		return
	}
	c.JSON(http.StatusOK, bins)
}
