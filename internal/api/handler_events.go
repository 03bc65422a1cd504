package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"sorti-backend/internal/material"
	"sorti-backend/internal/model"
	"sorti-backend/internal/store"
)

type eventRequest struct {
	BinID    string  `json:"bin_id" binding:"required"`
	Material string  `json:"material" binding:"required"`
	WeightG  float64 `json:"weight_g" binding:"required"`

	IdempotencyKey string `json:"idempotency_key"`

	// Optional provenance.
	Source         *string  `json:"source"`
	Confidence     *float64 `json:"confidence"`
	TopPredictions *string  `json:"top_predictions"`
	ImageRef       *string  `json:"image_ref"`
}

type eventBinState struct {
	CapacityG      float64 `json:"capacity_g"`
	CurrentWeightG float64 `json:"current_weight_g"`
	FillPercent    float64 `json:"fill_percent"`
}

type eventResponse struct {
	OK             bool          `json:"ok"`
	Duplicate      bool          `json:"duplicate"`
	Ts             time.Time     `json:"ts"`
	BinID          string        `json:"bin_id"`
	Material       string        `json:"material"`
	WeightG        float64       `json:"weight_g"`
	FactorGCO2PerG float64       `json:"factor_gco2_per_g"`
	CO2SavedG      float64       `json:"co2_saved_g"`
	IdempotencyKey string        `json:"idempotency_key"`
	Bin            eventBinState `json:"bin"`
}

// liveUpdate is the transport-neutral message pushed to stream
// subscribers after each accepted event.
type liveUpdate struct {
	Type           string    `json:"type"`
	Ts             time.Time `json:"ts"`
	BinID          string    `json:"bin_id"`
	Material       string    `json:"material"`
	WeightG        float64   `json:"weight_g"`
	CO2SavedG      float64   `json:"co2_saved_g"`
	CurrentWeightG float64   `json:"current_weight_g"`
	FillPercent    float64   `json:"fill_percent"`
}

// PostEvent handles POST /api/event, the ingestion hot path:
// authorize, normalize the material, rate-limit, write idempotently,
// accrue the bin weight, then fan the update out to live listeners.
func (h *Handler) PostEvent(c *gin.Context) {
	var req eventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON payload"})
		return
	}

	// The bin may carry its own ingest credential; look before auth.
	var binPtr *model.Bin
	existing, err := h.store.GetBin(c.Request.Context(), req.BinID)
	switch {
	case err == nil:
		binPtr = &existing
	case errors.Is(err, store.ErrBinNotFound):
		// First event for this bin; the store will create it.
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to look up bin"})
		return
	}

	credential, ok := h.checkIngestKey(c, binPtr)
	if !ok {
		return
	}

	if req.WeightG <= 0 || req.WeightG > h.cfg.Ingest.MaxWeightG {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "weight_g must be in (0, " + strconv.FormatFloat(h.cfg.Ingest.MaxWeightG, 'f', -1, 64) + "]",
		})
		return
	}

	normalized := material.Normalize(req.Material)
	factor, err := h.materials.Factor(normalized)
	if err != nil {
		// Echoes the normalized name, not the raw label.
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	now := time.Now().UTC()
	if !h.limiter.Allow(credential, now) {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
		return
	}

	// Uniform idempotency policy: header wins over body; a missing
	// key gets a server-generated UUID so every stored event is
	// individually keyed.
	key := c.GetHeader("Idempotency-Key")
	if key == "" {
		key = req.IdempotencyKey
	}
	if key == "" {
		key = uuid.New().String()
	}

	res, err := h.store.RecordEvent(c.Request.Context(), store.RecordEventParams{
		BinID:            req.BinID,
		Material:         normalized,
		WeightG:          req.WeightG,
		CO2SavedG:        req.WeightG * factor,
		IdempotencyKey:   &key,
		Source:           req.Source,
		Confidence:       req.Confidence,
		TopPredictions:   req.TopPredictions,
		ImageRef:         req.ImageRef,
		DefaultCapacityG: h.cfg.Ingest.DefaultCapacityG,
	}, now)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record event"})
		return
	}

	if !res.Duplicate {
		h.hub.Publish(liveUpdate{
			Type:           "event",
			Ts:             now,
			BinID:          req.BinID,
			Material:       normalized,
			WeightG:        req.WeightG,
			CO2SavedG:      req.WeightG * factor,
			CurrentWeightG: res.Bin.CurrentWeightG,
			FillPercent:    res.Bin.FillPercent(),
		})

		if h.alerts != nil && res.Bin.FillPercent() >= h.cfg.Ingest.AlertFillPercent {
			h.alerts.Dispatch(req.BinID)
		}
	}

	status := http.StatusCreated
	if res.Duplicate {
		status = http.StatusOK
	}

	c.JSON(status, eventResponse{
		OK:             true,
		Duplicate:      res.Duplicate,
		Ts:             now,
		BinID:          req.BinID,
		Material:       normalized,
		WeightG:        req.WeightG,
		FactorGCO2PerG: factor,
		CO2SavedG:      req.WeightG * factor,
		IdempotencyKey: key,
		Bin: eventBinState{
			CapacityG:      res.Bin.CapacityG,
			CurrentWeightG: res.Bin.CurrentWeightG,
			FillPercent:    res.Bin.FillPercent(),
		},
	})
}

// GetRecentEvents handles GET /api/events?limit= (admin only).
func (h *Handler) GetRecentEvents(c *gin.Context) {
	if !h.requireAdmin(c) {
		return
	}

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = n
	}

	events, err := h.store.RecentEvents(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list events"})
		return
	}
	c.JSON(http.StatusOK, events)
}
