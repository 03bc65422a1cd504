package api

import (
	"github.com/SherClockHolmes/webpush-go"

	"sorti-backend/config"
	"sorti-backend/internal/hub"
	"sorti-backend/internal/material"
	"sorti-backend/internal/notification"
	"sorti-backend/internal/ratelimit"
	"sorti-backend/internal/store"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store     store.Store
	hub       *hub.Hub
	limiter   *ratelimit.SlidingWindow
	materials *material.Table
	cfg       *config.Config
	webpush   *webpush.Options
	alerts    *notification.WorkerPool
}

// Deps bundles everything the handlers need. Alerts and webpush may
// be nil when push is not configured.
type Deps struct {
	Store     store.Store
	Hub       *hub.Hub
	Limiter   *ratelimit.SlidingWindow
	Materials *material.Table
	Config    *config.Config
	Webpush   *webpush.Options
	Alerts    *notification.WorkerPool
}

// NewHandler creates a new API handler.
func NewHandler(d Deps) *Handler {
	return &Handler{
		store:     d.Store,
		hub:       d.Hub,
		limiter:   d.Limiter,
		materials: d.Materials,
		cfg:       d.Config,
		webpush:   d.Webpush,
		alerts:    d.Alerts,
	}
}
