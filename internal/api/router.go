package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"sorti-backend/internal/mw"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(d Deps) *gin.Engine {
	r := gin.Default()
	handler := NewHandler(d)

	cacheTTL := time.Duration(d.Config.Server.CacheTTLSeconds) * time.Second
	cacheStore := cache.New(cacheTTL, 2*cacheTTL)
	caching := mw.Cache(cacheStore, cacheTTL)

	ipLimit := mw.RateLimiter(rate.Limit(d.Config.Server.RateLimitPerSec), d.Config.Server.RateLimitBurst)

	r.GET("/health", handler.GetHealth)

	api := r.Group("/api")
	{
		// Ingestion. Credential-based limiting happens inside the
		// handler; the IP limiter does not apply here so a chatty
		// dashboard cannot starve device submissions.
		api.POST("/event", handler.PostEvent)

		// Admin endpoints.
		api.POST("/bins/:bin_id/config", handler.PostBinConfig)
		api.POST("/bins/:bin_id/empty", handler.PostBinEmpty)
		api.GET("/events", handler.GetRecentEvents)
		api.GET("/export/events.csv", handler.GetExportEventsCSV)
		api.GET("/export/daily.csv", handler.GetExportDailyCSV)

		// Public reads, IP-limited and cached.
		reads := api.Group("")
		reads.Use(ipLimit)
		{
			reads.GET("/bins", caching, handler.GetBins)
			reads.GET("/stats/total", caching, handler.GetStatsTotal)
			reads.GET("/stats/by_material", caching, handler.GetStatsByMaterial)
			reads.GET("/stats/daily", caching, handler.GetStatsDaily)
		}

		// Live updates. Long-lived; never cached or IP-limited.
		api.GET("/stream", handler.GetStream)

		// Push subscriptions.
		api.GET("/vapid_public_key", handler.GetVAPIDPublicKey)
		api.PUT("/subscriptions", handler.PutSubscription)
		api.DELETE("/subscriptions", handler.DeleteSubscription)
	}

	return r
}
