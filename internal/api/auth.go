package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"sorti-backend/internal/model"
)

// Credentials are compared by exact match and never logged.

// requireAdmin aborts the request unless X-API-Key carries the admin
// credential.
func (h *Handler) requireAdmin(c *gin.Context) bool {
	if h.cfg.Auth.AdminKey == "" || c.GetHeader("X-API-Key") != h.cfg.Auth.AdminKey {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized (admin)"})
		return false
	}
	return true
}

// checkIngestKey validates X-Ingest-Key against the bin's own key
// when it has one, or the global ingest key otherwise. bin is nil
// when the event references a bin that does not exist yet. On success
// it returns the matched credential, which also keys the submission
// rate limiter.
func (h *Handler) checkIngestKey(c *gin.Context, bin *model.Bin) (string, bool) {
	expected := h.cfg.Auth.IngestKey
	if bin != nil && bin.IngestKey != nil && *bin.IngestKey != "" {
		expected = *bin.IngestKey
	}
	if expected == "" || c.GetHeader("X-Ingest-Key") != expected {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized (ingest)"})
		return "", false
	}
	return expected, true
}
