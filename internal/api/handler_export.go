package api

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"sorti-backend/internal/store"
)

// GetExportEventsCSV handles GET /api/export/events.csv (admin only).
func (h *Handler) GetExportEventsCSV(c *gin.Context) {
	if !h.requireAdmin(c) {
		return
	}

	events, err := h.store.ExportEvents(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to export events"})
		return
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Write([]string{"ts", "bin_id", "material", "weight_g", "co2_saved_g"})
	for _, e := range events {
		w.Write([]string{
			e.Ts.UTC().Format(time.RFC3339),
			e.BinID,
			e.Material,
			strconv.FormatFloat(e.WeightG, 'f', -1, 64),
			strconv.FormatFloat(e.CO2SavedG, 'f', -1, 64),
		})
	}
	w.Flush()

	c.Header("Content-Disposition", "attachment; filename=sorti_events.csv")
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// GetExportDailyCSV handles GET /api/export/daily.csv?days= (admin only).
func (h *Handler) GetExportDailyCSV(c *gin.Context) {
	if !h.requireAdmin(c) {
		return
	}

	days := parseDays(c.DefaultQuery("days", "30"))
	rows, err := h.store.Daily(c.Request.Context(), days, time.Now().UTC())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute daily stats"})
		return
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Write([]string{"day", "total_weight_g", "total_co2_saved_g"})
	for _, r := range rows {
		w.Write([]string{
			r.Day,
			strconv.FormatFloat(r.WeightG, 'f', -1, 64),
			strconv.FormatFloat(r.CO2SavedG, 'f', -1, 64),
		})
	}
	w.Flush()

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=sorti_daily_%dd.csv", store.ClampDays(days)))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}
