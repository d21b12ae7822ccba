package handler

import (
	"net/http"
	"time"

	"github.com/crafted-exteriors/crm-api/internal/service"
	"github.com/gin-gonic/gin"
)

type AnalyticsHandler struct {
	analytics *service.AnalyticsService
	settings  *service.SettingsService
}

func NewAnalyticsHandler(analytics *service.AnalyticsService, settings *service.SettingsService) *AnalyticsHandler {
	return &AnalyticsHandler{
		analytics: analytics,
		settings:  settings,
	}
}

// Summary handles GET /admin/analytics/summary?from=...&to=...
func (h *AnalyticsHandler) Summary(c *gin.Context) {
	from, to, err := parseTimeRange(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	statuses := h.settings.Get(c.Request.Context()).LeadStatuses
	summary, err := h.analytics.GetSummary(c.Request.Context(), from, to, statuses)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

func (h *AnalyticsHandler) Logs(c *gin.Context) {
	from, to, err := parseTimeRange(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	logs, err := h.analytics.GetLogs(c.Request.Context(), from, to, queryInt(c, "limit", 100), queryInt(c, "offset", 0))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, logs)
}

// CleanupLogs handles DELETE /admin/analytics/logs?retention_days=30.
func (h *AnalyticsHandler) CleanupLogs(c *gin.Context) {
	retentionDays := queryInt(c, "retention_days", 30)
	if retentionDays < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "retention_days must be at least 1"})
		return
	}

	deleted, err := h.analytics.CleanupOldLogs(c.Request.Context(), retentionDays)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

func parseTimeRange(c *gin.Context) (time.Time, time.Time, error) {
	to := time.Now()
	from := to.Add(-24 * time.Hour)

	if v := c.Query("from"); v != "" {
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		from = parsed
	}
	if v := c.Query("to"); v != "" {
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		to = parsed
	}

	return from, to, nil
}
