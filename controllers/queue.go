package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"brand-review-api/models"
)

// GetReviewQueue returns queue rows annotated with commercial status and
// the at-risk flag.
func GetReviewQueue(c *gin.Context) {
	var state *models.ReviewState
	if raw := strings.TrimSpace(c.Query("state")); raw != "" {
		candidate := models.ReviewState(raw)
		if !candidate.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid state filter"})
			return
		}
		state = &candidate
	}

	rows, err := queueService().Rows(c.Request.Context(), state)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build review queue"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"rows":    rows,
		"total":   len(rows),
	})
}

// GetReviewQueueStats returns the dashboard strip: per-state counts,
// pipeline value, and the at-risk count.
func GetReviewQueueStats(c *gin.Context) {
	stats, err := queueService().Stats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute queue stats"})
		return
	}

	// Keyed by state label set for the dashboard strip.
	counts := make(map[string]int64, len(stats.CountsByState))
	for state, count := range stats.CountsByState {
		counts[string(state)] = count
	}

	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"counts":         counts,
		"total":          stats.Total,
		"pipeline_value": stats.PipelineValue,
		"at_risk_count":  stats.AtRiskCount,
	})
}
