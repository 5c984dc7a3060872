package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"nimblevision/database"
	"nimblevision/utils"
)

// AdminDashboard returns key statistics for the admin dashboard
func AdminDashboard(c *gin.Context) {
	stats, err := database.LoadDashboardStats(c.Request.Context(), database.LegacyDB)
	if err != nil {
		utils.ServerError(c, "Failed to load dashboard statistics", err)
		return
	}
	utils.Success(c, http.StatusOK, "", stats)
}

// GetAuditLogs returns the newest audit entries; ?limit= defaults to 50, capped at 200
func GetAuditLogs(c *gin.Context) {
	limit := defaultAuditLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			utils.Fail(c, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	if limit > maxAuditLimit {
		limit = maxAuditLimit
	}

	var logs []database.AuditLog
	if err := database.DB.Order("created_at DESC, id DESC").Limit(limit).Find(&logs).Error; err != nil {
		utils.ServerError(c, "Failed to fetch audit logs", err)
		return
	}
	utils.SuccessList(c, logs, len(logs))
}
