package controllers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"nimblevision/database"
	"nimblevision/middleware"
	"nimblevision/utils"
)

// parseID reads a positive integer path parameter, writing a 400 when it is not one
func parseID(c *gin.Context, name, label string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		utils.Fail(c, http.StatusBadRequest, fmt.Sprintf("Invalid %s ID", label))
		return 0, false
	}
	return uint(id), true
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func audit(c *gin.Context, action, entityType string, entityID uint, description string) {
	database.RecordAudit(database.DB, database.AuditLog{
		UserID:      middleware.UserID(c),
		Action:      action,
		EntityType:  entityType,
		EntityID:    entityID,
		Description: description,
		IP:          c.ClientIP(),
		UserAgent:   c.Request.UserAgent(),
	})
}

func optionalString(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
