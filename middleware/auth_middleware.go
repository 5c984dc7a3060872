package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"nimblevision/database"
	"nimblevision/utils"
)

// Context keys set by AuthMiddleware
const (
	ContextUserID      = "userID"
	ContextEmail       = "email"
	ContextRole        = "role"
	ContextAccessLevel = "access_level"
)

// AuthMiddleware validates JWT tokens and extracts user information
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		parts := strings.SplitN(authHeader, " ", 2)
		if authHeader == "" || len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			utils.Fail(c, http.StatusUnauthorized, "Access token required")
			c.Abort()
			return
		}

		claims, err := utils.ValidateJWT(parts[1])
		if err != nil {
			utils.Fail(c, http.StatusForbidden, "Invalid or expired token")
			c.Abort()
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextEmail, claims.Email)
		c.Set(ContextRole, claims.Role)
		c.Set(ContextAccessLevel, claims.AccessLevel)

		c.Next()
	}
}

// RoleAuthMiddleware allows only the listed roles
func RoleAuthMiddleware(roles ...string) gin.HandlerFunc {
	return roleGate("Permission denied", roles...)
}

// AdminAuthMiddleware allows only admins
func AdminAuthMiddleware() gin.HandlerFunc {
	return roleGate("Access denied. Admin privileges required.", database.RoleAdmin)
}

// PrimaryUserAuthMiddleware allows admins and primary users
func PrimaryUserAuthMiddleware() gin.HandlerFunc {
	return roleGate("Access denied. Primary user privileges required.", database.RoleAdmin, database.RoleUser)
}

func roleGate(message string, roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(ContextRole)
		if role == "" {
			utils.Fail(c, http.StatusUnauthorized, "Access token required")
			c.Abort()
			return
		}

		for _, r := range roles {
			if r == role {
				c.Next()
				return
			}
		}

		utils.Fail(c, http.StatusForbidden, message)
		c.Abort()
	}
}

// UserID returns the authenticated user's id
func UserID(c *gin.Context) uint {
	if v, ok := c.Get(ContextUserID); ok {
		if id, ok := v.(uint); ok {
			return id
		}
	}
	return 0
}

// Role returns the authenticated user's role
func Role(c *gin.Context) string {
	return c.GetString(ContextRole)
}

// IsAdmin reports whether the requester is an admin
func IsAdmin(c *gin.Context) bool {
	return Role(c) == database.RoleAdmin
}

// CanAccess is the ownership rule: the owner or an admin
func CanAccess(c *gin.Context, ownerID uint) bool {
	return ownerID == UserID(c) || IsAdmin(c)
}
