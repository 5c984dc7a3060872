package controllers

import (
	"errors"
	"net/http"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nimblevision/database"
	"nimblevision/middleware"
)

func withMockLegacyDB(t *testing.T) sqlmock.Sqlmock {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	prev := database.LegacyDB
	database.UseLegacyDB(db, "sqlmock")
	t.Cleanup(func() {
		database.LegacyDB = prev
		db.Close()
	})
	return mock
}

func TestAdminDashboard(t *testing.T) {
	env := newTestEnv(t)
	env.handle(http.MethodGet, "/admin/dashboard", middleware.AdminAuthMiddleware(), AdminDashboard)
	admin := tokenFor(t, env.createUser(RoleAdmin, "admin@example.com", 5))
	user := tokenFor(t, env.createUser(RoleUser, "user@example.com", 3))
	mock := withMockLegacyDB(t)

	columns := []string{
		"total_users", "admins", "primary_users", "secondary_users", "active_users", "inactive_users",
		"devices", "tanks", "plans", "cities", "service_engineers",
		"active_subscriptions", "expired_subscriptions", "cancelled_subscriptions",
		"pending_complaints", "in_progress_complaints", "resolved_complaints", "closed_complaints",
		"active_revenue",
	}
	mock.ExpectQuery("SELECT").WillReturnRows(sqlmock.NewRows(columns).
		AddRow(12, 1, 4, 7, 11, 1, 15, 6, 12, 10, 3, 5, 2, 1, 4, 1, 2, 0, 7495.5))

	w := env.do(http.MethodGet, "/admin/dashboard", user, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(http.MethodGet, "/admin/dashboard", admin, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	data := dataOf(t, w)
	assert.EqualValues(t, 12, data["totalUsers"])
	assert.EqualValues(t, 7, data["secondaryUsers"])
	assert.EqualValues(t, 5, data["activeSubscriptions"])
	assert.Equal(t, 7495.5, data["activeRevenue"])
	assert.NoError(t, mock.ExpectationsWereMet())

	mock.ExpectQuery("SELECT").WillReturnError(errors.New("connection reset"))
	w = env.do(http.MethodGet, "/admin/dashboard", admin, nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	body := decode(t, w)
	assert.Equal(t, "Failed to load dashboard statistics", body["message"])
	assert.NotContains(t, body, "error", "details stay hidden outside development")
}

func TestAuditLogsLimit(t *testing.T) {
	env := newTestEnv(t)
	env.handle(http.MethodGet, "/admin/audit-logs", middleware.AdminAuthMiddleware(), GetAuditLogs)
	adminUser := env.createUser(RoleAdmin, "admin@example.com", 5)
	admin := tokenFor(t, adminUser)

	for i := 1; i <= 5; i++ {
		database.RecordAudit(env.db, database.AuditLog{
			UserID: adminUser.ID, Action: database.AuditCreate, EntityType: "plan", EntityID: uint(i),
		})
	}

	w := env.do(http.MethodGet, "/admin/audit-logs?limit=2", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.EqualValues(t, 2, body["count"])
	newest := body["data"].([]interface{})[0].(map[string]interface{})
	assert.EqualValues(t, 5, newest["entity_id"])

	w = env.do(http.MethodGet, "/admin/audit-logs", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 5, decode(t, w)["count"])

	w = env.do(http.MethodGet, "/admin/audit-logs?limit=1000", admin, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(http.MethodGet, "/admin/audit-logs?limit=zero", admin, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
