package routes

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nimblevision/config"
	"nimblevision/database"
	"nimblevision/middleware"
	"nimblevision/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
	config.AppConfig = config.Defaults()
	config.AppConfig.Environment = "test"
	config.AppConfig.JWTSecret = "routes-test"
}

func withDatabase(t *testing.T) {
	t.Helper()
	db, err := database.Open("sqlite", "file:routes_"+t.Name()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.AutoMigrateModels(db))

	prev := database.DB
	database.DB = db
	t.Cleanup(func() {
		database.DB = prev
		sqlDB.Close()
	})
}

func request(r http.Handler, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func tokenAs(t *testing.T, id uint, role string) string {
	t.Helper()
	token, _, err := utils.IssueToken(id, "someone@example.com", role, "limited")
	require.NoError(t, err)
	return token
}

func message(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	msg, _ := body["message"].(string)
	return msg
}

func TestHealthAndFallbacks(t *testing.T) {
	withDatabase(t)
	r := NewRouter(nil)

	w := request(r, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"database":"connected"`)

	w = request(r, http.MethodGet, "/api/nowhere", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Route not found", message(t, w))

	w = request(r, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "nimblevision_http_requests_total"))
}

func TestHealthReportsMissingDatabase(t *testing.T) {
	prev := database.DB
	database.DB = nil
	t.Cleanup(func() { database.DB = prev })

	w := request(NewRouter(nil), http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"database":"disconnected"`)
}

func TestProtectedRoutes(t *testing.T) {
	withDatabase(t)
	r := NewRouter(nil)

	w := request(r, http.MethodGet, "/api/tanks", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Access token required", message(t, w))

	w = request(r, http.MethodGet, "/api/tanks", "not-a-jwt", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	tests := []struct {
		name   string
		role   string
		method string
		path   string
		want   int
	}{
		{"user reads plans", database.RoleUser, http.MethodGet, "/api/plans", http.StatusOK},
		{"user cannot create plans", database.RoleUser, http.MethodPost, "/api/plans", http.StatusForbidden},
		{"user cannot list cities", database.RoleUser, http.MethodGet, "/api/cities", http.StatusForbidden},
		{"admin lists cities", database.RoleAdmin, http.MethodGet, "/api/cities", http.StatusOK},
		{"secondary user cannot manage users", database.RoleSecondaryUser, http.MethodGet, "/api/users", http.StatusForbidden},
		{"primary user lists users", database.RoleUser, http.MethodGet, "/api/users", http.StatusOK},
		{"complaint status filter is admin only", database.RoleUser, http.MethodGet, "/api/complaints/status/pending", http.StatusForbidden},
		{"admin dashboard is admin only", database.RoleSecondaryUser, http.MethodGet, "/api/admin/dashboard", http.StatusForbidden},
		{"admin reads audit logs", database.RoleAdmin, http.MethodGet, "/api/admin/audit-logs", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := request(r, tt.method, tt.path, tokenAs(t, 1, tt.role), nil)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestAuthRoutesAreRateLimited(t *testing.T) {
	withDatabase(t)
	r := NewRouter(middleware.NewRateLimiter(1, 2))

	for i := 0; i < 2; i++ {
		w := request(r, http.MethodPost, "/api/auth/login", "", map[string]string{})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	}
	w := request(r, http.MethodPost, "/api/auth/login", "", map[string]string{})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	// authenticated routes sit outside the limiter
	w = request(r, http.MethodGet, "/api/plans", tokenAs(t, 1, database.RoleUser), nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
