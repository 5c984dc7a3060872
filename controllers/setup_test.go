package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"nimblevision/config"
	"nimblevision/database"
	"nimblevision/middleware"
	"nimblevision/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
	config.AppConfig = config.Defaults()
	config.AppConfig.Environment = "test"
	config.AppConfig.JWTSecret = "controllers-test"
	utils.RegisterValidators()
}

type testEnv struct {
	t  *testing.T
	db *gorm.DB
	r  *gin.Engine
}

// newTestEnv installs a fresh in-memory database and empty fakes
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.Open("sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.AutoMigrateModels(db))

	prevDB, prevMail, prevDevices, prevPayments := database.DB, utils.Mail, utils.Devices, utils.Payments
	database.DB = db
	utils.Mail = &recordingMailer{}
	utils.Devices = &recordingPublisher{}
	utils.Payments = nil

	t.Cleanup(func() {
		database.DB, utils.Mail, utils.Devices, utils.Payments = prevDB, prevMail, prevDevices, prevPayments
		config.AppConfig.ReturnGeneratedPassword = false
		sqlDB.Close()
	})

	return &testEnv{t: t, db: db, r: gin.New()}
}

// handle mounts h under /api behind the auth middleware plus any gates
func (e *testEnv) handle(method, path string, handlers ...gin.HandlerFunc) {
	chain := append([]gin.HandlerFunc{middleware.AuthMiddleware()}, handlers...)
	e.r.Handle(method, "/api"+path, chain...)
}

// handlePublic mounts h under /api without authentication
func (e *testEnv) handlePublic(method, path string, h gin.HandlerFunc) {
	e.r.Handle(method, "/api"+path, h)
}

func (e *testEnv) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	e.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(e.t, json.NewEncoder(&buf).Encode(b))
		}
	}

	req := httptest.NewRequest(method, "/api"+path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.r.ServeHTTP(w, req)
	return w
}

func (e *testEnv) createUser(role, email string, quota int) database.User {
	e.t.Helper()

	hash, err := utils.HashPassword("secret123")
	require.NoError(e.t, err)
	user := database.User{
		Name:        strings.Split(email, "@")[0],
		Email:       email,
		Phone:       "9876543210",
		Password:    hash,
		Role:        role,
		AccessLevel: database.AccessLimited,
		Status:      database.StatusActive,
		NoOfSecUser: quota,
	}
	require.NoError(e.t, e.db.Create(&user).Error)
	return user
}

func (e *testEnv) addDevice(userID uint, deviceID string, primary bool) database.UserDevice {
	e.t.Helper()
	device := database.UserDevice{UserID: userID, DeviceID: deviceID, IsPrimary: primary, Status: database.StatusActive}
	require.NoError(e.t, e.db.Create(&device).Error)
	return device
}

func tokenFor(t *testing.T, u database.User) string {
	t.Helper()
	token, _, err := utils.IssueToken(u.ID, u.Email, u.Role, u.AccessLevel)
	require.NoError(t, err)
	return token
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}

func dataOf(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	data, ok := decode(t, w)["data"].(map[string]interface{})
	require.True(t, ok, w.Body.String())
	return data
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []utils.EmailMessage
	fail bool
}

func (m *recordingMailer) Send(_ context.Context, msg utils.EmailMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("smtp unavailable")
	}
	m.sent = append(m.sent, msg)
	return nil
}

type recordingPublisher struct {
	mu   sync.Mutex
	cmds []utils.DeviceCommand
	err  error
}

func (p *recordingPublisher) Publish(_ context.Context, cmd utils.DeviceCommand) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.cmds = append(p.cmds, cmd)
	return nil
}

func (p *recordingPublisher) Close() {}

type fakeGateway struct {
	orders   []int64
	receipts []string
	validSig string
}

func (g *fakeGateway) CreateOrder(amountPaise int64, receipt string, _ map[string]interface{}) (utils.PaymentOrder, error) {
	g.orders = append(g.orders, amountPaise)
	g.receipts = append(g.receipts, receipt)
	return utils.PaymentOrder{ID: fmt.Sprintf("order_%d", len(g.orders)), Amount: amountPaise, Currency: "INR"}, nil
}

func (g *fakeGateway) VerifySignature(_, _, signature string) bool { return signature == g.validSig }

func (g *fakeGateway) KeyID() string { return "rzp_test_key" }
