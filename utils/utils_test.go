package utils

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nimblevision/config"
)

func init() {
	gin.SetMode(gin.TestMode)
	config.AppConfig = config.Defaults()
	config.AppConfig.Environment = "test"
	config.AppConfig.JWTSecret = "test-secret"
}

func TestJWTRoundTrip(t *testing.T) {
	token, expiry, err := IssueToken(42, "a@example.com", "user", "limited")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), expiry, time.Minute)

	claims, err := ValidateJWT(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "a@example.com", claims.Email)
	assert.Equal(t, "user", claims.Role)
	assert.Equal(t, "limited", claims.AccessLevel)
}

func TestJWTRejectsExpiredAndForeignTokens(t *testing.T) {
	expired, err := GenerateJWT(1, "a@example.com", "admin", "full", time.Now().Add(-time.Minute))
	require.NoError(t, err)
	_, err = ValidateJWT(expired)
	assert.Error(t, err)

	good, err := GenerateJWT(1, "a@example.com", "admin", "full", time.Now().Add(time.Hour))
	require.NoError(t, err)

	config.AppConfig.JWTSecret = "other-secret"
	defer func() { config.AppConfig.JWTSecret = "test-secret" }()
	_, err = ValidateJWT(good)
	assert.Error(t, err)
}

func TestPasswordHelpers(t *testing.T) {
	hash, err := HashPassword("s3cret!")
	require.NoError(t, err)
	assert.True(t, CheckPasswordHash("s3cret!", hash))
	assert.False(t, CheckPasswordHash("wrong", hash))

	pw, err := GeneratePassword(10)
	require.NoError(t, err)
	assert.Len(t, pw, 10)
	for _, r := range pw {
		assert.True(t, strings.ContainsRune(passwordAlphabet, r))
	}

	otp, err := GenerateOTP()
	require.NoError(t, err)
	assert.Regexp(t, `^\d{6}$`, otp)
}

type contactRequest struct {
	Name    string `json:"name" binding:"required"`
	Email   string `json:"email" binding:"required,email"`
	Phone   string `json:"phone" binding:"required,phone"`
	Pincode string `json:"pincode" binding:"required,pincode"`
}

func bindContact(t *testing.T, body string) *httptest.ResponseRecorder {
	t.Helper()
	RegisterValidators()

	r := gin.New()
	r.POST("/", func(c *gin.Context) {
		var req contactRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			ValidationFailed(c, err)
			return
		}
		Success(c, http.StatusCreated, "ok", req)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestValidationMessages(t *testing.T) {
	w := bindContact(t, `{"name":"","email":"nope","phone":"12345","pincode":"12"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var body struct {
		Success bool         `json:"success"`
		Message string       `json:"message"`
		Errors  []FieldError `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, "Validation failed", body.Message)

	byField := map[string]string{}
	for _, e := range body.Errors {
		byField[e.Field] = e.Message
	}
	assert.Equal(t, "name is required", byField["name"])
	assert.Equal(t, "Valid email is required", byField["email"])
	assert.Equal(t, "phone must be 10 digits", byField["phone"])
	assert.Equal(t, "pincode must be 6 digits", byField["pincode"])
}

func TestValidationAcceptsGoodInput(t *testing.T) {
	w := bindContact(t, `{"name":"Ravi","email":"ravi@example.com","phone":"9876543210","pincode":"560001"}`)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"success":true`)
}

func TestValidationRejectsMalformedJSON(t *testing.T) {
	w := bindContact(t, `{"name":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "valid JSON")
}

func TestServerErrorHidesDetailsOutsideDevelopment(t *testing.T) {
	r := gin.New()
	r.GET("/", func(c *gin.Context) { ServerError(c, "Failed to fetch", errors.New("pq: secret detail")) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "secret detail")

	config.AppConfig.Environment = "development"
	defer func() { config.AppConfig.Environment = "test" }()
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Contains(t, w.Body.String(), "secret detail")
}

type slowMailer struct{ delay time.Duration }

func (m slowMailer) Send(ctx context.Context, _ EmailMessage) error {
	select {
	case <-time.After(m.delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func TestSendMailHonorsTimeout(t *testing.T) {
	prevCfg, prevMail := config.AppConfig, Mail
	defer func() { config.AppConfig, Mail = prevCfg, prevMail }()

	t.Setenv("MAIL_TIMEOUT", "20ms")
	t.Setenv("ENVIRONMENT", "test")
	cfg, err := config.Load("")
	require.NoError(t, err)
	config.AppConfig = cfg
	Mail = slowMailer{delay: time.Second}

	start := time.Now()
	err = SendMail(context.Background(), WelcomeEmail("a@example.com", "A", "pw", "D1"))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestSendMailWithoutProvider(t *testing.T) {
	prevMail := Mail
	defer func() { Mail = prevMail }()

	require.NoError(t, InitMailer(config.Config{MailProvider: "smtp"}))
	assert.IsType(t, NoopMailer{}, Mail)

	err := SendMail(context.Background(), PasswordResetEmail("a@example.com", "A", "123456", time.Minute))
	assert.ErrorIs(t, err, ErrMailDisabled)
}

func TestEmailTemplates(t *testing.T) {
	msg := WelcomeEmail("a@example.com", "<Asha>", "Pw123", "DEV-1")
	assert.Equal(t, "Welcome to NimbleVision - Your Account Credentials", msg.Subject)
	assert.Contains(t, msg.HTML, "&lt;Asha&gt;")
	assert.Contains(t, msg.HTML, "Pw123")
	assert.Contains(t, msg.Text, "DEV-1")

	reset := PasswordResetEmail("a@example.com", "Asha", "123456", 15*time.Minute)
	assert.Contains(t, reset.HTML, "123456")
	assert.Contains(t, reset.Text, "15 minutes")
}

type recordingPublisher struct {
	cmds []DeviceCommand
	err  error
}

func (p *recordingPublisher) Publish(_ context.Context, cmd DeviceCommand) error {
	p.cmds = append(p.cmds, cmd)
	return p.err
}
func (p *recordingPublisher) Close() {}

func TestDeviceCommandRouting(t *testing.T) {
	assert.Equal(t, "iot.devices.DEV_01.commands", NATSSubject("DEV.01"))
	assert.Equal(t, "iot/devices/a_b_c/commands", MQTTTopic("a/b+c"))

	prev := Devices
	defer func() { Devices = prev }()

	rec := &recordingPublisher{}
	Devices = rec
	require.NoError(t, PublishDeviceCommand(context.Background(), DeviceCommand{Command: CommandSetTankConfig, DeviceID: "D1"}))
	require.Len(t, rec.cmds, 1)
	assert.False(t, rec.cmds[0].IssuedAt.IsZero())

	Devices = NoopPublisher{}
	assert.ErrorIs(t, PublishDeviceCommand(context.Background(), DeviceCommand{DeviceID: "D1"}), ErrNoDeviceBroker)
}

func TestRazorpaySignature(t *testing.T) {
	h := hmac.New(sha256.New, []byte("rzp_secret"))
	h.Write([]byte("order_1|pay_1"))
	sig := hex.EncodeToString(h.Sum(nil))

	g := NewRazorpayGateway("rzp_key", "rzp_secret")
	assert.True(t, g.VerifySignature("order_1", "pay_1", sig))
	assert.False(t, g.VerifySignature("order_1", "pay_2", sig))
	assert.Equal(t, "rzp_key", g.KeyID())

	InitPayments(config.Config{})
	assert.Nil(t, Payments)
}
