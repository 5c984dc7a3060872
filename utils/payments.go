package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/razorpay/razorpay-go"

	"nimblevision/config"
)

// PaymentOrder is the subset of a gateway order the API returns to clients
type PaymentOrder struct {
	ID       string
	Amount   int64
	Currency string
}

// PaymentGateway creates orders and checks checkout signatures
type PaymentGateway interface {
	CreateOrder(amountPaise int64, receipt string, notes map[string]interface{}) (PaymentOrder, error)
	VerifySignature(orderID, paymentID, signature string) bool
	KeyID() string
}

// Payments is nil when no gateway credentials are configured
var Payments PaymentGateway

// InitPayments configures Razorpay when both key and secret are present
func InitPayments(cfg config.Config) {
	if cfg.RazorpayKey == "" || cfg.RazorpaySecret == "" {
		Payments = nil
		return
	}
	Payments = NewRazorpayGateway(cfg.RazorpayKey, cfg.RazorpaySecret)
}

// RazorpayGateway talks to the Razorpay orders API
type RazorpayGateway struct {
	client *razorpay.Client
	key    string
	secret string
}

func NewRazorpayGateway(key, secret string) *RazorpayGateway {
	return &RazorpayGateway{client: razorpay.NewClient(key, secret), key: key, secret: secret}
}

func (g *RazorpayGateway) KeyID() string { return g.key }

func (g *RazorpayGateway) CreateOrder(amountPaise int64, receipt string, notes map[string]interface{}) (PaymentOrder, error) {
	data := map[string]interface{}{
		"amount":   amountPaise,
		"currency": "INR",
		"receipt":  receipt,
		"notes":    notes,
	}

	order, err := g.client.Order.Create(data, nil)
	if err != nil {
		return PaymentOrder{}, fmt.Errorf("razorpay order: %w", err)
	}

	id, _ := order["id"].(string)
	if id == "" {
		return PaymentOrder{}, errors.New("razorpay order: missing id in response")
	}
	return PaymentOrder{ID: id, Amount: amountPaise, Currency: "INR"}, nil
}

func (g *RazorpayGateway) VerifySignature(orderID, paymentID, signature string) bool {
	return VerifyRazorpaySignature(orderID+"|"+paymentID, signature, g.secret)
}

// VerifyRazorpaySignature checks an HMAC-SHA256 hex signature
func VerifyRazorpaySignature(data, signature, secret string) bool {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(data))
	expected := hex.EncodeToString(h.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
