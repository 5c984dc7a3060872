package controllers

import (
	"fmt"
	"math"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"nimblevision/database"
	"nimblevision/middleware"
	"nimblevision/utils"
)

// PaymentVerificationRequest carries the checkout callback fields
type PaymentVerificationRequest struct {
	PaymentID string `json:"payment_id" binding:"required"`
	OrderID   string `json:"order_id" binding:"required"`
	Signature string `json:"signature" binding:"required"`
}

// findOwnSubscription is findSubscription without the admin bypass; only the subscriber pays
func findOwnSubscription(c *gin.Context) (*database.Subscription, bool) {
	sub, ok := findSubscription(c, "You can only pay for your own subscriptions")
	if !ok {
		return nil, false
	}
	if sub.UserID != middleware.UserID(c) {
		utils.Fail(c, http.StatusForbidden, "You can only pay for your own subscriptions")
		return nil, false
	}
	return sub, true
}

// CreatePaymentOrder opens a Razorpay order for a subscription's amount
func CreatePaymentOrder(c *gin.Context) {
	if utils.Payments == nil {
		utils.Fail(c, http.StatusServiceUnavailable, "Payment gateway not configured")
		return
	}

	sub, ok := findOwnSubscription(c)
	if !ok {
		return
	}
	if sub.PaymentStatus == database.PaymentStatusPaid {
		utils.Fail(c, http.StatusBadRequest, "Subscription is already paid")
		return
	}

	amountPaise := int64(math.Round(sub.Amount * 100))
	order, err := utils.Payments.CreateOrder(amountPaise, fmt.Sprintf("sub_%d", sub.ID), map[string]interface{}{
		"subscription_id": sub.ID,
		"device_id":       sub.DeviceID,
	})
	if err != nil {
		utils.ServerError(c, "Failed to create payment order", err)
		return
	}

	if err := database.DB.Model(sub).Update("payment_order_id", order.ID).Error; err != nil {
		utils.ServerError(c, "Failed to save payment order", err)
		return
	}

	utils.Success(c, http.StatusOK, "Payment order created", gin.H{
		"razorpay_order_id": order.ID,
		"amount":            order.Amount,
		"currency":          order.Currency,
		"key":               utils.Payments.KeyID(),
	})
}

// VerifyPayment checks the checkout signature and marks the subscription paid
func VerifyPayment(c *gin.Context) {
	if utils.Payments == nil {
		utils.Fail(c, http.StatusServiceUnavailable, "Payment gateway not configured")
		return
	}

	var req PaymentVerificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ValidationFailed(c, err)
		return
	}

	sub, ok := findOwnSubscription(c)
	if !ok {
		return
	}
	if sub.PaymentOrderID == nil || *sub.PaymentOrderID != req.OrderID {
		utils.Fail(c, http.StatusBadRequest, "Order does not match this subscription")
		return
	}
	if !utils.Payments.VerifySignature(req.OrderID, req.PaymentID, req.Signature) {
		log.Warn().Uint("subscription_id", sub.ID).Str("order_id", req.OrderID).Msg("Payment signature mismatch")
		utils.Fail(c, http.StatusBadRequest, "Invalid payment signature")
		return
	}

	err := database.DB.Model(sub).Updates(map[string]interface{}{
		"payment_status": database.PaymentStatusPaid,
		"payment_id":     req.PaymentID,
	}).Error
	if err != nil {
		utils.ServerError(c, "Failed to record payment", err)
		return
	}

	audit(c, database.AuditUpdate, "subscription", sub.ID, "payment "+req.PaymentID+" verified")
	utils.Success(c, http.StatusOK, "Payment verified successfully", sub)
}
