package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"nimblevision/database"
	"nimblevision/middleware"
	"nimblevision/utils"
)

// CreateSubscriptionRequest is the body of POST /subscriptions
type CreateSubscriptionRequest struct {
	DeviceID string `json:"device_id" binding:"required"`
	PlanID   uint   `json:"plan_id" binding:"required,min=1"`
	Period   string `json:"period" binding:"required,oneof=Monthly Quarterly 'Half Yearly' Yearly"`
	Quantity int    `json:"quantity" binding:"omitempty,min=1"`
}

type subscriptionStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=active expired cancelled"`
}

// SubscriptionWithPlan is a subscription joined with its plan's name and profile
type SubscriptionWithPlan struct {
	database.Subscription
	PlanName    string `json:"plan_name"`
	PlanProfile string `json:"plan_profile"`
}

func subscriptionsWithPlan() *gorm.DB {
	return database.DB.Table("subscriptions").
		Select("subscriptions.*, plans.plan AS plan_name, plans.profile AS plan_profile").
		Joins("JOIN plans ON plans.id = subscriptions.plan_id")
}

// ownsDevice reports whether userID has registered deviceID
func ownsDevice(db *gorm.DB, userID uint, deviceID string) (bool, error) {
	var count int64
	err := db.Model(&database.UserDevice{}).
		Where("user_id = ? AND device_id = ?", userID, deviceID).
		Count(&count).Error
	return count > 0, err
}

// findSubscription loads :id and applies the owner-or-admin rule
func findSubscription(c *gin.Context, denied string) (*database.Subscription, bool) {
	id, ok := parseID(c, "id", "subscription")
	if !ok {
		return nil, false
	}
	var sub database.Subscription
	if err := database.DB.First(&sub, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Fail(c, http.StatusNotFound, "Subscription not found")
			return nil, false
		}
		utils.ServerError(c, "Failed to fetch subscription", err)
		return nil, false
	}
	if !middleware.CanAccess(c, sub.UserID) {
		utils.Fail(c, http.StatusForbidden, denied)
		return nil, false
	}
	return &sub, true
}

// GetSubscriptions lists the requester's subscriptions, newest first
func GetSubscriptions(c *gin.Context) {
	var subs []SubscriptionWithPlan
	err := subscriptionsWithPlan().
		Where("subscriptions.user_id = ?", middleware.UserID(c)).
		Order("subscriptions.created_at DESC").
		Scan(&subs).Error
	if err != nil {
		utils.ServerError(c, "Failed to fetch subscriptions", err)
		return
	}
	utils.SuccessList(c, subs, len(subs))
}

// GetSubscriptionByID returns one subscription
func GetSubscriptionByID(c *gin.Context) {
	sub, ok := findSubscription(c, "You can only view your own subscriptions")
	if !ok {
		return
	}
	utils.Success(c, http.StatusOK, "", sub)
}

// CreateSubscription subscribes one of the requester's devices to a plan
func CreateSubscription(c *gin.Context) {
	var req CreateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ValidationFailed(c, err)
		return
	}
	userID := middleware.UserID(c)
	deviceID := strings.TrimSpace(req.DeviceID)

	owned, err := ownsDevice(database.DB, userID, deviceID)
	if err != nil {
		utils.ServerError(c, "Failed to create subscription", err)
		return
	}
	if !owned {
		utils.Fail(c, http.StatusNotFound, "Device not found or does not belong to you")
		return
	}

	var plan database.Plan
	if err := database.DB.First(&plan, req.PlanID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Fail(c, http.StatusNotFound, "Plan not found")
			return
		}
		utils.ServerError(c, "Failed to create subscription", err)
		return
	}

	if plan.Period != req.Period {
		utils.Fail(c, http.StatusBadRequest,
			fmt.Sprintf("Selected plan does not support %s period. Plan period is %s", req.Period, plan.Period))
		return
	}

	quantity := req.Quantity
	if quantity < 1 {
		quantity = 1
	}
	start := time.Now()
	end, err := ComputeEndDate(start, req.Period)
	if err != nil {
		utils.Fail(c, http.StatusBadRequest, "Invalid period")
		return
	}

	sub := database.Subscription{
		UserID:        userID,
		DeviceID:      deviceID,
		PlanID:        plan.ID,
		Period:        req.Period,
		Quantity:      quantity,
		StartDate:     start,
		EndDate:       end,
		Amount:        ComputeAmount(plan.Amount, quantity),
		Status:        SubscriptionStatusActive,
		PaymentStatus: database.PaymentStatusUnpaid,
	}
	if err := database.DB.Create(&sub).Error; err != nil {
		utils.ServerError(c, "Failed to create subscription", err)
		return
	}

	utils.Success(c, http.StatusCreated, "Subscription created successfully", sub)
}

// UpdateSubscriptionStatus activates, expires or cancels a subscription
func UpdateSubscriptionStatus(c *gin.Context) {
	var req subscriptionStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ValidationFailed(c, err)
		return
	}

	sub, ok := findSubscription(c, "You can only update your own subscriptions")
	if !ok {
		return
	}

	if err := database.DB.Model(sub).Update("status", req.Status).Error; err != nil {
		utils.ServerError(c, "Failed to update subscription status", err)
		return
	}

	audit(c, database.AuditStatusChange, "subscription", sub.ID, "status set to "+req.Status)
	utils.Success(c, http.StatusOK, "Subscription status updated successfully", sub)
}

// GetSubscriptionsByDevice lists the subscriptions of one device
func GetSubscriptionsByDevice(c *gin.Context) {
	deviceID := c.Param("deviceId")
	q := subscriptionsWithPlan().Where("subscriptions.device_id = ?", deviceID)

	if !middleware.IsAdmin(c) {
		userID := middleware.UserID(c)
		owned, err := ownsDevice(database.DB, userID, deviceID)
		if err != nil {
			utils.ServerError(c, "Failed to fetch subscriptions", err)
			return
		}
		if !owned {
			utils.Fail(c, http.StatusForbidden, "Device not found or does not belong to you")
			return
		}
		q = q.Where("subscriptions.user_id = ?", userID)
	}

	var subs []SubscriptionWithPlan
	if err := q.Order("subscriptions.created_at DESC").Scan(&subs).Error; err != nil {
		utils.ServerError(c, "Failed to fetch subscriptions", err)
		return
	}
	utils.SuccessList(c, subs, len(subs))
}
