package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"nimblevision/database"
	"nimblevision/utils"
)

// PlanRequest is the body of POST /plans
type PlanRequest struct {
	Plan    string   `json:"plan" binding:"required"`
	Profile string   `json:"profile" binding:"required,oneof=Saviour Ni-Sensu 'Smart Jar'"`
	Period  string   `json:"period" binding:"required,oneof=Monthly Quarterly 'Half Yearly' Yearly"`
	Amount  *float64 `json:"amount" binding:"required,min=0"`
}

// UpdatePlanRequest is the body of PATCH /plans/:id
type UpdatePlanRequest struct {
	Plan    *string  `json:"plan" binding:"omitempty,min=1"`
	Profile *string  `json:"profile" binding:"omitempty,oneof=Saviour Ni-Sensu 'Smart Jar'"`
	Period  *string  `json:"period" binding:"omitempty,oneof=Monthly Quarterly 'Half Yearly' Yearly"`
	Amount  *float64 `json:"amount" binding:"omitempty,min=0"`
}

func findPlan(c *gin.Context) (*database.Plan, bool) {
	id, ok := parseID(c, "id", "plan")
	if !ok {
		return nil, false
	}
	var plan database.Plan
	if err := database.DB.First(&plan, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Fail(c, http.StatusNotFound, "Plan not found")
			return nil, false
		}
		utils.ServerError(c, "Failed to fetch plan", err)
		return nil, false
	}
	return &plan, true
}

// GetPlans lists all plans
func GetPlans(c *gin.Context) {
	var plans []database.Plan
	if err := database.DB.Order("profile, period").Find(&plans).Error; err != nil {
		utils.ServerError(c, "Failed to fetch plans", err)
		return
	}
	utils.SuccessList(c, plans, len(plans))
}

// GetPlanByID returns one plan
func GetPlanByID(c *gin.Context) {
	plan, ok := findPlan(c)
	if !ok {
		return
	}
	utils.Success(c, http.StatusOK, "", plan)
}

// GetPlansByProfile lists the plans of one product profile
func GetPlansByProfile(c *gin.Context) {
	profile := c.Param("profile")
	if !validProfiles[profile] {
		utils.Fail(c, http.StatusBadRequest, "Invalid profile")
		return
	}

	var plans []database.Plan
	if err := database.DB.Where("profile = ?", profile).Order("period").Find(&plans).Error; err != nil {
		utils.ServerError(c, "Failed to fetch plans", err)
		return
	}
	utils.SuccessList(c, plans, len(plans))
}

// CreatePlan adds a plan
func CreatePlan(c *gin.Context) {
	var req PlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ValidationFailed(c, err)
		return
	}

	plan := database.Plan{
		Plan:    strings.TrimSpace(req.Plan),
		Profile: req.Profile,
		Period:  req.Period,
		Amount:  *req.Amount,
	}
	if err := database.DB.Create(&plan).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			utils.Fail(c, http.StatusBadRequest, "A plan with this name, profile, and period already exists")
			return
		}
		utils.ServerError(c, "Failed to create plan", err)
		return
	}

	audit(c, database.AuditCreate, "plan", plan.ID, fmt.Sprintf("%s %s %s", plan.Plan, plan.Profile, plan.Period))
	utils.Success(c, http.StatusCreated, "Plan created successfully", plan)
}

// UpdatePlan applies a partial update
func UpdatePlan(c *gin.Context) {
	var req UpdatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ValidationFailed(c, err)
		return
	}

	updates := map[string]interface{}{}
	if req.Plan != nil {
		updates["plan"] = strings.TrimSpace(*req.Plan)
	}
	if req.Profile != nil {
		updates["profile"] = *req.Profile
	}
	if req.Period != nil {
		updates["period"] = *req.Period
	}
	if req.Amount != nil {
		updates["amount"] = *req.Amount
	}
	if len(updates) == 0 {
		utils.Fail(c, http.StatusBadRequest, "No fields to update")
		return
	}

	plan, ok := findPlan(c)
	if !ok {
		return
	}

	if err := database.DB.Model(plan).Updates(updates).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			utils.Fail(c, http.StatusBadRequest, "A plan with this combination already exists")
			return
		}
		utils.ServerError(c, "Failed to update plan", err)
		return
	}

	audit(c, database.AuditUpdate, "plan", plan.ID, fmt.Sprintf("%s %s %s", plan.Plan, plan.Profile, plan.Period))
	utils.Success(c, http.StatusOK, "Plan updated successfully", plan)
}

// DeletePlan removes a plan that no subscription references
func DeletePlan(c *gin.Context) {
	plan, ok := findPlan(c)
	if !ok {
		return
	}

	var refs int64
	if err := database.DB.Model(&database.Subscription{}).Where("plan_id = ?", plan.ID).Count(&refs).Error; err != nil {
		utils.ServerError(c, "Failed to delete plan", err)
		return
	}
	if refs > 0 {
		utils.Fail(c, http.StatusBadRequest, "Cannot delete plan with existing subscriptions")
		return
	}

	if err := database.DB.Delete(plan).Error; err != nil {
		utils.ServerError(c, "Failed to delete plan", err)
		return
	}

	audit(c, database.AuditDelete, "plan", plan.ID, plan.Plan)
	utils.Success(c, http.StatusOK, "Plan deleted successfully", nil)
}
