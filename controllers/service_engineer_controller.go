package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"nimblevision/database"
	"nimblevision/utils"
)

// ServiceEngineerRequest is the body of POST /service-engineers
type ServiceEngineerRequest struct {
	Name          string `json:"name" binding:"required"`
	Email         string `json:"email" binding:"required,email"`
	ContactNumber string `json:"contact_number" binding:"required,phone"`
	Pincode       string `json:"pincode" binding:"required,pincode"`
	Address       string `json:"address" binding:"required"`
	Status        string `json:"status" binding:"omitempty,oneof=active inactive"`
}

// UpdateServiceEngineerRequest is the body of PATCH /service-engineers/:id
type UpdateServiceEngineerRequest struct {
	Name          *string `json:"name" binding:"omitempty,min=1"`
	Email         *string `json:"email" binding:"omitempty,email"`
	ContactNumber *string `json:"contact_number" binding:"omitempty,phone"`
	Pincode       *string `json:"pincode" binding:"omitempty,pincode"`
	Address       *string `json:"address" binding:"omitempty,min=1"`
	Status        *string `json:"status" binding:"omitempty,oneof=active inactive"`
}

func findServiceEngineer(c *gin.Context) (*database.ServiceEngineer, bool) {
	id, ok := parseID(c, "id", "service engineer")
	if !ok {
		return nil, false
	}
	var engineer database.ServiceEngineer
	if err := database.DB.First(&engineer, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Fail(c, http.StatusNotFound, "Service engineer not found")
			return nil, false
		}
		utils.ServerError(c, "Failed to fetch service engineer", err)
		return nil, false
	}
	return &engineer, true
}

// GetServiceEngineers lists all engineers by name
func GetServiceEngineers(c *gin.Context) {
	var engineers []database.ServiceEngineer
	if err := database.DB.Order("name").Find(&engineers).Error; err != nil {
		utils.ServerError(c, "Failed to fetch service engineers", err)
		return
	}
	utils.SuccessList(c, engineers, len(engineers))
}

// GetServiceEngineerByID returns one engineer
func GetServiceEngineerByID(c *gin.Context) {
	engineer, ok := findServiceEngineer(c)
	if !ok {
		return
	}
	utils.Success(c, http.StatusOK, "", engineer)
}

// GetServiceEngineersByPincode lists the active engineers serving a pincode
func GetServiceEngineersByPincode(c *gin.Context) {
	pincode := c.Param("pincode")
	if !utils.IsPincode(pincode) {
		utils.Fail(c, http.StatusBadRequest, "Pincode must be 6 digits")
		return
	}

	var engineers []database.ServiceEngineer
	err := database.DB.Where("pincode = ? AND status = ?", pincode, database.StatusActive).
		Order("name").
		Find(&engineers).Error
	if err != nil {
		utils.ServerError(c, "Failed to fetch service engineers", err)
		return
	}
	utils.SuccessList(c, engineers, len(engineers))
}

// CreateServiceEngineer adds an engineer
func CreateServiceEngineer(c *gin.Context) {
	var req ServiceEngineerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ValidationFailed(c, err)
		return
	}

	engineer := database.ServiceEngineer{
		Name:          strings.TrimSpace(req.Name),
		Email:         normalizeEmail(req.Email),
		ContactNumber: req.ContactNumber,
		Pincode:       req.Pincode,
		Address:       strings.TrimSpace(req.Address),
		Status:        req.Status,
	}
	if engineer.Status == "" {
		engineer.Status = database.StatusActive
	}

	if err := database.DB.Create(&engineer).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			utils.Fail(c, http.StatusBadRequest, "Email already exists")
			return
		}
		utils.ServerError(c, "Failed to create service engineer", err)
		return
	}
	utils.Success(c, http.StatusCreated, "Service engineer created successfully", engineer)
}

// UpdateServiceEngineer applies a partial update
func UpdateServiceEngineer(c *gin.Context) {
	var req UpdateServiceEngineerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ValidationFailed(c, err)
		return
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Email != nil {
		updates["email"] = normalizeEmail(*req.Email)
	}
	if req.ContactNumber != nil {
		updates["contact_number"] = *req.ContactNumber
	}
	if req.Pincode != nil {
		updates["pincode"] = *req.Pincode
	}
	if req.Address != nil {
		updates["address"] = strings.TrimSpace(*req.Address)
	}
	if req.Status != nil {
		updates["status"] = *req.Status
	}
	if len(updates) == 0 {
		utils.Fail(c, http.StatusBadRequest, "No fields to update")
		return
	}

	engineer, ok := findServiceEngineer(c)
	if !ok {
		return
	}

	if err := database.DB.Model(engineer).Updates(updates).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			utils.Fail(c, http.StatusBadRequest, "Email already exists")
			return
		}
		utils.ServerError(c, "Failed to update service engineer", err)
		return
	}
	utils.Success(c, http.StatusOK, "Service engineer updated successfully", engineer)
}

// DeleteServiceEngineer removes an engineer
func DeleteServiceEngineer(c *gin.Context) {
	engineer, ok := findServiceEngineer(c)
	if !ok {
		return
	}
	if err := database.DB.Delete(engineer).Error; err != nil {
		utils.ServerError(c, "Failed to delete service engineer", err)
		return
	}
	utils.Success(c, http.StatusOK, "Service engineer deleted successfully", nil)
}
