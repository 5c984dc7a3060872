package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"nimblevision/database"
	"nimblevision/middleware"
	"nimblevision/utils"
)

// ComplaintRequest is the body of POST /complaints
type ComplaintRequest struct {
	Comment string `json:"comment" binding:"required,min=10,max=1000"`
}

// UpdateComplaintRequest is the body of PATCH /complaints/:id
type UpdateComplaintRequest struct {
	Comment *string `json:"comment" binding:"omitempty,min=10,max=1000"`
	Status  *string `json:"status" binding:"omitempty,oneof=pending in_progress resolved closed"`
}

// ComplaintWithUser adds the raising user's name and email for admin listings
type ComplaintWithUser struct {
	database.Complaint
	UserName  string `json:"user_name"`
	UserEmail string `json:"user_email"`
}

func complaintsWithUser() *gorm.DB {
	return database.DB.Table("complaints").
		Select("complaints.*, users.name AS user_name, users.email AS user_email").
		Joins("JOIN users ON users.id = complaints.user_id")
}

func findComplaint(c *gin.Context, denied string) (*database.Complaint, bool) {
	id, ok := parseID(c, "id", "complaint")
	if !ok {
		return nil, false
	}
	var complaint database.Complaint
	if err := database.DB.First(&complaint, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Fail(c, http.StatusNotFound, "Complaint not found")
			return nil, false
		}
		utils.ServerError(c, "Failed to fetch complaint", err)
		return nil, false
	}
	if !middleware.CanAccess(c, complaint.UserID) {
		utils.Fail(c, http.StatusForbidden, denied)
		return nil, false
	}
	return &complaint, true
}

// GetComplaints lists all complaints for admins and the requester's own otherwise
func GetComplaints(c *gin.Context) {
	if middleware.IsAdmin(c) {
		var complaints []ComplaintWithUser
		if err := complaintsWithUser().Order("complaints.created_at DESC").Scan(&complaints).Error; err != nil {
			utils.ServerError(c, "Failed to fetch complaints", err)
			return
		}
		utils.SuccessList(c, complaints, len(complaints))
		return
	}

	var complaints []database.Complaint
	err := database.DB.Where("user_id = ?", middleware.UserID(c)).Order("created_at DESC").Find(&complaints).Error
	if err != nil {
		utils.ServerError(c, "Failed to fetch complaints", err)
		return
	}
	utils.SuccessList(c, complaints, len(complaints))
}

// GetComplaintByID returns one complaint
func GetComplaintByID(c *gin.Context) {
	complaint, ok := findComplaint(c, "You can only view your own complaints")
	if !ok {
		return
	}
	utils.Success(c, http.StatusOK, "", complaint)
}

// GetComplaintsByStatus lists complaints in one status
func GetComplaintsByStatus(c *gin.Context) {
	status := c.Param("status")
	if !validComplaintStatuses[status] {
		utils.Fail(c, http.StatusBadRequest, "Invalid status. Must be one of: pending, in_progress, resolved, closed")
		return
	}

	var complaints []ComplaintWithUser
	err := complaintsWithUser().
		Where("complaints.status = ?", status).
		Order("complaints.created_at DESC").
		Scan(&complaints).Error
	if err != nil {
		utils.ServerError(c, "Failed to fetch complaints", err)
		return
	}
	utils.SuccessList(c, complaints, len(complaints))
}

// CreateComplaint raises a complaint for the requester
func CreateComplaint(c *gin.Context) {
	var req ComplaintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ValidationFailed(c, err)
		return
	}

	complaint := database.Complaint{
		UserID:  middleware.UserID(c),
		Comment: strings.TrimSpace(req.Comment),
		Status:  ComplaintStatusPending,
	}
	if err := database.DB.Create(&complaint).Error; err != nil {
		utils.ServerError(c, "Failed to create complaint", err)
		return
	}
	utils.Success(c, http.StatusCreated, "Complaint created successfully", complaint)
}

// UpdateComplaint edits the comment; only admins move the status
func UpdateComplaint(c *gin.Context) {
	var req UpdateComplaintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ValidationFailed(c, err)
		return
	}
	if req.Comment == nil && req.Status == nil {
		utils.Fail(c, http.StatusBadRequest, "No fields to update")
		return
	}

	complaint, ok := findComplaint(c, "You can only update your own complaints")
	if !ok {
		return
	}

	admin := middleware.IsAdmin(c)
	if req.Status != nil && !admin {
		utils.Fail(c, http.StatusForbidden, "Only admins can update complaint status")
		return
	}
	if complaint.Status == ComplaintStatusClosed && !admin {
		utils.Fail(c, http.StatusForbidden, "Cannot update closed complaints")
		return
	}

	updates := map[string]interface{}{}
	if req.Comment != nil {
		updates["comment"] = strings.TrimSpace(*req.Comment)
	}
	previous := complaint.Status
	if req.Status != nil {
		updates["status"] = *req.Status
	}

	if err := database.DB.Model(complaint).Updates(updates).Error; err != nil {
		utils.ServerError(c, "Failed to update complaint", err)
		return
	}

	if req.Status != nil && *req.Status != previous {
		audit(c, database.AuditStatusChange, "complaint", complaint.ID, previous+" -> "+*req.Status)
	}
	utils.Success(c, http.StatusOK, "Complaint updated successfully", complaint)
}

// DeleteComplaint removes a complaint
func DeleteComplaint(c *gin.Context) {
	complaint, ok := findComplaint(c, "You can only delete your own complaints")
	if !ok {
		return
	}
	if err := database.DB.Delete(complaint).Error; err != nil {
		utils.ServerError(c, "Failed to delete complaint", err)
		return
	}
	utils.Success(c, http.StatusOK, "Complaint deleted successfully", nil)
}
