package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"nimblevision/config"
	"nimblevision/database"
	"nimblevision/middleware"
	"nimblevision/utils"
)

// CreateUserRequest is the body of POST /users
type CreateUserRequest struct {
	Name           string          `json:"name" binding:"required"`
	Email          string          `json:"email" binding:"required,email"`
	Phone          string          `json:"phone" binding:"required,phone"`
	Device         string          `json:"device" binding:"required"`
	NoOfSecUsers   *int            `json:"noOfSecUsers" binding:"omitempty,min=0"`
	Saviour        *string         `json:"saviour"`
	DeviceSimNo    *string         `json:"deviceSimNo"`
	HouseType      *string         `json:"houseType"`
	SensorType     *string         `json:"sensorType"`
	Address        *string         `json:"address"`
	AddressDetails json.RawMessage `json:"addressDetails"`
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=active inactive"`
}

type createdUserResponse struct {
	database.User
	Device    database.UserDevice `json:"device"`
	EmailSent bool                `json:"emailSent"`
	Password  string              `json:"password,omitempty"`
}

var errQuotaReached = errors.New("secondary user limit reached")

func preloadDevices(db *gorm.DB) *gorm.DB {
	return db.Order("is_primary DESC, created_at DESC")
}

// scopedUsers limits a query to the users the requester may manage
func scopedUsers(c *gin.Context) *gorm.DB {
	q := database.DB.Model(&database.User{})
	if middleware.IsAdmin(c) {
		return q
	}
	me := middleware.UserID(c)
	return q.Where("id = ? OR created_by = ?", me, me)
}

// findScopedUser loads :id if the requester may manage it, writing 404 otherwise
func findScopedUser(c *gin.Context) (*database.User, bool) {
	id, ok := parseID(c, "id", "user")
	if !ok {
		return nil, false
	}

	var user database.User
	err := scopedUsers(c).Preload("Devices", preloadDevices).Where("id = ?", id).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Fail(c, http.StatusNotFound, "User not found")
			return nil, false
		}
		utils.ServerError(c, "Failed to fetch user", err)
		return nil, false
	}
	return &user, true
}

// GetUsers lists the accounts visible to the requester with their devices
func GetUsers(c *gin.Context) {
	q := database.DB.Preload("Devices", preloadDevices).Order("created_at DESC")
	if middleware.IsAdmin(c) {
		q = q.Where("role IN ?", []string{RoleUser, RoleSecondaryUser})
	} else {
		q = q.Where("role = ? AND created_by = ?", RoleSecondaryUser, middleware.UserID(c))
	}

	var users []database.User
	if err := q.Find(&users).Error; err != nil {
		utils.ServerError(c, "Failed to fetch users", err)
		return
	}
	utils.SuccessList(c, users, len(users))
}

// CreateUser creates an account with its primary device and mails the credentials
func CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ValidationFailed(c, err)
		return
	}

	password, err := utils.GeneratePassword(generatedPasswordLength)
	if err != nil {
		utils.ServerError(c, "Failed to generate password", err)
		return
	}
	hash, err := utils.HashPassword(password)
	if err != nil {
		utils.ServerError(c, "Failed to process password", err)
		return
	}

	creatorID := middleware.UserID(c)
	role := RoleSecondaryUser
	if middleware.IsAdmin(c) {
		role = RoleUser
	}

	user := database.User{
		Name:        req.Name,
		Email:       normalizeEmail(req.Email),
		Phone:       req.Phone,
		Password:    hash,
		Role:        role,
		AccessLevel: database.AccessLimited,
		Status:      database.StatusActive,
		Address:     optionalString(req.Address),
		CreatedBy:   &creatorID,
	}
	if req.NoOfSecUsers != nil {
		user.NoOfSecUser = *req.NoOfSecUsers
	}
	if len(req.AddressDetails) > 0 && string(req.AddressDetails) != "null" {
		user.AddressDetails = datatypes.JSON(req.AddressDetails)
	}

	device := database.UserDevice{
		DeviceID:    req.Device,
		Saviour:     optionalString(req.Saviour),
		DeviceSimNo: optionalString(req.DeviceSimNo),
		HouseType:   optionalString(req.HouseType),
		SensorType:  optionalString(req.SensorType),
		IsPrimary:   true,
		Status:      database.StatusActive,
	}

	err = database.DB.Transaction(func(tx *gorm.DB) error {
		if role == RoleSecondaryUser {
			if err := checkSecondaryQuota(tx, creatorID); err != nil {
				return err
			}
		}
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		device.UserID = user.ID
		return tx.Create(&device).Error
	})
	if err != nil {
		switch {
		case errors.Is(err, errQuotaReached):
			utils.Fail(c, http.StatusBadRequest, "Secondary user limit reached")
		case errors.Is(err, gorm.ErrDuplicatedKey):
			utils.Fail(c, http.StatusBadRequest, "Email already exists")
		default:
			utils.ServerError(c, "Failed to create user", err)
		}
		return
	}

	emailSent := utils.SendMail(c.Request.Context(), utils.WelcomeEmail(user.Email, user.Name, password, device.DeviceID)) == nil

	audit(c, database.AuditCreate, "user", user.ID, fmt.Sprintf("created %s %s", user.Role, user.Email))

	resp := createdUserResponse{User: user, Device: device, EmailSent: emailSent}
	if config.AppConfig.ReturnGeneratedPassword {
		resp.Password = password
	}

	message := "User created successfully. Welcome email sent."
	if !emailSent {
		message = "User created successfully. Failed to send welcome email."
	}
	utils.Success(c, http.StatusCreated, message, resp)
}

func checkSecondaryQuota(tx *gorm.DB, creatorID uint) error {
	var creator database.User
	if err := tx.Select("id", "noofsecuser").First(&creator, creatorID).Error; err != nil {
		return err
	}
	var created int64
	if err := tx.Model(&database.User{}).Where("created_by = ? AND role = ?", creatorID, RoleSecondaryUser).Count(&created).Error; err != nil {
		return err
	}
	if created >= int64(creator.NoOfSecUser) {
		return errQuotaReached
	}
	return nil
}

// GetUserByID returns one manageable user with devices
func GetUserByID(c *gin.Context) {
	user, ok := findScopedUser(c)
	if !ok {
		return
	}
	utils.Success(c, http.StatusOK, "", user)
}

// UpdateUserStatus activates or deactivates a user
func UpdateUserStatus(c *gin.Context) {
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ValidationFailed(c, err)
		return
	}

	user, ok := findScopedUser(c)
	if !ok {
		return
	}

	if err := database.DB.Model(user).Update("status", req.Status).Error; err != nil {
		utils.ServerError(c, "Failed to update user status", err)
		return
	}

	audit(c, database.AuditStatusChange, "user", user.ID, "status set to "+req.Status)
	utils.Success(c, http.StatusOK, "User status updated successfully", user)
}

// DeleteUser removes a user and everything they own
func DeleteUser(c *gin.Context) {
	id, ok := parseID(c, "id", "user")
	if !ok {
		return
	}
	if id == middleware.UserID(c) {
		utils.Fail(c, http.StatusBadRequest, "You cannot delete your own account")
		return
	}

	user, ok := findScopedUser(c)
	if !ok {
		return
	}

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		for _, model := range []interface{}{
			&database.Tank{},
			&database.Subscription{},
			&database.Complaint{},
			&database.PasswordReset{},
			&database.UserDevice{},
		} {
			if err := tx.Where("user_id = ?", user.ID).Delete(model).Error; err != nil {
				return err
			}
		}
		if err := tx.Model(&database.User{}).Where("created_by = ?", user.ID).Update("created_by", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&database.User{}, user.ID).Error
	})
	if err != nil {
		utils.ServerError(c, "Failed to delete user", err)
		return
	}

	audit(c, database.AuditDelete, "user", user.ID, "deleted "+user.Email)
	utils.Success(c, http.StatusOK, "User deleted successfully", nil)
}
