package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"nimblevision/config"
	"nimblevision/database"
	"nimblevision/middleware"
	"nimblevision/utils"
)

// LoginRequest is the body of POST /auth/login
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// RegisterRequest is the body of POST /auth/register
type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Phone    string `json:"phone" binding:"required,phone"`
	Password string `json:"password" binding:"required,min=6"`
	Role     string `json:"role" binding:"omitempty,oneof=user secondary_user"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type resetPasswordRequest struct {
	Email       string `json:"email" binding:"required,email"`
	OTP         string `json:"otp" binding:"required,len=6,numeric"`
	NewPassword string `json:"newPassword" binding:"required,min=6"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,min=6"`
}

const forgotPasswordMessage = "If your email is registered, you will receive a password reset code"

// Login authenticates a user and returns a JWT
func Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ValidationFailed(c, err)
		return
	}

	var user database.User
	err := database.DB.Where("email = ?", normalizeEmail(req.Email)).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Fail(c, http.StatusUnauthorized, "Invalid email or password")
			return
		}
		utils.ServerError(c, "Login failed", err)
		return
	}

	if !utils.CheckPasswordHash(req.Password, user.Password) {
		utils.Fail(c, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	if user.Status != database.StatusActive {
		utils.Fail(c, http.StatusForbidden, "Account is inactive. Please contact administrator.")
		return
	}

	token, _, err := utils.IssueToken(user.ID, user.Email, user.Role, user.AccessLevel)
	if err != nil {
		utils.ServerError(c, "Failed to generate token", err)
		return
	}

	now := time.Now()
	if err := database.DB.Model(&user).Update("last_login_date", now).Error; err != nil {
		log.Warn().Err(err).Uint("user_id", user.ID).Msg("Failed to update last login time")
	} else {
		user.LastLoginDate = &now
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Login successful",
		"token":   token,
		"user":    user,
	})
}

// Register creates a self-service account
func Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ValidationFailed(c, err)
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		utils.ServerError(c, "Failed to process password", err)
		return
	}

	role := req.Role
	if role == "" {
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
		NoOfSecUser: defaultSecondaryQuota,
	}

	if err := database.DB.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			utils.Fail(c, http.StatusBadRequest, "Email already registered")
			return
		}
		utils.ServerError(c, "Registration failed", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "User registered successfully",
		"user":    user,
	})
}

// Me returns the authenticated user with their devices
func Me(c *gin.Context) {
	var user database.User
	err := database.DB.
		Preload("Devices", func(db *gorm.DB) *gorm.DB {
			return db.Order("is_primary DESC, created_at DESC")
		}).
		First(&user, middleware.UserID(c)).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Fail(c, http.StatusNotFound, "User not found")
			return
		}
		utils.ServerError(c, "Failed to fetch user", err)
		return
	}
	utils.Success(c, http.StatusOK, "", user)
}

// RefreshToken issues a new token for the current user
func RefreshToken(c *gin.Context) {
	var user database.User
	if err := database.DB.First(&user, middleware.UserID(c)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Fail(c, http.StatusNotFound, "User not found")
			return
		}
		utils.ServerError(c, "Failed to refresh token", err)
		return
	}
	if user.Status != database.StatusActive {
		utils.Fail(c, http.StatusForbidden, "Account is inactive. Please contact administrator.")
		return
	}

	token, expiry, err := utils.IssueToken(user.ID, user.Email, user.Role, user.AccessLevel)
	if err != nil {
		utils.ServerError(c, "Failed to generate token", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"token":   token,
		"expiry":  expiry.Unix(),
	})
}

// ChangePassword replaces the current user's password after checking the old one
func ChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ValidationFailed(c, err)
		return
	}

	var user database.User
	if err := database.DB.First(&user, middleware.UserID(c)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Fail(c, http.StatusNotFound, "User not found")
			return
		}
		utils.ServerError(c, "Failed to change password", err)
		return
	}

	if !utils.CheckPasswordHash(req.CurrentPassword, user.Password) {
		utils.Fail(c, http.StatusBadRequest, "Current password is incorrect")
		return
	}

	hash, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		utils.ServerError(c, "Failed to process password", err)
		return
	}
	if err := database.DB.Model(&user).Update("password", hash).Error; err != nil {
		utils.ServerError(c, "Failed to change password", err)
		return
	}

	utils.Success(c, http.StatusOK, "Password changed successfully", nil)
}

// ForgotPassword mails a one-time reset code. The response never reveals whether the email exists.
func ForgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ValidationFailed(c, err)
		return
	}

	var user database.User
	err := database.DB.Where("email = ?", normalizeEmail(req.Email)).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Success(c, http.StatusOK, forgotPasswordMessage, nil)
			return
		}
		utils.ServerError(c, "Failed to process request", err)
		return
	}

	otp, err := utils.GenerateOTP()
	if err != nil {
		utils.ServerError(c, "Failed to generate reset code", err)
		return
	}

	validFor := config.GetOTPExpiration()
	err = database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ? AND used = ?", user.ID, false).Delete(&database.PasswordReset{}).Error; err != nil {
			return err
		}
		return tx.Create(&database.PasswordReset{
			UserID:    user.ID,
			Email:     user.Email,
			OTP:       otp,
			ExpiresAt: time.Now().Add(validFor),
		}).Error
	})
	if err != nil {
		utils.ServerError(c, "Failed to generate reset code", err)
		return
	}

	_ = utils.SendMail(c.Request.Context(), utils.PasswordResetEmail(user.Email, user.Name, otp, validFor))

	utils.Success(c, http.StatusOK, forgotPasswordMessage, nil)
}

// ResetPassword sets a new password using a valid, unused OTP
func ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ValidationFailed(c, err)
		return
	}

	var reset database.PasswordReset
	err := database.DB.
		Where("email = ? AND otp = ? AND used = ? AND expires_at > ?", normalizeEmail(req.Email), req.OTP, false, time.Now()).
		Order("created_at DESC").
		First(&reset).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Fail(c, http.StatusBadRequest, "Invalid or expired OTP")
			return
		}
		utils.ServerError(c, "Failed to reset password", err)
		return
	}

	hash, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		utils.ServerError(c, "Failed to process password", err)
		return
	}

	err = database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&database.User{}).Where("id = ?", reset.UserID).Update("password", hash).Error; err != nil {
			return err
		}
		return tx.Model(&reset).Update("used", true).Error
	})
	if err != nil {
		utils.ServerError(c, "Failed to reset password", err)
		return
	}

	utils.Success(c, http.StatusOK, "Password has been reset successfully", nil)
}
