package controllers

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"nimblevision/database"
	"nimblevision/middleware"
	"nimblevision/utils"
)

// CreateTankRequest is the body of POST /tanks
type CreateTankRequest struct {
	DeviceID        string   `json:"device_id" binding:"required"`
	SaviourName     string   `json:"saviour_name" binding:"required"`
	SaviourCapacity *float64 `json:"saviour_capacity" binding:"required,gte=0"`
	UpperThreshold  *float64 `json:"upper_threshold" binding:"required,gte=0"`
	LowerThreshold  *float64 `json:"lower_threshold" binding:"required,gte=0"`
	SaviourHeight   *float64 `json:"saviour_height" binding:"required,gte=0"`
}

// UpdateTankRequest is the body of PATCH /tanks/:id
type UpdateTankRequest struct {
	SaviourName     *string  `json:"saviour_name" binding:"omitempty,min=1"`
	SaviourCapacity *float64 `json:"saviour_capacity" binding:"omitempty,gte=0"`
	UpperThreshold  *float64 `json:"upper_threshold" binding:"omitempty,gte=0"`
	LowerThreshold  *float64 `json:"lower_threshold" binding:"omitempty,gte=0"`
	SaviourHeight   *float64 `json:"saviour_height" binding:"omitempty,gte=0"`
}

// TankWithDevice is a tank joined with its device's saviour and SIM number
type TankWithDevice struct {
	database.Tank
	Saviour     *string `json:"saviour"`
	DeviceSimNo *string `json:"device_sim_no"`
}

var errTankExists = errors.New("tank already exists for this device")

func tankCommand(t *database.Tank) utils.DeviceCommand {
	return utils.DeviceCommand{
		Command:         utils.CommandSetTankConfig,
		DeviceID:        t.DeviceID,
		SaviourID:       t.SaviourID,
		SaviourCapacity: t.SaviourCapacity,
		UpperThreshold:  t.UpperThreshold,
		LowerThreshold:  t.LowerThreshold,
		SaviourHeight:   t.SaviourHeight,
	}
}

// findTank loads :id and applies the owner-or-admin rule
func findTank(c *gin.Context, denied string) (*database.Tank, bool) {
	id, ok := parseID(c, "id", "tank")
	if !ok {
		return nil, false
	}
	var tank database.Tank
	if err := database.DB.First(&tank, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Fail(c, http.StatusNotFound, "Tank not found")
			return nil, false
		}
		utils.ServerError(c, "Failed to fetch tank", err)
		return nil, false
	}
	if !middleware.CanAccess(c, tank.UserID) {
		utils.Fail(c, http.StatusForbidden, denied)
		return nil, false
	}
	return &tank, true
}

func tankExistsForDevice(db *gorm.DB, userID uint, deviceID string) (bool, error) {
	var count int64
	err := db.Model(&database.Tank{}).Where("user_id = ? AND device_id = ?", userID, deviceID).Count(&count).Error
	return count > 0, err
}

// insertTank assigns the next saviour_id and inserts, retrying when a
// concurrent insert took the same id
func insertTank(db *gorm.DB, tank *database.Tank) error {
	var err error
	for attempt := 0; attempt < maxSaviourIDAttempts; attempt++ {
		var maxID sql.NullInt64
		row := db.Model(&database.Tank{}).Where("user_id = ?", tank.UserID).Select("MAX(saviour_id)").Row()
		if err = row.Scan(&maxID); err != nil {
			return err
		}
		var current *int
		if maxID.Valid {
			v := int(maxID.Int64)
			current = &v
		}
		tank.SaviourID = NextSaviourID(current)
		tank.ID = 0

		err = db.Create(tank).Error
		if err == nil || !errors.Is(err, gorm.ErrDuplicatedKey) {
			return err
		}

		exists, lookupErr := tankExistsForDevice(db, tank.UserID, tank.DeviceID)
		if lookupErr != nil {
			return lookupErr
		}
		if exists {
			return errTankExists
		}
		log.Debug().Uint("user_id", tank.UserID).Int("saviour_id", tank.SaviourID).Msg("Saviour ID taken, retrying")
	}
	return err
}

// GetTanks lists the requester's tanks
func GetTanks(c *gin.Context) {
	var tanks []TankWithDevice
	err := database.DB.Table("tanks").
		Select("tanks.*, user_device.saviour, user_device.device_sim_no").
		Joins("LEFT JOIN user_device ON user_device.device_id = tanks.device_id AND user_device.user_id = tanks.user_id").
		Where("tanks.user_id = ?", middleware.UserID(c)).
		Order("tanks.saviour_id").
		Scan(&tanks).Error
	if err != nil {
		utils.ServerError(c, "Failed to fetch tanks", err)
		return
	}
	utils.SuccessList(c, tanks, len(tanks))
}

// GetTankByID returns one tank
func GetTankByID(c *gin.Context) {
	tank, ok := findTank(c, "You can only view your own tanks")
	if !ok {
		return
	}
	utils.Success(c, http.StatusOK, "", tank)
}

// CreateTank configures the tank for one of the requester's devices
func CreateTank(c *gin.Context) {
	var req CreateTankRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ValidationFailed(c, err)
		return
	}
	if err := ValidateThresholds(*req.UpperThreshold, *req.LowerThreshold); err != nil {
		utils.Fail(c, http.StatusBadRequest, err.Error())
		return
	}

	userID := middleware.UserID(c)
	deviceID := strings.TrimSpace(req.DeviceID)

	owned, err := ownsDevice(database.DB, userID, deviceID)
	if err != nil {
		utils.ServerError(c, "Failed to create tank", err)
		return
	}
	if !owned {
		utils.Fail(c, http.StatusNotFound, "Device not found or does not belong to you")
		return
	}

	exists, err := tankExistsForDevice(database.DB, userID, deviceID)
	if err != nil {
		utils.ServerError(c, "Failed to create tank", err)
		return
	}
	if exists {
		utils.Fail(c, http.StatusBadRequest, "Tank already exists for this device")
		return
	}

	tank := database.Tank{
		UserID:          userID,
		DeviceID:        deviceID,
		SaviourName:     strings.TrimSpace(req.SaviourName),
		SaviourCapacity: *req.SaviourCapacity,
		UpperThreshold:  *req.UpperThreshold,
		LowerThreshold:  *req.LowerThreshold,
		SaviourHeight:   *req.SaviourHeight,
	}
	if err := insertTank(database.DB, &tank); err != nil {
		if errors.Is(err, errTankExists) {
			utils.Fail(c, http.StatusBadRequest, "Tank already exists for this device")
			return
		}
		utils.ServerError(c, "Failed to create tank", err)
		return
	}

	_ = utils.PublishDeviceCommand(c.Request.Context(), tankCommand(&tank))

	utils.Success(c, http.StatusCreated, "Tank created successfully", tank)
}

// UpdateTank applies a partial update, checking thresholds against stored values
func UpdateTank(c *gin.Context) {
	tank, ok := findTank(c, "You can only update your own tanks")
	if !ok {
		return
	}

	var req UpdateTankRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ValidationFailed(c, err)
		return
	}

	updates := map[string]interface{}{}
	if req.SaviourName != nil {
		updates["saviour_name"] = strings.TrimSpace(*req.SaviourName)
	}
	if req.SaviourCapacity != nil {
		updates["saviour_capacity"] = *req.SaviourCapacity
	}
	if req.UpperThreshold != nil {
		updates["upper_threshold"] = *req.UpperThreshold
	}
	if req.LowerThreshold != nil {
		updates["lower_threshold"] = *req.LowerThreshold
	}
	if req.SaviourHeight != nil {
		updates["saviour_height"] = *req.SaviourHeight
	}
	if len(updates) == 0 {
		utils.Fail(c, http.StatusBadRequest, "No fields to update")
		return
	}

	upper, lower := MergeThresholds(tank.UpperThreshold, tank.LowerThreshold, req.UpperThreshold, req.LowerThreshold)
	if err := ValidateThresholds(upper, lower); err != nil {
		utils.Fail(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := database.DB.Model(tank).Updates(updates).Error; err != nil {
		utils.ServerError(c, "Failed to update tank", err)
		return
	}

	_ = utils.PublishDeviceCommand(c.Request.Context(), tankCommand(tank))

	utils.Success(c, http.StatusOK, "Tank updated successfully", tank)
}

// DeleteTank removes a tank
func DeleteTank(c *gin.Context) {
	tank, ok := findTank(c, "You can only delete your own tanks")
	if !ok {
		return
	}
	if err := database.DB.Delete(tank).Error; err != nil {
		utils.ServerError(c, "Failed to delete tank", err)
		return
	}
	utils.Success(c, http.StatusOK, "Tank deleted successfully", nil)
}

// GetTankByDevice returns the tank configured for a device
func GetTankByDevice(c *gin.Context) {
	deviceID := c.Param("deviceId")
	q := database.DB.Where("device_id = ?", deviceID)

	if !middleware.IsAdmin(c) {
		userID := middleware.UserID(c)
		owned, err := ownsDevice(database.DB, userID, deviceID)
		if err != nil {
			utils.ServerError(c, "Failed to fetch tank", err)
			return
		}
		if !owned {
			utils.Fail(c, http.StatusForbidden, "You can only view tanks for your own devices")
			return
		}
		q = q.Where("user_id = ?", userID)
	}

	var tank database.Tank
	if err := q.First(&tank).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Fail(c, http.StatusNotFound, "Tank not found for this device")
			return
		}
		utils.ServerError(c, "Failed to fetch tank", err)
		return
	}
	utils.Success(c, http.StatusOK, "", tank)
}

// SyncTank republishes a tank's configuration to its device
func SyncTank(c *gin.Context) {
	tank, ok := findTank(c, "You can only update your own tanks")
	if !ok {
		return
	}
	if err := utils.PublishDeviceCommand(c.Request.Context(), tankCommand(tank)); err != nil {
		utils.Fail(c, http.StatusServiceUnavailable, "Device command channel unavailable")
		return
	}
	utils.Success(c, http.StatusOK, "Tank configuration sent to device", tank)
}
