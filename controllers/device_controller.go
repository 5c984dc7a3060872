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

// AddDeviceRequest is the body of POST /users/:id/devices
type AddDeviceRequest struct {
	DeviceID    string  `json:"deviceId" binding:"required"`
	Saviour     *string `json:"saviour"`
	DeviceSimNo *string `json:"deviceSimNo"`
	HouseType   *string `json:"houseType"`
	SensorType  *string `json:"sensorType"`
	IsPrimary   bool    `json:"isPrimary"`
}

// UpdateDeviceRequest is a partial update; nil fields are left alone
type UpdateDeviceRequest struct {
	Saviour     *string `json:"saviour"`
	DeviceSimNo *string `json:"deviceSimNo"`
	HouseType   *string `json:"houseType"`
	SensorType  *string `json:"sensorType"`
	IsPrimary   *bool   `json:"isPrimary"`
	Status      *string `json:"status" binding:"omitempty,oneof=active inactive"`
}

type bulkDevicesRequest struct {
	DeviceIDs []string `json:"deviceIds" binding:"required,min=1,dive,required"`
}

type bulkDevicesResult struct {
	Devices []database.UserDevice `json:"devices"`
	Added   []string              `json:"added"`
	Removed []string              `json:"removed"`
	Total   int                   `json:"total"`
}

var errLastDevice = errors.New("last device")

// deviceOwner resolves :id and checks the requester may manage its devices
func deviceOwner(c *gin.Context, denied string) (uint, bool) {
	userID, ok := parseID(c, "id", "user")
	if !ok {
		return 0, false
	}
	if !middleware.CanAccess(c, userID) {
		utils.Fail(c, http.StatusForbidden, denied)
		return 0, false
	}
	return userID, true
}

func unsetPrimary(tx *gorm.DB, userID uint, except string) error {
	return tx.Model(&database.UserDevice{}).
		Where("user_id = ? AND device_id <> ?", userID, except).
		Update("is_primary", false).Error
}

func listDevices(db *gorm.DB, userID uint) ([]database.UserDevice, error) {
	var devices []database.UserDevice
	err := db.Where("user_id = ?", userID).Order("is_primary DESC, created_at DESC").Find(&devices).Error
	return devices, err
}

// AddDevice registers another device for a user
func AddDevice(c *gin.Context) {
	userID, ok := deviceOwner(c, "You can only add devices to your own account")
	if !ok {
		return
	}

	var req AddDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ValidationFailed(c, err)
		return
	}

	var count int64
	if err := database.DB.Model(&database.User{}).Where("id = ?", userID).Count(&count).Error; err != nil {
		utils.ServerError(c, "Failed to add device", err)
		return
	}
	if count == 0 {
		utils.Fail(c, http.StatusNotFound, "User not found")
		return
	}

	device := database.UserDevice{
		UserID:      userID,
		DeviceID:    strings.TrimSpace(req.DeviceID),
		Saviour:     optionalString(req.Saviour),
		DeviceSimNo: optionalString(req.DeviceSimNo),
		HouseType:   optionalString(req.HouseType),
		SensorType:  optionalString(req.SensorType),
		IsPrimary:   req.IsPrimary,
		Status:      database.StatusActive,
	}

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if device.IsPrimary {
			if err := unsetPrimary(tx, userID, device.DeviceID); err != nil {
				return err
			}
		}
		return tx.Create(&device).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			utils.Fail(c, http.StatusBadRequest, "This device is already registered for this user")
			return
		}
		utils.ServerError(c, "Failed to add device", err)
		return
	}

	utils.Success(c, http.StatusCreated, "Device added successfully", device)
}

// GetUserDevices lists a user's devices, primary first
func GetUserDevices(c *gin.Context) {
	userID, ok := deviceOwner(c, "You can only view your own devices")
	if !ok {
		return
	}

	devices, err := listDevices(database.DB, userID)
	if err != nil {
		utils.ServerError(c, "Failed to fetch devices", err)
		return
	}
	utils.SuccessList(c, devices, len(devices))
}

// UpdateDevice applies a partial update to one of a user's devices
func UpdateDevice(c *gin.Context) {
	userID, ok := deviceOwner(c, "You can only update your own devices")
	if !ok {
		return
	}
	deviceID := c.Param("deviceId")

	var req UpdateDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ValidationFailed(c, err)
		return
	}

	updates := map[string]interface{}{}
	if req.Saviour != nil {
		updates["saviour"] = optionalString(req.Saviour)
	}
	if req.DeviceSimNo != nil {
		updates["device_sim_no"] = optionalString(req.DeviceSimNo)
	}
	if req.HouseType != nil {
		updates["house_type"] = optionalString(req.HouseType)
	}
	if req.SensorType != nil {
		updates["sensor_type"] = optionalString(req.SensorType)
	}
	if req.IsPrimary != nil {
		updates["is_primary"] = *req.IsPrimary
	}
	if req.Status != nil {
		updates["status"] = *req.Status
	}
	if len(updates) == 0 {
		utils.Fail(c, http.StatusBadRequest, "No fields to update")
		return
	}

	var device database.UserDevice
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ? AND device_id = ?", userID, deviceID).First(&device).Error; err != nil {
			return err
		}
		if req.IsPrimary != nil && *req.IsPrimary {
			if err := unsetPrimary(tx, userID, deviceID); err != nil {
				return err
			}
		}
		if err := tx.Model(&device).Updates(updates).Error; err != nil {
			return err
		}
		return tx.First(&device, device.ID).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Fail(c, http.StatusNotFound, "Device not found for this user")
			return
		}
		utils.ServerError(c, "Failed to update device", err)
		return
	}

	utils.Success(c, http.StatusOK, "Device updated successfully", device)
}

// DeleteDevice removes a device; a user always keeps at least one
func DeleteDevice(c *gin.Context) {
	userID, ok := deviceOwner(c, "You can only delete your own devices")
	if !ok {
		return
	}
	deviceID := c.Param("deviceId")

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&database.UserDevice{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
			return err
		}
		if count <= 1 {
			return errLastDevice
		}

		var device database.UserDevice
		if err := tx.Where("user_id = ? AND device_id = ?", userID, deviceID).First(&device).Error; err != nil {
			return err
		}
		if err := tx.Delete(&device).Error; err != nil {
			return err
		}
		if !device.IsPrimary {
			return nil
		}

		// promote the newest remaining device
		var next database.UserDevice
		if err := tx.Where("user_id = ?", userID).Order("created_at DESC").First(&next).Error; err != nil {
			return err
		}
		return tx.Model(&next).Update("is_primary", true).Error
	})
	if err != nil {
		switch {
		case errors.Is(err, errLastDevice):
			utils.Fail(c, http.StatusBadRequest, "Cannot delete the last device. User must have at least one device.")
		case errors.Is(err, gorm.ErrRecordNotFound):
			utils.Fail(c, http.StatusNotFound, "Device not found for this user")
		default:
			utils.ServerError(c, "Failed to delete device", err)
		}
		return
	}

	utils.Success(c, http.StatusOK, "Device deleted successfully", nil)
}

// BulkUpdateDevices makes the user's device set equal to the listed ids
func BulkUpdateDevices(c *gin.Context) {
	userID, ok := deviceOwner(c, "You can only update your own devices")
	if !ok {
		return
	}

	var req bulkDevicesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ValidationFailed(c, err)
		return
	}

	wanted := make([]string, 0, len(req.DeviceIDs))
	seen := make(map[string]bool, len(req.DeviceIDs))
	for _, id := range req.DeviceIDs {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		wanted = append(wanted, id)
	}
	if len(wanted) == 0 {
		utils.Fail(c, http.StatusBadRequest, "deviceIds must contain at least one device")
		return
	}

	result := bulkDevicesResult{Added: []string{}, Removed: []string{}}
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		existing, err := listDevices(tx, userID)
		if err != nil {
			return err
		}

		have := make(map[string]bool, len(existing))
		for _, d := range existing {
			have[d.DeviceID] = true
			if !seen[d.DeviceID] {
				result.Removed = append(result.Removed, d.DeviceID)
			}
		}
		if len(result.Removed) > 0 {
			if err := tx.Where("user_id = ? AND device_id IN ?", userID, result.Removed).Delete(&database.UserDevice{}).Error; err != nil {
				return err
			}
		}

		for _, id := range wanted {
			if have[id] {
				continue
			}
			if err := tx.Create(&database.UserDevice{UserID: userID, DeviceID: id, Status: database.StatusActive}).Error; err != nil {
				return err
			}
			result.Added = append(result.Added, id)
		}

		var primaries int64
		if err := tx.Model(&database.UserDevice{}).Where("user_id = ? AND is_primary = ?", userID, true).Count(&primaries).Error; err != nil {
			return err
		}
		if primaries == 0 {
			if err := tx.Model(&database.UserDevice{}).
				Where("user_id = ? AND device_id = ?", userID, wanted[0]).
				Update("is_primary", true).Error; err != nil {
				return err
			}
		}

		result.Devices, err = listDevices(tx, userID)
		return err
	})
	if err != nil {
		utils.ServerError(c, "Failed to update devices", err)
		return
	}

	result.Total = len(result.Devices)
	utils.Success(c, http.StatusOK, "Devices updated successfully", result)
}
