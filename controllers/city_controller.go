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

// CityRequest is the body of POST /cities
type CityRequest struct {
	Name   string `json:"name" binding:"required"`
	State  string `json:"state" binding:"required"`
	Status string `json:"status" binding:"omitempty,oneof=active inactive"`
}

// UpdateCityRequest is the body of PATCH /cities/:id
type UpdateCityRequest struct {
	Name   *string `json:"name" binding:"omitempty,min=1"`
	State  *string `json:"state" binding:"omitempty,min=1"`
	Status *string `json:"status" binding:"omitempty,oneof=active inactive"`
}

const duplicateCityMessage = "A city with this name already exists in this state"

func findCity(c *gin.Context) (*database.City, bool) {
	id, ok := parseID(c, "id", "city")
	if !ok {
		return nil, false
	}
	var city database.City
	if err := database.DB.First(&city, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Fail(c, http.StatusNotFound, "City not found")
			return nil, false
		}
		utils.ServerError(c, "Failed to fetch city", err)
		return nil, false
	}
	return &city, true
}

// cityExists reports a case-insensitive name/state clash with any city other than exceptID
func cityExists(name, state string, exceptID uint) (bool, error) {
	var count int64
	err := database.DB.Model(&database.City{}).
		Where("LOWER(name) = LOWER(?) AND LOWER(state) = LOWER(?) AND id <> ?", name, state, exceptID).
		Count(&count).Error
	return count > 0, err
}

// GetCities lists all cities
func GetCities(c *gin.Context) {
	var cities []database.City
	if err := database.DB.Order("state, name").Find(&cities).Error; err != nil {
		utils.ServerError(c, "Failed to fetch cities", err)
		return
	}
	utils.SuccessList(c, cities, len(cities))
}

// GetCityByID returns one city
func GetCityByID(c *gin.Context) {
	city, ok := findCity(c)
	if !ok {
		return
	}
	utils.Success(c, http.StatusOK, "", city)
}

// GetCitiesByState lists a state's cities, matching the state case-insensitively
func GetCitiesByState(c *gin.Context) {
	var cities []database.City
	err := database.DB.Where("LOWER(state) = LOWER(?)", strings.TrimSpace(c.Param("state"))).
		Order("name").
		Find(&cities).Error
	if err != nil {
		utils.ServerError(c, "Failed to fetch cities", err)
		return
	}
	utils.SuccessList(c, cities, len(cities))
}

// CreateCity adds a serviceable city
func CreateCity(c *gin.Context) {
	var req CityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ValidationFailed(c, err)
		return
	}

	city := database.City{
		Name:   strings.TrimSpace(req.Name),
		State:  strings.TrimSpace(req.State),
		Status: req.Status,
	}
	if city.Status == "" {
		city.Status = database.StatusActive
	}

	exists, err := cityExists(city.Name, city.State, 0)
	if err != nil {
		utils.ServerError(c, "Failed to create city", err)
		return
	}
	if exists {
		utils.Fail(c, http.StatusBadRequest, duplicateCityMessage)
		return
	}

	if err := database.DB.Create(&city).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			utils.Fail(c, http.StatusBadRequest, duplicateCityMessage)
			return
		}
		utils.ServerError(c, "Failed to create city", err)
		return
	}
	utils.Success(c, http.StatusCreated, "City created successfully", city)
}

// UpdateCity applies a partial update
func UpdateCity(c *gin.Context) {
	var req UpdateCityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ValidationFailed(c, err)
		return
	}
	if req.Name == nil && req.State == nil && req.Status == nil {
		utils.Fail(c, http.StatusBadRequest, "No fields to update")
		return
	}

	city, ok := findCity(c)
	if !ok {
		return
	}

	updates := map[string]interface{}{}
	name, state := city.Name, city.State
	if req.Name != nil {
		name = strings.TrimSpace(*req.Name)
		updates["name"] = name
	}
	if req.State != nil {
		state = strings.TrimSpace(*req.State)
		updates["state"] = state
	}
	if req.Status != nil {
		updates["status"] = *req.Status
	}

	if req.Name != nil || req.State != nil {
		exists, err := cityExists(name, state, city.ID)
		if err != nil {
			utils.ServerError(c, "Failed to update city", err)
			return
		}
		if exists {
			utils.Fail(c, http.StatusBadRequest, duplicateCityMessage)
			return
		}
	}

	if err := database.DB.Model(city).Updates(updates).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			utils.Fail(c, http.StatusBadRequest, duplicateCityMessage)
			return
		}
		utils.ServerError(c, "Failed to update city", err)
		return
	}
	utils.Success(c, http.StatusOK, "City updated successfully", city)
}

// DeleteCity removes a city
func DeleteCity(c *gin.Context) {
	city, ok := findCity(c)
	if !ok {
		return
	}
	if err := database.DB.Delete(city).Error; err != nil {
		utils.ServerError(c, "Failed to delete city", err)
		return
	}

	audit(c, database.AuditDelete, "city", city.ID, city.Name+", "+city.State)
	utils.Success(c, http.StatusOK, "City deleted successfully", nil)
}
