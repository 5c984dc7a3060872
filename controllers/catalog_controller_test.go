package controllers

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nimblevision/database"
	"nimblevision/middleware"
)

func TestPlans(t *testing.T) {
	env := newTestEnv(t)
	adminGate := middleware.AdminAuthMiddleware()
	env.handle(http.MethodGet, "/plans", GetPlans)
	env.handle(http.MethodGet, "/plans/profile/:profile", GetPlansByProfile)
	env.handle(http.MethodGet, "/plans/:id", GetPlanByID)
	env.handle(http.MethodPost, "/plans", adminGate, CreatePlan)
	env.handle(http.MethodPatch, "/plans/:id", adminGate, UpdatePlan)
	env.handle(http.MethodDelete, "/plans/:id", adminGate, DeletePlan)

	admin := tokenFor(t, env.createUser(RoleAdmin, "admin@example.com", 5))
	user := env.createUser(RoleUser, "user@example.com", 3)
	userToken := tokenFor(t, user)

	body := map[string]interface{}{"plan": "Premium", "profile": "Smart Jar", "period": "Half Yearly", "amount": 1499}
	w := env.do(http.MethodPost, "/plans", userToken, body)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Access denied. Admin privileges required.", decode(t, w)["message"])

	w = env.do(http.MethodPost, "/plans", admin, body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	planID := uint(dataOf(t, w)["id"].(float64))

	w = env.do(http.MethodPost, "/plans", admin, body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "A plan with this name, profile, and period already exists", decode(t, w)["message"])

	w = env.do(http.MethodPost, "/plans", admin, map[string]interface{}{"plan": "Basic", "profile": "Toaster", "period": "Monthly", "amount": 10})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	body["period"] = "Yearly"
	w = env.do(http.MethodPost, "/plans", admin, body)
	require.Equal(t, http.StatusCreated, w.Code)
	otherID := uint(dataOf(t, w)["id"].(float64))

	w = env.do(http.MethodGet, "/plans/profile/Smart%20Jar", userToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 2, decode(t, w)["count"])

	w = env.do(http.MethodGet, "/plans/profile/Toaster", userToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodPatch, fmt.Sprintf("/plans/%d", otherID), admin, map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "No fields to update", decode(t, w)["message"])

	w = env.do(http.MethodPatch, fmt.Sprintf("/plans/%d", otherID), admin, map[string]interface{}{"period": "Half Yearly"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "A plan with this combination already exists", decode(t, w)["message"])

	w = env.do(http.MethodPatch, fmt.Sprintf("/plans/%d", otherID), admin, map[string]interface{}{"amount": 2599.5})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2599.5, dataOf(t, w)["amount"])

	now := time.Now()
	require.NoError(t, env.db.Create(&database.Subscription{
		UserID: user.ID, DeviceID: "D", PlanID: planID, Period: "Half Yearly", Quantity: 1,
		StartDate: now, EndDate: now, Amount: 1499, Status: SubscriptionStatusActive,
	}).Error)

	w = env.do(http.MethodDelete, fmt.Sprintf("/plans/%d", planID), admin, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Cannot delete plan with existing subscriptions", decode(t, w)["message"])

	w = env.do(http.MethodDelete, fmt.Sprintf("/plans/%d", otherID), admin, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(http.MethodGet, fmt.Sprintf("/plans/%d", otherID), userToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Plan not found", decode(t, w)["message"])

	var audits int64
	env.db.Model(&database.AuditLog{}).Where("entity_type = ?", "plan").Count(&audits)
	assert.EqualValues(t, 4, audits, "two creates, one update, one delete")
}

func TestCities(t *testing.T) {
	env := newTestEnv(t)
	adminGate := middleware.AdminAuthMiddleware()
	env.handle(http.MethodGet, "/cities", adminGate, GetCities)
	env.handle(http.MethodGet, "/cities/state/:state", adminGate, GetCitiesByState)
	env.handle(http.MethodPost, "/cities", adminGate, CreateCity)
	env.handle(http.MethodPatch, "/cities/:id", adminGate, UpdateCity)
	env.handle(http.MethodDelete, "/cities/:id", adminGate, DeleteCity)
	admin := tokenFor(t, env.createUser(RoleAdmin, "admin@example.com", 5))

	w := env.do(http.MethodPost, "/cities", admin, map[string]string{"name": "Pune", "state": "Maharashtra"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, database.StatusActive, dataOf(t, w)["status"])

	w = env.do(http.MethodPost, "/cities", admin, map[string]string{"name": "pune", "state": "MAHARASHTRA"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "A city with this name already exists in this state", decode(t, w)["message"])

	w = env.do(http.MethodPost, "/cities", admin, map[string]string{"name": "Nagpur", "state": "Maharashtra"})
	require.Equal(t, http.StatusCreated, w.Code)
	nagpur := uint(dataOf(t, w)["id"].(float64))

	w = env.do(http.MethodPatch, fmt.Sprintf("/cities/%d", nagpur), admin, map[string]string{"name": "PUNE"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodGet, "/cities/state/maharashtra", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode(t, w)["data"].([]interface{})
	require.Len(t, list, 2)
	assert.Equal(t, "Nagpur", list[0].(map[string]interface{})["name"])

	w = env.do(http.MethodDelete, fmt.Sprintf("/cities/%d", nagpur), admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = env.do(http.MethodDelete, fmt.Sprintf("/cities/%d", nagpur), admin, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServiceEngineers(t *testing.T) {
	env := newTestEnv(t)
	env.handle(http.MethodPost, "/service-engineers", CreateServiceEngineer)
	env.handle(http.MethodPatch, "/service-engineers/:id", UpdateServiceEngineer)
	env.handle(http.MethodGet, "/service-engineers/pincode/:pincode", GetServiceEngineersByPincode)
	env.handle(http.MethodGet, "/service-engineers/:id", GetServiceEngineerByID)
	token := tokenFor(t, env.createUser(RoleAdmin, "admin@example.com", 5))

	engineer := func(name, email, status string) map[string]string {
		return map[string]string{
			"name": name, "email": email, "contact_number": "9988776655",
			"pincode": "411001", "address": "Shivaji Nagar", "status": status,
		}
	}

	w := env.do(http.MethodPost, "/service-engineers", token, engineer("Ravi", "ravi@example.com", ""))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w = env.do(http.MethodPost, "/service-engineers", token, engineer("Asha", "asha@example.com", "inactive"))
	require.Equal(t, http.StatusCreated, w.Code)
	asha := uint(dataOf(t, w)["id"].(float64))

	w = env.do(http.MethodPost, "/service-engineers", token, engineer("Ravi 2", "RAVI@example.com", ""))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Email already exists", decode(t, w)["message"])

	bad := engineer("Short", "short@example.com", "")
	bad["pincode"] = "4110"
	w = env.do(http.MethodPost, "/service-engineers", token, bad)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodPatch, fmt.Sprintf("/service-engineers/%d", asha), token, map[string]string{"email": "ravi@example.com"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Email already exists", decode(t, w)["message"])

	w = env.do(http.MethodGet, "/service-engineers/pincode/411001", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.EqualValues(t, 1, body["count"], "inactive engineers are hidden")

	w = env.do(http.MethodGet, "/service-engineers/pincode/41100", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodGet, "/service-engineers/999", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Service engineer not found", decode(t, w)["message"])
}
