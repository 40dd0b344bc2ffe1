package controllers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rychle-ryce/rychle-ryce-api/models"
	"github.com/rychle-ryce/rychle-ryce-api/services"
	"github.com/stretchr/testify/assert"
)

func TestListUsers(t *testing.T) {
	db, _, _ := setupOrderTest(t)
	admin := createVerifiedUser(t, db, "admin@example.com", "secret-password", models.RoleAdmin, true)
	createVerifiedUser(t, db, "customer@example.com", "secret-password", models.RoleCustomer, false)
	createVerifiedUser(t, db, "worker@example.com", "secret-password", models.RoleWorker, true)

	router := setupTestRouter()
	router.GET("/admin/users", mockAuthMiddleware(admin.ID, admin.Role), ListUsers)

	// All users
	req, _ := http.NewRequest(http.MethodGet, "/admin/users", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(t, err)
	assert.Len(t, response["data"].([]interface{}), 3)

	// Filtered by role
	req, _ = http.NewRequest(http.MethodGet, "/admin/users?role=worker", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	json.Unmarshal(w.Body.Bytes(), &response)
	data := response["data"].([]interface{})
	assert.Len(t, data, 1)
	assert.Equal(t, "worker", data[0].(map[string]interface{})["role"])
}

func TestGetUser(t *testing.T) {
	db, _, _ := setupOrderTest(t)
	admin := createVerifiedUser(t, db, "admin@example.com", "secret-password", models.RoleAdmin, true)
	customer := createVerifiedUser(t, db, "customer@example.com", "secret-password", models.RoleCustomer, false)

	router := setupTestRouter()
	router.GET("/admin/users/:id", mockAuthMiddleware(admin.ID, admin.Role), GetUser)

	req, _ := http.NewRequest(http.MethodGet, fmt.Sprintf("/admin/users/%d", customer.ID), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &response)
	data := response["data"].(map[string]interface{})
	assert.Equal(t, customer.Email, data["email"])

	// Unknown user
	req, _ = http.NewRequest(http.MethodGet, "/admin/users/999", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteUser(t *testing.T) {
	db, _, _ := setupOrderTest(t)
	admin := createVerifiedUser(t, db, "admin@example.com", "secret-password", models.RoleAdmin, true)
	customer := createVerifiedUser(t, db, "customer@example.com", "secret-password", models.RoleCustomer, false)

	router := setupTestRouter()
	router.DELETE("/admin/users/:id", mockAuthMiddleware(admin.ID, admin.Role), DeleteUser)

	req, _ := http.NewRequest(http.MethodDelete, fmt.Sprintf("/admin/users/%d", customer.ID), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var count int64
	db.Model(&models.User{}).Where("id = ?", customer.ID).Count(&count)
	assert.Equal(t, int64(0), count)

	// Admin accounts are protected
	req, _ = http.NewRequest(http.MethodDelete, fmt.Sprintf("/admin/users/%d", admin.ID), nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestListWorkers(t *testing.T) {
	db, _, _ := setupOrderTest(t)
	admin := createVerifiedUser(t, db, "admin@example.com", "secret-password", models.RoleAdmin, true)
	createVerifiedUser(t, db, "approved@example.com", "secret-password", models.RoleWorker, true)
	createVerifiedUser(t, db, "pending@example.com", "secret-password", models.RoleWorker, false)
	createVerifiedUser(t, db, "customer@example.com", "secret-password", models.RoleCustomer, false)

	router := setupTestRouter()
	router.GET("/admin/workers", mockAuthMiddleware(admin.ID, admin.Role), ListWorkers)

	req, _ := http.NewRequest(http.MethodGet, "/admin/workers", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &response)
	assert.Len(t, response["data"].([]interface{}), 2, "customers are not listed")

	// Only pending workers
	req, _ = http.NewRequest(http.MethodGet, "/admin/workers?pending=true", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	json.Unmarshal(w.Body.Bytes(), &response)
	data := response["data"].([]interface{})
	assert.Len(t, data, 1)
	assert.Equal(t, "pending@example.com", data[0].(map[string]interface{})["email"])
}

func TestApproveWorker(t *testing.T) {
	db, _, _ := setupOrderTest(t)
	admin := createVerifiedUser(t, db, "admin@example.com", "secret-password", models.RoleAdmin, true)
	worker := createVerifiedUser(t, db, "pending@example.com", "secret-password", models.RoleWorker, false)
	customer := createVerifiedUser(t, db, "customer@example.com", "secret-password", models.RoleCustomer, false)

	router := setupTestRouter()
	router.PUT("/admin/workers/:id/approve", mockAuthMiddleware(admin.ID, admin.Role), ApproveWorker)

	approve := func(id uint) *httptest.ResponseRecorder {
		req, _ := http.NewRequest(http.MethodPut, fmt.Sprintf("/admin/workers/%d/approve", id), nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	w := approve(worker.ID)
	assert.Equal(t, http.StatusOK, w.Code)

	var updated models.User
	db.First(&updated, worker.ID)
	assert.True(t, updated.IsApproved)

	// Approving again is a no-op
	w = approve(worker.ID)
	assert.Equal(t, http.StatusOK, w.Code)

	// Customers cannot be approved
	w = approve(customer.ID)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Unknown user
	w = approve(999)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetStatistics(t *testing.T) {
	db, _, _ := setupOrderTest(t)
	admin := createVerifiedUser(t, db, "admin@example.com", "secret-password", models.RoleAdmin, true)
	customer := createVerifiedUser(t, db, "customer@example.com", "secret-password", models.RoleCustomer, false)
	worker := createVerifiedUser(t, db, "worker@example.com", "secret-password", models.RoleWorker, true)
	createVerifiedUser(t, db, "pending@example.com", "secret-password", models.RoleWorker, false)

	l := services.GetOrderLifecycle()
	customerActor := services.Actor{ID: customer.ID, Role: customer.Role}
	workerActor := services.Actor{ID: worker.ID, Role: worker.Role, IsApproved: true}

	// One open order, one fully paid order
	seedOrder(t, customer)
	order := seedOrder(t, customer)
	_, _, err := l.Take(context.Background(), workerActor, order.ID)
	assert.NoError(t, err)
	finalPrice := 1200.0
	_, _, err = l.Complete(context.Background(), workerActor, order.ID, &finalPrice)
	assert.NoError(t, err)
	_, err = l.Pay(context.Background(), customerActor, order.ID, "full")
	assert.NoError(t, err)

	router := setupTestRouter()
	router.GET("/admin/statistics", mockAuthMiddleware(admin.ID, admin.Role), GetStatistics)

	req, _ := http.NewRequest(http.MethodGet, "/admin/statistics", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	err = json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(t, err)
	assert.True(t, response["success"].(bool))

	data := response["data"].(map[string]interface{})
	assert.Equal(t, float64(2), data["total_orders"])
	assert.Equal(t, float64(1), data["completed_orders"])
	assert.Equal(t, float64(1200), data["total_revenue"], "only settled orders count as revenue")
	assert.Equal(t, float64(1), data["total_customers"])
	assert.Equal(t, float64(2), data["total_workers"])
	assert.Equal(t, float64(1), data["approved_workers"])
	assert.Equal(t, float64(50), data["completion_rate"])
}

func TestGetStatistics_EmptyDatabase(t *testing.T) {
	db, _, _ := setupOrderTest(t)
	admin := createVerifiedUser(t, db, "admin@example.com", "secret-password", models.RoleAdmin, true)

	router := setupTestRouter()
	router.GET("/admin/statistics", mockAuthMiddleware(admin.ID, admin.Role), GetStatistics)

	req, _ := http.NewRequest(http.MethodGet, "/admin/statistics", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &response)
	data := response["data"].(map[string]interface{})
	assert.Equal(t, float64(0), data["total_orders"])
	assert.Equal(t, float64(0), data["completion_rate"], "no orders means a zero rate, not a division error")
}
