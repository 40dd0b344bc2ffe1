package controllers

import (
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rychle-ryce/rychle-ryce-api/config"
	"github.com/rychle-ryce/rychle-ryce-api/models"
)

// userIDParam parses the :id path parameter for the admin user endpoints
func userIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Invalid user ID",
			},
		})
		return 0, false
	}
	return uint(id), true
}

// ListUsers handles GET /api/v1/admin/users - lists all users, optionally
// filtered by role
func ListUsers(c *gin.Context) {
	db := config.GetDB()
	query := db.Order("created_at DESC")

	if role := c.Query("role"); role != "" {
		query = query.Where("role = ?", role)
	}

	var users []models.User
	if err := query.Find(&users).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to load users",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    users,
	})
}

// GetUser handles GET /api/v1/admin/users/:id - returns one user
func GetUser(c *gin.Context) {
	userID, ok := userIDParam(c)
	if !ok {
		return
	}

	db := config.GetDB()
	var user models.User
	if err := db.First(&user, userID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "USER_NOT_FOUND",
				"message": "User not found",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    user,
	})
}

// DeleteUser handles DELETE /api/v1/admin/users/:id - removes a user
// account. Admin accounts cannot be deleted through the API.
func DeleteUser(c *gin.Context) {
	userID, ok := userIDParam(c)
	if !ok {
		return
	}

	db := config.GetDB()
	var user models.User
	if err := db.First(&user, userID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "USER_NOT_FOUND",
				"message": "User not found",
			},
		})
		return
	}

	if user.Role == models.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "FORBIDDEN",
				"message": "Admin accounts cannot be deleted",
			},
		})
		return
	}

	if err := db.Delete(&user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to delete user",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "User deleted",
	})
}

// ListWorkers handles GET /api/v1/admin/workers - lists worker accounts,
// optionally only the ones still awaiting approval (?pending=true)
func ListWorkers(c *gin.Context) {
	db := config.GetDB()
	query := db.Where("role = ?", models.RoleWorker).Order("created_at DESC")

	if c.Query("pending") == "true" {
		query = query.Where("is_approved = ?", false)
	}

	var workers []models.User
	if err := query.Find(&workers).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to load workers",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    workers,
	})
}

// ApproveWorker handles PUT /api/v1/admin/workers/:id/approve - approves a
// worker account so it can log in and take orders. Approving an already
// approved worker is a no-op.
func ApproveWorker(c *gin.Context) {
	workerID, ok := userIDParam(c)
	if !ok {
		return
	}

	db := config.GetDB()
	var worker models.User
	if err := db.First(&worker, workerID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "USER_NOT_FOUND",
				"message": "User not found",
			},
		})
		return
	}

	if worker.Role != models.RoleWorker {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Only worker accounts can be approved",
			},
		})
		return
	}

	if !worker.IsApproved {
		if err := db.Model(&worker).Update("is_approved", true).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "DATABASE_ERROR",
					"message": "Failed to approve worker",
				},
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    worker,
	})
}

// GetStatistics handles GET /api/v1/admin/statistics - returns marketplace
// totals for the admin dashboard
func GetStatistics(c *gin.Context) {
	db := config.GetDB()

	var totalOrders, completedOrders int64
	if err := db.Model(&models.Order{}).Count(&totalOrders).Error; err != nil {
		respondStatisticsError(c)
		return
	}
	if err := db.Model(&models.Order{}).
		Where("status IN ?", []models.OrderStatus{models.OrderStatusCompleted, models.OrderStatusPaid}).
		Count(&completedOrders).Error; err != nil {
		respondStatisticsError(c)
		return
	}

	// Revenue counts only money that actually changed hands
	var totalRevenue float64
	if err := db.Model(&models.Order{}).
		Where("status = ?", models.OrderStatusPaid).
		Select("COALESCE(SUM(final_price), 0)").
		Scan(&totalRevenue).Error; err != nil {
		respondStatisticsError(c)
		return
	}

	var totalCustomers, totalWorkers, approvedWorkers int64
	if err := db.Model(&models.User{}).Where("role = ?", models.RoleCustomer).Count(&totalCustomers).Error; err != nil {
		respondStatisticsError(c)
		return
	}
	if err := db.Model(&models.User{}).Where("role = ?", models.RoleWorker).Count(&totalWorkers).Error; err != nil {
		respondStatisticsError(c)
		return
	}
	if err := db.Model(&models.User{}).
		Where("role = ? AND is_approved = ?", models.RoleWorker, true).
		Count(&approvedWorkers).Error; err != nil {
		respondStatisticsError(c)
		return
	}

	completionRate := 0.0
	if totalOrders > 0 {
		completionRate = math.Round(float64(completedOrders)/float64(totalOrders)*100*100) / 100
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"total_orders":     totalOrders,
			"completed_orders": completedOrders,
			"total_revenue":    totalRevenue,
			"total_customers":  totalCustomers,
			"total_workers":    totalWorkers,
			"approved_workers": approvedWorkers,
			"completion_rate":  completionRate,
		},
	})
}

func respondStatisticsError(c *gin.Context) {
	c.JSON(http.StatusInternalServerError, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "DATABASE_ERROR",
			"message": "Failed to compute statistics",
		},
	})
}
