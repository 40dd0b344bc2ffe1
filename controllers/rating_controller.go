package controllers

import (
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rychle-ryce/rychle-ryce-api/config"
	"github.com/rychle-ryce/rychle-ryce-api/models"
	"github.com/rychle-ryce/rychle-ryce-api/services"
)

// RateOrderRequest represents the request body for rating a finished order
type RateOrderRequest struct {
	Rating  int    `json:"rating" binding:"required,min=1,max=5"`
	Comment string `json:"comment"`
}

// RateOrder handles POST /api/v1/orders/:id/rate - a participant rates the
// other side of a paid order. Resubmitting overwrites the caller's own
// rating, never the other side's.
func RateOrder(c *gin.Context) {
	actor, _, ok := currentActor(c)
	if !ok {
		return
	}

	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}

	var req RateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "rating must be an integer between 1 and 5",
				"details": err.Error(),
			},
		})
		return
	}

	rating, err := services.GetOrderLifecycle().Rate(c.Request.Context(), actor, orderID, req.Rating, req.Comment)
	if err != nil {
		respondLifecycleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    rating,
	})
}

// GetUserRatings handles GET /api/v1/users/:id/ratings - lists the ratings
// a user has received together with their average. Workers are rated by
// customers and vice versa.
func GetUserRatings(c *gin.Context) {
	userID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Invalid user ID",
			},
		})
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

	var ratings []models.Rating
	query := db.Order("created_at DESC")
	if user.Role == models.RoleWorker {
		query = query.Where("worker_id = ? AND worker_rating IS NOT NULL", user.ID)
	} else {
		query = query.Where("customer_id = ? AND customer_rating IS NOT NULL", user.ID)
	}
	if err := query.Find(&ratings).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to load ratings",
			},
		})
		return
	}

	received := make([]gin.H, 0, len(ratings))
	var sum int
	for _, r := range ratings {
		score := r.WorkerRating
		comment := r.WorkerComment
		if user.Role != models.RoleWorker {
			score = r.CustomerRating
			comment = r.CustomerComment
		}
		if score == nil {
			continue
		}
		sum += *score
		received = append(received, gin.H{
			"order_id":   r.OrderID,
			"rating":     *score,
			"comment":    comment,
			"created_at": r.CreatedAt,
		})
	}

	average := 0.0
	if len(received) > 0 {
		average = math.Round(float64(sum)/float64(len(received))*100) / 100
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"user_id":        user.ID,
			"ratings":        received,
			"average_rating": average,
			"total_ratings":  len(received),
		},
	})
}
