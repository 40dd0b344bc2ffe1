package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rychle-ryce/rychle-ryce-api/config"
	"github.com/rychle-ryce/rychle-ryce-api/models"
	"github.com/rychle-ryce/rychle-ryce-api/services"
)

// GetOrderPhoto handles GET /api/v1/orders/:id/photo - returns a fresh
// presigned URL for the order's photo. Visibility follows the same rules
// as viewing the order itself.
func GetOrderPhoto(c *gin.Context) {
	actor, _, ok := currentActor(c)
	if !ok {
		return
	}

	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}

	db := config.GetDB()
	var order models.Order
	if err := db.First(&order, orderID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "ORDER_NOT_FOUND",
				"message": "Order not found",
			},
		})
		return
	}

	canView := actor.Role == models.RoleAdmin ||
		order.IsParticipant(actor.ID) ||
		(actor.Role == models.RoleWorker && order.Status == models.OrderStatusOpen)
	if !canView {
		c.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "FORBIDDEN",
				"message": "You are not allowed to view this order",
			},
		})
		return
	}

	if order.PhotoS3Key == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "PHOTO_NOT_FOUND",
				"message": "Order has no photo",
			},
		})
		return
	}

	url, err := services.GetPhotoService().GetPhotoURL(*order.PhotoS3Key)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "UPLOAD_ERROR",
				"message": "Failed to generate photo URL",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"photo_url": url,
		},
	})
}
