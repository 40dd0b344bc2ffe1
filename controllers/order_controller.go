package controllers

import (
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rychle-ryce/rychle-ryce-api/config"
	"github.com/rychle-ryce/rychle-ryce-api/middleware"
	"github.com/rychle-ryce/rychle-ryce-api/models"
	"github.com/rychle-ryce/rychle-ryce-api/services"
	"github.com/rychle-ryce/rychle-ryce-api/utils"
)

// UpdatePriceRequest represents the request body for revising the final price
type UpdatePriceRequest struct {
	Price float64 `json:"price" binding:"required,gt=0"`
}

// CompleteOrderRequest represents the request body for completing an order
type CompleteOrderRequest struct {
	FinalPrice *float64 `json:"final_price" binding:"omitempty,gt=0"`
}

// PayOrderRequest represents the request body for recording a payment
type PayOrderRequest struct {
	PaymentType string `json:"payment_type" binding:"required,oneof=partial full"`
}

// currentActor loads the authenticated user and builds the lifecycle actor
// from the database record, so approval changes take effect immediately.
// It writes the error response itself when it fails.
func currentActor(c *gin.Context) (services.Actor, *models.User, bool) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "UNAUTHORIZED",
				"message": "Could not extract user information",
			},
		})
		return services.Actor{}, nil, false
	}

	db := config.GetDB()
	var user models.User
	if err := db.First(&user, userID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "USER_NOT_FOUND",
				"message": "User profile not found",
			},
		})
		return services.Actor{}, nil, false
	}

	actor := services.Actor{
		ID:         user.ID,
		Role:       user.Role,
		IsApproved: user.IsApproved,
	}
	return actor, &user, true
}

// orderIDParam parses the :id path parameter. It writes the error response
// itself when the parameter is not a valid ID.
func orderIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Invalid order ID",
			},
		})
		return 0, false
	}
	return uint(id), true
}

// decorateOrder fills the computed response fields: participant display
// names and a fresh presigned photo URL
func decorateOrder(order *models.Order) {
	order.CustomerName = order.Customer.FullName()
	if order.Worker != nil {
		order.WorkerName = order.Worker.FullName()
	}

	if order.PhotoS3Key != nil {
		url, err := services.GetPhotoService().GetPhotoURL(*order.PhotoS3Key)
		if err != nil {
			log.Printf("warning: failed to generate photo URL for order %d: %v", order.ID, err)
			return
		}
		order.PhotoURL = url
	}
}

// respondLifecycleError translates an engine error into the HTTP envelope
func respondLifecycleError(c *gin.Context, err error) {
	var lerr *services.LifecycleError
	if errors.As(err, &lerr) {
		c.JSON(lerr.Status, gin.H{
			"success": false,
			"error": gin.H{
				"code":    lerr.Code,
				"message": lerr.Message,
			},
		})
		return
	}

	c.JSON(http.StatusInternalServerError, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "DATABASE_ERROR",
			"message": "Failed to process order",
		},
	})
}

// CreateOrder handles POST /api/v1/orders - creates a new order with an
// optional photo (customers only). The form fields are multipart because of
// the photo upload.
func CreateOrder(c *gin.Context) {
	actor, _, ok := currentActor(c)
	if !ok {
		return
	}

	title := c.PostForm("title")
	description := c.PostForm("description")
	address := c.PostForm("address")
	if title == "" || description == "" || address == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "title, description and address are required",
			},
		})
		return
	}

	input := services.CreateOrderInput{
		Title:       title,
		Description: description,
		Address:     address,
	}

	if raw := c.PostForm("latitude"); raw != "" {
		lat, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "VALIDATION_ERROR",
					"message": "latitude must be a number",
				},
			})
			return
		}
		input.Latitude = &lat
	}
	if raw := c.PostForm("longitude"); raw != "" {
		lng, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "VALIDATION_ERROR",
					"message": "longitude must be a number",
				},
			})
			return
		}
		input.Longitude = &lng
	}

	// The photo is optional; when present it is stored first and also fed
	// to the image analysis
	if fileHeader, err := c.FormFile("photo"); err == nil {
		key, err := services.GetPhotoService().UploadPhoto(fileHeader)
		if err != nil {
			var uploadErr *utils.FileUploadError
			if errors.As(err, &uploadErr) {
				c.JSON(http.StatusBadRequest, gin.H{
					"success": false,
					"error": gin.H{
						"code":    uploadErr.Code,
						"message": uploadErr.Message,
					},
				})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "UPLOAD_ERROR",
					"message": "Failed to store photo",
				},
			})
			return
		}
		input.PhotoS3Key = &key
		input.PhotoContentType = utils.PhotoContentType(fileHeader.Filename)

		file, err := fileHeader.Open()
		if err == nil {
			photo, readErr := io.ReadAll(file)
			_ = file.Close()
			if readErr == nil {
				input.Photo = photo
			}
		}
	}

	order, err := services.GetOrderLifecycle().Create(c.Request.Context(), actor, input)
	if err != nil {
		respondLifecycleError(c, err)
		return
	}

	decorateOrder(order)
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    order,
	})
}

// ListOrders handles GET /api/v1/orders - lists orders visible to the
// caller, newest first. Customers see their own orders, workers see open
// orders plus the ones assigned to them, admins see everything.
func ListOrders(c *gin.Context) {
	actor, _, ok := currentActor(c)
	if !ok {
		return
	}

	db := config.GetDB()
	query := db.Preload("Customer").Preload("Worker").Order("created_at DESC")

	switch actor.Role {
	case models.RoleCustomer:
		query = query.Where("customer_id = ?", actor.ID)
	case models.RoleWorker:
		query = query.Where("status = ? OR worker_id = ?", models.OrderStatusOpen, actor.ID)
	case models.RoleAdmin:
		// no filter
	}

	var orders []models.Order
	if err := query.Find(&orders).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to load orders",
			},
		})
		return
	}

	for i := range orders {
		decorateOrder(&orders[i])
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    orders,
	})
}

// GetOrder handles GET /api/v1/orders/:id - returns one order. Visible to
// admins, the order's participants, and any worker while the order is open.
func GetOrder(c *gin.Context) {
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
	if err := db.Preload("Customer").Preload("Worker").First(&order, orderID).Error; err != nil {
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

	decorateOrder(&order)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    order,
	})
}

// TakeOrder handles POST /api/v1/orders/:id/take - claims an open order for
// the authenticated worker and reports the required partial payment
func TakeOrder(c *gin.Context) {
	actor, _, ok := currentActor(c)
	if !ok {
		return
	}

	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}

	order, partial, err := services.GetOrderLifecycle().Take(c.Request.Context(), actor, orderID)
	if err != nil {
		respondLifecycleError(c, err)
		return
	}

	decorateOrder(order)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"order":           order,
			"partial_payment": partial,
		},
	})
}

// CancelOrder handles POST /api/v1/orders/:id/cancel - a worker releases a
// taken order back to open, a customer withdraws an open order entirely
func CancelOrder(c *gin.Context) {
	actor, _, ok := currentActor(c)
	if !ok {
		return
	}

	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}

	order, err := services.GetOrderLifecycle().Cancel(c.Request.Context(), actor, orderID)
	if err != nil {
		respondLifecycleError(c, err)
		return
	}

	if order == nil {
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "Order cancelled",
		})
		return
	}

	decorateOrder(order)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    order,
	})
}

// UpdateOrderPrice handles PUT /api/v1/orders/:id/price - the assigned
// worker revises the final price
func UpdateOrderPrice(c *gin.Context) {
	actor, _, ok := currentActor(c)
	if !ok {
		return
	}

	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}

	var req UpdatePriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Invalid request data",
				"details": err.Error(),
			},
		})
		return
	}

	order, err := services.GetOrderLifecycle().UpdatePrice(c.Request.Context(), actor, orderID, req.Price)
	if err != nil {
		respondLifecycleError(c, err)
		return
	}

	decorateOrder(order)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    order,
	})
}

// CompleteOrder handles POST /api/v1/orders/:id/complete - the assigned
// worker marks the work as done and reports the remaining payment
func CompleteOrder(c *gin.Context) {
	actor, _, ok := currentActor(c)
	if !ok {
		return
	}

	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}

	// The body is optional; without it the estimate becomes the final price
	var req CompleteOrderRequest
	if c.Request.Body != nil && c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "VALIDATION_ERROR",
					"message": "Invalid request data",
					"details": err.Error(),
				},
			})
			return
		}
	}

	order, remaining, err := services.GetOrderLifecycle().Complete(c.Request.Context(), actor, orderID, req.FinalPrice)
	if err != nil {
		respondLifecycleError(c, err)
		return
	}

	decorateOrder(order)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"order":             order,
			"remaining_payment": remaining,
		},
	})
}

// PayOrder handles POST /api/v1/orders/:id/pay - the customer records the
// partial or the final payment
func PayOrder(c *gin.Context) {
	actor, _, ok := currentActor(c)
	if !ok {
		return
	}

	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}

	var req PayOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "payment_type must be 'partial' or 'full'",
				"details": err.Error(),
			},
		})
		return
	}

	order, err := services.GetOrderLifecycle().Pay(c.Request.Context(), actor, orderID, req.PaymentType)
	if err != nil {
		respondLifecycleError(c, err)
		return
	}

	decorateOrder(order)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    order,
	})
}

// DeleteOrder handles DELETE /api/v1/orders/:id - admins remove any order,
// customers remove their own order while it is still open
func DeleteOrder(c *gin.Context) {
	actor, _, ok := currentActor(c)
	if !ok {
		return
	}

	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}

	if err := services.GetOrderLifecycle().Delete(c.Request.Context(), actor, orderID); err != nil {
		respondLifecycleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Order deleted",
	})
}
