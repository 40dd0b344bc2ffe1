package services

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/rychle-ryce/rychle-ryce-api/models"
	"gorm.io/gorm"
)

// Actor is the authenticated principal invoking a transition. It is passed
// explicitly into every lifecycle call; the engine never reads ambient
// session state.
type Actor struct {
	ID         uint
	Role       models.Role
	IsApproved bool
}

// LifecycleError is returned for rejected transitions so callers can
// distinguish "not allowed" (403) from "wrong time" (400) from "no such
// order" (404).
type LifecycleError struct {
	Code    string
	Status  int
	Message string
}

func (e *LifecycleError) Error() string {
	return e.Message
}

func forbiddenError(message string) *LifecycleError {
	return &LifecycleError{Code: "FORBIDDEN", Status: http.StatusForbidden, Message: message}
}

func invalidStateError(message string) *LifecycleError {
	return &LifecycleError{Code: "INVALID_STATE", Status: http.StatusBadRequest, Message: message}
}

func orderNotFoundError() *LifecycleError {
	return &LifecycleError{Code: "ORDER_NOT_FOUND", Status: http.StatusNotFound, Message: "Order not found"}
}

func lifecycleValidationError(message string) *LifecycleError {
	return &LifecycleError{Code: "VALIDATION_ERROR", Status: http.StatusBadRequest, Message: message}
}

// OrderLifecycle enforces the valid order transitions, the actor permitted
// to trigger each one, and the derived payment amounts. Every
// status-changing write is a conditional update guarded on the current
// status, so of two racing transitions at most one succeeds and the loser
// observes a state error.
type OrderLifecycle struct {
	db        *gorm.DB
	photos    PhotoService
	estimator EstimationService
}

var orderLifecycleInstance *OrderLifecycle

// InitOrderLifecycle initializes the lifecycle engine
func InitOrderLifecycle(db *gorm.DB, photos PhotoService, estimator EstimationService) *OrderLifecycle {
	orderLifecycleInstance = NewOrderLifecycle(db, photos, estimator)
	return orderLifecycleInstance
}

// GetOrderLifecycle returns the initialized lifecycle engine
func GetOrderLifecycle() *OrderLifecycle {
	return orderLifecycleInstance
}

// NewOrderLifecycle creates a lifecycle engine with explicit collaborators
func NewOrderLifecycle(db *gorm.DB, photos PhotoService, estimator EstimationService) *OrderLifecycle {
	return &OrderLifecycle{db: db, photos: photos, estimator: estimator}
}

// CreateOrderInput carries the fields for a new order. Photo holds the raw
// uploaded image for the best-effort analysis; PhotoS3Key the already-stored
// blob reference.
type CreateOrderInput struct {
	Title            string
	Description      string
	Address          string
	Latitude         *float64
	Longitude        *float64
	PhotoS3Key       *string
	Photo            []byte
	PhotoContentType string
}

// Create opens a new order for a customer. The image analysis and the price
// estimate are best-effort: analysis failure is recorded as the analysis
// text, estimation failure falls back to DefaultEstimatedPrice.
func (l *OrderLifecycle) Create(ctx context.Context, actor Actor, input CreateOrderInput) (*models.Order, error) {
	if actor.Role != models.RoleCustomer {
		return nil, forbiddenError("Only customers can create orders")
	}

	var analysis *string
	if len(input.Photo) > 0 {
		text, err := l.estimator.AnalyzeImage(ctx, input.Photo, input.PhotoContentType)
		if err != nil {
			log.Printf("image analysis degraded: %v", err)
			text = "Image analysis failed: " + err.Error()
		}
		analysis = &text
	}

	analysisText := "No image provided"
	if analysis != nil {
		analysisText = *analysis
	}

	price, err := l.estimator.EstimatePrice(ctx, input.Description, analysisText)
	if err != nil || price <= 0 {
		if err != nil {
			log.Printf("price estimation degraded, using default: %v", err)
		}
		price = DefaultEstimatedPrice
	}

	order := &models.Order{
		Title:          input.Title,
		Description:    input.Description,
		Address:        input.Address,
		Latitude:       input.Latitude,
		Longitude:      input.Longitude,
		PhotoS3Key:     input.PhotoS3Key,
		AIAnalysis:     analysis,
		EstimatedPrice: &price,
		Status:         models.OrderStatusOpen,
		PaymentStatus:  models.PaymentStatusPending,
		CustomerID:     actor.ID,
	}

	if err := l.db.WithContext(ctx).Create(order).Error; err != nil {
		return nil, err
	}

	return l.load(ctx, order.ID)
}

// Take claims an open order for an approved worker and reports the required
// partial payment, always derived as estimatedPrice/3 and never stored.
func (l *OrderLifecycle) Take(ctx context.Context, actor Actor, orderID uint) (*models.Order, float64, error) {
	if actor.Role != models.RoleWorker {
		return nil, 0, forbiddenError("Only workers can take orders")
	}
	if !actor.IsApproved {
		return nil, 0, forbiddenError("Your worker account has not been approved yet")
	}

	now := time.Now()
	res := l.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status = ?", orderID, models.OrderStatusOpen).
		Updates(map[string]interface{}{
			"worker_id":      actor.ID,
			"status":         models.OrderStatusTaken,
			"taken_at":       now,
			"payment_status": models.PaymentStatusPartial,
		})
	if res.Error != nil {
		return nil, 0, res.Error
	}
	if res.RowsAffected == 0 {
		// Either the order is gone or another transition won the race
		if _, err := l.load(ctx, orderID); err != nil {
			return nil, 0, err
		}
		return nil, 0, invalidStateError("Order is no longer available")
	}

	order, err := l.load(ctx, orderID)
	if err != nil {
		return nil, 0, err
	}

	return order, PartialPaymentAmount(order), nil
}

// Cancel reverts a taken order back to open when called by its worker, or
// deletes an open order (including its photo) when called by its customer.
func (l *OrderLifecycle) Cancel(ctx context.Context, actor Actor, orderID uint) (*models.Order, error) {
	order, err := l.load(ctx, orderID)
	if err != nil {
		return nil, err
	}

	switch {
	case actor.Role == models.RoleWorker && order.WorkerID != nil && *order.WorkerID == actor.ID:
		res := l.db.WithContext(ctx).Model(&models.Order{}).
			Where("id = ? AND status = ? AND worker_id = ?", orderID, models.OrderStatusTaken, actor.ID).
			Updates(map[string]interface{}{
				"worker_id":      nil,
				"status":         models.OrderStatusOpen,
				"taken_at":       nil,
				"payment_status": models.PaymentStatusPending,
			})
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, invalidStateError("Only a taken order can be cancelled")
		}
		return l.load(ctx, orderID)

	case actor.Role == models.RoleCustomer && order.CustomerID == actor.ID:
		if err := l.deleteOpenOrder(ctx, order, actor.ID); err != nil {
			return nil, err
		}
		return nil, nil

	default:
		return nil, forbiddenError("You are not allowed to cancel this order")
	}
}

// UpdatePrice lets the assigned worker revise the final price while the
// order is taken or completed.
func (l *OrderLifecycle) UpdatePrice(ctx context.Context, actor Actor, orderID uint, price float64) (*models.Order, error) {
	if price <= 0 {
		return nil, lifecycleValidationError("Price must be a positive number")
	}

	order, err := l.load(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if order.WorkerID == nil || *order.WorkerID != actor.ID {
		return nil, forbiddenError("You are not allowed to update the price of this order")
	}
	if order.Status != models.OrderStatusTaken && order.Status != models.OrderStatusCompleted {
		return nil, invalidStateError("Price can only be updated on taken or completed orders")
	}

	res := l.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND worker_id = ? AND status IN ?", orderID, actor.ID,
			[]models.OrderStatus{models.OrderStatusTaken, models.OrderStatusCompleted}).
		Update("final_price", price)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, invalidStateError("Price can only be updated on taken or completed orders")
	}

	return l.load(ctx, orderID)
}

// Complete marks a taken order as completed by its worker. The final price
// defaults to the estimate when omitted. The reported remaining payment is
// finalPrice minus the already-assumed partial amount, floored at zero so a
// downward revision never produces a negative payment request.
func (l *OrderLifecycle) Complete(ctx context.Context, actor Actor, orderID uint, finalPrice *float64) (*models.Order, float64, error) {
	order, err := l.load(ctx, orderID)
	if err != nil {
		return nil, 0, err
	}

	if order.WorkerID == nil || *order.WorkerID != actor.ID {
		return nil, 0, forbiddenError("You are not allowed to complete this order")
	}

	var price float64
	switch {
	case finalPrice != nil && *finalPrice > 0:
		price = *finalPrice
	case order.EstimatedPrice != nil:
		price = *order.EstimatedPrice
	default:
		price = DefaultEstimatedPrice
	}

	now := time.Now()
	res := l.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND worker_id = ? AND status = ?", orderID, actor.ID, models.OrderStatusTaken).
		Updates(map[string]interface{}{
			"status":         models.OrderStatusCompleted,
			"final_price":    price,
			"completed_at":   now,
			"payment_status": models.PaymentStatusPendingFinal,
		})
	if res.Error != nil {
		return nil, 0, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, 0, invalidStateError("Order is not in the taken state")
	}

	order, err = l.load(ctx, orderID)
	if err != nil {
		return nil, 0, err
	}

	remaining := price - PartialPaymentAmount(order)
	if remaining < 0 {
		remaining = 0
	}

	return order, remaining, nil
}

// Pay records a payment by the order's customer. paymentType "partial"
// re-confirms the first installment on a taken order (idempotent);
// "full" settles a completed order and moves it to paid.
func (l *OrderLifecycle) Pay(ctx context.Context, actor Actor, orderID uint, paymentType string) (*models.Order, error) {
	order, err := l.load(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if order.CustomerID != actor.ID {
		return nil, forbiddenError("You are not allowed to pay for this order")
	}

	switch {
	case paymentType == "partial" && order.Status == models.OrderStatusTaken:
		res := l.db.WithContext(ctx).Model(&models.Order{}).
			Where("id = ? AND status = ?", orderID, models.OrderStatusTaken).
			Update("payment_status", models.PaymentStatusPartial)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, invalidStateError("Invalid payment type or order state")
		}

	case paymentType == "full" && order.Status == models.OrderStatusCompleted:
		res := l.db.WithContext(ctx).Model(&models.Order{}).
			Where("id = ? AND status = ?", orderID, models.OrderStatusCompleted).
			Updates(map[string]interface{}{
				"status":         models.OrderStatusPaid,
				"payment_status": models.PaymentStatusCompleted,
			})
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, invalidStateError("Invalid payment type or order state")
		}

	default:
		return nil, invalidStateError("Invalid payment type or order state")
	}

	return l.load(ctx, orderID)
}

// Delete removes an order. Admins may delete any order; customers only
// their own while it is still open. The stored photo and any rating go
// with it.
func (l *OrderLifecycle) Delete(ctx context.Context, actor Actor, orderID uint) error {
	order, err := l.load(ctx, orderID)
	if err != nil {
		return err
	}

	switch actor.Role {
	case models.RoleAdmin:
		if err := l.db.WithContext(ctx).Delete(&models.Order{}, orderID).Error; err != nil {
			return err
		}
		if err := l.db.WithContext(ctx).Where("order_id = ?", orderID).Delete(&models.Rating{}).Error; err != nil {
			return err
		}
		l.removePhoto(order)
		return nil

	case models.RoleCustomer:
		if order.CustomerID != actor.ID {
			return forbiddenError("You are not allowed to delete this order")
		}
		return l.deleteOpenOrder(ctx, order, actor.ID)

	default:
		return forbiddenError("You are not allowed to delete this order")
	}
}

// Rate records the caller's half of the bidirectional rating for a paid
// order. The record is created lazily on the first submission; resubmitting
// overwrites the caller's own half.
func (l *OrderLifecycle) Rate(ctx context.Context, actor Actor, orderID uint, score int, comment string) (*models.Rating, error) {
	if score < 1 || score > 5 {
		return nil, lifecycleValidationError("Rating must be between 1 and 5")
	}

	order, err := l.load(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if order.Status != models.OrderStatusPaid {
		return nil, invalidStateError("Only paid orders can be rated")
	}

	isCustomer := actor.Role == models.RoleCustomer && order.CustomerID == actor.ID
	isWorker := actor.Role == models.RoleWorker && order.WorkerID != nil && *order.WorkerID == actor.ID
	if !isCustomer && !isWorker {
		return nil, forbiddenError("You are not allowed to rate this order")
	}

	db := l.db.WithContext(ctx)

	var rating models.Rating
	err = db.Where("order_id = ?", orderID).First(&rating).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		rating = models.Rating{
			OrderID:    orderID,
			CustomerID: order.CustomerID,
			WorkerID:   *order.WorkerID,
		}
		if err := db.Create(&rating).Error; err != nil {
			// A concurrent first submission may have won the unique index;
			// fall back to the existing record
			if findErr := db.Where("order_id = ?", orderID).First(&rating).Error; findErr != nil {
				return nil, err
			}
		}
	} else if err != nil {
		return nil, err
	}

	if isCustomer {
		rating.WorkerRating = &score
		rating.WorkerComment = &comment
	} else {
		rating.CustomerRating = &score
		rating.CustomerComment = &comment
	}

	if err := db.Save(&rating).Error; err != nil {
		return nil, err
	}

	return &rating, nil
}

// PartialPaymentAmount derives the first installment: one third of the
// estimated price, zero when no estimate exists.
func PartialPaymentAmount(order *models.Order) float64 {
	if order.EstimatedPrice == nil {
		return 0
	}
	return *order.EstimatedPrice / 3
}

// load fetches an order with its participants preloaded
func (l *OrderLifecycle) load(ctx context.Context, orderID uint) (*models.Order, error) {
	var order models.Order
	err := l.db.WithContext(ctx).Preload("Customer").Preload("Worker").First(&order, orderID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, orderNotFoundError()
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// deleteOpenOrder deletes a customer's own order, guarded on the open
// status so a racing Take wins cleanly.
func (l *OrderLifecycle) deleteOpenOrder(ctx context.Context, order *models.Order, customerID uint) error {
	res := l.db.WithContext(ctx).
		Where("id = ? AND customer_id = ? AND status = ?", order.ID, customerID, models.OrderStatusOpen).
		Delete(&models.Order{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return invalidStateError("Only an open order can be cancelled")
	}

	l.removePhoto(order)
	return nil
}

// removePhoto deletes the order's stored photo, best-effort
func (l *OrderLifecycle) removePhoto(order *models.Order) {
	if order.PhotoS3Key == nil || l.photos == nil {
		return
	}
	if err := l.photos.DeletePhoto(*order.PhotoS3Key); err != nil {
		log.Printf("warning: failed to delete photo %s: %v", *order.PhotoS3Key, err)
	}
}
