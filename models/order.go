package models

import (
	"time"

	"gorm.io/gorm"
)

// OrderStatus tracks work progress: open -> taken -> completed -> paid,
// with a rollback edge taken -> open when the worker cancels.
type OrderStatus string

// PaymentStatus tracks money flow independently of work progress, so the
// two-installment model (1/3 on take, remainder on completion) needs no
// extra work states.
type PaymentStatus string

const (
	OrderStatusOpen      OrderStatus = "open"
	OrderStatusTaken     OrderStatus = "taken"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusPaid      OrderStatus = "paid"

	PaymentStatusPending      PaymentStatus = "pending"
	PaymentStatusPartial      PaymentStatus = "partial"
	PaymentStatusPendingFinal PaymentStatus = "pending_final"
	PaymentStatusCompleted    PaymentStatus = "completed"
)

// Order represents a posted garden job in the system
type Order struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	Title          string         `gorm:"not null" json:"title"`
	Description    string         `gorm:"not null" json:"description"`
	Address        string         `gorm:"not null" json:"address"`
	Latitude       *float64       `json:"latitude"`
	Longitude      *float64       `json:"longitude"`
	PhotoS3Key     *string        `json:"photo_s3_key,omitempty"`           // nullable, S3 key for uploaded photo
	PhotoURL       string         `gorm:"-" json:"photo_url,omitempty"`     // computed field, presigned URL for photo
	AIAnalysis     *string        `json:"ai_analysis,omitempty"`            // best-effort image analysis text
	EstimatedPrice *float64       `json:"estimated_price"`                  // set at creation
	FinalPrice     *float64       `json:"final_price"`                      // set at completion, worker may revise
	Status         OrderStatus    `gorm:"type:varchar(20);not null;default:'open'" json:"status"`
	PaymentStatus  PaymentStatus  `gorm:"type:varchar(20);not null;default:'pending'" json:"payment_status"`
	CustomerID     uint           `gorm:"not null;index" json:"customer_id"`
	Customer       User           `gorm:"foreignKey:CustomerID" json:"customer"`
	WorkerID       *uint          `gorm:"index" json:"worker_id"` // nullable until claimed
	Worker         *User          `gorm:"foreignKey:WorkerID" json:"worker,omitempty"`
	CustomerName   string         `gorm:"-" json:"customer_name,omitempty"` // computed display name
	WorkerName     string         `gorm:"-" json:"worker_name,omitempty"`   // computed display name
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	TakenAt        *time.Time     `json:"taken_at"`
	CompletedAt    *time.Time     `json:"completed_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Order model
func (Order) TableName() string {
	return "orders"
}

// IsParticipant reports whether the given user is the order's customer or
// its assigned worker.
func (o *Order) IsParticipant(userID uint) bool {
	if o.CustomerID == userID {
		return true
	}
	return o.WorkerID != nil && *o.WorkerID == userID
}
