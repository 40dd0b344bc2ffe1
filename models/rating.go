package models

import "time"

// Rating bundles the two directional ratings for one order: the customer
// rates the worker (worker_rating) and the worker rates the customer
// (customer_rating). The record is created lazily on the first submission
// and each half may be set independently.
type Rating struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	OrderID         uint      `gorm:"uniqueIndex;not null" json:"order_id"`
	CustomerID      uint      `gorm:"not null;index" json:"customer_id"`
	WorkerID        uint      `gorm:"not null;index" json:"worker_id"`
	WorkerRating    *int      `json:"worker_rating"`  // given by the customer about the worker
	WorkerComment   *string   `json:"worker_comment"`
	CustomerRating  *int      `json:"customer_rating"` // given by the worker about the customer
	CustomerComment *string   `json:"customer_comment"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// TableName specifies the table name for the Rating model
func (Rating) TableName() string {
	return "ratings"
}
