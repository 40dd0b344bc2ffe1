package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Role identifies what a user is allowed to do in the marketplace
type Role string

const (
	RoleCustomer Role = "customer"
	RoleWorker   Role = "worker"
	RoleAdmin    Role = "admin"
)

// StringList is an ordered list of strings stored as a JSON array in a text
// column. Serialization happens here, at the store boundary, so business
// logic never deals with encoded text.
type StringList []string

// Value implements driver.Valuer
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner
func (l *StringList) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	default:
		return fmt.Errorf("unsupported type %T for StringList", value)
	}
}

// User represents a user in the system (customer, worker or admin)
type User struct {
	ID                uint           `gorm:"primaryKey" json:"id"`
	FirstName         string         `gorm:"not null" json:"first_name"`
	LastName          string         `gorm:"not null" json:"last_name"`
	Phone             string         `gorm:"not null" json:"phone"`
	Email             string         `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash      string         `gorm:"not null" json:"-"`
	Role              Role           `gorm:"type:varchar(20);not null" json:"role"`
	EmailVerified     bool           `gorm:"default:false" json:"email_verified"`
	VerificationToken string         `json:"-"` // present only until the email is verified
	IsApproved        bool           `gorm:"default:false" json:"is_approved"` // meaningful for workers only
	Tools             StringList     `gorm:"type:text" json:"tools,omitempty"`
	BirthDate         *time.Time     `json:"birth_date,omitempty"`
	AvailableDays     StringList     `gorm:"type:text" json:"available_days,omitempty"`
	NeedsHelp         bool           `gorm:"default:false" json:"needs_help"` // advisory UI flag for customers
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the User model
func (User) TableName() string {
	return "users"
}

// FullName returns the user's display name
func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}
