package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/texnomart-dev/storefront-backend/pkg/enums"
)

// User is a registered shopper or back-office operator.
type User struct {
	ID           uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name         string         `gorm:"column:name;not null"`
	Phone        string         `gorm:"column:phone;not null;uniqueIndex"`
	Email        *string        `gorm:"column:email;uniqueIndex"`
	PasswordHash string         `gorm:"column:password_hash;not null"`
	Role         enums.UserRole `gorm:"column:role;type:text;not null;default:'customer'"`
	CreatedAt    time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
