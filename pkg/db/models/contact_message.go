package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/texnomart-dev/storefront-backend/pkg/enums"
)

// ContactMessage is a message submitted through the public contact form.
// ReadAt and RepliedAt record when an operator moved it through those states.
type ContactMessage struct {
	ID        uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string              `gorm:"column:name;not null"`
	Email     string              `gorm:"column:email;not null"`
	Phone     *string             `gorm:"column:phone"`
	Subject   *string             `gorm:"column:subject"`
	Message   string              `gorm:"column:message;not null"`
	Status    enums.MessageStatus `gorm:"column:status;not null;default:'new'"`
	ReadAt    *time.Time          `gorm:"column:read_at"`
	RepliedAt *time.Time          `gorm:"column:replied_at"`
	CreatedAt time.Time           `gorm:"column:created_at;autoCreateTime"`
}
