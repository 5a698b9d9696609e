package messages

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/texnomart-dev/storefront-backend/pkg/db/models"
	"github.com/texnomart-dev/storefront-backend/pkg/enums"
)

// Repository is the GORM-backed store for contact messages.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a contact message repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new contact message.
func (r *Repository) Create(ctx context.Context, msg *models.ContactMessage) (*models.ContactMessage, error) {
	if err := r.db.WithContext(ctx).Create(msg).Error; err != nil {
		return nil, err
	}
	return msg, nil
}

// List returns contact messages, newest first, optionally filtered by status.
func (r *Repository) List(ctx context.Context, status *enums.MessageStatus) ([]models.ContactMessage, error) {
	q := r.db.WithContext(ctx).Model(&models.ContactMessage{})
	if status != nil {
		q = q.Where("status = ?", *status)
	}

	var rows []models.ContactMessage
	if err := q.Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// UpdateStatus sets the handling state and stamps read_at or replied_at the
// first time the message enters that state.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.MessageStatus, now time.Time) error {
	updates := map[string]any{"status": status}
	switch status {
	case enums.MessageStatusRead:
		updates["read_at"] = now
	case enums.MessageStatusReplied:
		updates["replied_at"] = now
	}

	res := r.db.WithContext(ctx).
		Model(&models.ContactMessage{}).
		Where("id = ?", id).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete removes a contact message.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.ContactMessage{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
