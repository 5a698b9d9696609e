package cart

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/texnomart-dev/storefront-backend/pkg/db/models"
)

// LineRepository defines the persistence surface required by the cart service.
type LineRepository interface {
	WithTx(tx *gorm.DB) LineRepository
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.CartLine, error)
	FindByUserAndKey(ctx context.Context, userID uuid.UUID, lineKey string) (*models.CartLine, error)
	Create(ctx context.Context, line *models.CartLine) (*models.CartLine, error)
	Update(ctx context.Context, line *models.CartLine) (*models.CartLine, error)
	Delete(ctx context.Context, userID uuid.UUID, lineKey string) error
	DeleteAllByUser(ctx context.Context, userID uuid.UUID) error
	NextPosition(ctx context.Context, userID uuid.UUID) (int, error)
}
