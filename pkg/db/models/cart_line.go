package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/texnomart-dev/storefront-backend/pkg/types"
)

// CartLine is one product+color entry in a shopper's cart. The product
// fields are a snapshot taken when the line was added; later catalog edits
// do not reprice lines already in the cart. LineKey is
// "<productID>-<color>" (or "-default") and is unique per user.
type CartLine struct {
	ID          uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID      uuid.UUID           `gorm:"column:user_id;type:uuid;not null;uniqueIndex:idx_cart_lines_user_key,priority:1"`
	LineKey     string              `gorm:"column:line_key;not null;uniqueIndex:idx_cart_lines_user_key,priority:2"`
	ProductID   uuid.UUID           `gorm:"column:product_id;type:uuid;not null"`
	ProductName types.LocalizedText `gorm:"column:product_name;type:jsonb;serializer:json;not null"`
	UnitPrice   decimal.Decimal     `gorm:"column:unit_price;type:numeric(14,2);not null"`
	PriceTiers  types.PriceTiers    `gorm:"column:price_tiers;type:jsonb;serializer:json"`
	Quantity    int                 `gorm:"column:quantity;not null"`
	Color       *string             `gorm:"column:color"`
	Image       *string             `gorm:"column:image"`
	Position    int                 `gorm:"column:position;not null"`
	CreatedAt   time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
