package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/texnomart-dev/storefront-backend/pkg/types"
)

// Product is a catalog entry. Name and description carry per-language
// overrides; prices are UZS sums. PriceTiers holds the quantity-break
// discount brackets applied by the pricing engine.
type Product struct {
	ID           uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CategoryID   *uuid.UUID          `gorm:"column:category_id;type:uuid"`
	Name         types.LocalizedText `gorm:"column:name;type:jsonb;serializer:json;not null"`
	Description  types.LocalizedText `gorm:"column:description;type:jsonb;serializer:json"`
	Price        decimal.Decimal     `gorm:"column:price;type:numeric(14,2);not null"`
	PriceTiers   types.PriceTiers    `gorm:"column:price_tiers;type:jsonb;serializer:json"`
	Stock        *int                `gorm:"column:stock"`
	Colors       pq.StringArray      `gorm:"column:colors;type:text[]"`
	DefaultColor *string             `gorm:"column:default_color"`
	Images       pq.StringArray      `gorm:"column:images;type:text[]"`
	IsActive     bool                `gorm:"column:is_active;not null;default:true"`
	CreatedAt    time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// Category groups products for the catalog listing.
type Category struct {
	ID        uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Slug      string              `gorm:"column:slug;uniqueIndex;not null"`
	Name      types.LocalizedText `gorm:"column:name;type:jsonb;serializer:json;not null"`
	CreatedAt time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
