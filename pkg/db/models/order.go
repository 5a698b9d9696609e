package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/texnomart-dev/storefront-backend/pkg/enums"
	"github.com/texnomart-dev/storefront-backend/pkg/types"
)

// Order is a placed checkout with its contact details, captured totals and
// payment state. IdempotencyKey dedupes retried checkout submissions.
type Order struct {
	ID                  uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID              *uuid.UUID          `gorm:"column:user_id;type:uuid;index"`
	CustomerName        string              `gorm:"column:customer_name;not null"`
	CustomerPhone       string              `gorm:"column:customer_phone;not null"`
	CustomerAddress     string              `gorm:"column:customer_address;not null"`
	CustomerCity        *string             `gorm:"column:customer_city"`
	Total               decimal.Decimal     `gorm:"column:total;type:numeric(14,2);not null"`
	Note                *string             `gorm:"column:note"`
	Status              enums.OrderStatus   `gorm:"column:status;not null;default:'new'"`
	PaymentStatus       enums.PaymentStatus `gorm:"column:payment_status;not null;default:'unpaid'"`
	PaymentMethod       enums.PaymentMethod `gorm:"column:payment_method;not null"`
	PaymentMethodDetail *string             `gorm:"column:payment_method_detail"`
	ReceiptURL          *string             `gorm:"column:receipt_url"`
	Source              string              `gorm:"column:source;not null;default:'website'"`
	Language            enums.Language      `gorm:"column:language;not null;default:'uz'"`
	IdempotencyKey      *string             `gorm:"column:idempotency_key;uniqueIndex"`
	Items               []OrderItem         `gorm:"foreignKey:OrderID"`
	CreatedAt           time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// OrderItem is a priced line captured at checkout time. UnitPrice is the
// tier-adjusted price actually charged, not the catalog base price.
type OrderItem struct {
	ID          uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID     uuid.UUID           `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID   uuid.UUID           `gorm:"column:product_id;type:uuid;not null"`
	ProductName types.LocalizedText `gorm:"column:product_name;type:jsonb;serializer:json;not null"`
	UnitPrice   decimal.Decimal     `gorm:"column:unit_price;type:numeric(14,2);not null"`
	Quantity    int                 `gorm:"column:quantity;not null"`
	Color       *string             `gorm:"column:color"`
	Subtotal    decimal.Decimal     `gorm:"column:subtotal;type:numeric(14,2);not null"`
	CreatedAt   time.Time           `gorm:"column:created_at;autoCreateTime"`
}
