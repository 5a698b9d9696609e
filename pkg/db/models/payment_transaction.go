package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/texnomart-dev/storefront-backend/pkg/enums"
)

// Payment transaction lifecycle as reported by provider webhooks.
const (
	TxStateCreated   = "created"
	TxStatePerformed = "performed"
	TxStateCancelled = "cancelled"
)

// PaymentTransaction tracks a provider-side transaction against an order.
// Payme's RPC flow creates one in CreateTransaction and moves it through
// PerformTransaction/CancelTransaction; Click and Uzcard record one on
// their prepare/success callbacks. ProviderTxID is the provider's own
// identifier and is unique per provider.
type PaymentTransaction struct {
	ID           uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID      uuid.UUID           `gorm:"column:order_id;type:uuid;not null;index"`
	Provider     enums.PaymentMethod `gorm:"column:provider;not null;uniqueIndex:idx_payment_tx_provider_tx,priority:1"`
	ProviderTxID string              `gorm:"column:provider_tx_id;not null;uniqueIndex:idx_payment_tx_provider_tx,priority:2"`
	Amount       decimal.Decimal     `gorm:"column:amount;type:numeric(14,2);not null"`
	State        string              `gorm:"column:state;not null;default:'created'"`
	Reason       *int                `gorm:"column:reason"`
	PerformedAt  *time.Time          `gorm:"column:performed_at"`
	CancelledAt  *time.Time          `gorm:"column:cancelled_at"`
	CreatedAt    time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
