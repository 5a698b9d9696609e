// Package payments holds the payment gateway adapters for the Uzbek
// processors (Click, Payme, Uzcard/Humo), the router that dispatches a
// checkout to one of them, and the webhook services that settle orders when
// the processors call back.
//
// Webhook payloads are trusted as delivered. Signature and HMAC verification
// happens at the network edge in front of this service, not here.
package payments

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/texnomart-dev/storefront-backend/pkg/enums"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Intent is a payment attempt for an order that has already been persisted.
// Amount is in soums; adapters that bill in tiyin convert themselves.
type Intent struct {
	OrderID     uuid.UUID
	Amount      decimal.Decimal
	Language    enums.Language
	Description string
}

// Initiation is the adapter's answer: where to send the customer and, when
// the processor pre-registers the payment, its transaction id.
type Initiation struct {
	Provider      enums.PaymentMethod
	RedirectURL   string
	TransactionID string
}

// Gateway is the capability every processor adapter provides.
type Gateway interface {
	Initiate(ctx context.Context, intent Intent) (*Initiation, error)
}

// toTiyin converts a soum amount to the integer tiyin units Payme and Uzcard
// bill in (1 soum = 100 tiyin).
func toTiyin(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).IntPart()
}
