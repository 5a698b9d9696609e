package payments

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/texnomart-dev/storefront-backend/internal/orders"
	"github.com/texnomart-dev/storefront-backend/pkg/enums"
	pkgerrors "github.com/texnomart-dev/storefront-backend/pkg/errors"
)

// InitiateService turns a stored order into a payment redirect via the
// router. The amount always comes from the stored order, never the caller.
type InitiateService struct {
	ordersRepo orders.OrderRepository
	router     *Router
}

func NewInitiateService(ordersRepo orders.OrderRepository, router *Router) (*InitiateService, error) {
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if router == nil {
		return nil, fmt.Errorf("router required")
	}
	return &InitiateService{ordersRepo: ordersRepo, router: router}, nil
}

// Initiate builds the redirect for one of the caller's unpaid orders. Orders
// owned by someone else are hidden behind not-found.
func (s *InitiateService) Initiate(ctx context.Context, method string, orderID, userID uuid.UUID, language enums.Language) (*Initiation, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}

	order, err := s.ordersRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "order not found")
	}
	if order.UserID == nil || *order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if order.PaymentStatus == enums.PaymentStatusPaid {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order is already paid")
	}

	return s.router.Initiate(ctx, method, Intent{
		OrderID:     order.ID,
		Amount:      order.Total,
		Language:    enums.ParseLanguage(language.String()), // normalizes an empty value to uz
		Description: fmt.Sprintf("Buyurtma %s", order.ID),
	})
}
