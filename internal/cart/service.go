package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/texnomart-dev/storefront-backend/internal/pricing"
	"github.com/texnomart-dev/storefront-backend/pkg/db/models"
	pkgerrors "github.com/texnomart-dev/storefront-backend/pkg/errors"
)

const defaultColorKey = "default"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type productLoader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

// Service exposes cart ledger operations. All mutations are persisted; reads
// reflect the stored state, not an in-process copy.
type Service interface {
	Add(ctx context.Context, userID uuid.UUID, input AddInput) (*models.CartLine, error)
	Remove(ctx context.Context, userID uuid.UUID, lineKey string) error
	UpdateQuantity(ctx context.Context, userID uuid.UUID, lineKey string, quantity int) (*models.CartLine, error)
	Clear(ctx context.Context, userID uuid.UUID) error
	List(ctx context.Context, userID uuid.UUID) ([]models.CartLine, error)
	Totals(ctx context.Context, userID uuid.UUID) (Totals, error)
}

// Totals aggregates the ledger: Total is the tier-adjusted sum, Count the
// number of units across all lines.
type Totals struct {
	Total decimal.Decimal
	Count int
}

type service struct {
	repo     LineRepository
	tx       txRunner
	products productLoader
}

// NewService builds a cart service backed by the provided stack.
func NewService(repo LineRepository, tx txRunner, products productLoader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	return &service{repo: repo, tx: tx, products: products}, nil
}

// AddInput captures the payload for adding a product to the cart.
type AddInput struct {
	ProductID uuid.UUID
	Quantity  int
	Color     *string
}

// LineKey derives the identity key for a product+color pair. Lines with the
// same key merge into one entry.
func LineKey(productID uuid.UUID, color *string) string {
	suffix := defaultColorKey
	if color != nil && *color != "" {
		suffix = *color
	}
	return productID.String() + "-" + suffix
}

// Add merges into an existing line with the same identity key or appends a
// new one with a snapshot of the product's current price and tiers.
func (s *service) Add(ctx context.Context, userID uuid.UUID, input AddInput) (*models.CartLine, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	qty := input.Quantity
	if qty < 1 {
		qty = 1
	}

	product, err := s.products.GetByID(ctx, input.ProductID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if !product.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product is not available")
	}

	color := resolveColor(input.Color, product)
	key := LineKey(product.ID, color)

	var saved *models.CartLine
	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		line, err := txRepo.FindByUserAndKey(ctx, userID, key)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if line != nil {
			line.Quantity += qty
			saved, err = txRepo.Update(ctx, line)
			return err
		}

		position, err := txRepo.NextPosition(ctx, userID)
		if err != nil {
			return err
		}
		saved, err = txRepo.Create(ctx, &models.CartLine{
			UserID:      userID,
			LineKey:     key,
			ProductID:   product.ID,
			ProductName: product.Name,
			UnitPrice:   product.Price,
			PriceTiers:  product.PriceTiers,
			Quantity:    qty,
			Color:       color,
			Image:       firstImage(product),
			Position:    position,
		})
		return err
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist cart line")
	}

	return saved, nil
}

// Remove deletes the matching line. Absent lines are a no-op, not an error.
func (s *service) Remove(ctx context.Context, userID uuid.UUID, lineKey string) error {
	if userID == uuid.Nil || lineKey == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id and line key are required")
	}
	if err := s.repo.Delete(ctx, userID, lineKey); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete cart line")
	}
	return nil
}

// UpdateQuantity sets the line's quantity. A quantity below 1 is a guarded
// no-op returning the unmodified line.
func (s *service) UpdateQuantity(ctx context.Context, userID uuid.UUID, lineKey string, quantity int) (*models.CartLine, error) {
	if userID == uuid.Nil || lineKey == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id and line key are required")
	}

	line, err := s.repo.FindByUserAndKey(ctx, userID, lineKey)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart line not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart line")
	}

	if quantity < 1 {
		return line, nil
	}

	line.Quantity = quantity
	saved, err := s.repo.Update(ctx, line)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart line")
	}
	return saved, nil
}

// Clear empties the user's cart. Clearing an empty cart is a no-op.
func (s *service) Clear(ctx context.Context, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if err := s.repo.DeleteAllByUser(ctx, userID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	return nil
}

// List returns the user's cart lines in insertion order.
func (s *service) List(ctx context.Context, userID uuid.UUID) ([]models.CartLine, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	rows, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list cart lines")
	}
	return rows, nil
}

// Totals computes the tier-adjusted sum and unit count over the stored lines.
func (s *service) Totals(ctx context.Context, userID uuid.UUID) (Totals, error) {
	rows, err := s.List(ctx, userID)
	if err != nil {
		return Totals{}, err
	}
	return ComputeTotals(rows), nil
}

// ComputeTotals aggregates the provided lines without touching storage.
func ComputeTotals(lines []models.CartLine) Totals {
	totals := Totals{Total: decimal.Zero}
	for _, line := range lines {
		totals.Total = totals.Total.Add(pricing.LineTotal(line.UnitPrice, line.PriceTiers, line.Quantity))
		totals.Count += line.Quantity
	}
	return totals
}

func resolveColor(explicit *string, product *models.Product) *string {
	if explicit != nil && *explicit != "" {
		val := *explicit
		return &val
	}
	if product.DefaultColor != nil && *product.DefaultColor != "" {
		val := *product.DefaultColor
		return &val
	}
	if len(product.Colors) > 0 && product.Colors[0] != "" {
		val := product.Colors[0]
		return &val
	}
	return nil
}

func firstImage(product *models.Product) *string {
	if len(product.Images) == 0 || product.Images[0] == "" {
		return nil
	}
	val := product.Images[0]
	return &val
}
