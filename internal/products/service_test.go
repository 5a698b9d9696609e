package products

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/texnomart-dev/storefront-backend/pkg/db/models"
	"github.com/texnomart-dev/storefront-backend/pkg/enums"
	pkgerrors "github.com/texnomart-dev/storefront-backend/pkg/errors"
	"github.com/texnomart-dev/storefront-backend/pkg/types"
)

type stubCatalogRepo struct {
	products   map[uuid.UUID]*models.Product
	categories []models.Category
}

func (s *stubCatalogRepo) List(ctx context.Context, filter ListFilter) ([]models.Product, error) {
	var out []models.Product
	for _, p := range s.products {
		if !filter.IncludeInactive && !p.IsActive {
			continue
		}
		out = append(out, *p)
	}
	return out, nil
}

func (s *stubCatalogRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	if p, ok := s.products[id]; ok {
		return p, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubCatalogRepo) ListCategories(ctx context.Context) ([]models.Category, error) {
	return s.categories, nil
}

func TestServiceGetByIDNotFound(t *testing.T) {
	t.Parallel()

	svc, err := NewService(&stubCatalogRepo{products: map[uuid.UUID]*models.Product{}})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	_, err = svc.GetByID(context.Background(), uuid.New())
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestServiceGetByIDNilID(t *testing.T) {
	t.Parallel()

	svc, _ := NewService(&stubCatalogRepo{products: map[uuid.UUID]*models.Product{}})
	_, err := svc.GetByID(context.Background(), uuid.Nil)
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestToDTOResolvesLanguage(t *testing.T) {
	t.Parallel()

	product := &models.Product{
		ID: uuid.New(),
		Name: types.LocalizedText{
			UZ: "Muzlatgich",
			RU: "Холодильник",
		},
		Description: types.LocalizedText{UZ: "Katta hajm"},
		Price:       decimal.NewFromInt(4500000),
		IsActive:    true,
	}

	ru := ToDTO(product, enums.LanguageRU)
	if ru.Name != "Холодильник" {
		t.Fatalf("expected russian name, got %q", ru.Name)
	}
	// missing translation falls back to the canonical value
	if ru.Description != "Katta hajm" {
		t.Fatalf("expected uzbek fallback, got %q", ru.Description)
	}

	en := ToDTO(product, enums.LanguageEN)
	if en.Name != "Muzlatgich" {
		t.Fatalf("expected uzbek fallback for missing english, got %q", en.Name)
	}
}
