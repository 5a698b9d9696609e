package products

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/texnomart-dev/storefront-backend/pkg/db/models"
	"github.com/texnomart-dev/storefront-backend/pkg/enums"
	"github.com/texnomart-dev/storefront-backend/pkg/types"
)

// ProductDTO is the API shape with names resolved to one language.
type ProductDTO struct {
	ID           uuid.UUID        `json:"id"`
	CategoryID   *uuid.UUID       `json:"category_id,omitempty"`
	Name         string           `json:"name"`
	Description  string           `json:"description,omitempty"`
	Price        decimal.Decimal  `json:"price"`
	PriceTiers   types.PriceTiers `json:"price_tiers,omitempty"`
	Stock        *int             `json:"stock,omitempty"`
	Colors       []string         `json:"colors,omitempty"`
	DefaultColor *string          `json:"default_color,omitempty"`
	Images       []string         `json:"images,omitempty"`
	IsActive     bool             `json:"is_active"`
}

// CategoryDTO is the API shape for a category.
type CategoryDTO struct {
	ID   uuid.UUID `json:"id"`
	Slug string    `json:"slug"`
	Name string    `json:"name"`
}

// ToDTO resolves the product's localized fields for the given language.
func ToDTO(p *models.Product, lang enums.Language) ProductDTO {
	return ProductDTO{
		ID:           p.ID,
		CategoryID:   p.CategoryID,
		Name:         p.Name.Resolve(lang),
		Description:  p.Description.Resolve(lang),
		Price:        p.Price,
		PriceTiers:   p.PriceTiers,
		Stock:        p.Stock,
		Colors:       p.Colors,
		DefaultColor: p.DefaultColor,
		Images:       p.Images,
		IsActive:     p.IsActive,
	}
}

// CategoryToDTO resolves the category name for the given language.
func CategoryToDTO(c *models.Category, lang enums.Language) CategoryDTO {
	return CategoryDTO{
		ID:   c.ID,
		Slug: c.Slug,
		Name: c.Name.Resolve(lang),
	}
}
