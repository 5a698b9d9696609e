package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/texnomart-dev/storefront-backend/api/responses"
	"github.com/texnomart-dev/storefront-backend/api/validators"
	productsvc "github.com/texnomart-dev/storefront-backend/internal/products"
	"github.com/texnomart-dev/storefront-backend/pkg/enums"
	pkgerrors "github.com/texnomart-dev/storefront-backend/pkg/errors"
	"github.com/texnomart-dev/storefront-backend/pkg/logger"
)

// requestLanguage resolves the storefront language from the lang query
// parameter, falling back to Uzbek.
func requestLanguage(r *http.Request) enums.Language {
	return enums.ParseLanguage(r.URL.Query().Get("lang"))
}

// ProductList handles the public catalog listing.
func ProductList(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		filter := productsvc.ListFilter{
			CategorySlug: validators.SanitizeString(r.URL.Query().Get("category"), 64),
			Query:        validators.SanitizeString(r.URL.Query().Get("q"), 200),
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("category_id")); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid category id"))
				return
			}
			filter.CategoryID = &id
		}

		items, err := svc.List(r.Context(), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		lang := requestLanguage(r)
		out := make([]productsvc.ProductDTO, 0, len(items))
		for i := range items {
			out = append(out, productsvc.ToDTO(&items[i], lang))
		}

		responses.WriteSuccess(w, out)
	}
}

// ProductGet handles lookup of a single catalog product.
func ProductGet(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "productID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id"))
			return
		}

		product, err := svc.GetByID(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, productsvc.ToDTO(product, requestLanguage(r)))
	}
}

// CategoryList handles the public category listing.
func CategoryList(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		categories, err := svc.Categories(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		lang := requestLanguage(r)
		out := make([]productsvc.CategoryDTO, 0, len(categories))
		for i := range categories {
			out = append(out, productsvc.CategoryToDTO(&categories[i], lang))
		}

		responses.WriteSuccess(w, out)
	}
}
