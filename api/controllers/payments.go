package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/texnomart-dev/storefront-backend/api/responses"
	"github.com/texnomart-dev/storefront-backend/api/validators"
	paymentsvc "github.com/texnomart-dev/storefront-backend/internal/payments"
	pkgerrors "github.com/texnomart-dev/storefront-backend/pkg/errors"
	"github.com/texnomart-dev/storefront-backend/pkg/logger"
)

type initiatePaymentRequest struct {
	Method string `json:"method" validate:"required"`
}

type initiatePaymentResponse struct {
	Provider      string `json:"provider"`
	RedirectURL   string `json:"redirect_url"`
	TransactionID string `json:"transaction_id,omitempty"`
}

// PaymentInitiate builds a gateway redirect for an unpaid order.
func PaymentInitiate(svc *paymentsvc.InitiateService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}

		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := uuid.Parse(chi.URLParam(r, "orderID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id"))
			return
		}

		var payload initiatePaymentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		initiation, err := svc.Initiate(r.Context(), payload.Method, orderID, userID, requestLanguage(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, initiatePaymentResponse{
			Provider:      string(initiation.Provider),
			RedirectURL:   initiation.RedirectURL,
			TransactionID: initiation.TransactionID,
		})
	}
}
