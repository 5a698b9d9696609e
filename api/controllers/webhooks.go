package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/texnomart-dev/storefront-backend/api/responses"
	paymentsvc "github.com/texnomart-dev/storefront-backend/internal/payments"
	pkgerrors "github.com/texnomart-dev/storefront-backend/pkg/errors"
	"github.com/texnomart-dev/storefront-backend/pkg/logger"
)

type ClickWebhookHandler interface {
	Handle(ctx context.Context, req paymentsvc.ClickRequest) paymentsvc.ClickResponse
}

type PaymeWebhookHandler interface {
	Handle(ctx context.Context, req paymentsvc.PaymeRequest) paymentsvc.PaymeResponse
}

type UzcardWebhookHandler interface {
	Handle(ctx context.Context, event paymentsvc.UzcardWebhook) error
}

// writeRawJSON sends a gateway-shaped payload without the API envelope.
// Gateways expect their own wire format, not ours.
func writeRawJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// ClickWebhook handles Click's prepare/complete callbacks. Click posts
// form-encoded fields and expects an HTTP 200 with a JSON body whatever the
// outcome; protocol failures are reported in the error field.
func ClickWebhook(svc ClickWebhookHandler, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "click webhook service unavailable"))
			return
		}

		req, err := parseClickForm(r)
		if err != nil {
			if logg != nil {
				logg.Warn(r.Context(), "click webhook malformed")
			}
			writeRawJSON(w, http.StatusOK, paymentsvc.ClickResponse{
				Error:     -8,
				ErrorNote: "Error in request from click",
			})
			return
		}

		writeRawJSON(w, http.StatusOK, svc.Handle(r.Context(), req))
	}
}

func parseClickForm(r *http.Request) (paymentsvc.ClickRequest, error) {
	if err := r.ParseForm(); err != nil {
		return paymentsvc.ClickRequest{}, err
	}

	transID, err := strconv.ParseInt(r.PostFormValue("click_trans_id"), 10, 64)
	if err != nil {
		return paymentsvc.ClickRequest{}, err
	}
	action, err := strconv.Atoi(r.PostFormValue("action"))
	if err != nil {
		return paymentsvc.ClickRequest{}, err
	}
	gatewayErr := 0
	if raw := r.PostFormValue("error"); raw != "" {
		gatewayErr, err = strconv.Atoi(raw)
		if err != nil {
			return paymentsvc.ClickRequest{}, err
		}
	}

	return paymentsvc.ClickRequest{
		ClickTransID:    transID,
		ServiceID:       r.PostFormValue("service_id"),
		MerchantTransID: strings.TrimSpace(r.PostFormValue("merchant_trans_id")),
		Amount:          strings.TrimSpace(r.PostFormValue("amount")),
		Action:          action,
		Error:           gatewayErr,
		ErrorNote:       r.PostFormValue("error_note"),
		SignTime:        r.PostFormValue("sign_time"),
		SignString:      r.PostFormValue("sign_string"),
	}, nil
}

// PaymeWebhook handles Payme's JSON-RPC callbacks. The transport answer is
// always HTTP 200; JSON-RPC errors ride in the body.
func PaymeWebhook(svc PaymeWebhookHandler, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payme webhook service unavailable"))
			return
		}

		var req paymentsvc.PaymeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			if logg != nil {
				logg.Warn(r.Context(), "payme webhook malformed")
			}
			writeRawJSON(w, http.StatusOK, paymentsvc.PaymeResponse{
				Error: &paymentsvc.PaymeError{Code: -32700, Message: "Parse error"},
			})
			return
		}

		writeRawJSON(w, http.StatusOK, svc.Handle(r.Context(), req))
	}
}

// UzcardWebhook handles Uzcard's settlement callback.
func UzcardWebhook(svc UzcardWebhookHandler, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "uzcard webhook service unavailable"))
			return
		}

		var event paymentsvc.UzcardWebhook
		if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode callback"))
			return
		}

		if err := svc.Handle(r.Context(), event); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		writeRawJSON(w, http.StatusOK, map[string]bool{"success": true})
	}
}
