package controllers

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/texnomart-dev/storefront-backend/api/responses"
	"github.com/texnomart-dev/storefront-backend/api/validators"
	checkoutsvc "github.com/texnomart-dev/storefront-backend/internal/checkout"
	"github.com/texnomart-dev/storefront-backend/pkg/enums"
	pkgerrors "github.com/texnomart-dev/storefront-backend/pkg/errors"
	"github.com/texnomart-dev/storefront-backend/pkg/logger"
)

// multipart memory threshold; larger parts spill to temp files.
const checkoutFormMemory = 8 << 20

type checkoutForm struct {
	Name          string `json:"name" validate:"required"`
	Phone         string `json:"phone" validate:"required"`
	Address       string `json:"address" validate:"required"`
	City          string `json:"city" validate:"required"`
	PaymentMethod string `json:"payment_method" validate:"required"`
	Note          string `json:"note"`
}

// Checkout handles submission of the caller's cart as an order. The request
// is multipart form data with a mandatory receipt file attached.
func Checkout(svc checkoutsvc.Service, maxReceiptBytes int64, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := r.ParseMultipartForm(checkoutFormMemory); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "multipart form required"))
			return
		}

		form := checkoutForm{
			Name:          validators.SanitizeString(r.FormValue("name"), 200),
			Phone:         validators.SanitizeString(r.FormValue("phone"), 32),
			Address:       validators.SanitizeString(r.FormValue("address"), 500),
			City:          validators.SanitizeString(r.FormValue("city"), 100),
			PaymentMethod: validators.SanitizeString(r.FormValue("payment_method"), 32),
			Note:          validators.SanitizeString(r.FormValue("note"), 1000),
		}
		if err := validators.ValidateStruct(form); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		method, err := enums.ParsePaymentMethod(form.PaymentMethod)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method"))
			return
		}

		receipt, err := readReceipt(r, maxReceiptBytes)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := checkoutsvc.SubmitInput{
			UserID:         userID,
			Name:           form.Name,
			Phone:          form.Phone,
			Address:        form.Address,
			City:           form.City,
			PaymentMethod:  method,
			Language:       requestLanguage(r),
			IdempotencyKey: strings.TrimSpace(r.Header.Get("Idempotency-Key")),
			Receipt:        receipt,
		}
		if form.Note != "" {
			input.Note = &form.Note
		}

		result, err := svc.Submit(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status := http.StatusCreated
		if result.Replayed {
			status = http.StatusOK
		}
		responses.WriteSuccessStatus(w, status, newOrderResponse(result.Order))
	}
}

// readReceipt pulls the receipt part out of the multipart form. The receipt
// is mandatory; a missing part is a validation error, not an upload error.
func readReceipt(r *http.Request, maxBytes int64) (*checkoutsvc.ReceiptFile, error) {
	file, header, err := r.FormFile("receipt")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "receipt file is required")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read receipt")
	}
	defer file.Close()

	if maxBytes > 0 && header.Size > maxBytes {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "receipt file too large")
	}

	data, err := readAllLimited(file, maxBytes)
	if err != nil {
		return nil, err
	}

	return &checkoutsvc.ReceiptFile{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

func readAllLimited(file multipart.File, maxBytes int64) ([]byte, error) {
	var reader io.Reader = file
	if maxBytes > 0 {
		reader = io.LimitReader(file, maxBytes+1)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read receipt")
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "receipt file too large")
	}
	return data, nil
}
