package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/texnomart-dev/storefront-backend/api/middleware"
	checkoutsvc "github.com/texnomart-dev/storefront-backend/internal/checkout"
	"github.com/texnomart-dev/storefront-backend/pkg/db/models"
	"github.com/texnomart-dev/storefront-backend/pkg/enums"
)

type stubCheckoutService struct {
	lastInput checkoutsvc.SubmitInput
	calls     int
	result    *checkoutsvc.Result
	err       error
}

func (s *stubCheckoutService) Submit(_ context.Context, input checkoutsvc.SubmitInput) (*checkoutsvc.Result, error) {
	s.calls++
	s.lastInput = input
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func checkoutRequestBody(t *testing.T, fields map[string]string, receipt []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for key, value := range fields {
		if err := mw.WriteField(key, value); err != nil {
			t.Fatalf("write field %s: %v", key, err)
		}
	}
	if receipt != nil {
		part, err := mw.CreateFormFile("receipt", "receipt.jpg")
		if err != nil {
			t.Fatalf("create receipt part: %v", err)
		}
		if _, err := part.Write(receipt); err != nil {
			t.Fatalf("write receipt: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func validCheckoutFields() map[string]string {
	return map[string]string{
		"name":           "Aziz Karimov",
		"phone":          "+998901234567",
		"address":        "Chilonzor 5",
		"city":           "Tashkent",
		"payment_method": "payme",
	}
}

func TestCheckoutSubmitsForm(t *testing.T) {
	userID := uuid.New()
	svc := &stubCheckoutService{
		result: &checkoutsvc.Result{Order: &models.Order{
			ID:            uuid.New(),
			CustomerName:  "Aziz Karimov",
			Total:         decimal.NewFromInt(250000),
			Status:        enums.OrderStatusNew,
			PaymentStatus: enums.PaymentStatusUnpaid,
			PaymentMethod: enums.PaymentMethodPayme,
			Language:      enums.LanguageUZ,
		}},
	}
	handler := Checkout(svc, 1<<20, nil)

	body, contentType := checkoutRequestBody(t, validCheckoutFields(), []byte("jpeg-bytes"))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Idempotency-Key", "chk-123")
	req = req.WithContext(middleware.WithUserID(req.Context(), userID.String()))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.calls != 1 {
		t.Fatalf("expected one submit, got %d", svc.calls)
	}
	input := svc.lastInput
	if input.UserID != userID {
		t.Fatalf("expected user %s got %s", userID, input.UserID)
	}
	if input.PaymentMethod != enums.PaymentMethodPayme {
		t.Fatalf("expected payme got %s", input.PaymentMethod)
	}
	if input.IdempotencyKey != "chk-123" {
		t.Fatalf("expected idempotency key forwarded, got %q", input.IdempotencyKey)
	}
	if input.Receipt == nil || string(input.Receipt.Data) != "jpeg-bytes" {
		t.Fatal("expected receipt bytes forwarded")
	}
	if input.Receipt.Filename != "receipt.jpg" {
		t.Fatalf("expected receipt filename, got %q", input.Receipt.Filename)
	}
}

func TestCheckoutRejectsMissingReceipt(t *testing.T) {
	svc := &stubCheckoutService{}
	handler := Checkout(svc, 1<<20, nil)

	body, contentType := checkoutRequestBody(t, validCheckoutFields(), nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", body)
	req.Header.Set("Content-Type", contentType)
	req = req.WithContext(middleware.WithUserID(req.Context(), uuid.NewString()))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if svc.calls != 0 {
		t.Fatal("service must not be called without a receipt")
	}
}

func TestCheckoutRejectsUnknownPaymentMethod(t *testing.T) {
	svc := &stubCheckoutService{}
	handler := Checkout(svc, 1<<20, nil)

	fields := validCheckoutFields()
	fields["payment_method"] = "paypal"
	body, contentType := checkoutRequestBody(t, fields, []byte("jpeg-bytes"))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", body)
	req.Header.Set("Content-Type", contentType)
	req = req.WithContext(middleware.WithUserID(req.Context(), uuid.NewString()))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if svc.calls != 0 {
		t.Fatal("service must not be called for an unknown payment method")
	}
}

func TestCheckoutRejectsUnauthenticated(t *testing.T) {
	svc := &stubCheckoutService{}
	handler := Checkout(svc, 1<<20, nil)

	body, contentType := checkoutRequestBody(t, validCheckoutFields(), []byte("jpeg-bytes"))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", body)
	req.Header.Set("Content-Type", contentType)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestCheckoutReplayReturnsOK(t *testing.T) {
	svc := &stubCheckoutService{
		result: &checkoutsvc.Result{
			Order:    &models.Order{ID: uuid.New(), PaymentMethod: enums.PaymentMethodClick, Language: enums.LanguageUZ},
			Replayed: true,
		},
	}
	handler := Checkout(svc, 1<<20, nil)

	fields := validCheckoutFields()
	fields["payment_method"] = "click"
	body, contentType := checkoutRequestBody(t, fields, []byte("jpeg-bytes"))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Idempotency-Key", "chk-123")
	req = req.WithContext(middleware.WithUserID(req.Context(), uuid.NewString()))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for replay got %d", resp.Code)
	}
	var envelope struct {
		Data orderResponse `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if envelope.Data.ID != svc.result.Order.ID {
		t.Fatalf("expected replayed order id %s got %s", svc.result.Order.ID, envelope.Data.ID)
	}
}
