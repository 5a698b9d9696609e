package payments

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/texnomart-dev/storefront-backend/pkg/config"
	"github.com/texnomart-dev/storefront-backend/pkg/db/models"
	"github.com/texnomart-dev/storefront-backend/pkg/enums"
	pkgerrors "github.com/texnomart-dev/storefront-backend/pkg/errors"
)

func uzcardTestConfig(apiURL string) config.UzcardConfig {
	return config.UzcardConfig{
		TerminalID:   "term-1",
		APIKey:       "secret-key",
		MerchantName: "Texnomart",
		APIURL:       apiURL,
		ReturnURL:    "https://texnomart.example/orders",
	}
}

func TestUzcardInitiateRegistersPayment(t *testing.T) {
	orderID := uuid.New()
	var captured uzcardRegisterRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/register" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret-key" {
			t.Errorf("authorization = %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(uzcardRegisterResponse{
			Success:       true,
			PaymentURL:    "https://pay.uzcard.uz/session/xyz",
			TransactionID: "uz-tx-55",
		})
	}))
	defer server.Close()

	gateway, err := NewUzcardGateway(uzcardTestConfig(server.URL))
	if err != nil {
		t.Fatalf("new gateway: %v", err)
	}

	initiation, err := gateway.Initiate(context.Background(), Intent{
		OrderID:  orderID,
		Amount:   decimal.NewFromInt(5700000),
		Language: enums.LanguageUZ,
	})
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}

	if captured.TerminalID != "term-1" {
		t.Fatalf("terminal_id = %q", captured.TerminalID)
	}
	if captured.Amount != 570000000 {
		t.Fatalf("amount = %d, want tiyin 570000000", captured.Amount)
	}
	if captured.OrderID != orderID.String() {
		t.Fatalf("order_id = %q", captured.OrderID)
	}
	if captured.Currency != "UZS" {
		t.Fatalf("currency = %q", captured.Currency)
	}
	if captured.Language != "uz" {
		t.Fatalf("language = %q", captured.Language)
	}

	if initiation.RedirectURL != "https://pay.uzcard.uz/session/xyz" {
		t.Fatalf("redirect url = %q", initiation.RedirectURL)
	}
	if initiation.TransactionID != "uz-tx-55" {
		t.Fatalf("transaction id = %q", initiation.TransactionID)
	}
	if initiation.Provider != enums.PaymentMethodUzcard {
		t.Fatalf("provider = %s", initiation.Provider)
	}
}

func TestUzcardInitiateSurfacesProviderMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(uzcardRegisterResponse{
			Success: false,
			Message: "terminal is blocked",
		})
	}))
	defer server.Close()

	gateway, _ := NewUzcardGateway(uzcardTestConfig(server.URL))
	_, err := gateway.Initiate(context.Background(), Intent{
		OrderID: uuid.New(),
		Amount:  decimal.NewFromInt(1000),
	})

	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeGateway {
		t.Fatalf("expected gateway error, got %v", err)
	}
	if typed.Message() != "terminal is blocked" {
		t.Fatalf("message = %q, want provider text verbatim", typed.Message())
	}
}

func TestUzcardInitiateNonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gateway timeout", http.StatusBadGateway)
	}))
	defer server.Close()

	gateway, _ := NewUzcardGateway(uzcardTestConfig(server.URL))
	_, err := gateway.Initiate(context.Background(), Intent{
		OrderID: uuid.New(),
		Amount:  decimal.NewFromInt(1000),
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeGateway) {
		t.Fatalf("expected gateway error, got %v", err)
	}
}

func newUzcardWebhookEnv(t *testing.T, order *models.Order) (*UzcardWebhookService, *fakeOrdersRepo, *memTxRepo) {
	t.Helper()
	ordersRepo := newFakeOrdersRepo(order)
	txRepo := newMemTxRepo()
	svc, err := NewUzcardWebhookService(runnerStub{}, ordersRepo, txRepo, nil)
	if err != nil {
		t.Fatalf("new webhook service: %v", err)
	}
	return svc, ordersRepo, txRepo
}

func TestUzcardWebhookSuccessMarksPaid(t *testing.T) {
	order := newUnpaidOrder(5700000)
	svc, ordersRepo, txRepo := newUzcardWebhookEnv(t, order)

	err := svc.Handle(context.Background(), UzcardWebhook{
		TransactionID: "uz-tx-55",
		OrderID:       order.ID.String(),
		Status:        "SUCCESS",
	})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}

	if order.PaymentStatus != enums.PaymentStatusPaid {
		t.Fatalf("payment status = %s, want paid", order.PaymentStatus)
	}
	if len(ordersRepo.paid) != 1 {
		t.Fatalf("paid %d times, want 1", len(ordersRepo.paid))
	}
	txn, _ := txRepo.FindByProviderTx(context.Background(), enums.PaymentMethodUzcard, "uz-tx-55")
	if txn == nil || txn.State != models.TxStatePerformed {
		t.Fatalf("transaction = %+v", txn)
	}
}

func TestUzcardWebhookFailureCancels(t *testing.T) {
	order := newUnpaidOrder(5700000)
	svc, _, txRepo := newUzcardWebhookEnv(t, order)

	err := svc.Handle(context.Background(), UzcardWebhook{
		TransactionID: "uz-tx-56",
		OrderID:       order.ID.String(),
		Status:        "declined",
	})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}

	if order.PaymentStatus == enums.PaymentStatusPaid {
		t.Fatal("declined payment must not mark the order paid")
	}
	txn, _ := txRepo.FindByProviderTx(context.Background(), enums.PaymentMethodUzcard, "uz-tx-56")
	if txn == nil || txn.State != models.TxStateCancelled {
		t.Fatalf("transaction = %+v", txn)
	}
}

func TestUzcardWebhookRejectsMalformedCallback(t *testing.T) {
	svc, _, _ := newUzcardWebhookEnv(t, newUnpaidOrder(1000))

	err := svc.Handle(context.Background(), UzcardWebhook{Status: "success"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	err = svc.Handle(context.Background(), UzcardWebhook{
		TransactionID: "tx",
		OrderID:       uuid.NewString(),
		Status:        "success",
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found error, got %v", err)
	}
}
