package payments

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/texnomart-dev/storefront-backend/internal/orders"
	"github.com/texnomart-dev/storefront-backend/pkg/db/models"
	"github.com/texnomart-dev/storefront-backend/pkg/enums"
	pkgerrors "github.com/texnomart-dev/storefront-backend/pkg/errors"
)

type stubGateway struct {
	provider  enums.PaymentMethod
	initiated int
}

func (s *stubGateway) Initiate(ctx context.Context, intent Intent) (*Initiation, error) {
	s.initiated++
	return &Initiation{Provider: s.provider, RedirectURL: "https://pay.example/" + string(s.provider)}, nil
}

func TestRouterDispatchIsCaseInsensitive(t *testing.T) {
	click := &stubGateway{provider: enums.PaymentMethodClick}
	router := NewRouter(click, nil, nil)

	for _, method := range []string{"click", "CLICK", "Click", "  click "} {
		if _, err := router.Resolve(method); err != nil {
			t.Fatalf("Resolve(%q): %v", method, err)
		}
	}
}

func TestRouterHumoServedByUzcardAdapter(t *testing.T) {
	uzcard := &stubGateway{provider: enums.PaymentMethodUzcard}
	router := NewRouter(nil, nil, uzcard)

	viaUzcard, err := router.Resolve("uzcard")
	if err != nil {
		t.Fatalf("Resolve(uzcard): %v", err)
	}
	viaHumo, err := router.Resolve("HUMO")
	if err != nil {
		t.Fatalf("Resolve(HUMO): %v", err)
	}
	if viaUzcard != viaHumo {
		t.Fatal("humo and uzcard must resolve to the same adapter")
	}
}

func TestRouterUnknownMethodNamesTheMethod(t *testing.T) {
	router := NewRouter(&stubGateway{}, &stubGateway{}, &stubGateway{})

	_, err := router.Initiate(context.Background(), "bitcoin", Intent{})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if !strings.Contains(err.Error(), "unknown") || !strings.Contains(err.Error(), "bitcoin") {
		t.Fatalf("error must name the unknown method, got %q", err.Error())
	}
}

func TestRouterUnconfiguredMethod(t *testing.T) {
	router := NewRouter(nil, nil, nil)

	_, err := router.Resolve("payme")
	if !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestRouterInitiateRoutesToAdapter(t *testing.T) {
	payme := &stubGateway{provider: enums.PaymentMethodPayme}
	router := NewRouter(nil, payme, nil)

	initiation, err := router.Initiate(context.Background(), "Payme", Intent{
		OrderID: uuid.New(),
		Amount:  decimal.NewFromInt(10000),
	})
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}
	if initiation.Provider != enums.PaymentMethodPayme {
		t.Fatalf("provider = %s, want payme", initiation.Provider)
	}
	if payme.initiated != 1 {
		t.Fatalf("adapter called %d times, want 1", payme.initiated)
	}
}

// Shared fixtures for the webhook service tests.

type runnerStub struct{}

func (runnerStub) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type fakeOrdersRepo struct {
	orders map[uuid.UUID]*models.Order
	paid   []uuid.UUID
}

func newFakeOrdersRepo(list ...*models.Order) *fakeOrdersRepo {
	repo := &fakeOrdersRepo{orders: map[uuid.UUID]*models.Order{}}
	for _, o := range list {
		repo.orders[o.ID] = o
	}
	return repo
}

func (f *fakeOrdersRepo) WithTx(tx *gorm.DB) orders.OrderRepository { return f }

func (f *fakeOrdersRepo) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	f.orders[order.ID] = order
	return order, nil
}

func (f *fakeOrdersRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if o, ok := f.orders[id]; ok {
		return o, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeOrdersRepo) FindByIdempotencyKey(ctx context.Context, key string) (*models.Order, error) {
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeOrdersRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Order, error) {
	return nil, nil
}

func (f *fakeOrdersRepo) List(ctx context.Context, filter orders.ListFilter) ([]models.Order, error) {
	return nil, nil
}

func (f *fakeOrdersRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.OrderStatus) error {
	return nil
}

func (f *fakeOrdersRepo) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status enums.PaymentStatus) error {
	if o, ok := f.orders[id]; ok {
		o.PaymentStatus = status
		if status == enums.PaymentStatusPaid {
			f.paid = append(f.paid, id)
		}
		return nil
	}
	return gorm.ErrRecordNotFound
}

func (f *fakeOrdersRepo) SetReceiptURL(ctx context.Context, id uuid.UUID, url string) error {
	return nil
}

func (f *fakeOrdersRepo) Delete(ctx context.Context, id uuid.UUID) error { return nil }

type memTxRepo struct {
	byProvider map[string]*models.PaymentTransaction
}

func newMemTxRepo() *memTxRepo {
	return &memTxRepo{byProvider: map[string]*models.PaymentTransaction{}}
}

func txKey(provider enums.PaymentMethod, providerTxID string) string {
	return string(provider) + ":" + providerTxID
}

func (m *memTxRepo) WithTx(tx *gorm.DB) TransactionRepository { return m }

func (m *memTxRepo) Create(ctx context.Context, txn *models.PaymentTransaction) error {
	if txn.CreatedAt.IsZero() {
		txn.CreatedAt = time.Now()
	}
	m.byProvider[txKey(txn.Provider, txn.ProviderTxID)] = txn
	return nil
}

func (m *memTxRepo) FindByProviderTx(ctx context.Context, provider enums.PaymentMethod, providerTxID string) (*models.PaymentTransaction, error) {
	return m.byProvider[txKey(provider, providerTxID)], nil
}

func (m *memTxRepo) FindByOrder(ctx context.Context, orderID uuid.UUID) (*models.PaymentTransaction, error) {
	for _, txn := range m.byProvider {
		if txn.OrderID == orderID {
			return txn, nil
		}
	}
	return nil, nil
}

func (m *memTxRepo) Update(ctx context.Context, txn *models.PaymentTransaction) error {
	m.byProvider[txKey(txn.Provider, txn.ProviderTxID)] = txn
	return nil
}

func newUnpaidOrder(total int64) *models.Order {
	owner := uuid.New()
	return &models.Order{
		ID:            uuid.New(),
		UserID:        &owner,
		Total:         decimal.NewFromInt(total),
		PaymentStatus: enums.PaymentStatusUnpaid,
	}
}
