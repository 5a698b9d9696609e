package checkout

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/texnomart-dev/storefront-backend/internal/cart"
	"github.com/texnomart-dev/storefront-backend/internal/orders"
	"github.com/texnomart-dev/storefront-backend/internal/pricing"
	"github.com/texnomart-dev/storefront-backend/pkg/config"
	"github.com/texnomart-dev/storefront-backend/pkg/db/models"
	"github.com/texnomart-dev/storefront-backend/pkg/enums"
	pkgerrors "github.com/texnomart-dev/storefront-backend/pkg/errors"
	"github.com/texnomart-dev/storefront-backend/pkg/logger"
	"github.com/texnomart-dev/storefront-backend/pkg/metrics"
)

const orderSourceWebsite = "website"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type cartStore interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.CartLine, error)
	DeleteAllByUser(ctx context.Context, userID uuid.UUID) error
}

type receiptUploader interface {
	Upload(ctx context.Context, bucket, objectPath, contentType string, body io.Reader) (string, error)
}

type settingsReader interface {
	Get(ctx context.Context, key string) (string, error)
}

// Service runs one checkout attempt end to end: validate, persist the order
// with its line items, upload the payment receipt, clear the cart.
type Service interface {
	Submit(ctx context.Context, input SubmitInput) (*Result, error)
}

// SubmitInput is the full checkout form plus the attached receipt file.
type SubmitInput struct {
	UserID         uuid.UUID
	Name           string
	Phone          string
	Address        string
	City           string
	Note           *string
	PaymentMethod  enums.PaymentMethod
	Language       enums.Language
	IdempotencyKey string
	Receipt        *ReceiptFile
}

// ReceiptFile is the uploaded proof-of-payment artifact.
type ReceiptFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Result reports the created order. Replayed is set when the idempotency key
// matched an order from an earlier submission and nothing new was written.
type Result struct {
	Order    *models.Order
	Replayed bool
}

type service struct {
	tx         txRunner
	ordersRepo orders.OrderRepository
	cartRepo   cartStore
	uploader   receiptUploader
	settings   settingsReader
	cfg        config.CheckoutConfig
	bucket     string
	logg       *logger.Logger
	checkoutMx *metrics.CheckoutMetrics
	now        func() time.Time
}

// NewService builds the checkout orchestrator.
func NewService(
	tx txRunner,
	ordersRepo orders.OrderRepository,
	cartRepo cartStore,
	uploader receiptUploader,
	settings settingsReader,
	cfg config.CheckoutConfig,
	bucket string,
	logg *logger.Logger,
	checkoutMx *metrics.CheckoutMetrics,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if cartRepo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if uploader == nil {
		return nil, fmt.Errorf("receipt uploader required")
	}
	if settings == nil {
		return nil, fmt.Errorf("settings reader required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		tx:         tx,
		ordersRepo: ordersRepo,
		cartRepo:   cartRepo,
		uploader:   uploader,
		settings:   settings,
		cfg:        cfg,
		bucket:     bucket,
		logg:       logg,
		checkoutMx: checkoutMx,
		now:        time.Now,
	}, nil
}

// Submit executes the checkout pipeline. Validation failures make no backend
// calls at all. Once the order row exists, a receipt upload failure is
// reported as partial success and the cart is left intact.
func (s *service) Submit(ctx context.Context, input SubmitInput) (*Result, error) {
	started := s.now()
	result, err := s.submit(ctx, input)
	if err != nil {
		code := pkgerrors.CodeInternal
		if typed := pkgerrors.As(err); typed != nil {
			code = typed.Code()
		}
		s.checkoutMx.IncCheckoutFailure(string(code))
		s.checkoutMx.ObserveCheckout("failure", s.now().Sub(started))
		return nil, err
	}
	s.checkoutMx.IncOrderCreated(input.PaymentMethod.String())
	s.checkoutMx.ObserveCheckout("success", s.now().Sub(started))
	return result, nil
}

func (s *service) submit(ctx context.Context, input SubmitInput) (*Result, error) {
	if err := validate(input, s.cfg.MaxReceiptBytes); err != nil {
		return nil, err
	}

	ctx = s.logg.WithUserID(ctx, input.UserID.String())

	if input.IdempotencyKey != "" {
		existing, err := s.ordersRepo.FindByIdempotencyKey(ctx, input.IdempotencyKey)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency key")
		}
		if existing != nil {
			s.logg.Info(s.logg.WithOrderID(ctx, existing.ID.String()), "checkout replayed from idempotency key")
			return &Result{Order: existing, Replayed: true}, nil
		}
	}

	lines, err := s.cartRepo.ListByUser(ctx, input.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	if len(lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	detail, err := s.methodDetail(ctx, input.PaymentMethod)
	if err != nil {
		return nil, err
	}

	order := buildOrder(input, lines, detail)

	persistCtx := ctx
	if s.cfg.PersistTimeout > 0 {
		var cancel context.CancelFunc
		persistCtx, cancel = context.WithTimeout(ctx, s.cfg.PersistTimeout)
		defer cancel()
	}

	if err := s.tx.WithTx(persistCtx, func(tx *gorm.DB) error {
		_, err := s.ordersRepo.WithTx(tx).Create(persistCtx, order)
		return err
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist order")
	}

	ctx = s.logg.WithOrderID(ctx, order.ID.String())
	s.logg.Info(ctx, "order persisted")

	if err := s.attachReceipt(ctx, order, input.Receipt); err != nil {
		// The order row is live; the caller must be told it exists without
		// proof of payment, and the cart must survive for a retry.
		return nil, err
	}

	if err := s.cartRepo.DeleteAllByUser(ctx, input.UserID); err != nil {
		// The stale cart would turn an innocent resubmit into a duplicate
		// order, so the caller has to learn the clear did not happen.
		s.logg.Error(ctx, "clearing cart after checkout failed", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodePartialSuccess,
			multierr.Append(err, fmt.Errorf("order %s created", order.ID)),
			"order created but cart was not cleared").WithDetails(map[string]any{"order_id": order.ID})
	}

	s.logg.Info(ctx, "checkout completed")
	return &Result{Order: order}, nil
}

func (s *service) attachReceipt(ctx context.Context, order *models.Order, receipt *ReceiptFile) error {
	uploadCtx := ctx
	if s.cfg.PersistTimeout > 0 {
		var cancel context.CancelFunc
		uploadCtx, cancel = context.WithTimeout(ctx, s.cfg.PersistTimeout)
		defer cancel()
	}

	objectPath := receiptObjectPath(order.ID, s.now(), receipt.Filename)
	url, err := s.uploader.Upload(uploadCtx, s.bucket, objectPath, receipt.ContentType, bytes.NewReader(receipt.Data))
	if err != nil {
		s.logg.Error(ctx, "receipt upload failed", err)
		return pkgerrors.Wrap(pkgerrors.CodePartialSuccess, err,
			"order created but receipt upload failed").WithDetails(map[string]any{"order_id": order.ID})
	}

	if err := s.ordersRepo.SetReceiptURL(uploadCtx, order.ID, url); err != nil {
		s.logg.Error(ctx, "patching receipt url failed", err)
		return pkgerrors.Wrap(pkgerrors.CodePartialSuccess, multierr.Append(err, fmt.Errorf("receipt stored at %s", url)),
			"order created but receipt url was not saved").WithDetails(map[string]any{"order_id": order.ID})
	}

	order.ReceiptURL = &url
	return nil
}

func validate(input SubmitInput, maxReceiptBytes int64) error {
	missing := map[string]string{}
	if strings.TrimSpace(input.Name) == "" {
		missing["name"] = "required"
	}
	if strings.TrimSpace(input.Phone) == "" {
		missing["phone"] = "required"
	}
	if strings.TrimSpace(input.Address) == "" {
		missing["address"] = "required"
	}
	if strings.TrimSpace(input.City) == "" {
		missing["city"] = "required"
	}
	if !input.PaymentMethod.IsValid() {
		missing["payment_method"] = "invalid"
	}
	// Proof of transfer is required before any order is accepted, whatever
	// the chosen payment method.
	if input.Receipt == nil || len(input.Receipt.Data) == 0 {
		missing["receipt"] = "required"
	} else if maxReceiptBytes > 0 && int64(len(input.Receipt.Data)) > maxReceiptBytes {
		missing["receipt"] = "too large"
	}
	if input.UserID == uuid.Nil {
		missing["user_id"] = "required"
	}
	if len(missing) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "checkout form is incomplete").WithDetails(missing)
	}
	return nil
}

// methodDetail resolves the card number shown on the order for manual
// transfer rails. The value lives in site settings, never in the client form.
func (s *service) methodDetail(ctx context.Context, method enums.PaymentMethod) (*string, error) {
	var key string
	switch method {
	case enums.PaymentMethodHumo:
		key = models.SettingHumoCard
	case enums.PaymentMethodUzcard:
		key = models.SettingUzcardCard
	case enums.PaymentMethodVisa:
		key = models.SettingVisaCard
	default:
		// Gateway methods carry no card number.
		return nil, nil
	}

	value, err := s.settings.Get(ctx, key)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve payment card setting")
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	return &value, nil
}

func buildOrder(input SubmitInput, lines []models.CartLine, methodDetail *string) *models.Order {
	totals := cart.ComputeTotals(lines)

	items := make([]models.OrderItem, 0, len(lines))
	for _, line := range lines {
		unit := pricing.UnitPrice(line.UnitPrice, line.PriceTiers, line.Quantity)
		items = append(items, models.OrderItem{
			ProductID:   line.ProductID,
			ProductName: line.ProductName,
			UnitPrice:   unit,
			Quantity:    line.Quantity,
			Color:       line.Color,
			Subtotal:    unit.Mul(decimal.NewFromInt(int64(line.Quantity))),
		})
	}

	userID := input.UserID
	city := strings.TrimSpace(input.City)
	var key *string
	if input.IdempotencyKey != "" {
		val := input.IdempotencyKey
		key = &val
	}

	return &models.Order{
		ID:                  uuid.New(),
		UserID:              &userID,
		CustomerName:        strings.TrimSpace(input.Name),
		CustomerPhone:       strings.TrimSpace(input.Phone),
		CustomerAddress:     strings.TrimSpace(input.Address),
		CustomerCity:        &city,
		Total:               totals.Total,
		Note:                input.Note,
		Status:              enums.OrderStatusNew,
		PaymentStatus:       enums.PaymentStatusUnpaid,
		PaymentMethod:       input.PaymentMethod,
		PaymentMethodDetail: methodDetail,
		Source:              orderSourceWebsite,
		Language:            input.Language,
		IdempotencyKey:      key,
		Items:               items,
	}
}

// receiptObjectPath keys the upload by order id plus submission time so a
// retried upload never overwrites an earlier artifact.
func receiptObjectPath(orderID uuid.UUID, at time.Time, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		ext = ".jpg"
	}
	return fmt.Sprintf("receipts/%s_%d%s", orderID, at.Unix(), ext)
}
