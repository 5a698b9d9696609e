package payments

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/texnomart-dev/storefront-backend/internal/orders"
	"github.com/texnomart-dev/storefront-backend/pkg/config"
	"github.com/texnomart-dev/storefront-backend/pkg/db/models"
	"github.com/texnomart-dev/storefront-backend/pkg/enums"
	pkgerrors "github.com/texnomart-dev/storefront-backend/pkg/errors"
	"github.com/texnomart-dev/storefront-backend/pkg/metrics"
)

// Click webhook actions.
const (
	ClickActionPrepare  = 0
	ClickActionComplete = 1
)

// Click webhook error codes, per the merchant API contract.
const (
	clickErrorNone           = 0
	clickErrorInvalidAmount  = -2
	clickErrorActionNotFound = -3
	clickErrorAlreadyPaid    = -4
	clickErrorOrderNotFound  = -5
	clickErrorTxNotFound     = -6
)

// ClickGateway builds the hosted-checkout redirect for Click. Click has no
// registration call; the whole intent rides in the query string.
type ClickGateway struct {
	cfg config.ClickConfig
}

func NewClickGateway(cfg config.ClickConfig) (*ClickGateway, error) {
	if strings.TrimSpace(cfg.MerchantID) == "" || strings.TrimSpace(cfg.ServiceID) == "" {
		return nil, fmt.Errorf("click merchant and service ids are required")
	}
	return &ClickGateway{cfg: cfg}, nil
}

func (g *ClickGateway) Initiate(ctx context.Context, intent Intent) (*Initiation, error) {
	if intent.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	if intent.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}

	params := url.Values{}
	params.Set("merchant_id", g.cfg.MerchantID)
	params.Set("service_id", g.cfg.ServiceID)
	params.Set("transaction_param", intent.OrderID.String())
	params.Set("amount", intent.Amount.StringFixed(2))
	if g.cfg.MerchantUserID != "" {
		params.Set("merchant_user_id", g.cfg.MerchantUserID)
	}
	if g.cfg.ReturnURL != "" {
		params.Set("return_url", g.cfg.ReturnURL)
	}

	return &Initiation{
		Provider:    enums.PaymentMethodClick,
		RedirectURL: g.cfg.PayURL + "?" + params.Encode(),
	}, nil
}

// ClickRequest is the callback Click posts on prepare and complete.
type ClickRequest struct {
	ClickTransID    int64  `json:"click_trans_id"`
	ServiceID       string `json:"service_id"`
	MerchantTransID string `json:"merchant_trans_id"`
	Amount          string `json:"amount"`
	Action          int    `json:"action"`
	Error           int    `json:"error"`
	ErrorNote       string `json:"error_note"`
	SignTime        string `json:"sign_time"`
	SignString      string `json:"sign_string"`
}

// ClickResponse echoes the transaction identifiers back to Click. Exactly one
// of MerchantPrepareID / MerchantConfirmID is set depending on the action.
type ClickResponse struct {
	ClickTransID      int64  `json:"click_trans_id"`
	MerchantTransID   string `json:"merchant_trans_id"`
	MerchantPrepareID int64  `json:"merchant_prepare_id,omitempty"`
	MerchantConfirmID int64  `json:"merchant_confirm_id,omitempty"`
	Error             int    `json:"error"`
	ErrorNote         string `json:"error_note"`
}

// ClickWebhookService settles orders from Click's two-phase callbacks.
type ClickWebhookService struct {
	tx         txRunner
	ordersRepo orders.OrderRepository
	txRepo     TransactionRepository
	checkoutMx *metrics.CheckoutMetrics
	now        func() time.Time
}

func NewClickWebhookService(tx txRunner, ordersRepo orders.OrderRepository, txRepo TransactionRepository, checkoutMx *metrics.CheckoutMetrics) (*ClickWebhookService, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if txRepo == nil {
		return nil, fmt.Errorf("transaction repository required")
	}
	return &ClickWebhookService{
		tx:         tx,
		ordersRepo: ordersRepo,
		txRepo:     txRepo,
		checkoutMx: checkoutMx,
		now:        time.Now,
	}, nil
}

// Handle dispatches on the action code. Responses always carry Click's
// envelope; transport-level errors are reserved for malformed payloads.
func (s *ClickWebhookService) Handle(ctx context.Context, req ClickRequest) ClickResponse {
	var resp ClickResponse
	switch req.Action {
	case ClickActionPrepare:
		resp = s.prepare(ctx, req)
	case ClickActionComplete:
		resp = s.complete(ctx, req)
	default:
		resp = clickError(req, clickErrorActionNotFound, fmt.Sprintf("action %d not supported", req.Action))
	}

	outcome := "ok"
	if resp.Error != clickErrorNone {
		outcome = "error"
	}
	s.checkoutMx.IncWebhook("click", outcome)
	return resp
}

func (s *ClickWebhookService) prepare(ctx context.Context, req ClickRequest) ClickResponse {
	order, errResp := s.loadOrder(ctx, req)
	if errResp != nil {
		return *errResp
	}
	if order.PaymentStatus == enums.PaymentStatusPaid {
		return clickError(req, clickErrorAlreadyPaid, "order already paid")
	}

	amount, err := decimal.NewFromString(strings.TrimSpace(req.Amount))
	if err != nil || !amount.Equal(order.Total) {
		return clickError(req, clickErrorInvalidAmount, "incorrect amount")
	}

	providerTxID := strconv.FormatInt(req.ClickTransID, 10)
	existing, err := s.txRepo.FindByProviderTx(ctx, enums.PaymentMethodClick, providerTxID)
	if err != nil {
		return clickError(req, clickErrorTxNotFound, "transaction lookup failed")
	}
	if existing == nil {
		txn := &models.PaymentTransaction{
			ID:           uuid.New(),
			OrderID:      order.ID,
			Provider:     enums.PaymentMethodClick,
			ProviderTxID: providerTxID,
			Amount:       amount,
			State:        models.TxStateCreated,
		}
		if err := s.txRepo.Create(ctx, txn); err != nil {
			return clickError(req, clickErrorTxNotFound, "transaction not registered")
		}
	}

	return ClickResponse{
		ClickTransID:      req.ClickTransID,
		MerchantTransID:   req.MerchantTransID,
		MerchantPrepareID: s.now().Unix(),
		Error:             clickErrorNone,
		ErrorNote:         "Success",
	}
}

func (s *ClickWebhookService) complete(ctx context.Context, req ClickRequest) ClickResponse {
	order, errResp := s.loadOrder(ctx, req)
	if errResp != nil {
		return *errResp
	}

	providerTxID := strconv.FormatInt(req.ClickTransID, 10)
	txn, err := s.txRepo.FindByProviderTx(ctx, enums.PaymentMethodClick, providerTxID)
	if err != nil || txn == nil {
		return clickError(req, clickErrorTxNotFound, "transaction does not exist")
	}

	// Click reports its own failure through the error field; the payment is
	// then cancelled on our side too.
	if req.Error != 0 {
		now := s.now()
		txn.State = models.TxStateCancelled
		txn.CancelledAt = &now
		reason := req.Error
		txn.Reason = &reason
		if err := s.txRepo.Update(ctx, txn); err != nil {
			return clickError(req, clickErrorTxNotFound, "transaction update failed")
		}
		return clickError(req, req.Error, "payment cancelled by click")
	}

	if txn.State != models.TxStatePerformed {
		err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			now := s.now()
			txn.State = models.TxStatePerformed
			txn.PerformedAt = &now
			if err := s.txRepo.WithTx(tx).Update(ctx, txn); err != nil {
				return err
			}
			return s.ordersRepo.WithTx(tx).UpdatePaymentStatus(ctx, order.ID, enums.PaymentStatusPaid)
		})
		if err != nil {
			return clickError(req, clickErrorTxNotFound, "payment settlement failed")
		}
	}

	return ClickResponse{
		ClickTransID:      req.ClickTransID,
		MerchantTransID:   req.MerchantTransID,
		MerchantConfirmID: s.now().Unix(),
		Error:             clickErrorNone,
		ErrorNote:         "Success",
	}
}

func (s *ClickWebhookService) loadOrder(ctx context.Context, req ClickRequest) (*models.Order, *ClickResponse) {
	orderID, err := uuid.Parse(strings.TrimSpace(req.MerchantTransID))
	if err != nil {
		resp := clickError(req, clickErrorOrderNotFound, "order not found")
		return nil, &resp
	}
	order, err := s.ordersRepo.GetByID(ctx, orderID)
	if err != nil {
		resp := clickError(req, clickErrorOrderNotFound, "order not found")
		return nil, &resp
	}
	return order, nil
}

func clickError(req ClickRequest, code int, note string) ClickResponse {
	return ClickResponse{
		ClickTransID:    req.ClickTransID,
		MerchantTransID: req.MerchantTransID,
		Error:           code,
		ErrorNote:       note,
	}
}
