package payments

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
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

// Payme transaction states as reported over the merchant RPC.
const (
	paymeStateCreated   = 1
	paymeStatePerformed = 2
	paymeStateCancelled = -1
)

// Payme merchant API error codes.
const (
	paymeErrMethodNotFound = -32601
	paymeErrParse          = -32700
	paymeErrWrongAmount    = -31001
	paymeErrTxNotFound     = -31003
	paymeErrCannotPerform  = -31008
	paymeErrOrderNotFound  = -31050
)

// PaymeGateway builds the hosted-checkout redirect for Payme. The intent is
// serialized as JSON and base64-encoded into the URL path.
type PaymeGateway struct {
	cfg config.PaymeConfig
}

func NewPaymeGateway(cfg config.PaymeConfig) (*PaymeGateway, error) {
	if strings.TrimSpace(cfg.MerchantID) == "" {
		return nil, fmt.Errorf("payme merchant id is required")
	}
	return &PaymeGateway{cfg: cfg}, nil
}

func (g *PaymeGateway) Initiate(ctx context.Context, intent Intent) (*Initiation, error) {
	if intent.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	if intent.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}

	lang := enums.ParseLanguage(intent.Language.String())

	params := map[string]any{
		"m":  g.cfg.MerchantID,
		"ac": map[string]string{"order_id": intent.OrderID.String()},
		"a":  toTiyin(intent.Amount),
		"l":  lang.String(),
	}
	if g.cfg.ReturnURL != "" {
		params["c"] = g.cfg.ReturnURL
	}

	payload, err := json.Marshal(params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode payme params")
	}
	token := base64.StdEncoding.EncodeToString(payload)

	return &Initiation{
		Provider:    enums.PaymentMethodPayme,
		RedirectURL: strings.TrimRight(g.cfg.BaseURL(), "/") + "/" + token,
	}, nil
}

// PaymeRequest is one JSON-RPC call from the Payme merchant API.
type PaymeRequest struct {
	ID     any             `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
}

// PaymeResponse is the JSON-RPC envelope sent back. Result and Error are
// mutually exclusive.
type PaymeResponse struct {
	ID     any         `json:"id"`
	Result any         `json:"result,omitempty"`
	Error  *PaymeError `json:"error,omitempty"`
}

type PaymeError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type paymeAccount struct {
	OrderID string `json:"order_id"`
}

type paymeParams struct {
	ID      string       `json:"id"`
	Time    int64        `json:"time"`
	Amount  int64        `json:"amount"`
	Account paymeAccount `json:"account"`
	Reason  *int         `json:"reason"`
}

// PaymeWebhookService implements the merchant side of Payme's JSON-RPC
// transaction protocol.
type PaymeWebhookService struct {
	tx         txRunner
	ordersRepo orders.OrderRepository
	txRepo     TransactionRepository
	checkoutMx *metrics.CheckoutMetrics
	now        func() time.Time
}

func NewPaymeWebhookService(tx txRunner, ordersRepo orders.OrderRepository, txRepo TransactionRepository, checkoutMx *metrics.CheckoutMetrics) (*PaymeWebhookService, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if txRepo == nil {
		return nil, fmt.Errorf("transaction repository required")
	}
	return &PaymeWebhookService{
		tx:         tx,
		ordersRepo: ordersRepo,
		txRepo:     txRepo,
		checkoutMx: checkoutMx,
		now:        time.Now,
	}, nil
}

// Handle dispatches one RPC call. Unknown methods answer with -32601 as the
// protocol requires; the envelope always echoes the request id.
func (s *PaymeWebhookService) Handle(ctx context.Context, req PaymeRequest) PaymeResponse {
	var params paymeParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			s.checkoutMx.IncWebhook("payme", "error")
			return paymeFail(req.ID, paymeErrParse, "Parse error")
		}
	}

	var resp PaymeResponse
	switch req.Method {
	case "CheckPerformTransaction":
		resp = s.checkPerform(ctx, req.ID, params)
	case "CreateTransaction":
		resp = s.create(ctx, req.ID, params)
	case "PerformTransaction":
		resp = s.perform(ctx, req.ID, params)
	case "CancelTransaction":
		resp = s.cancel(ctx, req.ID, params)
	case "CheckTransaction":
		resp = s.check(ctx, req.ID, params)
	default:
		resp = paymeFail(req.ID, paymeErrMethodNotFound, "Method not found")
	}

	outcome := "ok"
	if resp.Error != nil {
		outcome = "error"
	}
	s.checkoutMx.IncWebhook("payme", outcome)
	return resp
}

func (s *PaymeWebhookService) checkPerform(ctx context.Context, id any, params paymeParams) PaymeResponse {
	order, fail := s.loadOrder(ctx, id, params.Account.OrderID)
	if fail != nil {
		return *fail
	}
	if params.Amount != toTiyin(order.Total) {
		return paymeFail(id, paymeErrWrongAmount, "Incorrect amount")
	}
	if order.PaymentStatus == enums.PaymentStatusPaid {
		return paymeFail(id, paymeErrCannotPerform, "Order already paid")
	}
	return PaymeResponse{ID: id, Result: map[string]any{"allow": true}}
}

func (s *PaymeWebhookService) create(ctx context.Context, id any, params paymeParams) PaymeResponse {
	existing, err := s.txRepo.FindByProviderTx(ctx, enums.PaymentMethodPayme, params.ID)
	if err != nil {
		return paymeFail(id, paymeErrCannotPerform, "Transaction lookup failed")
	}
	if existing != nil {
		if existing.State != models.TxStateCreated {
			return paymeFail(id, paymeErrCannotPerform, "Transaction already settled")
		}
		return PaymeResponse{ID: id, Result: map[string]any{
			"create_time": existing.CreatedAt.UnixMilli(),
			"transaction": existing.ID.String(),
			"state":       paymeStateCreated,
		}}
	}

	order, fail := s.loadOrder(ctx, id, params.Account.OrderID)
	if fail != nil {
		return *fail
	}
	if params.Amount != toTiyin(order.Total) {
		return paymeFail(id, paymeErrWrongAmount, "Incorrect amount")
	}

	txn := &models.PaymentTransaction{
		ID:           uuid.New(),
		OrderID:      order.ID,
		Provider:     enums.PaymentMethodPayme,
		ProviderTxID: params.ID,
		Amount:       order.Total,
		State:        models.TxStateCreated,
		CreatedAt:    s.now(),
	}
	if err := s.txRepo.Create(ctx, txn); err != nil {
		return paymeFail(id, paymeErrCannotPerform, "Transaction not registered")
	}

	return PaymeResponse{ID: id, Result: map[string]any{
		"create_time": txn.CreatedAt.UnixMilli(),
		"transaction": txn.ID.String(),
		"state":       paymeStateCreated,
	}}
}

func (s *PaymeWebhookService) perform(ctx context.Context, id any, params paymeParams) PaymeResponse {
	txn, err := s.txRepo.FindByProviderTx(ctx, enums.PaymentMethodPayme, params.ID)
	if err != nil || txn == nil {
		return paymeFail(id, paymeErrTxNotFound, "Transaction not found")
	}

	switch txn.State {
	case models.TxStatePerformed:
		// Idempotent replay.
	case models.TxStateCancelled:
		return paymeFail(id, paymeErrCannotPerform, "Transaction cancelled")
	default:
		err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			now := s.now()
			txn.State = models.TxStatePerformed
			txn.PerformedAt = &now
			if err := s.txRepo.WithTx(tx).Update(ctx, txn); err != nil {
				return err
			}
			return s.ordersRepo.WithTx(tx).UpdatePaymentStatus(ctx, txn.OrderID, enums.PaymentStatusPaid)
		})
		if err != nil {
			return paymeFail(id, paymeErrCannotPerform, "Settlement failed")
		}
	}

	performTime := s.now().UnixMilli()
	if txn.PerformedAt != nil {
		performTime = txn.PerformedAt.UnixMilli()
	}
	return PaymeResponse{ID: id, Result: map[string]any{
		"perform_time": performTime,
		"transaction":  txn.ID.String(),
		"state":        paymeStatePerformed,
	}}
}

func (s *PaymeWebhookService) cancel(ctx context.Context, id any, params paymeParams) PaymeResponse {
	txn, err := s.txRepo.FindByProviderTx(ctx, enums.PaymentMethodPayme, params.ID)
	if err != nil || txn == nil {
		return paymeFail(id, paymeErrTxNotFound, "Transaction not found")
	}

	if txn.State != models.TxStateCancelled {
		err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			now := s.now()
			txn.State = models.TxStateCancelled
			txn.CancelledAt = &now
			txn.Reason = params.Reason
			if err := s.txRepo.WithTx(tx).Update(ctx, txn); err != nil {
				return err
			}
			return s.ordersRepo.WithTx(tx).UpdatePaymentStatus(ctx, txn.OrderID, enums.PaymentStatusUnpaid)
		})
		if err != nil {
			return paymeFail(id, paymeErrCannotPerform, "Cancellation failed")
		}
	}

	cancelTime := s.now().UnixMilli()
	if txn.CancelledAt != nil {
		cancelTime = txn.CancelledAt.UnixMilli()
	}
	return PaymeResponse{ID: id, Result: map[string]any{
		"cancel_time": cancelTime,
		"transaction": txn.ID.String(),
		"state":       paymeStateCancelled,
	}}
}

func (s *PaymeWebhookService) check(ctx context.Context, id any, params paymeParams) PaymeResponse {
	txn, err := s.txRepo.FindByProviderTx(ctx, enums.PaymentMethodPayme, params.ID)
	if err != nil || txn == nil {
		return paymeFail(id, paymeErrTxNotFound, "Transaction not found")
	}

	result := map[string]any{
		"create_time":  txn.CreatedAt.UnixMilli(),
		"perform_time": int64(0),
		"cancel_time":  int64(0),
		"transaction":  txn.ID.String(),
		"state":        paymeState(txn),
		"reason":       txn.Reason,
	}
	if txn.PerformedAt != nil {
		result["perform_time"] = txn.PerformedAt.UnixMilli()
	}
	if txn.CancelledAt != nil {
		result["cancel_time"] = txn.CancelledAt.UnixMilli()
	}
	return PaymeResponse{ID: id, Result: result}
}

func (s *PaymeWebhookService) loadOrder(ctx context.Context, id any, rawOrderID string) (*models.Order, *PaymeResponse) {
	orderID, err := uuid.Parse(strings.TrimSpace(rawOrderID))
	if err != nil {
		fail := paymeFail(id, paymeErrOrderNotFound, "Order not found")
		return nil, &fail
	}
	order, err := s.ordersRepo.GetByID(ctx, orderID)
	if err != nil {
		fail := paymeFail(id, paymeErrOrderNotFound, "Order not found")
		return nil, &fail
	}
	return order, nil
}

func paymeState(txn *models.PaymentTransaction) int {
	switch txn.State {
	case models.TxStatePerformed:
		return paymeStatePerformed
	case models.TxStateCancelled:
		return paymeStateCancelled
	default:
		return paymeStateCreated
	}
}

func paymeFail(id any, code int, message string) PaymeResponse {
	return PaymeResponse{ID: id, Error: &PaymeError{Code: code, Message: message}}
}
