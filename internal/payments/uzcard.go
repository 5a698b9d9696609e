package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
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

const uzcardBodyReadLimit int64 = 1024

// UzcardGateway registers payments over the processor's REST API and hands
// the customer the returned hosted-payment URL. The same processor serves
// both the Uzcard and Humo card networks.
type UzcardGateway struct {
	httpClient *http.Client
	cfg        config.UzcardConfig
}

// UzcardOption configures optional gateway behavior.
type UzcardOption func(*UzcardGateway)

// WithUzcardHTTPClient overrides the default HTTP client.
func WithUzcardHTTPClient(client *http.Client) UzcardOption {
	return func(g *UzcardGateway) {
		if client != nil {
			g.httpClient = client
		}
	}
}

func NewUzcardGateway(cfg config.UzcardConfig, opts ...UzcardOption) (*UzcardGateway, error) {
	if strings.TrimSpace(cfg.TerminalID) == "" || strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("uzcard terminal id and api key are required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	gateway := &UzcardGateway{
		httpClient: &http.Client{Timeout: timeout},
		cfg:        cfg,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(gateway)
		}
	}
	return gateway, nil
}

type uzcardRegisterRequest struct {
	TerminalID  string `json:"terminal_id"`
	Amount      int64  `json:"amount"`
	OrderID     string `json:"order_id"`
	ReturnURL   string `json:"return_url,omitempty"`
	Description string `json:"description,omitempty"`
	Language    string `json:"language"`
	Currency    string `json:"currency"`
}

type uzcardRegisterResponse struct {
	Success       bool   `json:"success"`
	PaymentURL    string `json:"payment_url"`
	TransactionID string `json:"transaction_id"`
	Message       string `json:"message"`
}

func (g *UzcardGateway) Initiate(ctx context.Context, intent Intent) (*Initiation, error) {
	if intent.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	if intent.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}

	description := intent.Description
	if description == "" {
		description = fmt.Sprintf("%s buyurtma %s", g.cfg.MerchantName, intent.OrderID)
	}

	payload, err := json.Marshal(uzcardRegisterRequest{
		TerminalID:  g.cfg.TerminalID,
		Amount:      toTiyin(intent.Amount),
		OrderID:     intent.OrderID.String(),
		ReturnURL:   g.cfg.ReturnURL,
		Description: description,
		Language:    enums.ParseLanguage(intent.Language.String()).String(),
		Currency:    "UZS",
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal register request")
	}

	url := strings.TrimRight(g.cfg.APIURL, "/") + "/register"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build register request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+g.cfg.APIKey)

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeGateway, err, "execute register request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, uzcardBodyReadLimit))
		return nil, pkgerrors.Wrap(pkgerrors.CodeGateway,
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))),
			"payment registration failed")
	}

	var apiResp uzcardRegisterResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeGateway, err, "decode register response")
	}
	if !apiResp.Success {
		// The processor's message goes back to the caller untouched.
		return nil, pkgerrors.New(pkgerrors.CodeGateway, apiResp.Message)
	}
	if apiResp.PaymentURL == "" {
		return nil, pkgerrors.New(pkgerrors.CodeGateway, "register response missing payment url")
	}

	return &Initiation{
		Provider:      enums.PaymentMethodUzcard,
		RedirectURL:   apiResp.PaymentURL,
		TransactionID: apiResp.TransactionID,
	}, nil
}

// UzcardWebhook is the status callback the processor posts after the
// customer finishes (or abandons) the hosted payment page.
type UzcardWebhook struct {
	TransactionID string `json:"transaction_id"`
	OrderID       string `json:"order_id"`
	Status        string `json:"status"`
	Amount        int64  `json:"amount"`
}

// UzcardWebhookService settles orders from the processor's status callbacks.
type UzcardWebhookService struct {
	tx         txRunner
	ordersRepo orders.OrderRepository
	txRepo     TransactionRepository
	checkoutMx *metrics.CheckoutMetrics
	now        func() time.Time
}

func NewUzcardWebhookService(tx txRunner, ordersRepo orders.OrderRepository, txRepo TransactionRepository, checkoutMx *metrics.CheckoutMetrics) (*UzcardWebhookService, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if txRepo == nil {
		return nil, fmt.Errorf("transaction repository required")
	}
	return &UzcardWebhookService{
		tx:         tx,
		ordersRepo: ordersRepo,
		txRepo:     txRepo,
		checkoutMx: checkoutMx,
		now:        time.Now,
	}, nil
}

// Handle records the callback. "success" marks the order paid; any other
// status cancels the transaction and leaves the order unpaid.
func (s *UzcardWebhookService) Handle(ctx context.Context, event UzcardWebhook) error {
	if err := s.handle(ctx, event); err != nil {
		s.checkoutMx.IncWebhook("uzcard", "error")
		return err
	}
	s.checkoutMx.IncWebhook("uzcard", "ok")
	return nil
}

func (s *UzcardWebhookService) handle(ctx context.Context, event UzcardWebhook) error {
	orderID, err := uuid.Parse(strings.TrimSpace(event.OrderID))
	if err != nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id missing from callback")
	}
	if strings.TrimSpace(event.TransactionID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "transaction id missing from callback")
	}

	order, err := s.ordersRepo.GetByID(ctx, orderID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "order not found")
	}

	succeeded := strings.EqualFold(strings.TrimSpace(event.Status), "success")

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.txRepo.WithTx(tx)
		txn, err := txRepo.FindByProviderTx(ctx, enums.PaymentMethodUzcard, event.TransactionID)
		if err != nil {
			return err
		}
		now := s.now()
		if txn == nil {
			txn = &models.PaymentTransaction{
				ID:           uuid.New(),
				OrderID:      order.ID,
				Provider:     enums.PaymentMethodUzcard,
				ProviderTxID: event.TransactionID,
				Amount:       order.Total,
				State:        models.TxStateCreated,
			}
			if err := txRepo.Create(ctx, txn); err != nil {
				return err
			}
		}

		if succeeded {
			txn.State = models.TxStatePerformed
			txn.PerformedAt = &now
		} else {
			txn.State = models.TxStateCancelled
			txn.CancelledAt = &now
		}
		if err := txRepo.Update(ctx, txn); err != nil {
			return err
		}

		if succeeded {
			return s.ordersRepo.WithTx(tx).UpdatePaymentStatus(ctx, order.ID, enums.PaymentStatusPaid)
		}
		return nil
	})
}
