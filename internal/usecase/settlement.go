package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/polkiloo/quickcart/internal/adapter/pakasir"
	domainErrors "github.com/polkiloo/quickcart/internal/domain/errors"
	"github.com/polkiloo/quickcart/internal/domain/model"
	"github.com/polkiloo/quickcart/internal/domain/repository"
	"github.com/polkiloo/quickcart/internal/notify"
	"github.com/polkiloo/quickcart/internal/pkg/signature"
)

// WebhookEvent is the payment notification payload delivered by the gateway.
type WebhookEvent struct {
	OrderID       string         `json:"order_id"`
	Amount        int64          `json:"amount"`
	Status        string         `json:"status"`
	PaymentMethod string         `json:"payment_method"`
	CompletedAt   *time.Time     `json:"completed_at"`
	Metadata      map[string]any `json:"metadata"`
}

// SettlementUseCase drives order settlement from webhook notifications and
// the synchronous status-poll fallback. Webhook delivery is at-least-once
// and unordered, so every path here must be idempotent: fulfilment fires
// only when the ledger transition actually changed state.
type SettlementUseCase struct {
	orders    repository.OrderRepository
	stock     repository.StockRepository
	gateway   pakasir.Client
	audit     repository.AuditRepository
	notifier  notify.Notifier
	validator *signature.Validator
	logger    *slog.Logger
}

// NewSettlementUseCase constructs SettlementUseCase.
func NewSettlementUseCase(
	orders repository.OrderRepository,
	stock repository.StockRepository,
	gateway pakasir.Client,
	audit repository.AuditRepository,
	notifier notify.Notifier,
	validator *signature.Validator,
	logger *slog.Logger,
) *SettlementUseCase {
	return &SettlementUseCase{
		orders:    orders,
		stock:     stock,
		gateway:   gateway,
		audit:     audit,
		notifier:  notifier,
		validator: validator,
		logger:    logger,
	}
}

// ProcessWebhook validates and applies one inbound payment notification.
// The raw body is needed for signature verification, which must happen
// before anything else touches state.
func (u *SettlementUseCase) ProcessWebhook(ctx context.Context, rawBody []byte, providedSignature, sourceAddr string) error {
	if u.validator.Configured() {
		if providedSignature == "" || !u.validator.Valid(rawBody, providedSignature) {
			u.logger.Warn("webhook signature rejected", slog.String("source", sourceAddr))
			return domainErrors.ErrInvalidSignature
		}
	}

	var event WebhookEvent
	if err := json.Unmarshal(rawBody, &event); err != nil {
		return fmt.Errorf("%w: %v", domainErrors.ErrMalformedPayload, err)
	}
	if event.OrderID == "" || event.Status == "" || event.Amount <= 0 {
		return domainErrors.ErrMalformedPayload
	}

	order, err := u.orders.GetByInvoiceID(ctx, event.OrderID)
	if err != nil {
		if errors.Is(err, domainErrors.ErrNotFound) {
			// Webhooks never create orders.
			u.logger.Warn("webhook for unknown order", slog.String("invoice", event.OrderID), slog.String("source", sourceAddr))
		}
		return err
	}

	switch event.Status {
	case pakasir.StatusCompleted:
		return u.applyCompleted(ctx, order, event, rawBody, sourceAddr)
	case pakasir.StatusExpired:
		return u.applyExpired(ctx, order, event, sourceAddr)
	case pakasir.StatusPending:
		u.logger.Info("webhook reports pending payment", slog.String("invoice", order.InvoiceID))
		return nil
	default:
		u.logger.Warn("webhook with unknown status", slog.String("invoice", order.InvoiceID), slog.String("status", event.Status))
		return nil
	}
}

func (u *SettlementUseCase) applyCompleted(ctx context.Context, order *model.Order, event WebhookEvent, rawBody []byte, sourceAddr string) error {
	paid, err := u.orders.MarkPaid(ctx, order.ID)
	if err != nil {
		if errors.Is(err, domainErrors.ErrInvalidTransition) {
			// Duplicate or late delivery; the first transition won. No
			// fulfilment may fire again.
			u.logger.Info("settlement no-op, order already terminal",
				slog.String("invoice", order.InvoiceID), slog.String("status", string(order.Status)))
			u.recordRejectedAttempt(ctx, order, "completed", sourceAddr)
			return nil
		}
		return err
	}

	if err := u.recordSettlement(ctx, paid, event, rawBody, sourceAddr); err != nil {
		return err
	}

	u.deliverPurchase(ctx, paid)
	return nil
}

func (u *SettlementUseCase) applyExpired(ctx context.Context, order *model.Order, event WebhookEvent, sourceAddr string) error {
	released, err := u.orders.MarkExpired(ctx, order.ID)
	if err != nil {
		if errors.Is(err, domainErrors.ErrInvalidTransition) {
			u.logger.Info("expiry no-op, order already terminal",
				slog.String("invoice", order.InvoiceID), slog.String("status", string(order.Status)))
			u.recordRejectedAttempt(ctx, order, "expired", sourceAddr)
			return nil
		}
		return err
	}

	u.auditTransition(ctx, order, model.OrderStatusExpired, model.AuditActionExpire, sourceAddr, map[string]any{"released_units": released})

	if err := u.notifier.NotifyUser(ctx, order.UserID, fmt.Sprintf("Order %s expired, payment was not received in time.", order.InvoiceID)); err != nil {
		u.logger.Error("expiry notification failed", slog.String("invoice", order.InvoiceID), slog.String("error", err.Error()))
	}
	return nil
}

// PollStatus is the webhook fallback: it asks the gateway directly and
// applies the answer through the same idempotent transitions.
func (u *SettlementUseCase) PollStatus(ctx context.Context, invoiceID string) (*model.Order, error) {
	order, err := u.orders.GetByInvoiceID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if order.Status != model.OrderStatusPending {
		return order, nil
	}

	result, err := u.gateway.CheckStatus(ctx, order.InvoiceID, order.Total)
	if err != nil {
		return nil, err
	}

	switch result.Status {
	case pakasir.StatusCompleted:
		paid, err := u.orders.MarkPaid(ctx, order.ID)
		if err != nil {
			if errors.Is(err, domainErrors.ErrInvalidTransition) {
				return u.orders.GetByInvoiceID(ctx, invoiceID)
			}
			return nil, err
		}
		event := WebhookEvent{OrderID: order.InvoiceID, Amount: order.Total, Status: result.Status, CompletedAt: result.CompletedAt}
		if err := u.recordSettlement(ctx, paid, event, result.RawResponse, "poll"); err != nil {
			return nil, err
		}
		u.deliverPurchase(ctx, paid)
		return paid, nil
	case pakasir.StatusExpired:
		if _, err := u.orders.MarkExpired(ctx, order.ID); err != nil && !errors.Is(err, domainErrors.ErrInvalidTransition) {
			return nil, err
		}
		return u.orders.GetByInvoiceID(ctx, invoiceID)
	default:
		return order, nil
	}
}

// recordSettlement writes the regulated payment audit trail. Settlement
// already committed: a failed write is escalated, never swallowed.
func (u *SettlementUseCase) recordSettlement(ctx context.Context, paid *model.Order, event WebhookEvent, rawResponse []byte, sourceAddr string) error {
	u.auditTransition(ctx, paid, model.OrderStatusPaid, model.AuditActionPayment, sourceAddr, map[string]any{"amount": event.Amount})

	err := u.audit.RecordPayment(ctx, model.PaymentAuditEntry{
		OrderInvoiceID:  paid.InvoiceID,
		UserID:          paid.UserID,
		Amount:          fmt.Sprintf("%d", event.Amount),
		PaymentMethod:   string(paid.PaymentMethod),
		Status:          string(model.OrderStatusPaid),
		GatewayResponse: rawResponse,
		Metadata:        event.Metadata,
	})
	if err != nil {
		u.logger.Error("payment audit write failed", slog.String("invoice", paid.InvoiceID), slog.String("error", err.Error()))
		if alertErr := u.notifier.NotifyAdmins(ctx, fmt.Sprintf("AUDIT WRITE FAILED for settled order %s: %v", paid.InvoiceID, err)); alertErr != nil {
			u.logger.Error("audit failure alert failed", slog.String("error", alertErr.Error()))
		}
		return fmt.Errorf("%w: %v", domainErrors.ErrAuditWriteFailed, err)
	}
	return nil
}

func (u *SettlementUseCase) deliverPurchase(ctx context.Context, paid *model.Order) {
	units, err := u.stock.UnitsForOrder(ctx, paid.ID)
	if err != nil {
		u.logger.Error("fulfilment content lookup failed", slog.String("invoice", paid.InvoiceID), slog.String("error", err.Error()))
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Order %s is paid. Your items:\n", paid.InvoiceID)
	for _, unit := range units {
		fmt.Fprintf(&b, "- %s\n", unit.Content)
	}

	if err := u.notifier.NotifyUser(ctx, paid.UserID, b.String()); err != nil {
		u.logger.Error("fulfilment notification failed", slog.String("invoice", paid.InvoiceID), slog.String("error", err.Error()))
	}
}

func (u *SettlementUseCase) auditTransition(ctx context.Context, order *model.Order, to model.OrderStatus, action model.AuditAction, sourceAddr string, extra map[string]any) {
	before, _ := json.Marshal(map[string]any{"status": order.Status})
	after, _ := json.Marshal(map[string]any{"status": to})
	entry := model.AuditEntry{
		ActorType:   model.ActorTypeSystem,
		EntityType:  "order",
		EntityID:    order.InvoiceID,
		Action:      action,
		BeforeState: before,
		AfterState:  after,
		Context:     extra,
		SourceAddr:  sourceAddr,
	}
	if err := u.audit.Record(ctx, entry); err != nil {
		u.logger.Error("audit write failed", slog.String("invoice", order.InvoiceID), slog.String("error", err.Error()))
	}
}

func (u *SettlementUseCase) recordRejectedAttempt(ctx context.Context, order *model.Order, attempted, sourceAddr string) {
	before, _ := json.Marshal(map[string]any{"status": order.Status})
	entry := model.AuditEntry{
		ActorType:   model.ActorTypeSystem,
		EntityType:  "order",
		EntityID:    order.InvoiceID,
		Action:      model.AuditActionRejected,
		BeforeState: before,
		Context:     map[string]any{"attempted_status": attempted},
		SourceAddr:  sourceAddr,
	}
	if err := u.audit.Record(ctx, entry); err != nil {
		u.logger.Error("audit write failed", slog.String("invoice", order.InvoiceID), slog.String("error", err.Error()))
	}
}
