package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/polkiloo/quickcart/internal/adapter/pakasir"
	domainErrors "github.com/polkiloo/quickcart/internal/domain/errors"
	"github.com/polkiloo/quickcart/internal/domain/model"
	"github.com/polkiloo/quickcart/internal/domain/repository"
)

// CheckoutLine requests a quantity of one product.
type CheckoutLine struct {
	ProductID int64
	Quantity  int
	Reseller  bool
}

// CheckoutRequest describes one checkout attempt.
type CheckoutRequest struct {
	UserID        int64
	Lines         []CheckoutLine
	PaymentMethod model.PaymentMethod
	SourceAddr    string
}

// CheckoutResult carries the created order plus, for the gateway path, the
// payment intent to render to the buyer.
type CheckoutResult struct {
	Order       *model.Order
	CheckoutURL string
	QRISPayload string
	ExpiresAt   time.Time
}

// Velocity limits backing the checkout guard rails.
const (
	orderBurstWindow  = time.Hour
	orderBurstLimit   = 10
	failedOrderWindow = 24 * time.Hour
	failedOrderLimit  = 5
)

// CheckoutUseCase creates orders with their stock reservation and initiates
// settlement.
type CheckoutUseCase struct {
	orders   repository.OrderRepository
	products repository.ProductRepository
	gateway  pakasir.Client
	audit    repository.AuditRepository
	logger   *slog.Logger

	feeBasisPoints int64
	feeFixed       int64
}

// NewCheckoutUseCase constructs CheckoutUseCase.
func NewCheckoutUseCase(
	orders repository.OrderRepository,
	products repository.ProductRepository,
	gateway pakasir.Client,
	audit repository.AuditRepository,
	logger *slog.Logger,
	feeBasisPoints, feeFixed int64,
) *CheckoutUseCase {
	return &CheckoutUseCase{
		orders:         orders,
		products:       products,
		gateway:        gateway,
		audit:          audit,
		logger:         logger,
		feeBasisPoints: feeBasisPoints,
		feeFixed:       feeFixed,
	}
}

// Checkout runs the full checkout flow. Stock reservation and order creation
// commit in one transaction; the payment intent is created afterwards and a
// gateway failure rolls the order back by cancelling it.
func (u *CheckoutUseCase) Checkout(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error) {
	if len(req.Lines) == 0 {
		return nil, domainErrors.ErrInvalidAmount
	}
	for _, line := range req.Lines {
		if line.Quantity <= 0 {
			return nil, domainErrors.ErrInvalidAmount
		}
	}

	if err := u.guardRails(ctx, req.UserID); err != nil {
		return nil, err
	}

	draft, err := u.buildDraft(ctx, req)
	if err != nil {
		return nil, err
	}

	if req.PaymentMethod == model.PaymentMethodBalance {
		return u.checkoutWithBalance(ctx, req, draft)
	}
	return u.checkoutWithGateway(ctx, req, draft)
}

// guardRails applies per-user velocity limits. The counters are a fraud
// signal, not an invariant: a failed count read does not block checkout.
func (u *CheckoutUseCase) guardRails(ctx context.Context, userID int64) error {
	now := time.Now().UTC()

	if n, err := u.orders.CountOrdersSince(ctx, userID, now.Add(-orderBurstWindow)); err != nil {
		u.logger.Warn("order velocity check failed", slog.Int64("user", userID), slog.String("error", err.Error()))
	} else if n >= orderBurstLimit {
		u.logger.Warn("order velocity limit hit", slog.Int64("user", userID), slog.Int("orders", n))
		return domainErrors.ErrTooManyAttempts
	}

	if n, err := u.orders.CountFailedSince(ctx, userID, now.Add(-failedOrderWindow)); err != nil {
		u.logger.Warn("failed-order check failed", slog.Int64("user", userID), slog.String("error", err.Error()))
	} else if n >= failedOrderLimit {
		u.logger.Warn("failed-order limit hit", slog.Int64("user", userID), slog.Int("failed", n))
		return domainErrors.ErrTooManyAttempts
	}

	return nil
}

func (u *CheckoutUseCase) buildDraft(ctx context.Context, req CheckoutRequest) (model.OrderDraft, error) {
	draft := model.OrderDraft{
		InvoiceID:     NewInvoiceID(req.UserID),
		UserID:        req.UserID,
		PaymentMethod: req.PaymentMethod,
	}

	for _, line := range req.Lines {
		product, err := u.products.GetByID(ctx, line.ProductID)
		if err != nil {
			return model.OrderDraft{}, fmt.Errorf("resolve product %d: %w", line.ProductID, err)
		}
		if !product.Active {
			return model.OrderDraft{}, fmt.Errorf("product %d inactive: %w", line.ProductID, domainErrors.ErrNotFound)
		}
		price := product.PriceStandard
		if line.Reseller {
			price = product.PriceReseller
		}
		draft.Subtotal += price * int64(line.Quantity)
		draft.Lines = append(draft.Lines, model.DraftLine{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			UnitPrice: price,
		})
	}

	if req.PaymentMethod == model.PaymentMethodGateway {
		draft.Fee = CalculateFee(draft.Subtotal, u.feeBasisPoints, u.feeFixed)
	}
	draft.Total = draft.Subtotal - draft.Discount + draft.Fee
	return draft, nil
}

func (u *CheckoutUseCase) checkoutWithBalance(ctx context.Context, req CheckoutRequest, draft model.OrderDraft) (*CheckoutResult, error) {
	order, err := u.orders.CreateSettledWithBalance(ctx, draft)
	if err != nil {
		return nil, err
	}

	// Balance settlement moves money: a lost audit record here is a
	// compliance incident, not a log line.
	if err := u.auditOrderCreated(ctx, order, req.SourceAddr); err != nil {
		return nil, err
	}
	if err := u.audit.RecordPayment(ctx, model.PaymentAuditEntry{
		OrderInvoiceID: order.InvoiceID,
		UserID:         order.UserID,
		Amount:         fmt.Sprintf("%d", order.Total),
		PaymentMethod:  string(model.PaymentMethodBalance),
		Status:         string(model.OrderStatusPaid),
	}); err != nil {
		u.logger.Error("payment audit write failed", slog.String("invoice", order.InvoiceID), slog.String("error", err.Error()))
		return nil, fmt.Errorf("%w: %v", domainErrors.ErrAuditWriteFailed, err)
	}

	return &CheckoutResult{Order: order}, nil
}

func (u *CheckoutUseCase) checkoutWithGateway(ctx context.Context, req CheckoutRequest, draft model.OrderDraft) (*CheckoutResult, error) {
	order, err := u.orders.Create(ctx, draft)
	if err != nil {
		return nil, err
	}

	intent, err := u.gateway.CreatePayment(ctx, order.InvoiceID, order.Total)
	if err != nil {
		// The order must not stay pending for a payment the gateway never
		// received; cancelling releases the reservation.
		if _, cancelErr := u.orders.MarkCancelled(ctx, order.ID); cancelErr != nil && !errors.Is(cancelErr, domainErrors.ErrInvalidTransition) {
			u.logger.Error("rollback after gateway failure", slog.String("invoice", order.InvoiceID), slog.String("error", cancelErr.Error()))
		}
		return nil, err
	}

	if err := u.auditOrderCreated(ctx, order, req.SourceAddr); err != nil {
		return nil, err
	}

	return &CheckoutResult{
		Order:       order,
		CheckoutURL: u.gateway.CheckoutURL(order.InvoiceID, order.Total),
		QRISPayload: intent.QRISPayload,
		ExpiresAt:   intent.ExpiresAt,
	}, nil
}

func (u *CheckoutUseCase) auditOrderCreated(ctx context.Context, order *model.Order, sourceAddr string) error {
	after, err := json.Marshal(order)
	if err != nil {
		return err
	}
	entry := model.AuditEntry{
		ActorID:    &order.UserID,
		ActorType:  model.ActorTypeUser,
		EntityType: "order",
		EntityID:   order.InvoiceID,
		Action:     model.AuditActionCreate,
		AfterState: after,
		Context:    map[string]any{"payment_method": string(order.PaymentMethod), "total": order.Total},
		SourceAddr: sourceAddr,
	}
	if err := u.audit.Record(ctx, entry); err != nil {
		u.logger.Error("audit write failed", slog.String("invoice", order.InvoiceID), slog.String("error", err.Error()))
		return fmt.Errorf("%w: %v", domainErrors.ErrAuditWriteFailed, err)
	}
	return nil
}
