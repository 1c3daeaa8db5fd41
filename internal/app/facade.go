package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/polkiloo/quickcart/internal/adapter/pakasir"
	"github.com/polkiloo/quickcart/internal/adapter/session"
	domainErrors "github.com/polkiloo/quickcart/internal/domain/errors"
	"github.com/polkiloo/quickcart/internal/domain/model"
	"github.com/polkiloo/quickcart/internal/usecase"
)

// HealthChecker is implemented by stores that can report their availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// StoreFacade aggregates the use cases behind the HTTP handlers and the
// expiry sweeper.
type StoreFacade struct {
	checkout   *usecase.CheckoutUseCase
	settlement *usecase.SettlementUseCase
	orders     *usecase.OrderUseCase
	balance    *usecase.BalanceUseCase
	sessions   *session.Store
	db         HealthChecker
	audit      HealthChecker
	logger     *slog.Logger
}

// NewStoreFacade constructs StoreFacade.
func NewStoreFacade(
	checkout *usecase.CheckoutUseCase,
	settlement *usecase.SettlementUseCase,
	orders *usecase.OrderUseCase,
	balance *usecase.BalanceUseCase,
	sessions *session.Store,
	db HealthChecker,
	audit HealthChecker,
	logger *slog.Logger,
) *StoreFacade {
	return &StoreFacade{
		checkout:   checkout,
		settlement: settlement,
		orders:     orders,
		balance:    balance,
		sessions:   sessions,
		db:         db,
		audit:      audit,
		logger:     logger,
	}
}

func (f *StoreFacade) Checkout(ctx context.Context, req usecase.CheckoutRequest) (*usecase.CheckoutResult, error) {
	return f.checkout.Checkout(ctx, req)
}

// OrderStatus reads order state, polling the gateway for pending orders as a
// webhook fallback. Terminal answers come from the cache when present; the
// cache is a convenience only, a miss always falls through to the ledger.
func (f *StoreFacade) OrderStatus(ctx context.Context, invoiceID string) (*model.Order, error) {
	if data, err := f.sessions.OrderStatus(ctx, invoiceID); err == nil {
		var cached model.Order
		if json.Unmarshal(data, &cached) == nil && cached.Status.Terminal() {
			return &cached, nil
		}
	}

	order, err := f.settlement.PollStatus(ctx, invoiceID)
	if err != nil {
		if errors.Is(err, pakasir.ErrTransient) || errors.Is(err, domainErrors.ErrGatewayUnavailable) {
			// The gateway being down degrades the poll fallback, not reads.
			f.logger.Warn("status poll degraded to ledger read", slog.String("invoice", invoiceID), slog.String("error", err.Error()))
			return f.orders.GetByInvoiceID(ctx, invoiceID)
		}
		return nil, err
	}

	f.cacheIfTerminal(ctx, order)
	return order, nil
}

func (f *StoreFacade) CancelOrder(ctx context.Context, actor model.Actor, invoiceID, sourceAddr string) (*model.Order, error) {
	order, err := f.orders.Cancel(ctx, actor, invoiceID, sourceAddr)
	if err != nil {
		return nil, err
	}
	f.dropCached(ctx, invoiceID)
	return order, nil
}

func (f *StoreFacade) OrderHistory(ctx context.Context, userID int64, limit, offset int) ([]model.Order, error) {
	return f.orders.History(ctx, userID, limit, offset)
}

func (f *StoreFacade) HandleWebhook(ctx context.Context, body []byte, signature, sourceAddr string) error {
	if err := f.settlement.ProcessWebhook(ctx, body, signature, sourceAddr); err != nil {
		return err
	}

	var event usecase.WebhookEvent
	if json.Unmarshal(body, &event) == nil && event.OrderID != "" {
		f.dropCached(ctx, event.OrderID)
	}
	return nil
}

func (f *StoreFacade) Balance(ctx context.Context, userID int64) (*model.BalanceSummary, error) {
	summary, err := f.balance.Summary(ctx, userID)
	if err != nil {
		if errors.Is(err, domainErrors.ErrNotFound) {
			return &model.BalanceSummary{}, nil
		}
		return nil, err
	}
	return summary, nil
}

func (f *StoreFacade) AdjustBalance(ctx context.Context, actor model.Actor, userID, delta int64, reason, sourceAddr string) (*model.BalanceSummary, error) {
	return f.balance.Adjust(ctx, actor, userID, delta, reason, sourceAddr)
}

func (f *StoreFacade) ExpiryCandidates(ctx context.Context, cutoff time.Time, limit int) ([]model.Order, error) {
	return f.orders.ExpiryCandidates(ctx, cutoff, limit)
}

func (f *StoreFacade) ExpireOrder(ctx context.Context, order model.Order) error {
	if err := f.orders.ExpireOrder(ctx, order); err != nil {
		return err
	}
	f.dropCached(ctx, order.InvoiceID)
	return nil
}

func (f *StoreFacade) Health(ctx context.Context) error {
	if err := f.db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := f.audit.HealthCheck(ctx); err != nil {
		return fmt.Errorf("audit storage: %w", err)
	}
	if err := f.sessions.HealthCheck(ctx); err != nil {
		return fmt.Errorf("session cache: %w", err)
	}
	return nil
}

func (f *StoreFacade) cacheIfTerminal(ctx context.Context, order *model.Order) {
	if !order.Status.Terminal() {
		return
	}
	data, err := json.Marshal(order)
	if err != nil {
		return
	}
	if err := f.sessions.SetOrderStatus(ctx, order.InvoiceID, data); err != nil {
		f.logger.Warn("status cache write failed", slog.String("invoice", order.InvoiceID), slog.String("error", err.Error()))
	}
}

func (f *StoreFacade) dropCached(ctx context.Context, invoiceID string) {
	if err := f.sessions.DropOrderStatus(ctx, invoiceID); err != nil {
		f.logger.Warn("status cache invalidation failed", slog.String("invoice", invoiceID), slog.String("error", err.Error()))
	}
}
