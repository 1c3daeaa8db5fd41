package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	domainErrors "github.com/polkiloo/quickcart/internal/domain/errors"
	"github.com/polkiloo/quickcart/internal/domain/model"
	"github.com/polkiloo/quickcart/internal/domain/repository"
	"github.com/polkiloo/quickcart/internal/notify"
	"github.com/polkiloo/quickcart/internal/pkg/auth"
)

// OrderUseCase covers order reads, cancellation and the expiry sweep hooks.
type OrderUseCase struct {
	orders     repository.OrderRepository
	audit      repository.AuditRepository
	authorizer auth.Authorizer
	notifier   notify.Notifier
	logger     *slog.Logger
}

// NewOrderUseCase constructs OrderUseCase.
func NewOrderUseCase(
	orders repository.OrderRepository,
	audit repository.AuditRepository,
	authorizer auth.Authorizer,
	notifier notify.Notifier,
	logger *slog.Logger,
) *OrderUseCase {
	return &OrderUseCase{
		orders:     orders,
		audit:      audit,
		authorizer: authorizer,
		notifier:   notifier,
		logger:     logger,
	}
}

// GetByInvoiceID returns one order with its lines.
func (u *OrderUseCase) GetByInvoiceID(ctx context.Context, invoiceID string) (*model.Order, error) {
	return u.orders.GetByInvoiceID(ctx, invoiceID)
}

// History lists a user's orders, newest first.
func (u *OrderUseCase) History(ctx context.Context, userID int64, limit, offset int) ([]model.Order, error) {
	return u.orders.ListByUser(ctx, userID, limit, offset)
}

// PendingFor returns the user's single pending order, if any.
func (u *OrderUseCase) PendingFor(ctx context.Context, userID int64) (*model.Order, error) {
	return u.orders.PendingOrderFor(ctx, userID)
}

// Cancel voids a pending order and releases its reserved units. The owner may
// cancel their own pending order; anyone else needs the admin capability.
func (u *OrderUseCase) Cancel(ctx context.Context, actor model.Actor, invoiceID, sourceAddr string) (*model.Order, error) {
	order, err := u.orders.GetByInvoiceID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	owner := actor.Type == model.ActorTypeUser && actor.ID == order.UserID
	if !owner && !u.authorizer.CanAdminister(actor) {
		return nil, domainErrors.ErrNotAuthorized
	}

	released, err := u.orders.MarkCancelled(ctx, order.ID)
	if err != nil {
		if errors.Is(err, domainErrors.ErrInvalidTransition) {
			return nil, fmt.Errorf("order %s is %s: %w", invoiceID, order.Status, domainErrors.ErrInvalidTransition)
		}
		return nil, err
	}

	u.recordCancel(ctx, actor, order, released, sourceAddr)

	if !owner {
		if err := u.notifier.NotifyUser(ctx, order.UserID, fmt.Sprintf("Order %s was cancelled by an administrator.", order.InvoiceID)); err != nil {
			u.logger.Error("cancel notification failed", slog.String("invoice", order.InvoiceID), slog.String("error", err.Error()))
		}
	}

	return u.orders.GetByInvoiceID(ctx, invoiceID)
}

// ExpiryCandidates returns pending orders created before the cutoff.
func (u *OrderUseCase) ExpiryCandidates(ctx context.Context, cutoff time.Time, limit int) ([]model.Order, error) {
	return u.orders.SelectExpiryCandidates(ctx, cutoff, limit)
}

// ExpireOrder is the sweeper entry point. A concurrent settlement winning the
// race is a no-op here, not an error.
func (u *OrderUseCase) ExpireOrder(ctx context.Context, order model.Order) error {
	released, err := u.orders.MarkExpired(ctx, order.ID)
	if err != nil {
		if errors.Is(err, domainErrors.ErrInvalidTransition) {
			u.logger.Info("sweep skipped, order left pending state",
				slog.String("invoice", order.InvoiceID))
			return nil
		}
		return err
	}

	u.recordTransition(ctx, model.SystemActor, order, model.OrderStatusExpired, model.AuditActionExpire, "sweeper",
		map[string]any{"released_units": released})

	if err := u.notifier.NotifyUser(ctx, order.UserID, fmt.Sprintf("Order %s expired, payment was not received in time.", order.InvoiceID)); err != nil {
		u.logger.Error("expiry notification failed", slog.String("invoice", order.InvoiceID), slog.String("error", err.Error()))
	}
	return nil
}

func (u *OrderUseCase) recordCancel(ctx context.Context, actor model.Actor, order *model.Order, released int, sourceAddr string) {
	u.recordTransition(ctx, actor, *order, model.OrderStatusCancelled, model.AuditActionCancel, sourceAddr,
		map[string]any{"released_units": released})
}

func (u *OrderUseCase) recordTransition(ctx context.Context, actor model.Actor, order model.Order, to model.OrderStatus, action model.AuditAction, sourceAddr string, extra map[string]any) {
	before, _ := json.Marshal(map[string]any{"status": order.Status})
	after, _ := json.Marshal(map[string]any{"status": to})
	entry := model.AuditEntry{
		ActorType:   actor.Type,
		EntityType:  "order",
		EntityID:    order.InvoiceID,
		Action:      action,
		BeforeState: before,
		AfterState:  after,
		Context:     extra,
		SourceAddr:  sourceAddr,
	}
	if actor.Type != model.ActorTypeSystem {
		id := actor.ID
		entry.ActorID = &id
	}
	if err := u.audit.Record(ctx, entry); err != nil {
		u.logger.Error("audit write failed", slog.String("invoice", order.InvoiceID), slog.String("error", err.Error()))
	}
}
