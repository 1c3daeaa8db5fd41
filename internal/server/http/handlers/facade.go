package handlers

import (
	"context"

	"github.com/polkiloo/quickcart/internal/domain/model"
	"github.com/polkiloo/quickcart/internal/usecase"
)

// CheckoutFacade creates orders.
type CheckoutFacade interface {
	Checkout(ctx context.Context, req usecase.CheckoutRequest) (*usecase.CheckoutResult, error)
}

// OrderFacade encapsulates order operations exposed via HTTP.
type OrderFacade interface {
	OrderStatus(ctx context.Context, invoiceID string) (*model.Order, error)
	CancelOrder(ctx context.Context, actor model.Actor, invoiceID, sourceAddr string) (*model.Order, error)
	OrderHistory(ctx context.Context, userID int64, limit, offset int) ([]model.Order, error)
}

// WebhookFacade ingests payment gateway notifications.
type WebhookFacade interface {
	HandleWebhook(ctx context.Context, body []byte, signature, sourceAddr string) error
}

// BalanceFacade provides balance related operations.
type BalanceFacade interface {
	Balance(ctx context.Context, userID int64) (*model.BalanceSummary, error)
	AdjustBalance(ctx context.Context, actor model.Actor, userID, delta int64, reason, sourceAddr string) (*model.BalanceSummary, error)
}

// HealthFacade reports readiness of the service's dependencies.
type HealthFacade interface {
	Health(ctx context.Context) error
}

// StoreFacade aggregates the full set of operations used across handlers.
type StoreFacade interface {
	CheckoutFacade
	OrderFacade
	WebhookFacade
	BalanceFacade
	HealthFacade
}
