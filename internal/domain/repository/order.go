package repository

import (
	"context"
	"time"

	"github.com/polkiloo/quickcart/internal/domain/model"
)

// OrderRepository describes persistence operations with orders.
//
// Create and CreateSettledWithBalance insert the order together with its
// stock reservation in one transaction; either everything commits or nothing
// does. Status transitions use compare-and-swap semantics on the current
// status: a transition from anything other than pending fails with
// ErrInvalidTransition.
type OrderRepository interface {
	Create(ctx context.Context, draft model.OrderDraft) (*model.Order, error)
	CreateSettledWithBalance(ctx context.Context, draft model.OrderDraft) (*model.Order, error)
	GetByID(ctx context.Context, id int64) (*model.Order, error)
	GetByInvoiceID(ctx context.Context, invoiceID string) (*model.Order, error)
	PendingOrderFor(ctx context.Context, userID int64) (*model.Order, error)
	ListByUser(ctx context.Context, userID int64, limit, offset int) ([]model.Order, error)
	MarkPaid(ctx context.Context, orderID int64) (*model.Order, error)
	MarkExpired(ctx context.Context, orderID int64) (int, error)
	MarkCancelled(ctx context.Context, orderID int64) (int, error)
	SelectExpiryCandidates(ctx context.Context, cutoff time.Time, limit int) ([]model.Order, error)
	CountOrdersSince(ctx context.Context, userID int64, since time.Time) (int, error)
	CountFailedSince(ctx context.Context, userID int64, since time.Time) (int, error)
}
