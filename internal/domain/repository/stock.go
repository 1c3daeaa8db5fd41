package repository

import (
	"context"

	"github.com/polkiloo/quickcart/internal/domain/model"
)

// StockRepository is the sole mutator of stock-unit sold/reservation flags.
//
// Reserve is all-or-nothing: when fewer than quantity units are available it
// fails with ErrInsufficientStock and mutates nothing. Release is idempotent
// and returns the number of units actually released.
type StockRepository interface {
	AvailableCount(ctx context.Context, productID int64) (int, error)
	Reserve(ctx context.Context, productID int64, quantity int, orderID int64) ([]model.StockUnit, error)
	Release(ctx context.Context, orderID int64) (int, error)
	Finalize(ctx context.Context, orderID int64) error
	UnitsForOrder(ctx context.Context, orderID int64) ([]model.StockUnit, error)
}
