package repository

import (
	"context"

	"github.com/polkiloo/quickcart/internal/domain/model"
)

// BalanceRepository manages pre-funded account balances in minor units.
// Adjust applies a signed delta under a row lock and fails with
// ErrInsufficientBalance when the result would go negative.
type BalanceRepository interface {
	GetSummary(ctx context.Context, userID int64) (*model.BalanceSummary, error)
	Adjust(ctx context.Context, userID int64, delta int64) error
}
