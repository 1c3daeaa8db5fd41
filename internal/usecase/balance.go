package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	domainErrors "github.com/polkiloo/quickcart/internal/domain/errors"
	"github.com/polkiloo/quickcart/internal/domain/model"
	"github.com/polkiloo/quickcart/internal/domain/repository"
	"github.com/polkiloo/quickcart/internal/notify"
	"github.com/polkiloo/quickcart/internal/pkg/auth"
)

// BalanceUseCase reads and adjusts user balances. Adjustment is an admin
// capability and a regulated action: a failed audit write fails the call.
type BalanceUseCase struct {
	balances   repository.BalanceRepository
	audit      repository.AuditRepository
	authorizer auth.Authorizer
	notifier   notify.Notifier
	logger     *slog.Logger
}

// NewBalanceUseCase constructs BalanceUseCase.
func NewBalanceUseCase(
	balances repository.BalanceRepository,
	audit repository.AuditRepository,
	authorizer auth.Authorizer,
	notifier notify.Notifier,
	logger *slog.Logger,
) *BalanceUseCase {
	return &BalanceUseCase{
		balances:   balances,
		audit:      audit,
		authorizer: authorizer,
		notifier:   notifier,
		logger:     logger,
	}
}

// Summary returns the user's current and lifetime-spent amounts.
func (u *BalanceUseCase) Summary(ctx context.Context, userID int64) (*model.BalanceSummary, error) {
	return u.balances.GetSummary(ctx, userID)
}

// Adjust applies a signed delta to a user's balance on behalf of an admin.
func (u *BalanceUseCase) Adjust(ctx context.Context, actor model.Actor, userID, delta int64, reason, sourceAddr string) (*model.BalanceSummary, error) {
	if !u.authorizer.CanAdminister(actor) {
		return nil, domainErrors.ErrNotAuthorized
	}
	if delta == 0 {
		return nil, fmt.Errorf("%w: zero delta", domainErrors.ErrInvalidAmount)
	}

	before, err := u.balances.GetSummary(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := u.balances.Adjust(ctx, userID, delta); err != nil {
		return nil, err
	}

	after, err := u.balances.GetSummary(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := u.recordAdjust(ctx, actor, userID, delta, reason, sourceAddr, before, after); err != nil {
		u.logger.Error("balance audit write failed", slog.Int64("user_id", userID), slog.String("error", err.Error()))
		if alertErr := u.notifier.NotifyAdmins(ctx, fmt.Sprintf("AUDIT WRITE FAILED for balance adjustment, user %d delta %d: %v", userID, delta, err)); alertErr != nil {
			u.logger.Error("audit failure alert failed", slog.String("error", alertErr.Error()))
		}
		return nil, fmt.Errorf("%w: %v", domainErrors.ErrAuditWriteFailed, err)
	}

	return after, nil
}

func (u *BalanceUseCase) recordAdjust(ctx context.Context, actor model.Actor, userID, delta int64, reason, sourceAddr string, before, after *model.BalanceSummary) error {
	beforeRaw, _ := json.Marshal(map[string]any{"current": before.Current})
	afterRaw, _ := json.Marshal(map[string]any{"current": after.Current})
	actorID := actor.ID
	return u.audit.Record(ctx, model.AuditEntry{
		ActorID:     &actorID,
		ActorType:   actor.Type,
		EntityType:  "balance",
		EntityID:    fmt.Sprintf("%d", userID),
		Action:      model.AuditActionBalance,
		BeforeState: beforeRaw,
		AfterState:  afterRaw,
		Context:     map[string]any{"delta": delta, "reason": reason},
		SourceAddr:  sourceAddr,
	})
}
