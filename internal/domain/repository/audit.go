package repository

import (
	"context"
	"time"

	"github.com/polkiloo/quickcart/internal/domain/model"
)

// AuditRepository appends immutable records to the audit store. There is no
// update or delete operation; reads exist for compliance review and
// fraud-signal aggregation.
type AuditRepository interface {
	Record(ctx context.Context, entry model.AuditEntry) error
	RecordPayment(ctx context.Context, entry model.PaymentAuditEntry) error
	ListByEntity(ctx context.Context, entityType, entityID string, limit int) ([]model.AuditEntry, error)
	ListByActor(ctx context.Context, actorID int64, limit int) ([]model.AuditEntry, error)
	ListByActionSince(ctx context.Context, action model.AuditAction, since time.Time, limit int) ([]model.AuditEntry, error)
	CountActorActionsSince(ctx context.Context, actorID int64, action model.AuditAction, since time.Time) (int, error)
}
