package auditpg

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/polkiloo/quickcart/internal/domain/model"
)

// pgxPool abstracts the subset of pgxpool.Pool used by the recorder so tests
// can substitute a mock pool.
type pgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

var newPgxPool = func(ctx context.Context, cfg *pgxpool.Config) (pgxPool, error) {
	return pgxpool.NewWithConfig(ctx, cfg)
}

// Recorder appends immutable audit records to a store separate from the
// operational database. No update or delete operation exists.
type Recorder struct {
	pool   pgxPool
	logger *slog.Logger
}

// New creates the audit recorder with schema initialization.
func New(ctx context.Context, dsn string, logger *slog.Logger) (*Recorder, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse audit dsn: %w", err)
	}

	pool, err := newPgxPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect audit db: %w", err)
	}

	recorder := &Recorder{pool: pool, logger: logger}
	if err := recorder.initSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return recorder, nil
}

// Close releases database resources.
func (r *Recorder) Close() {
	if r.pool != nil {
		r.pool.Close()
	}
}

func (r *Recorder) initSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS audit_logs (
            id BIGSERIAL PRIMARY KEY,
            ts TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            actor_id BIGINT,
            actor_type TEXT NOT NULL,
            entity_type TEXT NOT NULL,
            entity_id TEXT NOT NULL,
            action TEXT NOT NULL,
            before_state JSONB,
            after_state JSONB,
            context JSONB,
            source_addr TEXT
        )`,
		`CREATE TABLE IF NOT EXISTS payment_audit_logs (
            id BIGSERIAL PRIMARY KEY,
            ts TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            order_invoice_id TEXT NOT NULL,
            user_id BIGINT NOT NULL,
            amount TEXT NOT NULL,
            payment_method TEXT NOT NULL,
            status TEXT NOT NULL,
            gateway_response JSONB,
            metadata JSONB
        )`,
		`CREATE INDEX IF NOT EXISTS idx_audit_entity ON audit_logs(entity_type, entity_id)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_actor ON audit_logs(actor_id)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_ts ON audit_logs(ts DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_action ON audit_logs(action, ts)`,
		`CREATE INDEX IF NOT EXISTS idx_payment_audit_order ON payment_audit_logs(order_invoice_id)`,
	}

	for _, stmt := range statements {
		if _, err := r.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init audit schema: %w", err)
		}
	}

	return nil
}

// Record appends one audit entry.
func (r *Recorder) Record(ctx context.Context, entry model.AuditEntry) error {
	contextJSON, err := marshalContext(entry.Context)
	if err != nil {
		return err
	}

	const query = `INSERT INTO audit_logs (ts, actor_id, actor_type, entity_type, entity_id, action, before_state, after_state, context, source_addr)
                   VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	ts := entry.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	_, err = r.pool.Exec(ctx, query,
		ts, entry.ActorID, entry.ActorType, entry.EntityType, entry.EntityID, entry.Action,
		entry.BeforeState, entry.AfterState, contextJSON, entry.SourceAddr,
	)
	if err != nil {
		return fmt.Errorf("append audit log: %w", err)
	}
	return nil
}

// RecordPayment appends one payment audit entry for financial reconciliation.
func (r *Recorder) RecordPayment(ctx context.Context, entry model.PaymentAuditEntry) error {
	metadataJSON, err := marshalContext(entry.Metadata)
	if err != nil {
		return err
	}

	const query = `INSERT INTO payment_audit_logs (ts, order_invoice_id, user_id, amount, payment_method, status, gateway_response, metadata)
                   VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	ts := entry.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	_, err = r.pool.Exec(ctx, query,
		ts, entry.OrderInvoiceID, entry.UserID, entry.Amount, entry.PaymentMethod, entry.Status,
		entry.GatewayResponse, metadataJSON,
	)
	if err != nil {
		return fmt.Errorf("append payment audit log: %w", err)
	}
	return nil
}

func marshalContext(m map[string]any) ([]byte, error) {
	if m == nil {
		return nil, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal audit context: %w", err)
	}
	return data, nil
}

const auditColumns = `id, ts, actor_id, actor_type, entity_type, entity_id, action, before_state, after_state, context, source_addr`

// ListByEntity returns newest-first entries for one entity.
func (r *Recorder) ListByEntity(ctx context.Context, entityType, entityID string, limit int) ([]model.AuditEntry, error) {
	query := `SELECT ` + auditColumns + ` FROM audit_logs WHERE entity_type=$1 AND entity_id=$2 ORDER BY ts DESC LIMIT $3`
	rows, err := r.pool.Query(ctx, query, entityType, entityID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectEntries(rows)
}

// ListByActor returns newest-first entries produced by one actor.
func (r *Recorder) ListByActor(ctx context.Context, actorID int64, limit int) ([]model.AuditEntry, error) {
	query := `SELECT ` + auditColumns + ` FROM audit_logs WHERE actor_id=$1 ORDER BY ts DESC LIMIT $2`
	rows, err := r.pool.Query(ctx, query, actorID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectEntries(rows)
}

// ListByActionSince returns entries of one action type within a time range.
func (r *Recorder) ListByActionSince(ctx context.Context, action model.AuditAction, since time.Time, limit int) ([]model.AuditEntry, error) {
	query := `SELECT ` + auditColumns + ` FROM audit_logs WHERE action=$1 AND ts >= $2 ORDER BY ts DESC LIMIT $3`
	rows, err := r.pool.Query(ctx, query, action, since, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectEntries(rows)
}

// CountActorActionsSince aggregates an actor's actions of a given type, used
// as a fraud signal.
func (r *Recorder) CountActorActionsSince(ctx context.Context, actorID int64, action model.AuditAction, since time.Time) (int, error) {
	const query = `SELECT COUNT(*) FROM audit_logs WHERE actor_id=$1 AND action=$2 AND ts >= $3`
	var n int
	if err := r.pool.QueryRow(ctx, query, actorID, action, since).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func collectEntries(rows pgx.Rows) ([]model.AuditEntry, error) {
	var result []model.AuditEntry
	for rows.Next() {
		var e model.AuditEntry
		var contextJSON []byte
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.ActorID, &e.ActorType, &e.EntityType, &e.EntityID, &e.Action, &e.BeforeState, &e.AfterState, &contextJSON, &e.SourceAddr); err != nil {
			return nil, err
		}
		if len(contextJSON) > 0 {
			if err := json.Unmarshal(contextJSON, &e.Context); err != nil {
				return nil, err
			}
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// HealthCheck verifies audit database connectivity.
func (r *Recorder) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return r.pool.Ping(ctx)
}
