package model

import (
	"encoding/json"
	"time"
)

// AuditAction names the operation recorded in an audit entry.
type AuditAction string

const (
	AuditActionCreate     AuditAction = "create"
	AuditActionUpdate     AuditAction = "update"
	AuditActionPayment    AuditAction = "payment"
	AuditActionExpire     AuditAction = "expire"
	AuditActionCancel     AuditAction = "cancel"
	AuditActionRelease    AuditAction = "release"
	AuditActionBalance    AuditAction = "balance_adjust"
	AuditActionRejected   AuditAction = "transition_rejected"
	AuditActionFulfilment AuditAction = "fulfilment"
)

// AuditEntry is an immutable record of a state transition. Entries are only
// ever appended; there is no update or delete path.
type AuditEntry struct {
	ID          int64
	Timestamp   time.Time
	ActorID     *int64
	ActorType   ActorType
	EntityType  string
	EntityID    string
	Action      AuditAction
	BeforeState json.RawMessage
	AfterState  json.RawMessage
	Context     map[string]any
	SourceAddr  string
}

// PaymentAuditEntry carries payment-specific fields for financial
// reconciliation. Amount is kept as a string to preserve precision exactly as
// received from the gateway.
type PaymentAuditEntry struct {
	ID              int64
	Timestamp       time.Time
	OrderInvoiceID  string
	UserID          int64
	Amount          string
	PaymentMethod   string
	Status          string
	GatewayResponse json.RawMessage
	Metadata        map[string]any
}
