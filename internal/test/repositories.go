package test

import (
	"context"
	"fmt"
	"time"

	domainErrors "github.com/polkiloo/quickcart/internal/domain/errors"
	"github.com/polkiloo/quickcart/internal/domain/model"
)

// OrderRepositoryStub stores orders in-memory for tests.
type OrderRepositoryStub struct {
	Orders    map[int64]*model.Order
	ByInvoice map[string]*model.Order
	Next      int64
	Err       error

	// BalanceErr overrides the balance-settled creation path only.
	BalanceErr error
	// Released is reported by MarkExpired / MarkCancelled.
	Released int
}

// NewOrderRepositoryStub constructs stub repository with initialized maps.
func NewOrderRepositoryStub() *OrderRepositoryStub {
	return &OrderRepositoryStub{
		Orders:    make(map[int64]*model.Order),
		ByInvoice: make(map[string]*model.Order),
		Next:      1,
	}
}

// Seed inserts an order directly, assigning an id when missing.
func (s *OrderRepositoryStub) Seed(order model.Order) *model.Order {
	if order.ID == 0 {
		order.ID = s.Next
		s.Next++
	} else if order.ID >= s.Next {
		s.Next = order.ID + 1
	}
	stored := order
	s.Orders[stored.ID] = &stored
	s.ByInvoice[stored.InvoiceID] = &stored
	return &stored
}

func (s *OrderRepositoryStub) Create(ctx context.Context, draft model.OrderDraft) (*model.Order, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	for _, order := range s.Orders {
		if order.UserID == draft.UserID && order.Status == model.OrderStatusPending {
			return nil, domainErrors.ErrDuplicatePendingOrder
		}
	}
	now := time.Now().UTC()
	return s.Seed(model.Order{
		InvoiceID:     draft.InvoiceID,
		UserID:        draft.UserID,
		Subtotal:      draft.Subtotal,
		Discount:      draft.Discount,
		Fee:           draft.Fee,
		Total:         draft.Total,
		PaymentMethod: draft.PaymentMethod,
		Status:        model.OrderStatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}), nil
}

func (s *OrderRepositoryStub) CreateSettledWithBalance(ctx context.Context, draft model.OrderDraft) (*model.Order, error) {
	if s.BalanceErr != nil {
		return nil, s.BalanceErr
	}
	if s.Err != nil {
		return nil, s.Err
	}
	now := time.Now().UTC()
	return s.Seed(model.Order{
		InvoiceID:     draft.InvoiceID,
		UserID:        draft.UserID,
		Subtotal:      draft.Subtotal,
		Discount:      draft.Discount,
		Fee:           draft.Fee,
		Total:         draft.Total,
		PaymentMethod: draft.PaymentMethod,
		Status:        model.OrderStatusPaid,
		CreatedAt:     now,
		UpdatedAt:     now,
	}), nil
}

func (s *OrderRepositoryStub) GetByID(ctx context.Context, id int64) (*model.Order, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	if order, ok := s.Orders[id]; ok {
		copied := *order
		return &copied, nil
	}
	return nil, domainErrors.ErrNotFound
}

func (s *OrderRepositoryStub) GetByInvoiceID(ctx context.Context, invoiceID string) (*model.Order, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	if order, ok := s.ByInvoice[invoiceID]; ok {
		copied := *order
		return &copied, nil
	}
	return nil, domainErrors.ErrNotFound
}

func (s *OrderRepositoryStub) PendingOrderFor(ctx context.Context, userID int64) (*model.Order, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	for _, order := range s.Orders {
		if order.UserID == userID && order.Status == model.OrderStatusPending {
			copied := *order
			return &copied, nil
		}
	}
	return nil, domainErrors.ErrNotFound
}

func (s *OrderRepositoryStub) ListByUser(ctx context.Context, userID int64, limit, offset int) ([]model.Order, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	var out []model.Order
	for _, order := range s.Orders {
		if order.UserID == userID {
			out = append(out, *order)
		}
	}
	return out, nil
}

func (s *OrderRepositoryStub) MarkPaid(ctx context.Context, orderID int64) (*model.Order, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	order, ok := s.Orders[orderID]
	if !ok {
		return nil, domainErrors.ErrNotFound
	}
	if order.Status != model.OrderStatusPending {
		return nil, fmt.Errorf("order is %s: %w", order.Status, domainErrors.ErrInvalidTransition)
	}
	order.Status = model.OrderStatusPaid
	order.UpdatedAt = time.Now().UTC()
	copied := *order
	return &copied, nil
}

func (s *OrderRepositoryStub) MarkExpired(ctx context.Context, orderID int64) (int, error) {
	return s.terminate(orderID, model.OrderStatusExpired)
}

func (s *OrderRepositoryStub) MarkCancelled(ctx context.Context, orderID int64) (int, error) {
	return s.terminate(orderID, model.OrderStatusCancelled)
}

func (s *OrderRepositoryStub) terminate(orderID int64, to model.OrderStatus) (int, error) {
	if s.Err != nil {
		return 0, s.Err
	}
	order, ok := s.Orders[orderID]
	if !ok {
		return 0, domainErrors.ErrNotFound
	}
	if order.Status != model.OrderStatusPending {
		return 0, fmt.Errorf("order is %s: %w", order.Status, domainErrors.ErrInvalidTransition)
	}
	order.Status = to
	order.UpdatedAt = time.Now().UTC()
	return s.Released, nil
}

func (s *OrderRepositoryStub) SelectExpiryCandidates(ctx context.Context, cutoff time.Time, limit int) ([]model.Order, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	var out []model.Order
	for _, order := range s.Orders {
		if order.Status == model.OrderStatusPending && order.CreatedAt.Before(cutoff) {
			out = append(out, *order)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (s *OrderRepositoryStub) CountOrdersSince(ctx context.Context, userID int64, since time.Time) (int, error) {
	if s.Err != nil {
		return 0, s.Err
	}
	count := 0
	for _, order := range s.Orders {
		if order.UserID == userID && !order.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (s *OrderRepositoryStub) CountFailedSince(ctx context.Context, userID int64, since time.Time) (int, error) {
	if s.Err != nil {
		return 0, s.Err
	}
	count := 0
	for _, order := range s.Orders {
		terminalFail := order.Status == model.OrderStatusExpired || order.Status == model.OrderStatusCancelled
		if order.UserID == userID && terminalFail && !order.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

// StockRepositoryStub tracks per-product stock units in-memory.
type StockRepositoryStub struct {
	Units map[int64][]model.StockUnit
	Err   error
}

// NewStockRepositoryStub constructs stub with initialized map.
func NewStockRepositoryStub() *StockRepositoryStub {
	return &StockRepositoryStub{Units: make(map[int64][]model.StockUnit)}
}

func (s *StockRepositoryStub) AvailableCount(ctx context.Context, productID int64) (int, error) {
	if s.Err != nil {
		return 0, s.Err
	}
	count := 0
	for _, unit := range s.Units[productID] {
		if !unit.Sold && unit.ReservedOrderID == nil {
			count++
		}
	}
	return count, nil
}

func (s *StockRepositoryStub) Reserve(ctx context.Context, productID int64, quantity int, orderID int64) ([]model.StockUnit, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	units := s.Units[productID]
	var reserved []model.StockUnit
	for i := range units {
		if len(reserved) == quantity {
			break
		}
		if !units[i].Sold && units[i].ReservedOrderID == nil {
			id := orderID
			units[i].ReservedOrderID = &id
			reserved = append(reserved, units[i])
		}
	}
	if len(reserved) < quantity {
		for i := range units {
			if units[i].ReservedOrderID != nil && *units[i].ReservedOrderID == orderID {
				units[i].ReservedOrderID = nil
			}
		}
		return nil, domainErrors.ErrInsufficientStock
	}
	return reserved, nil
}

func (s *StockRepositoryStub) Release(ctx context.Context, orderID int64) (int, error) {
	if s.Err != nil {
		return 0, s.Err
	}
	released := 0
	for productID := range s.Units {
		units := s.Units[productID]
		for i := range units {
			if units[i].ReservedOrderID != nil && *units[i].ReservedOrderID == orderID && !units[i].Sold {
				units[i].ReservedOrderID = nil
				released++
			}
		}
	}
	return released, nil
}

func (s *StockRepositoryStub) Finalize(ctx context.Context, orderID int64) error {
	if s.Err != nil {
		return s.Err
	}
	for productID := range s.Units {
		units := s.Units[productID]
		for i := range units {
			if units[i].ReservedOrderID != nil && *units[i].ReservedOrderID == orderID {
				units[i].Sold = true
			}
		}
	}
	return nil
}

func (s *StockRepositoryStub) UnitsForOrder(ctx context.Context, orderID int64) ([]model.StockUnit, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	var out []model.StockUnit
	for productID := range s.Units {
		for _, unit := range s.Units[productID] {
			if unit.ReservedOrderID != nil && *unit.ReservedOrderID == orderID {
				out = append(out, unit)
			}
		}
	}
	return out, nil
}

// ProductRepositoryStub serves a fixed catalog.
type ProductRepositoryStub struct {
	Products map[int64]*model.Product
	Err      error
}

// NewProductRepositoryStub constructs stub with initialized map.
func NewProductRepositoryStub() *ProductRepositoryStub {
	return &ProductRepositoryStub{Products: make(map[int64]*model.Product)}
}

func (s *ProductRepositoryStub) GetByID(ctx context.Context, id int64) (*model.Product, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	if product, ok := s.Products[id]; ok {
		copied := *product
		return &copied, nil
	}
	return nil, domainErrors.ErrNotFound
}

func (s *ProductRepositoryStub) ListActive(ctx context.Context) ([]model.Product, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	var out []model.Product
	for _, product := range s.Products {
		if product.Active {
			out = append(out, *product)
		}
	}
	return out, nil
}

// BalanceRepositoryStub keeps balances in-memory.
type BalanceRepositoryStub struct {
	Balances map[int64]*model.BalanceSummary
	Err      error
}

// NewBalanceRepositoryStub constructs stub with initialized map.
func NewBalanceRepositoryStub() *BalanceRepositoryStub {
	return &BalanceRepositoryStub{Balances: make(map[int64]*model.BalanceSummary)}
}

func (s *BalanceRepositoryStub) GetSummary(ctx context.Context, userID int64) (*model.BalanceSummary, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	if summary, ok := s.Balances[userID]; ok {
		copied := *summary
		return &copied, nil
	}
	return &model.BalanceSummary{}, nil
}

func (s *BalanceRepositoryStub) Adjust(ctx context.Context, userID int64, delta int64) error {
	if s.Err != nil {
		return s.Err
	}
	summary, ok := s.Balances[userID]
	if !ok {
		summary = &model.BalanceSummary{}
		s.Balances[userID] = summary
	}
	if summary.Current+delta < 0 {
		return domainErrors.ErrInsufficientBalance
	}
	summary.Current += delta
	if delta < 0 {
		summary.Spent += -delta
	}
	return nil
}

// AuditRepositoryStub records audit entries in-memory.
type AuditRepositoryStub struct {
	Entries        []model.AuditEntry
	PaymentEntries []model.PaymentAuditEntry
	Err            error
	PaymentErr     error
}

func (s *AuditRepositoryStub) Record(ctx context.Context, entry model.AuditEntry) error {
	if s.Err != nil {
		return s.Err
	}
	s.Entries = append(s.Entries, entry)
	return nil
}

func (s *AuditRepositoryStub) RecordPayment(ctx context.Context, entry model.PaymentAuditEntry) error {
	if s.PaymentErr != nil {
		return s.PaymentErr
	}
	s.PaymentEntries = append(s.PaymentEntries, entry)
	return nil
}

func (s *AuditRepositoryStub) ListByEntity(ctx context.Context, entityType, entityID string, limit int) ([]model.AuditEntry, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	var out []model.AuditEntry
	for _, entry := range s.Entries {
		if entry.EntityType == entityType && entry.EntityID == entityID {
			out = append(out, entry)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (s *AuditRepositoryStub) ListByActor(ctx context.Context, actorID int64, limit int) ([]model.AuditEntry, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	var out []model.AuditEntry
	for _, entry := range s.Entries {
		if entry.ActorID != nil && *entry.ActorID == actorID {
			out = append(out, entry)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (s *AuditRepositoryStub) ListByActionSince(ctx context.Context, action model.AuditAction, since time.Time, limit int) ([]model.AuditEntry, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	var out []model.AuditEntry
	for _, entry := range s.Entries {
		if entry.Action == action && !entry.Timestamp.Before(since) {
			out = append(out, entry)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (s *AuditRepositoryStub) CountActorActionsSince(ctx context.Context, actorID int64, action model.AuditAction, since time.Time) (int, error) {
	if s.Err != nil {
		return 0, s.Err
	}
	count := 0
	for _, entry := range s.Entries {
		if entry.ActorID != nil && *entry.ActorID == actorID && entry.Action == action && !entry.Timestamp.Before(since) {
			count++
		}
	}
	return count, nil
}
