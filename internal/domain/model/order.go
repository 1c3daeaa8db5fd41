package model

import "time"

// OrderStatus describes order lifecycle state.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusExpired   OrderStatus = "expired"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Terminal reports whether no further transition is allowed from the status.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusPaid || s == OrderStatusExpired || s == OrderStatusCancelled
}

// PaymentMethod describes how an order is settled.
type PaymentMethod string

const (
	PaymentMethodGateway PaymentMethod = "gateway"
	PaymentMethodBalance PaymentMethod = "balance"
)

// Order describes a purchase created through checkout. All monetary amounts
// are integer minor units (rupiah).
type Order struct {
	ID            int64
	InvoiceID     string
	UserID        int64
	Subtotal      int64
	Discount      int64
	Fee           int64
	Total         int64
	PaymentMethod PaymentMethod
	Status        OrderStatus
	CreatedAt     time.Time
	UpdatedAt     time.Time
	Items         []OrderItem
}

// OrderItem is a single line within an order. Each item references exactly
// one stock unit; the price is snapshotted at order time.
type OrderItem struct {
	ID          int64
	OrderID     int64
	ProductID   int64
	StockUnitID string
	UnitPrice   int64
}

// OrderDraft carries everything needed to create an order atomically with
// its stock reservation.
type OrderDraft struct {
	InvoiceID     string
	UserID        int64
	Subtotal      int64
	Discount      int64
	Fee           int64
	Total         int64
	PaymentMethod PaymentMethod
	Lines         []DraftLine
}

// DraftLine requests a quantity of units from one product at a snapshotted
// unit price.
type DraftLine struct {
	ProductID int64
	Quantity  int
	UnitPrice int64
}
