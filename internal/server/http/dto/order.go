package dto

import "time"

// OrderItemResponse is one delivered stock position of an order.
type OrderItemResponse struct {
	ProductID int64 `json:"product_id"`
	UnitPrice int64 `json:"unit_price"`
}

// OrderResponse represents an order in API responses.
type OrderResponse struct {
	InvoiceID     string              `json:"invoice_id"`
	Status        string              `json:"status"`
	PaymentMethod string              `json:"payment_method"`
	Subtotal      int64               `json:"subtotal"`
	Discount      int64               `json:"discount,omitempty"`
	Fee           int64               `json:"fee"`
	Total         int64               `json:"total"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
	Items         []OrderItemResponse `json:"items,omitempty"`
}

// CancelRequest identifies who asks for the cancellation.
type CancelRequest struct {
	ActorID   int64  `json:"actor_id"`
	ActorType string `json:"actor_type"`
}
