package dto

import "time"

// CheckoutLineRequest is one catalog position in a checkout payload.
type CheckoutLineRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
	Reseller  bool  `json:"reseller"`
}

// CheckoutRequest creates an order. The user id comes in the payload: this
// API fronts the chat bot, which has already identified the buyer.
type CheckoutRequest struct {
	UserID        int64                 `json:"user_id"`
	PaymentMethod string                `json:"payment_method"`
	Lines         []CheckoutLineRequest `json:"lines"`
}

// CheckoutResponse describes the created order and, for gateway payments,
// where to pay it.
type CheckoutResponse struct {
	InvoiceID   string     `json:"invoice_id"`
	Status      string     `json:"status"`
	Subtotal    int64      `json:"subtotal"`
	Discount    int64      `json:"discount,omitempty"`
	Fee         int64      `json:"fee"`
	Total       int64      `json:"total"`
	CheckoutURL string     `json:"checkout_url,omitempty"`
	QRISPayload string     `json:"qris_payload,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}
