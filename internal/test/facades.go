package test

import (
	"context"
	"sync"
	"time"

	"github.com/polkiloo/quickcart/internal/adapter/pakasir"
	"github.com/polkiloo/quickcart/internal/domain/model"
	"github.com/polkiloo/quickcart/internal/usecase"
)

// StoreFacadeStub provides controllable behaviour for HTTP handlers.
type StoreFacadeStub struct {
	CheckoutFn    func(context.Context, usecase.CheckoutRequest) (*usecase.CheckoutResult, error)
	OrderStatusFn func(context.Context, string) (*model.Order, error)
	CancelFn      func(context.Context, model.Actor, string, string) (*model.Order, error)
	HistoryFn     func(context.Context, int64, int, int) ([]model.Order, error)
	WebhookFn     func(context.Context, []byte, string, string) error
	BalanceFn     func(context.Context, int64) (*model.BalanceSummary, error)
	AdjustFn      func(context.Context, model.Actor, int64, int64, string, string) (*model.BalanceSummary, error)
	HealthFn      func(context.Context) error
}

func (s StoreFacadeStub) Checkout(ctx context.Context, req usecase.CheckoutRequest) (*usecase.CheckoutResult, error) {
	if s.CheckoutFn != nil {
		return s.CheckoutFn(ctx, req)
	}
	return &usecase.CheckoutResult{Order: &model.Order{InvoiceID: "tg1-STUB", UserID: req.UserID, Status: model.OrderStatusPending}}, nil
}

func (s StoreFacadeStub) OrderStatus(ctx context.Context, invoiceID string) (*model.Order, error) {
	if s.OrderStatusFn != nil {
		return s.OrderStatusFn(ctx, invoiceID)
	}
	return &model.Order{InvoiceID: invoiceID, Status: model.OrderStatusPending}, nil
}

func (s StoreFacadeStub) CancelOrder(ctx context.Context, actor model.Actor, invoiceID, sourceAddr string) (*model.Order, error) {
	if s.CancelFn != nil {
		return s.CancelFn(ctx, actor, invoiceID, sourceAddr)
	}
	return &model.Order{InvoiceID: invoiceID, Status: model.OrderStatusCancelled}, nil
}

func (s StoreFacadeStub) OrderHistory(ctx context.Context, userID int64, limit, offset int) ([]model.Order, error) {
	if s.HistoryFn != nil {
		return s.HistoryFn(ctx, userID, limit, offset)
	}
	return []model.Order{{InvoiceID: "tg1-STUB", UserID: userID}}, nil
}

func (s StoreFacadeStub) HandleWebhook(ctx context.Context, body []byte, signature, sourceAddr string) error {
	if s.WebhookFn != nil {
		return s.WebhookFn(ctx, body, signature, sourceAddr)
	}
	return nil
}

func (s StoreFacadeStub) Balance(ctx context.Context, userID int64) (*model.BalanceSummary, error) {
	if s.BalanceFn != nil {
		return s.BalanceFn(ctx, userID)
	}
	return &model.BalanceSummary{}, nil
}

func (s StoreFacadeStub) AdjustBalance(ctx context.Context, actor model.Actor, userID, delta int64, reason, sourceAddr string) (*model.BalanceSummary, error) {
	if s.AdjustFn != nil {
		return s.AdjustFn(ctx, actor, userID, delta, reason, sourceAddr)
	}
	return &model.BalanceSummary{Current: delta}, nil
}

func (s StoreFacadeStub) Health(ctx context.Context) error {
	if s.HealthFn != nil {
		return s.HealthFn(ctx)
	}
	return nil
}

// ExpirerStub feeds the sweeper predefined batches and records expirations.
type ExpirerStub struct {
	sync.Mutex

	Batches  [][]model.Order
	Expired  []model.Order
	ExpireFn func(context.Context, model.Order) error

	next int
}

func (s *ExpirerStub) ExpiryCandidates(ctx context.Context, cutoff time.Time, limit int) ([]model.Order, error) {
	s.Lock()
	defer s.Unlock()
	if s.next >= len(s.Batches) {
		return nil, nil
	}
	batch := s.Batches[s.next]
	s.next++
	return batch, nil
}

func (s *ExpirerStub) ExpireOrder(ctx context.Context, order model.Order) error {
	if s.ExpireFn != nil {
		return s.ExpireFn(ctx, order)
	}
	s.Lock()
	defer s.Unlock()
	s.Expired = append(s.Expired, order)
	return nil
}

// GatewayClientStub simulates the payment gateway.
type GatewayClientStub struct {
	CreateFn func(context.Context, string, int64) (*pakasir.PaymentIntent, error)
	StatusFn func(context.Context, string, int64) (*pakasir.PaymentStatusResult, error)
}

func (s GatewayClientStub) CreatePayment(ctx context.Context, invoiceID string, amount int64) (*pakasir.PaymentIntent, error) {
	if s.CreateFn != nil {
		return s.CreateFn(ctx, invoiceID, amount)
	}
	return &pakasir.PaymentIntent{
		CheckoutReference: invoiceID,
		QRISPayload:       "qris-payload",
		TotalAmount:       amount,
		ExpiresAt:         time.Now().Add(10 * time.Minute),
	}, nil
}

func (s GatewayClientStub) CheckStatus(ctx context.Context, invoiceID string, amount int64) (*pakasir.PaymentStatusResult, error) {
	if s.StatusFn != nil {
		return s.StatusFn(ctx, invoiceID, amount)
	}
	return &pakasir.PaymentStatusResult{Status: pakasir.StatusPending}, nil
}

func (s GatewayClientStub) CheckoutURL(invoiceID string, amount int64) string {
	return "https://pay.example.com/store/" + invoiceID
}

// NotifierStub records delivered notifications.
type NotifierStub struct {
	sync.Mutex

	UserMessages  map[int64][]string
	AdminMessages []string
	Err           error
}

func (s *NotifierStub) NotifyUser(ctx context.Context, userID int64, text string) error {
	if s.Err != nil {
		return s.Err
	}
	s.Lock()
	defer s.Unlock()
	if s.UserMessages == nil {
		s.UserMessages = make(map[int64][]string)
	}
	s.UserMessages[userID] = append(s.UserMessages[userID], text)
	return nil
}

func (s *NotifierStub) NotifyAdmins(ctx context.Context, text string) error {
	if s.Err != nil {
		return s.Err
	}
	s.Lock()
	defer s.Unlock()
	s.AdminMessages = append(s.AdminMessages, text)
	return nil
}

// AuthorizerStub grants or denies the admin capability unconditionally.
type AuthorizerStub struct {
	Allow bool
}

func (s AuthorizerStub) CanAdminister(actor model.Actor) bool {
	return s.Allow
}
