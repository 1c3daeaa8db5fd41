package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/polkiloo/quickcart/internal/adapter/pakasir"
	domainErrors "github.com/polkiloo/quickcart/internal/domain/errors"
	"github.com/polkiloo/quickcart/internal/domain/model"
	"github.com/polkiloo/quickcart/internal/pkg/signature"
	testhelpers "github.com/polkiloo/quickcart/internal/test"
	"github.com/polkiloo/quickcart/internal/usecase"
)

type settlementFixture struct {
	orders   *testhelpers.OrderRepositoryStub
	stock    *testhelpers.StockRepositoryStub
	gateway  testhelpers.GatewayClientStub
	audit    *testhelpers.AuditRepositoryStub
	notifier *testhelpers.NotifierStub
	secret   string
}

func (f *settlementFixture) build() *usecase.SettlementUseCase {
	return usecase.NewSettlementUseCase(f.orders, f.stock, f.gateway, f.audit, f.notifier, signature.New(f.secret), discardLogger())
}

func newSettlementFixture() *settlementFixture {
	f := &settlementFixture{
		orders:   testhelpers.NewOrderRepositoryStub(),
		stock:    testhelpers.NewStockRepositoryStub(),
		audit:    &testhelpers.AuditRepositoryStub{},
		notifier: &testhelpers.NotifierStub{},
	}
	order := f.orders.Seed(model.Order{InvoiceID: "tg42-ABC123", UserID: 42, Total: 101_010, PaymentMethod: model.PaymentMethodGateway, Status: model.OrderStatusPending})
	reserved := order.ID
	f.stock.Units[1] = []model.StockUnit{
		{ID: "u1", ProductID: 1, Content: "code-one", ReservedOrderID: &reserved},
		{ID: "u2", ProductID: 1, Content: "code-two", ReservedOrderID: &reserved},
	}
	return f
}

func webhookBody(status string) []byte {
	return []byte(fmt.Sprintf(`{"order_id":"tg42-ABC123","amount":101010,"status":%q}`, status))
}

func TestProcessWebhookCompleted(t *testing.T) {
	f := newSettlementFixture()
	uc := f.build()

	body := webhookBody("completed")
	if err := uc.ProcessWebhook(context.Background(), body, "", "10.0.0.1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	order, _ := f.orders.GetByInvoiceID(context.Background(), "tg42-ABC123")
	if order.Status != model.OrderStatusPaid {
		t.Fatalf("expected paid order, got %s", order.Status)
	}
	if len(f.audit.PaymentEntries) != 1 {
		t.Fatalf("expected one payment audit entry, got %d", len(f.audit.PaymentEntries))
	}
	messages := f.notifier.UserMessages[42]
	if len(messages) != 1 {
		t.Fatalf("expected one fulfilment message, got %d", len(messages))
	}
	if !strings.Contains(messages[0], "code-one") || !strings.Contains(messages[0], "code-two") {
		t.Fatalf("expected delivered content in message, got %q", messages[0])
	}
}

func TestProcessWebhookDuplicateCompletedIsNoOp(t *testing.T) {
	f := newSettlementFixture()
	uc := f.build()

	body := webhookBody("completed")
	if err := uc.ProcessWebhook(context.Background(), body, "", "10.0.0.1"); err != nil {
		t.Fatalf("first delivery failed: %v", err)
	}
	if err := uc.ProcessWebhook(context.Background(), body, "", "10.0.0.1"); err != nil {
		t.Fatalf("duplicate delivery should be a no-op, got %v", err)
	}

	if len(f.audit.PaymentEntries) != 1 {
		t.Fatalf("expected one payment audit entry after duplicate, got %d", len(f.audit.PaymentEntries))
	}
	if len(f.notifier.UserMessages[42]) != 1 {
		t.Fatalf("fulfilment must not fire twice, got %d messages", len(f.notifier.UserMessages[42]))
	}

	var rejected int
	for _, entry := range f.audit.Entries {
		if entry.Action == model.AuditActionRejected {
			rejected++
		}
	}
	if rejected != 1 {
		t.Fatalf("expected one rejected-transition audit entry, got %d", rejected)
	}
}

func TestProcessWebhookLateCompletedAfterExpiry(t *testing.T) {
	f := newSettlementFixture()
	uc := f.build()

	order, _ := f.orders.GetByInvoiceID(context.Background(), "tg42-ABC123")
	if _, err := f.orders.MarkExpired(context.Background(), order.ID); err != nil {
		t.Fatalf("seed expiry failed: %v", err)
	}

	if err := uc.ProcessWebhook(context.Background(), webhookBody("completed"), "", "10.0.0.1"); err != nil {
		t.Fatalf("late webhook should be swallowed, got %v", err)
	}

	got, _ := f.orders.GetByInvoiceID(context.Background(), "tg42-ABC123")
	if got.Status != model.OrderStatusExpired {
		t.Fatalf("expired order must stay expired, got %s", got.Status)
	}
	if len(f.notifier.UserMessages[42]) != 0 {
		t.Fatal("no fulfilment may fire for an expired order")
	}
}

func TestProcessWebhookSignature(t *testing.T) {
	f := newSettlementFixture()
	f.secret = "hook-secret"
	uc := f.build()
	body := webhookBody("completed")

	err := uc.ProcessWebhook(context.Background(), body, "deadbeef", "10.0.0.1")
	if !errors.Is(err, domainErrors.ErrInvalidSignature) {
		t.Fatalf("expected invalid signature error, got %v", err)
	}
	order, _ := f.orders.GetByInvoiceID(context.Background(), "tg42-ABC123")
	if order.Status != model.OrderStatusPending {
		t.Fatalf("rejected webhook must not touch state, got %s", order.Status)
	}

	good := signature.New("hook-secret").Sign(body)
	if err := uc.ProcessWebhook(context.Background(), body, good, "10.0.0.1"); err != nil {
		t.Fatalf("expected valid signature to pass, got %v", err)
	}
}

func TestProcessWebhookMalformed(t *testing.T) {
	uc := newSettlementFixture().build()

	cases := map[string][]byte{
		"broken json":    []byte("{"),
		"missing fields": []byte(`{"order_id":"tg42-ABC123"}`),
		"zero amount":    []byte(`{"order_id":"tg42-ABC123","status":"completed","amount":0}`),
	}
	for name, body := range cases {
		if err := uc.ProcessWebhook(context.Background(), body, "", "10.0.0.1"); !errors.Is(err, domainErrors.ErrMalformedPayload) {
			t.Fatalf("%s: expected malformed payload error, got %v", name, err)
		}
	}
}

func TestProcessWebhookUnknownOrder(t *testing.T) {
	uc := newSettlementFixture().build()

	body := []byte(`{"order_id":"tg7-NOPE","status":"completed","amount":5}`)
	if err := uc.ProcessWebhook(context.Background(), body, "", "10.0.0.1"); !errors.Is(err, domainErrors.ErrNotFound) {
		t.Fatalf("expected not found for unknown order, got %v", err)
	}
}

func TestProcessWebhookPendingAndUnknownStatus(t *testing.T) {
	f := newSettlementFixture()
	uc := f.build()

	if err := uc.ProcessWebhook(context.Background(), webhookBody("pending"), "", "10.0.0.1"); err != nil {
		t.Fatalf("pending status must be a no-op, got %v", err)
	}
	if err := uc.ProcessWebhook(context.Background(), webhookBody("refunded"), "", "10.0.0.1"); err != nil {
		t.Fatalf("unknown status must be a no-op, got %v", err)
	}

	order, _ := f.orders.GetByInvoiceID(context.Background(), "tg42-ABC123")
	if order.Status != model.OrderStatusPending {
		t.Fatalf("status must be untouched, got %s", order.Status)
	}
}

func TestProcessWebhookExpired(t *testing.T) {
	f := newSettlementFixture()
	uc := f.build()

	if err := uc.ProcessWebhook(context.Background(), webhookBody("expired"), "", "10.0.0.1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	order, _ := f.orders.GetByInvoiceID(context.Background(), "tg42-ABC123")
	if order.Status != model.OrderStatusExpired {
		t.Fatalf("expected expired order, got %s", order.Status)
	}
	if len(f.notifier.UserMessages[42]) != 1 {
		t.Fatalf("expected expiry notification, got %d", len(f.notifier.UserMessages[42]))
	}
}

func TestProcessWebhookAuditFailureEscalates(t *testing.T) {
	f := newSettlementFixture()
	f.audit.PaymentErr = errors.New("audit db down")
	uc := f.build()

	err := uc.ProcessWebhook(context.Background(), webhookBody("completed"), "", "10.0.0.1")
	if !errors.Is(err, domainErrors.ErrAuditWriteFailed) {
		t.Fatalf("expected audit write failure, got %v", err)
	}
	if len(f.notifier.AdminMessages) != 1 {
		t.Fatalf("expected admin alert about the audit failure, got %d", len(f.notifier.AdminMessages))
	}
}

func TestPollStatusSettlesCompleted(t *testing.T) {
	f := newSettlementFixture()
	f.gateway = testhelpers.GatewayClientStub{
		StatusFn: func(context.Context, string, int64) (*pakasir.PaymentStatusResult, error) {
			return &pakasir.PaymentStatusResult{Status: pakasir.StatusCompleted}, nil
		},
	}
	uc := f.build()

	order, err := uc.PollStatus(context.Background(), "tg42-ABC123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order.Status != model.OrderStatusPaid {
		t.Fatalf("expected paid order from poll, got %s", order.Status)
	}
	if len(f.notifier.UserMessages[42]) != 1 {
		t.Fatalf("expected fulfilment via poll path, got %d messages", len(f.notifier.UserMessages[42]))
	}
}

func TestPollStatusSkipsTerminalOrders(t *testing.T) {
	f := newSettlementFixture()
	polled := false
	f.gateway = testhelpers.GatewayClientStub{
		StatusFn: func(context.Context, string, int64) (*pakasir.PaymentStatusResult, error) {
			polled = true
			return &pakasir.PaymentStatusResult{Status: pakasir.StatusPending}, nil
		},
	}
	order, _ := f.orders.GetByInvoiceID(context.Background(), "tg42-ABC123")
	if _, err := f.orders.MarkPaid(context.Background(), order.ID); err != nil {
		t.Fatalf("seed settlement failed: %v", err)
	}
	uc := f.build()

	got, err := uc.PollStatus(context.Background(), "tg42-ABC123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != model.OrderStatusPaid {
		t.Fatalf("expected paid order, got %s", got.Status)
	}
	if polled {
		t.Fatal("terminal orders must not hit the gateway")
	}
}
