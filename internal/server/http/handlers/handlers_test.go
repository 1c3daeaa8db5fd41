package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	domainErrors "github.com/polkiloo/quickcart/internal/domain/errors"
	"github.com/polkiloo/quickcart/internal/domain/model"
	"github.com/polkiloo/quickcart/internal/server/http/dto"
	testhelpers "github.com/polkiloo/quickcart/internal/test"
	"github.com/polkiloo/quickcart/internal/usecase"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func performRequest(t *testing.T, method, path, target string, handler gin.HandlerFunc, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	router := gin.New()
	router.Handle(method, path, handler)

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func checkoutBody(t *testing.T, method string) []byte {
	t.Helper()
	body, err := json.Marshal(dto.CheckoutRequest{
		UserID:        42,
		PaymentMethod: method,
		Lines:         []dto.CheckoutLineRequest{{ProductID: 1, Quantity: 1}},
	})
	if err != nil {
		t.Fatal(err)
	}
	return body
}

func TestOrderHandlerCheckout(t *testing.T) {
	expires := time.Now().Add(10 * time.Minute)
	facade := testhelpers.StoreFacadeStub{
		CheckoutFn: func(ctx context.Context, req usecase.CheckoutRequest) (*usecase.CheckoutResult, error) {
			if req.UserID != 42 || len(req.Lines) != 1 {
				t.Fatalf("unexpected request: %+v", req)
			}
			return &usecase.CheckoutResult{
				Order:       &model.Order{InvoiceID: "tg42-ABC123", Status: model.OrderStatusPending, Subtotal: 100_000, Fee: 1_010, Total: 101_010},
				CheckoutURL: "https://pay.example.com/store/101010?order_id=tg42-ABC123",
				QRISPayload: "qris",
				ExpiresAt:   expires,
			}, nil
		},
	}

	resp := performRequest(t, http.MethodPost, "/orders", "/orders", NewOrderHandler(facade, false).Checkout, checkoutBody(t, "gateway"))
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	var payload dto.CheckoutResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.InvoiceID != "tg42-ABC123" || payload.Total != 101_010 || payload.CheckoutURL == "" {
		t.Fatalf("unexpected response: %+v", payload)
	}
	if payload.ExpiresAt == nil {
		t.Fatal("expected expires_at in response")
	}
}

func TestOrderHandlerCheckoutValidation(t *testing.T) {
	handler := NewOrderHandler(testhelpers.StoreFacadeStub{}, false)

	resp := performRequest(t, http.MethodPost, "/orders", "/orders", handler.Checkout, []byte("{"))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for broken json, got %d", resp.Code)
	}

	resp = performRequest(t, http.MethodPost, "/orders", "/orders", handler.Checkout, checkoutBody(t, "cheque"))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown payment method, got %d", resp.Code)
	}
}

func TestOrderHandlerCheckoutErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{domainErrors.ErrInvalidAmount, http.StatusBadRequest},
		{domainErrors.ErrNotFound, http.StatusNotFound},
		{domainErrors.ErrDuplicatePendingOrder, http.StatusConflict},
		{domainErrors.ErrInsufficientStock, http.StatusConflict},
		{domainErrors.ErrTooManyAttempts, http.StatusTooManyRequests},
		{domainErrors.ErrInsufficientBalance, http.StatusPaymentRequired},
		{domainErrors.ErrGatewayUnavailable, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		facade := testhelpers.StoreFacadeStub{
			CheckoutFn: func(context.Context, usecase.CheckoutRequest) (*usecase.CheckoutResult, error) {
				return nil, tc.err
			},
		}
		resp := performRequest(t, http.MethodPost, "/orders", "/orders", NewOrderHandler(facade, false).Checkout, checkoutBody(t, "gateway"))
		if resp.Code != tc.code {
			t.Fatalf("error %v: expected %d, got %d", tc.err, tc.code, resp.Code)
		}
	}
}

func TestOrderHandlerCheckoutBalanceFallbackHint(t *testing.T) {
	facade := testhelpers.StoreFacadeStub{
		CheckoutFn: func(context.Context, usecase.CheckoutRequest) (*usecase.CheckoutResult, error) {
			return nil, domainErrors.ErrGatewayUnavailable
		},
	}
	resp := performRequest(t, http.MethodPost, "/orders", "/orders", NewOrderHandler(facade, true).Checkout, checkoutBody(t, "gateway"))
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.Code)
	}
	var payload map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if hint, ok := payload["balance_available"].(bool); !ok || !hint {
		t.Fatalf("expected balance_available hint, got %v", payload)
	}
}

func TestOrderHandlerStatus(t *testing.T) {
	facade := testhelpers.StoreFacadeStub{
		OrderStatusFn: func(ctx context.Context, invoiceID string) (*model.Order, error) {
			if invoiceID != "tg42-ABC123" {
				return nil, domainErrors.ErrNotFound
			}
			return &model.Order{InvoiceID: invoiceID, Status: model.OrderStatusPaid, Total: 101_010}, nil
		},
	}
	handler := NewOrderHandler(facade, false)

	resp := performRequest(t, http.MethodGet, "/orders/:invoice", "/orders/tg42-ABC123", handler.Status, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var payload dto.OrderResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Status != "paid" {
		t.Fatalf("expected paid, got %q", payload.Status)
	}

	resp = performRequest(t, http.MethodGet, "/orders/:invoice", "/orders/tg7-NOPE", handler.Status, nil)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestOrderHandlerCancel(t *testing.T) {
	body, _ := json.Marshal(dto.CancelRequest{ActorID: 42, ActorType: "user"})

	facade := testhelpers.StoreFacadeStub{
		CancelFn: func(ctx context.Context, actor model.Actor, invoiceID, sourceAddr string) (*model.Order, error) {
			if actor.ID != 42 || actor.Type != model.ActorTypeUser {
				t.Fatalf("unexpected actor: %+v", actor)
			}
			return &model.Order{InvoiceID: invoiceID, Status: model.OrderStatusCancelled}, nil
		},
	}
	resp := performRequest(t, http.MethodPost, "/orders/:invoice/cancel", "/orders/tg42-ABC123/cancel", NewOrderHandler(facade, false).Cancel, body)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	cases := []struct {
		err  error
		code int
	}{
		{domainErrors.ErrNotFound, http.StatusNotFound},
		{domainErrors.ErrNotAuthorized, http.StatusForbidden},
		{domainErrors.ErrInvalidTransition, http.StatusConflict},
	}
	for _, tc := range cases {
		facade := testhelpers.StoreFacadeStub{
			CancelFn: func(context.Context, model.Actor, string, string) (*model.Order, error) {
				return nil, tc.err
			},
		}
		resp := performRequest(t, http.MethodPost, "/orders/:invoice/cancel", "/orders/tg42-ABC123/cancel", NewOrderHandler(facade, false).Cancel, body)
		if resp.Code != tc.code {
			t.Fatalf("error %v: expected %d, got %d", tc.err, tc.code, resp.Code)
		}
	}
}

func TestOrderHandlerHistory(t *testing.T) {
	facade := testhelpers.StoreFacadeStub{
		HistoryFn: func(ctx context.Context, userID int64, limit, offset int) ([]model.Order, error) {
			if userID != 42 {
				return nil, nil
			}
			return []model.Order{{InvoiceID: "tg42-ABC123", Status: model.OrderStatusPaid}}, nil
		},
	}
	handler := NewOrderHandler(facade, false)

	resp := performRequest(t, http.MethodGet, "/users/:id/orders", "/users/42/orders", handler.History, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	resp = performRequest(t, http.MethodGet, "/users/:id/orders", "/users/7/orders", handler.History, nil)
	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for empty history, got %d", resp.Code)
	}

	resp = performRequest(t, http.MethodGet, "/users/:id/orders", "/users/abc/orders", handler.History, nil)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad user id, got %d", resp.Code)
	}
}

func TestWebhookHandler(t *testing.T) {
	var gotSignature string
	var gotBody []byte
	facade := testhelpers.StoreFacadeStub{
		WebhookFn: func(ctx context.Context, body []byte, signature, sourceAddr string) error {
			gotBody = body
			gotSignature = signature
			return nil
		},
	}
	router := gin.New()
	router.POST("/webhooks/payment", NewWebhookHandler(facade).Receive)

	body := []byte(`{"order_id":"tg42-ABC123","status":"completed","amount":101010}`)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/payment", bytes.NewReader(body))
	req.Header.Set(SignatureHeader, "abc123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !bytes.Equal(gotBody, body) {
		t.Fatal("handler must pass the raw body through")
	}
	if gotSignature != "abc123" {
		t.Fatalf("expected signature header value, got %q", gotSignature)
	}
}

func TestWebhookHandlerErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{domainErrors.ErrInvalidSignature, http.StatusUnauthorized},
		{domainErrors.ErrMalformedPayload, http.StatusBadRequest},
		{domainErrors.ErrNotFound, http.StatusNotFound},
		{domainErrors.ErrAuditWriteFailed, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		facade := testhelpers.StoreFacadeStub{
			WebhookFn: func(context.Context, []byte, string, string) error { return tc.err },
		}
		resp := performRequest(t, http.MethodPost, "/webhooks/payment", "/webhooks/payment", NewWebhookHandler(facade).Receive, []byte("{}"))
		if resp.Code != tc.code {
			t.Fatalf("error %v: expected %d, got %d", tc.err, tc.code, resp.Code)
		}
	}
}

func TestBalanceHandlerSummary(t *testing.T) {
	facade := testhelpers.StoreFacadeStub{
		BalanceFn: func(ctx context.Context, userID int64) (*model.BalanceSummary, error) {
			return &model.BalanceSummary{Current: 10_000, Spent: 2_500}, nil
		},
	}
	resp := performRequest(t, http.MethodGet, "/users/:id/balance", "/users/42/balance", NewBalanceHandler(facade).Summary, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var payload dto.BalanceResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Current != 10_000 || payload.Spent != 2_500 {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestBalanceHandlerAdjust(t *testing.T) {
	adjustReason := testhelpers.RandomASCIIString(7, 14)
	body, _ := json.Marshal(dto.BalanceAdjustRequest{ActorID: 1, Delta: 5_000, Reason: adjustReason})

	facade := testhelpers.StoreFacadeStub{
		AdjustFn: func(ctx context.Context, actor model.Actor, userID, delta int64, reason, sourceAddr string) (*model.BalanceSummary, error) {
			if actor.ID != 1 || userID != 42 || delta != 5_000 || reason != adjustReason {
				t.Fatalf("unexpected arguments: %+v %d %d %q", actor, userID, delta, reason)
			}
			return &model.BalanceSummary{Current: 5_000}, nil
		},
	}
	resp := performRequest(t, http.MethodPost, "/users/:id/balance/adjust", "/users/42/balance/adjust", NewBalanceHandler(facade).Adjust, body)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	denied := testhelpers.StoreFacadeStub{
		AdjustFn: func(context.Context, model.Actor, int64, int64, string, string) (*model.BalanceSummary, error) {
			return nil, domainErrors.ErrNotAuthorized
		},
	}
	resp = performRequest(t, http.MethodPost, "/users/:id/balance/adjust", "/users/42/balance/adjust", NewBalanceHandler(denied).Adjust, body)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.Code)
	}
}

func TestHealthHandler(t *testing.T) {
	resp := performRequest(t, http.MethodGet, "/healthz", "/healthz", NewHealthHandler(testhelpers.StoreFacadeStub{}).Check, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	down := testhelpers.StoreFacadeStub{HealthFn: func(context.Context) error { return errors.New("db down") }}
	resp = performRequest(t, http.MethodGet, "/healthz", "/healthz", NewHealthHandler(down).Check, nil)
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.Code)
	}
}
