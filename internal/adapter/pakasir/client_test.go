package pakasir

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	domainErrors "github.com/polkiloo/quickcart/internal/domain/errors"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func newTestClient(t *testing.T, baseURL string) *HTTPClient {
	t.Helper()
	client, err := NewHTTPClient(baseURL, "https://pay.example.com", "quickcart", "test-key", testLogger())
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	return client
}

func TestNewHTTPClientValidatesURL(t *testing.T) {
	if _, err := NewHTTPClient("://bad-url", "https://pay.example.com", "p", "k", testLogger()); err == nil {
		t.Fatal("expected error for invalid url")
	}
	if _, err := NewHTTPClient("/relative", "https://pay.example.com", "p", "k", testLogger()); err == nil {
		t.Fatal("expected error for relative url")
	}
}

func TestCreatePaymentSuccess(t *testing.T) {
	expires := time.Now().Add(10 * time.Minute).UTC().Truncate(time.Second)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			w.WriteHeader(http.StatusOK)
		case "/api/transactioncreate/qris":
			var req createRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Fatalf("decode request: %v", err)
			}
			if req.Project != "quickcart" || req.OrderID != "tg42-ABC123" || req.Amount != 101010 || req.APIKey != "test-key" {
				t.Fatalf("unexpected create request: %+v", req)
			}
			resp := createResponse{}
			resp.Payment.OrderID = req.OrderID
			resp.Payment.Amount = req.Amount
			resp.Payment.Fee = 1010
			resp.Payment.Total = req.Amount
			resp.Payment.PaymentNumber = "00020101021226660014ID.CO.QRIS"
			resp.Payment.ExpiredAt = expires
			_ = json.NewEncoder(w).Encode(resp)
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	intent, err := client.CreatePayment(context.Background(), "tg42-ABC123", 101010)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if intent.CheckoutReference != "tg42-ABC123" {
		t.Errorf("unexpected checkout reference %q", intent.CheckoutReference)
	}
	if intent.QRISPayload == "" {
		t.Error("expected QRIS payload")
	}
	if intent.FeeAmount != 1010 || intent.TotalAmount != 101010 {
		t.Errorf("unexpected amounts: fee=%d total=%d", intent.FeeAmount, intent.TotalAmount)
	}
	if !intent.ExpiresAt.Equal(expires) {
		t.Errorf("unexpected expiry %v, want %v", intent.ExpiresAt, expires)
	}
}

func TestCreatePaymentFailsWhenProbeFails(t *testing.T) {
	created := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		created = true
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.CreatePayment(context.Background(), "tg42-ABC123", 1000)
	if !errors.Is(err, domainErrors.ErrGatewayUnavailable) {
		t.Fatalf("expected ErrGatewayUnavailable, got %v", err)
	}
	if created {
		t.Fatal("no payment must be created when the probe fails")
	}
}

func TestCreatePaymentFailsWhenProbeUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := newTestClient(t, server.URL)
	if _, err := client.CreatePayment(context.Background(), "tg42-ABC123", 1000); !errors.Is(err, domainErrors.ErrGatewayUnavailable) {
		t.Fatalf("expected ErrGatewayUnavailable, got %v", err)
	}
}

func TestCheckStatus(t *testing.T) {
	completedAt := time.Now().UTC().Truncate(time.Second)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/checkstatus" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		var req statusRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(statusResponse{Status: StatusCompleted, CompletedAt: &completedAt})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	result, err := client.CheckStatus(context.Background(), "tg42-ABC123", 101010)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != StatusCompleted {
		t.Errorf("unexpected status %q", result.Status)
	}
	if result.CompletedAt == nil || !result.CompletedAt.Equal(completedAt) {
		t.Errorf("unexpected completed at %v", result.CompletedAt)
	}
}

func TestCheckStatusTransientOn5xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	if _, err := client.CheckStatus(context.Background(), "tg42-ABC123", 1000); !errors.Is(err, ErrTransient) {
		t.Fatalf("expected transient error, got %v", err)
	}
}

func TestCheckStatusNonTransientOn4xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.CheckStatus(context.Background(), "tg42-ABC123", 1000)
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, ErrTransient) {
		t.Fatalf("4xx must not be transient, got %v", err)
	}
}

func TestCheckoutURLDeterministic(t *testing.T) {
	client := newTestClient(t, "https://gateway.example.com")
	got := client.CheckoutURL("tg42-ABC123", 101010)
	want := "https://pay.example.com/quickcart/101010?order_id=tg42-ABC123&qris_only=1"
	if got != want {
		t.Fatalf("unexpected checkout url:\n got %s\nwant %s", got, want)
	}
	if second := client.CheckoutURL("tg42-ABC123", 101010); second != got {
		t.Fatal("checkout url must be deterministic")
	}
}
