package pakasir

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	domainErrors "github.com/polkiloo/quickcart/internal/domain/errors"
)

// PaymentStatus values reported by the gateway.
const (
	StatusCompleted = "completed"
	StatusPending   = "pending"
	StatusExpired   = "expired"
)

// ErrTransient indicates a gateway timeout or 5xx. The caller decides whether
// to retry; the client never retries internally.
var ErrTransient = errors.New("transient gateway error")

// PaymentIntent is the result of creating a QRIS payment on the gateway.
type PaymentIntent struct {
	CheckoutReference string
	QRISPayload       string
	FeeAmount         int64
	TotalAmount       int64
	ExpiresAt         time.Time
	RawResponse       json.RawMessage
}

// PaymentStatusResult is the outcome of a synchronous status check.
type PaymentStatusResult struct {
	Status      string
	CompletedAt *time.Time
	RawResponse json.RawMessage
}

// Client exposes operations against the QRIS payment gateway.
type Client interface {
	CreatePayment(ctx context.Context, invoiceID string, amount int64) (*PaymentIntent, error)
	CheckStatus(ctx context.Context, invoiceID string, amount int64) (*PaymentStatusResult, error)
	CheckoutURL(invoiceID string, amount int64) string
}

// HTTPClient implements Client via the gateway HTTP API.
type HTTPClient struct {
	baseURL        *url.URL
	checkoutDomain string
	projectSlug    string
	apiKey         string
	httpClient     *http.Client
	probeClient    *http.Client
	logger         *slog.Logger
}

type createRequest struct {
	Project string `json:"project"`
	OrderID string `json:"order_id"`
	Amount  int64  `json:"amount"`
	APIKey  string `json:"api_key"`
}

type createResponse struct {
	Payment struct {
		OrderID       string    `json:"order_id"`
		Amount        int64     `json:"amount"`
		Fee           int64     `json:"fee"`
		Total         int64     `json:"total"`
		PaymentNumber string    `json:"payment_number"`
		ExpiredAt     time.Time `json:"expired_at"`
	} `json:"payment"`
}

type statusRequest struct {
	Project string `json:"project"`
	OrderID string `json:"order_id"`
	Amount  int64  `json:"amount"`
	APIKey  string `json:"api_key"`
}

type statusResponse struct {
	Status      string     `json:"status"`
	CompletedAt *time.Time `json:"completed_at"`
}

// NewHTTPClient creates the gateway client with default timeouts.
func NewHTTPClient(baseURL, checkoutDomain, projectSlug, apiKey string, logger *slog.Logger) (*HTTPClient, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse gateway url: %w", err)
	}
	if !parsed.IsAbs() {
		return nil, fmt.Errorf("gateway url must be absolute")
	}
	return &HTTPClient{
		baseURL:        parsed,
		checkoutDomain: checkoutDomain,
		projectSlug:    projectSlug,
		apiKey:         apiKey,
		logger:         logger,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		probeClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}, nil
}

// CreatePayment requests a QRIS payment intent. The gateway is probed first:
// creating a payment against a dead gateway would leave the order pending for
// a payment the gateway never received.
func (c *HTTPClient) CreatePayment(ctx context.Context, invoiceID string, amount int64) (*PaymentIntent, error) {
	if err := c.probe(ctx); err != nil {
		return nil, fmt.Errorf("gateway health probe: %w", domainErrors.ErrGatewayUnavailable)
	}

	body, err := c.post(ctx, "/api/transactioncreate/qris", createRequest{
		Project: c.projectSlug,
		OrderID: invoiceID,
		Amount:  amount,
		APIKey:  c.apiKey,
	})
	if err != nil {
		return nil, err
	}

	var data createResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("decode create response: %w", err)
	}

	return &PaymentIntent{
		CheckoutReference: data.Payment.OrderID,
		QRISPayload:       data.Payment.PaymentNumber,
		FeeAmount:         data.Payment.Fee,
		TotalAmount:       data.Payment.Total,
		ExpiresAt:         data.Payment.ExpiredAt,
		RawResponse:       body,
	}, nil
}

// CheckStatus performs a synchronous payment status check, used as a fallback
// to webhook delivery.
func (c *HTTPClient) CheckStatus(ctx context.Context, invoiceID string, amount int64) (*PaymentStatusResult, error) {
	body, err := c.post(ctx, "/api/checkstatus", statusRequest{
		Project: c.projectSlug,
		OrderID: invoiceID,
		Amount:  amount,
		APIKey:  c.apiKey,
	})
	if err != nil {
		return nil, err
	}

	var data statusResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("decode status response: %w", err)
	}

	return &PaymentStatusResult{
		Status:      data.Status,
		CompletedAt: data.CompletedAt,
		RawResponse: body,
	}, nil
}

// CheckoutURL composes the hosted checkout page address. Deterministic, no
// network call.
func (c *HTTPClient) CheckoutURL(invoiceID string, amount int64) string {
	return fmt.Sprintf("%s/%s/%d?order_id=%s&qris_only=1", c.checkoutDomain, c.projectSlug, amount, url.QueryEscape(invoiceID))
}

func (c *HTTPClient) probe(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL.String(), nil)
	if err != nil {
		return err
	}
	resp, err := c.probeClient.Do(req)
	if err != nil {
		c.logger.Warn("gateway health probe failed", slog.String("error", err.Error()))
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("gateway health probe failed", slog.Int("status", resp.StatusCode))
		return fmt.Errorf("gateway probe status %d", resp.StatusCode)
	}
	return nil
}

func (c *HTTPClient) post(ctx context.Context, path string, payload any) ([]byte, error) {
	endpoint := *c.baseURL
	endpoint.Path = endpoint.Path + path

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransient, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, nil
	case resp.StatusCode >= http.StatusInternalServerError:
		c.logger.Error("gateway request failed", slog.Int("status", resp.StatusCode), slog.String("body", string(body)))
		return nil, fmt.Errorf("%w: status %d", ErrTransient, resp.StatusCode)
	default:
		c.logger.Error("gateway request rejected", slog.Int("status", resp.StatusCode), slog.String("body", string(body)))
		return nil, fmt.Errorf("gateway error: %s", resp.Status)
	}
}
