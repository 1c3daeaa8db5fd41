package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	domainErrors "github.com/polkiloo/quickcart/internal/domain/errors"
)

// SignatureHeader carries the HMAC of the webhook body.
const SignatureHeader = "X-Signature"

// WebhookHandler receives payment gateway notifications.
type WebhookHandler struct {
	facade WebhookFacade
}

// NewWebhookHandler constructs WebhookHandler.
func NewWebhookHandler(facade WebhookFacade) *WebhookHandler {
	return &WebhookHandler{facade: facade}
}

// Receive handles POST /webhooks/payment. The body is read raw because the
// signature covers the exact bytes on the wire.
func (h *WebhookHandler) Receive(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	err = h.facade.HandleWebhook(c.Request.Context(), body, c.GetHeader(SignatureHeader), c.ClientIP())
	if err != nil {
		switch {
		case errors.Is(err, domainErrors.ErrInvalidSignature):
			c.Status(http.StatusUnauthorized)
		case errors.Is(err, domainErrors.ErrMalformedPayload):
			c.Status(http.StatusBadRequest)
		case errors.Is(err, domainErrors.ErrNotFound):
			c.Status(http.StatusNotFound)
		default:
			c.Status(http.StatusInternalServerError)
		}
		return
	}
	c.Status(http.StatusOK)
}
