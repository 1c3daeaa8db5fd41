package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	domainErrors "github.com/polkiloo/quickcart/internal/domain/errors"
	"github.com/polkiloo/quickcart/internal/domain/model"
	"github.com/polkiloo/quickcart/internal/server/http/dto"
	"github.com/polkiloo/quickcart/internal/usecase"
)

// OrderHandler manages checkout and order endpoints.
type OrderHandler struct {
	facade StoreFacade

	// balanceFallback makes a gateway outage suggest balance payment in the
	// checkout rejection.
	balanceFallback bool
}

// NewOrderHandler constructs OrderHandler.
func NewOrderHandler(facade StoreFacade, balanceFallback bool) *OrderHandler {
	return &OrderHandler{facade: facade, balanceFallback: balanceFallback}
}

// Checkout handles POST /api/orders.
func (h *OrderHandler) Checkout(c *gin.Context) {
	var payload dto.CheckoutRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed payload"})
		return
	}
	if payload.UserID <= 0 || len(payload.Lines) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id and lines are required"})
		return
	}
	method := model.PaymentMethod(payload.PaymentMethod)
	if method != model.PaymentMethodGateway && method != model.PaymentMethodBalance {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown payment method"})
		return
	}

	req := usecase.CheckoutRequest{
		UserID:        payload.UserID,
		PaymentMethod: method,
		SourceAddr:    c.ClientIP(),
	}
	for _, line := range payload.Lines {
		req.Lines = append(req.Lines, usecase.CheckoutLine{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			Reseller:  line.Reseller,
		})
	}

	result, err := h.facade.Checkout(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, domainErrors.ErrInvalidAmount):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order lines"})
		case errors.Is(err, domainErrors.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "product not available"})
		case errors.Is(err, domainErrors.ErrDuplicatePendingOrder):
			c.JSON(http.StatusConflict, gin.H{"error": "a pending order already exists"})
		case errors.Is(err, domainErrors.ErrTooManyAttempts):
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many recent orders"})
		case errors.Is(err, domainErrors.ErrInsufficientStock):
			c.JSON(http.StatusConflict, gin.H{"error": "insufficient stock"})
		case errors.Is(err, domainErrors.ErrInsufficientBalance):
			c.JSON(http.StatusPaymentRequired, gin.H{"error": "insufficient balance"})
		case errors.Is(err, domainErrors.ErrGatewayUnavailable):
			body := gin.H{"error": "payment gateway unavailable"}
			if h.balanceFallback {
				body["balance_available"] = true
			}
			c.JSON(http.StatusServiceUnavailable, body)
		default:
			c.Status(http.StatusInternalServerError)
		}
		return
	}

	response := dto.CheckoutResponse{
		InvoiceID:   result.Order.InvoiceID,
		Status:      string(result.Order.Status),
		Subtotal:    result.Order.Subtotal,
		Discount:    result.Order.Discount,
		Fee:         result.Order.Fee,
		Total:       result.Order.Total,
		CheckoutURL: result.CheckoutURL,
		QRISPayload: result.QRISPayload,
	}
	if !result.ExpiresAt.IsZero() {
		expires := result.ExpiresAt
		response.ExpiresAt = &expires
	}
	c.JSON(http.StatusCreated, response)
}

// Status handles GET /api/orders/:invoice.
func (h *OrderHandler) Status(c *gin.Context) {
	order, err := h.facade.OrderStatus(c.Request.Context(), c.Param("invoice"))
	if err != nil {
		if errors.Is(err, domainErrors.ErrNotFound) {
			c.Status(http.StatusNotFound)
			return
		}
		c.Status(http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(*order))
}

// Cancel handles POST /api/orders/:invoice/cancel.
func (h *OrderHandler) Cancel(c *gin.Context) {
	var payload dto.CancelRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed payload"})
		return
	}
	actor := model.Actor{ID: payload.ActorID, Type: model.ActorType(payload.ActorType)}
	if actor.Type != model.ActorTypeUser && actor.Type != model.ActorTypeAdmin {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown actor type"})
		return
	}

	order, err := h.facade.CancelOrder(c.Request.Context(), actor, c.Param("invoice"), c.ClientIP())
	if err != nil {
		switch {
		case errors.Is(err, domainErrors.ErrNotFound):
			c.Status(http.StatusNotFound)
		case errors.Is(err, domainErrors.ErrNotAuthorized):
			c.Status(http.StatusForbidden)
		case errors.Is(err, domainErrors.ErrInvalidTransition):
			c.JSON(http.StatusConflict, gin.H{"error": "order is no longer pending"})
		default:
			c.Status(http.StatusInternalServerError)
		}
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(*order))
}

// History handles GET /api/users/:id/orders.
func (h *OrderHandler) History(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || userID <= 0 {
		c.Status(http.StatusBadRequest)
		return
	}
	limit := intQuery(c, "limit", 20)
	offset := intQuery(c, "offset", 0)

	orders, err := h.facade.OrderHistory(c.Request.Context(), userID, limit, offset)
	if err != nil {
		c.Status(http.StatusInternalServerError)
		return
	}
	if len(orders) == 0 {
		c.Status(http.StatusNoContent)
		return
	}

	response := make([]dto.OrderResponse, 0, len(orders))
	for _, o := range orders {
		response = append(response, toOrderResponse(o))
	}
	c.JSON(http.StatusOK, response)
}

func toOrderResponse(order model.Order) dto.OrderResponse {
	response := dto.OrderResponse{
		InvoiceID:     order.InvoiceID,
		Status:        string(order.Status),
		PaymentMethod: string(order.PaymentMethod),
		Subtotal:      order.Subtotal,
		Discount:      order.Discount,
		Fee:           order.Fee,
		Total:         order.Total,
		CreatedAt:     order.CreatedAt,
		UpdatedAt:     order.UpdatedAt,
	}
	for _, item := range order.Items {
		response.Items = append(response.Items, dto.OrderItemResponse{
			ProductID: item.ProductID,
			UnitPrice: item.UnitPrice,
		})
	}
	return response
}
