package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	domainErrors "github.com/polkiloo/quickcart/internal/domain/errors"
	"github.com/polkiloo/quickcart/internal/domain/model"
	"github.com/polkiloo/quickcart/internal/server/http/dto"
)

// BalanceHandler manages balance endpoints.
type BalanceHandler struct {
	facade BalanceFacade
}

// NewBalanceHandler constructs BalanceHandler.
func NewBalanceHandler(facade BalanceFacade) *BalanceHandler {
	return &BalanceHandler{facade: facade}
}

// Summary handles GET /api/users/:id/balance.
func (h *BalanceHandler) Summary(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || userID <= 0 {
		c.Status(http.StatusBadRequest)
		return
	}

	summary, err := h.facade.Balance(c.Request.Context(), userID)
	if err != nil {
		c.Status(http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, dto.BalanceResponse{Current: summary.Current, Spent: summary.Spent})
}

// Adjust handles POST /api/users/:id/balance/adjust.
func (h *BalanceHandler) Adjust(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || userID <= 0 {
		c.Status(http.StatusBadRequest)
		return
	}

	var payload dto.BalanceAdjustRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed payload"})
		return
	}

	actor := model.Actor{ID: payload.ActorID, Type: model.ActorTypeAdmin}
	summary, err := h.facade.AdjustBalance(c.Request.Context(), actor, userID, payload.Delta, payload.Reason, c.ClientIP())
	if err != nil {
		switch {
		case errors.Is(err, domainErrors.ErrNotAuthorized):
			c.Status(http.StatusForbidden)
		case errors.Is(err, domainErrors.ErrInvalidAmount):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid delta"})
		case errors.Is(err, domainErrors.ErrInsufficientBalance):
			c.JSON(http.StatusPaymentRequired, gin.H{"error": "insufficient balance"})
		default:
			c.Status(http.StatusInternalServerError)
		}
		return
	}
	c.JSON(http.StatusOK, dto.BalanceResponse{Current: summary.Current, Spent: summary.Spent})
}
