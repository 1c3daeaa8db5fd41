package errors

import "errors"

var (
	ErrNotFound              = errors.New("not found")
	ErrInsufficientStock     = errors.New("insufficient stock")
	ErrDuplicatePendingOrder = errors.New("user already has a pending order")
	ErrInvalidTransition     = errors.New("invalid order status transition")
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrGatewayUnavailable    = errors.New("payment gateway unavailable")
	ErrInvalidSignature      = errors.New("invalid webhook signature")
	ErrMalformedPayload      = errors.New("malformed webhook payload")
	ErrInvalidAmount         = errors.New("invalid amount")
	ErrTooManyAttempts       = errors.New("too many recent checkout attempts")
	ErrNotAuthorized         = errors.New("actor is not authorized")
	ErrAuditWriteFailed      = errors.New("audit write failed")
)
