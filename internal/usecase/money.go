package usecase

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// CalculateFee computes the gateway fee in minor units: a basis-point share
// of the subtotal rounded half up, plus a fixed component. Integer arithmetic
// only; no floating point enters the fee/total invariant.
func CalculateFee(subtotal, basisPoints, fixed int64) int64 {
	if subtotal <= 0 {
		return fixed
	}
	proportional := (subtotal*basisPoints + 5000) / 10000
	return proportional + fixed
}

// NewInvoiceID generates the externally addressable invoice identifier. The
// user id prefix matches what the payment gateway echoes back in webhooks;
// the random suffix makes the id unique and non-guessable.
func NewInvoiceID(userID int64) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:10])
	return fmt.Sprintf("tg%d-%s", userID, suffix)
}
