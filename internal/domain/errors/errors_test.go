package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestSentinelsAreDistinct(t *testing.T) {
	sentinels := []error{
		ErrNotFound,
		ErrInsufficientStock,
		ErrDuplicatePendingOrder,
		ErrInvalidTransition,
		ErrInsufficientBalance,
		ErrGatewayUnavailable,
		ErrInvalidSignature,
		ErrMalformedPayload,
		ErrInvalidAmount,
		ErrNotAuthorized,
		ErrAuditWriteFailed,
	}
	for i, a := range sentinels {
		for j, b := range sentinels {
			if i != j && errors.Is(a, b) {
				t.Fatalf("sentinel %v unexpectedly matches %v", a, b)
			}
		}
	}
}

func TestWrappedSentinelMatches(t *testing.T) {
	wrapped := fmt.Errorf("reserve stock: %w", ErrInsufficientStock)
	if !errors.Is(wrapped, ErrInsufficientStock) {
		t.Fatal("wrapped error should match sentinel")
	}
}
