package session

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDisabledStoreIsNoOp(t *testing.T) {
	store := New("", time.Minute)
	if store.Enabled() {
		t.Fatal("store without address must be disabled")
	}

	ctx := context.Background()

	if _, err := store.OrderStatus(ctx, "tg42-ABC123"); !errors.Is(err, ErrMiss) {
		t.Fatalf("expected miss, got %v", err)
	}
	if err := store.SetOrderStatus(ctx, "tg42-ABC123", []byte(`{"status":"pending"}`)); err != nil {
		t.Fatalf("set on disabled store must be a no-op, got %v", err)
	}
	if err := store.DropOrderStatus(ctx, "tg42-ABC123"); err != nil {
		t.Fatalf("drop on disabled store must be a no-op, got %v", err)
	}
	if _, err := store.Session(ctx, 42); !errors.Is(err, ErrMiss) {
		t.Fatalf("expected miss, got %v", err)
	}
	if err := store.SetSession(ctx, 42, []byte(`{}`), time.Minute); err != nil {
		t.Fatalf("set session on disabled store must be a no-op, got %v", err)
	}
	if err := store.HealthCheck(ctx); err != nil {
		t.Fatalf("disabled store must be healthy, got %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close on disabled store must be a no-op, got %v", err)
	}
}

func TestEnabledStoreReportsClient(t *testing.T) {
	store := New("localhost:6379", time.Minute)
	if !store.Enabled() {
		t.Fatal("store with address must be enabled")
	}
	_ = store.Close()
}
