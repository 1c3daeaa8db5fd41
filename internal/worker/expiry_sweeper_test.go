package worker

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/polkiloo/quickcart/internal/domain/model"
	testhelpers "github.com/polkiloo/quickcart/internal/test"
)

func TestNewExpirySweeperDefaults(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	sweeper := NewExpirySweeper(&testhelpers.ExpirerStub{}, time.Minute, time.Second, 0, 0, logger)
	if sweeper.batchSize != 1 {
		t.Fatalf("expected batch size default to 1, got %d", sweeper.batchSize)
	}
	if sweeper.workers != 1 {
		t.Fatalf("expected workers default to 1, got %d", sweeper.workers)
	}
}

func TestExpirySweeperExpiresOrders(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	facade := &testhelpers.ExpirerStub{Batches: [][]model.Order{{{ID: 1, InvoiceID: "tg1-AAA"}, {ID: 2, InvoiceID: "tg2-BBB"}}}}
	sweeper := NewExpirySweeper(facade, time.Minute, 10*time.Millisecond, 2, 2, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sweeper.Start(ctx)

	deadline := time.After(500 * time.Millisecond)
	for {
		facade.Lock()
		done := len(facade.Expired) == 2
		facade.Unlock()
		if done {
			break
		}
		select {
		case <-deadline:
			t.Fatal("timeout waiting for expiry sweep")
		case <-time.After(10 * time.Millisecond):
		}
	}

	sweeper.Stop()
	facade.Lock()
	defer facade.Unlock()
	if len(facade.Expired) != 2 {
		t.Fatalf("expected 2 expired orders, got %d", len(facade.Expired))
	}
}

func TestExpirySweeperKeepsRunningAfterExpireError(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	var calls int32
	facade := &testhelpers.ExpirerStub{
		Batches: [][]model.Order{{{ID: 1, InvoiceID: "tg1-AAA"}}, {{ID: 2, InvoiceID: "tg2-BBB"}}},
		ExpireFn: func(ctx context.Context, order model.Order) error {
			if atomic.AddInt32(&calls, 1) == 1 {
				return context.DeadlineExceeded
			}
			return nil
		},
	}

	sweeper := NewExpirySweeper(facade, time.Minute, 5*time.Millisecond, 1, 1, logger)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sweeper.Start(ctx)

	deadline := time.After(time.Second)
	for atomic.LoadInt32(&calls) < 2 {
		select {
		case <-deadline:
			t.Fatal("timeout waiting for second sweep")
		case <-time.After(10 * time.Millisecond):
		}
	}
	sweeper.Stop()
}
