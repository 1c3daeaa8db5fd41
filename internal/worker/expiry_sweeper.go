package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/polkiloo/quickcart/internal/domain/model"
)

// OrderExpirer exposes the subset of application functionality required by the sweeper.
type OrderExpirer interface {
	ExpiryCandidates(ctx context.Context, cutoff time.Time, limit int) ([]model.Order, error)
	ExpireOrder(ctx context.Context, order model.Order) error
}

// ExpirySweeper periodically expires pending orders whose payment window has
// elapsed, releasing their reserved stock. Expiry races settlement on
// purpose; the ledger's compare-and-swap decides the winner and a lost race
// is not an error.
type ExpirySweeper struct {
	facade        OrderExpirer
	paymentWindow time.Duration
	sweepInterval time.Duration
	batchSize     int
	workers       int
	logger        *slog.Logger

	jobs   chan model.Order
	wg     sync.WaitGroup
	cancel context.CancelFunc
	mu     sync.Mutex
}

// NewExpirySweeper constructs the sweeper worker pool.
func NewExpirySweeper(facade OrderExpirer, paymentWindow, sweepInterval time.Duration, batchSize, workers int, logger *slog.Logger) *ExpirySweeper {
	if workers <= 0 {
		workers = 1
	}
	if batchSize <= 0 {
		batchSize = 1
	}
	return &ExpirySweeper{
		facade:        facade,
		paymentWindow: paymentWindow,
		sweepInterval: sweepInterval,
		batchSize:     batchSize,
		workers:       workers,
		logger:        logger,
		jobs:          make(chan model.Order, batchSize*workers),
	}
}

// Start launches background sweeping.
func (s *ExpirySweeper) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go s.worker(runCtx)
	}

	s.wg.Add(1)
	go s.dispatch(runCtx)
}

// Stop waits for all workers to finish.
func (s *ExpirySweeper) Stop() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.mu.Unlock()

	s.wg.Wait()
}

func (s *ExpirySweeper) dispatch(ctx context.Context) {
	defer s.wg.Done()
	defer close(s.jobs)
	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.fetchAndDispatch(ctx)
		}
	}
}

func (s *ExpirySweeper) fetchAndDispatch(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-s.paymentWindow)
	orders, err := s.facade.ExpiryCandidates(ctx, cutoff, s.batchSize)
	if err != nil {
		s.logger.Error("fetch expiry candidates failed", slog.String("error", err.Error()))
		return
	}
	for _, order := range orders {
		select {
		case <-ctx.Done():
			return
		case s.jobs <- order:
		}
	}
}

func (s *ExpirySweeper) worker(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case order, ok := <-s.jobs:
			if !ok {
				return
			}
			if err := s.facade.ExpireOrder(ctx, order); err != nil {
				s.logger.Error("expire order failed", slog.String("invoice", order.InvoiceID), slog.String("error", err.Error()))
			}
		}
	}
}
