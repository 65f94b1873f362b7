package worker

import (
	"context"
	"log/slog"
	"time"
)

// OrderExpirer cancels unpaid orders that have been pending for too long.
type OrderExpirer interface {
	ExpireStaleOrders(ctx context.Context, olderThan time.Duration, limit int) (int, error)
}

const defaultBatch = 100

// ReconciliationWorker periodically releases the stock held by checkouts
// that were never paid.
type ReconciliationWorker struct {
	orders   OrderExpirer
	ttl      time.Duration
	interval time.Duration
	batch    int
	logger   *slog.Logger
}

func NewReconciliationWorker(orders OrderExpirer, ttl, interval time.Duration, logger *slog.Logger) *ReconciliationWorker {
	return &ReconciliationWorker{
		orders:   orders,
		ttl:      ttl,
		interval: interval,
		batch:    defaultBatch,
		logger:   logger.With("component", "reconciliation"),
	}
}

func (rw *ReconciliationWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(rw.interval)
	defer ticker.Stop()

	rw.logger.Info("reconciliation worker started", "ttl", rw.ttl, "interval", rw.interval)

	for {
		select {
		case <-ctx.Done():
			rw.logger.Info("reconciliation worker stopped")
			return
		case <-ticker.C:
			if _, err := rw.Sweep(ctx); err != nil {
				rw.logger.ErrorContext(ctx, "reconciliation failed", "err", err)
			}
		}
	}
}

// Sweep expires stale orders in batches until a batch comes back short.
func (rw *ReconciliationWorker) Sweep(ctx context.Context) (int, error) {
	total := 0
	for {
		n, err := rw.orders.ExpireStaleOrders(ctx, rw.ttl, rw.batch)
		total += n
		if err != nil {
			return total, err
		}
		if n < rw.batch || ctx.Err() != nil {
			break
		}
	}
	if total > 0 {
		rw.logger.InfoContext(ctx, "expired stale orders", "count", total)
	}
	return total, nil
}
