// Package worker applies transaction events to the spreadsheet mirror.
package worker

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"budget/internal/amqp"
	"budget/internal/cache"
	"budget/internal/core"
	"budget/internal/log"
	"budget/internal/sheets"
)

const (
	seenCacheSize = 10000
	seenCacheTTL  = 24 * time.Hour
)

// TransactionLister is the read side the startup sync needs.
type TransactionLister interface {
	ListTransactions(ctx context.Context) ([]core.Transaction, error)
}

// Stats counts what the worker did since start.
type Stats struct {
	Applied int64
	Skipped int64
	Failed  int64
}

// SyncWorker mirrors committed transaction changes into a spreadsheet.
type SyncWorker struct {
	mirror sheets.TransactionMirror
	logger *log.Logger

	// seen remembers the newest event timestamp applied per transaction so
	// redelivered or reordered events cannot roll a row back.
	seen *cache.LRUCache[time.Time]

	applied atomic.Int64
	skipped atomic.Int64
	failed  atomic.Int64
}

func NewSyncWorker(mirror sheets.TransactionMirror) *SyncWorker {
	return &SyncWorker{
		mirror: mirror,
		logger: log.FromContext(context.Background()).WithComponent(log.ComponentWorker),
		seen:   cache.NewLRUCache[time.Time](seenCacheSize, seenCacheTTL),
	}
}

// SeenCache exposes the ordering cache so the caller can register it for
// periodic cleanup.
func (w *SyncWorker) SeenCache() cache.Cleaner {
	return w.seen
}

// HandleEvent is an amqp.Handler. Invalid events and changes the mirror
// rejected are wrapped in amqp.ErrPermanent so they are not redelivered.
func (w *SyncWorker) HandleEvent(ctx context.Context, ev *amqp.TransactionEvent) error {
	if err := ev.Validate(); err != nil {
		w.failed.Add(1)
		return fmt.Errorf("%w: invalid event: %v", amqp.ErrPermanent, err)
	}

	key := strconv.FormatInt(ev.TransactionID, 10)
	if last, ok := w.seen.Get(key); ok && ev.Timestamp.Before(last) {
		w.skipped.Add(1)
		w.logger.InfoContext(ctx, "Skipping stale event",
			log.FieldEventID, ev.EventID,
			log.FieldTransactionID, ev.TransactionID,
			"event_time", ev.Timestamp.Format(time.RFC3339Nano),
			"applied_time", last.Format(time.RFC3339Nano))
		return nil
	}

	var err error
	switch ev.Kind {
	case amqp.EventUpserted:
		err = w.mirror.UpsertTransaction(ctx, *ev.Transaction)
	case amqp.EventDeleted:
		err = w.mirror.RemoveTransaction(ctx, ev.TransactionID)
	}
	if err != nil {
		w.failed.Add(1)
		if errors.Is(err, sheets.ErrRejected) {
			return fmt.Errorf("%w: %v", amqp.ErrPermanent, err)
		}
		return fmt.Errorf("apply %s: %w", ev.Kind, err)
	}

	w.seen.Set(key, ev.Timestamp)
	w.applied.Add(1)
	w.logger.InfoContext(ctx, "Applied transaction event",
		log.FieldEventID, ev.EventID,
		log.FieldTransactionID, ev.TransactionID,
		"kind", ev.Kind)
	return nil
}

// StartupSync upserts every transaction the lister returns, recovering
// rows missed while the worker was down. Individual failures are logged
// and counted; only a failed listing aborts.
func (w *SyncWorker) StartupSync(ctx context.Context, lister TransactionLister) error {
	txs, err := lister.ListTransactions(ctx)
	if err != nil {
		return fmt.Errorf("list transactions for startup sync: %w", err)
	}
	if len(txs) == 0 {
		w.logger.InfoContext(ctx, "No transactions to sync on startup")
		return nil
	}

	synced, failed := 0, 0
	for _, tx := range txs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.mirror.UpsertTransaction(ctx, tx); err != nil {
			w.logger.ErrorContext(ctx, "Startup sync failed for transaction",
				log.FieldTransactionID, tx.ID, log.FieldError, err)
			failed++
			continue
		}
		synced++
	}
	w.applied.Add(int64(synced))
	w.failed.Add(int64(failed))

	w.logger.InfoContext(ctx, "Startup sync completed",
		"total", len(txs),
		"synced", synced,
		"errors", failed)
	return nil
}

// Stats returns the counters.
func (w *SyncWorker) Stats() Stats {
	return Stats{
		Applied: w.applied.Load(),
		Skipped: w.skipped.Load(),
		Failed:  w.failed.Load(),
	}
}
