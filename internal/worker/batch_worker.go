package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"payouts/internal/amqp"
	"payouts/internal/log"
	"payouts/internal/storage"
)

// BatchStore is the part of the report database the worker checks messages
// against. BatchBookings returns storage.ErrBatchNotFound for unknown batches.
type BatchStore interface {
	BatchBookings(ctx context.Context, batchID string) (int, error)
}

// Stats counts what the worker has seen since it started.
type Stats struct {
	Processed  int
	Unsaved    int
	Mismatched int
}

// BatchWorker handles batch-ready messages: it prints one line per batch and,
// when a report database is configured, checks that the batch was saved with
// the announced number of bookings.
type BatchWorker struct {
	out    io.Writer
	store  BatchStore
	logger *log.Logger

	mu    sync.Mutex
	stats Stats
}

func NewBatchWorker(out io.Writer, store BatchStore, logger *log.Logger) *BatchWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &BatchWorker{out: out, store: store, logger: logger.WithComponent("worker")}
}

// HandleBatchReady processes a single message from the queue. A batch missing
// from the store is reported, not retried: exports to a database are optional.
// The saved count is the batch size before report filters, the same number
// the message announces.
func (w *BatchWorker) HandleBatchReady(ctx context.Context, msg *amqp.BatchReadyMessage) error {
	w.logger.InfoContext(ctx, "Processing batch-ready message",
		"batch_id", msg.BatchID,
		"files", msg.Files,
		"bookings", msg.Bookings)

	status := "-"
	if w.store != nil {
		n, err := w.store.BatchBookings(ctx, msg.BatchID)
		switch {
		case errors.Is(err, storage.ErrBatchNotFound):
			status = "unsaved"
			w.record(func(s *Stats) { s.Unsaved++ })
			w.logger.WarnContext(ctx, "Batch not found in report database", "batch_id", msg.BatchID)
		case err != nil:
			return fmt.Errorf("look up batch %s: %w", msg.BatchID, err)
		case n != msg.Bookings:
			status = fmt.Sprintf("mismatch(%d)", n)
			w.record(func(s *Stats) { s.Mismatched++ })
			w.logger.WarnContext(ctx, "Saved booking count differs from message",
				"batch_id", msg.BatchID,
				"saved", n,
				"announced", msg.Bookings)
		default:
			status = "saved"
		}
	}

	w.record(func(s *Stats) { s.Processed++ })
	_, err := fmt.Fprintf(w.out, "%s\t%d files\t%d skipped\t%d bookings\t%s\t%s\n",
		msg.BatchID, msg.Files, len(msg.Skipped), msg.Bookings, strings.Join(msg.Months, ","), status)
	return err
}

// Run consumes messages until ctx is done. Cancellation is a clean stop.
func (w *BatchWorker) Run(ctx context.Context, client *amqp.Client) error {
	err := client.ConsumeBatchReady(ctx, w.HandleBatchReady)
	if errors.Is(err, context.Canceled) {
		s := w.Stats()
		w.logger.Info("Batch worker stopped",
			"processed", s.Processed,
			"unsaved", s.Unsaved,
			"mismatched", s.Mismatched)
		return nil
	}
	return err
}

func (w *BatchWorker) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

func (w *BatchWorker) record(f func(*Stats)) {
	w.mu.Lock()
	f(&w.stats)
	w.mu.Unlock()
}

var _ BatchStore = (*storage.SQLiteRepository)(nil)
