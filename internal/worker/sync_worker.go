package worker

import (
	"context"
	"fmt"
	"log/slog"

	"kakeibo/internal/amqp"
	"kakeibo/internal/core"
	"kakeibo/internal/sheets"
	"kakeibo/internal/storage"
)

// SyncWorker mirrors transactions from SQLite to the external ledger.
// It consumes sync messages and, as a backup for lost messages, scans
// the pending queue.
type SyncWorker struct {
	storage   *storage.SQLiteRepository
	ledger    sheets.LedgerAppender
	batchSize int
}

func NewSyncWorker(storage *storage.SQLiteRepository, ledger sheets.LedgerAppender, batchSize int) *SyncWorker {
	return &SyncWorker{
		storage:   storage,
		ledger:    ledger,
		batchSize: batchSize,
	}
}

// HandleSyncMessage processes a single transaction sync message.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.TransactionSyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message", "transaction_id", msg.ID)

	t, err := w.storage.GetTransactionAnyOwner(ctx, msg.ID)
	if err != nil {
		return fmt.Errorf("get transaction from storage: %w", err)
	}

	if err := w.syncToLedger(ctx, t.ID, t); err != nil {
		return fmt.Errorf("sync transaction to ledger: %w", err)
	}
	return nil
}

// ProcessPendingTransactions mirrors transactions that never got their
// sync message through, one batch at a time.
func (w *SyncWorker) ProcessPendingTransactions(ctx context.Context) error {
	pending, err := w.storage.GetPendingSyncTransactions(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending transactions: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending transactions", "count", len(pending))

	for _, p := range pending {
		t, err := w.storage.GetTransactionAnyOwner(ctx, p.ID)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to get transaction", "transaction_id", p.ID, "error", err)
			continue
		}
		if err := w.syncToLedger(ctx, p.ID, t); err != nil {
			slog.ErrorContext(ctx, "Failed to sync transaction", "transaction_id", p.ID, "error", err)
			continue
		}
	}
	return nil
}

// StartupSyncCheck drains the pending queue once at worker startup, with
// a larger batch, to recover from downtime.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	pending, err := w.storage.GetPendingSyncTransactions(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("get pending transactions for startup check: %w", err)
	}
	if len(pending) == 0 {
		slog.InfoContext(ctx, "No pending transactions found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending transactions on startup, processing...",
		"count", len(pending))

	synced := 0
	failed := 0
	for _, p := range pending {
		t, err := w.storage.GetTransactionAnyOwner(ctx, p.ID)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to get transaction for startup sync",
				"transaction_id", p.ID, "error", err)
			failed++
			continue
		}
		if err := w.syncToLedger(ctx, p.ID, t); err != nil {
			slog.ErrorContext(ctx, "Failed to sync transaction during startup",
				"transaction_id", p.ID, "error", err)
			failed++
			continue
		}
		synced++
	}

	slog.InfoContext(ctx, "Startup sync completed",
		"total", len(pending),
		"synced", synced,
		"errors", failed)
	return nil
}

func (w *SyncWorker) syncToLedger(ctx context.Context, id string, t core.Transaction) error {
	ref, err := w.ledger.Append(ctx, t)
	if err != nil {
		return fmt.Errorf("append to ledger: %w", err)
	}

	if err := w.storage.MarkTransactionSynced(ctx, id); err != nil {
		// The append worked, only the bookkeeping failed. The pending
		// scan will retry and the ledger may get a duplicate row.
		slog.ErrorContext(ctx, "Failed to mark as synced", "transaction_id", id, "error", err)
	}

	slog.InfoContext(ctx, "Synced transaction",
		"transaction_id", id,
		"ledger_ref", ref,
		"amount", t.Amount)
	return nil
}
