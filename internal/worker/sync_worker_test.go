package worker

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kakeibo/internal/amqp"
	"kakeibo/internal/core"
	"kakeibo/internal/sheets/memory"
	"kakeibo/internal/storage"
)

func newTestRepo(t *testing.T) *storage.SQLiteRepository {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func insertTx(t *testing.T, repo *storage.SQLiteRepository, ownerID string) core.Transaction {
	t.Helper()
	tx, err := repo.InsertTransaction(context.Background(), core.Transaction{
		OwnerID:  ownerID,
		Date:     "2026-08-15",
		Amount:   1200,
		Type:     core.Expense,
		Purpose:  core.Consumption,
		Category: "食費",
		Note:     "ランチ",
	})
	require.NoError(t, err)
	return tx
}

func TestHandleSyncMessage(t *testing.T) {
	repo := newTestRepo(t)
	ledger := memory.New()
	w := NewSyncWorker(repo, ledger, 10)
	ctx := context.Background()

	tx := insertTx(t, repo, "owner-1")

	err := w.HandleSyncMessage(ctx, amqp.NewTransactionSyncMessage(tx.ID, tx.OwnerID))
	require.NoError(t, err)

	items := ledger.Items()
	require.Len(t, items, 1)
	assert.Equal(t, tx.ID, items[0].ID)
	assert.Equal(t, int64(1200), items[0].Amount)

	// Marked synced, so the pending scan finds nothing.
	pending, err := repo.GetPendingSyncTransactions(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestHandleSyncMessage_UnknownTransaction(t *testing.T) {
	repo := newTestRepo(t)
	w := NewSyncWorker(repo, memory.New(), 10)

	err := w.HandleSyncMessage(context.Background(), amqp.NewTransactionSyncMessage("no-such-id", "owner-1"))
	assert.Error(t, err)
}

func TestProcessPendingTransactions(t *testing.T) {
	repo := newTestRepo(t)
	ledger := memory.New()
	w := NewSyncWorker(repo, ledger, 10)
	ctx := context.Background()

	insertTx(t, repo, "owner-1")
	insertTx(t, repo, "owner-2")

	require.NoError(t, w.ProcessPendingTransactions(ctx))

	assert.Len(t, ledger.Items(), 2)
	pending, err := repo.GetPendingSyncTransactions(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestProcessPendingTransactions_AppendFailureLeavesPending(t *testing.T) {
	repo := newTestRepo(t)
	ledger := memory.New()
	w := NewSyncWorker(repo, ledger, 10)
	ctx := context.Background()

	insertTx(t, repo, "owner-1")
	ledger.FailNext = true

	require.NoError(t, w.ProcessPendingTransactions(ctx))

	assert.Empty(t, ledger.Items())
	pending, err := repo.GetPendingSyncTransactions(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	// Next scan retries and succeeds.
	require.NoError(t, w.ProcessPendingTransactions(ctx))
	assert.Len(t, ledger.Items(), 1)
}

func TestStartupSyncCheck(t *testing.T) {
	repo := newTestRepo(t)
	ledger := memory.New()
	w := NewSyncWorker(repo, ledger, 2)
	ctx := context.Background()

	for range 5 {
		insertTx(t, repo, "owner-1")
	}

	// Startup check uses a larger batch than the steady-state scan.
	require.NoError(t, w.StartupSyncCheck(ctx))
	assert.Len(t, ledger.Items(), 5)
}
