package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"kakeibo/internal/core"
)

// ErrNotFound is returned when a row does not exist for the given owner.
var ErrNotFound = errors.New("not found")

// SQLiteRepository provides the four owner-scoped collections backing the
// application: transactions, categories, budgets and the pending-sync queue.
// Every query filters by owner id; callers never see other owners' rows.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// --- transactions ---

// InsertTransaction stores a normalized transaction and returns it with its
// assigned id and creation time.
func (r *SQLiteRepository) InsertTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	t = t.Normalize()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (id, owner_id, date, amount, type, purpose, category, note, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.OwnerID, t.Date, t.Amount, string(t.Type), string(t.Purpose), t.Category, t.Note, t.CreatedAt)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved",
		"id", t.ID,
		"date", t.Date,
		"type", string(t.Type),
		"category", t.Category,
		"amount", t.Amount)
	return t, nil
}

// ListTransactions returns every transaction of an owner ordered by date
// descending, then creation time descending.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, ownerID string) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, owner_id, date, amount, type, purpose, category, note, created_at
		 FROM transactions WHERE owner_id = ?
		 ORDER BY date DESC, created_at DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()
	return scanTransactions(rows)
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, ownerID, id string) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, owner_id, date, amount, type, purpose, category, note, created_at
		 FROM transactions WHERE owner_id = ? AND id = ?`, ownerID, id)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return t, nil
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, ownerID, id string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM transactions WHERE owner_id = ? AND id = ?`, ownerID, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// CountTransactionsByCategory backs the category delete guard.
func (r *SQLiteRepository) CountTransactionsByCategory(ctx context.Context, ownerID, category string) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transactions WHERE owner_id = ? AND category = ?`,
		ownerID, category).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count transactions by category: %w", err)
	}
	return n, nil
}

// --- categories ---

func (r *SQLiteRepository) InsertCategory(ctx context.Context, ownerID, name string) (core.Category, error) {
	c := core.Category{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (id, owner_id, name, created_at) VALUES (?, ?, ?, ?)`,
		c.ID, c.OwnerID, c.Name, c.CreatedAt)
	if err != nil {
		return core.Category{}, fmt.Errorf("insert category: %w", err)
	}
	return c, nil
}

// InsertCategories bulk-seeds categories in one transaction, preserving the
// given order as creation order. Names already present are skipped.
func (r *SQLiteRepository) InsertCategories(ctx context.Context, ownerID string, names []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed categories: %w", err)
	}
	defer tx.Rollback()

	base := time.Now().UTC()
	for i, name := range names {
		// Offset creation times so display order follows seed order.
		_, err := tx.ExecContext(ctx,
			`INSERT INTO categories (id, owner_id, name, created_at) VALUES (?, ?, ?, ?)
			 ON CONFLICT (owner_id, name) DO NOTHING`,
			uuid.NewString(), ownerID, name, base.Add(time.Duration(i)*time.Microsecond))
		if err != nil {
			return fmt.Errorf("seed category %q: %w", name, err)
		}
	}
	return tx.Commit()
}

// ListCategories returns an owner's categories in creation order.
func (r *SQLiteRepository) ListCategories(ctx context.Context, ownerID string) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, owner_id, name, created_at FROM categories
		 WHERE owner_id = ? ORDER BY created_at ASC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.ID, &c.OwnerID, &c.Name, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// RenameCategory renames a category and cascades the new name to every
// transaction and budget row referencing the old one, atomically.
func (r *SQLiteRepository) RenameCategory(ctx context.Context, ownerID, oldName, newName string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin rename category: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE categories SET name = ? WHERE owner_id = ? AND name = ?`,
		newName, ownerID, oldName)
	if err != nil {
		return fmt.Errorf("rename category: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE transactions SET category = ? WHERE owner_id = ? AND category = ?`,
		newName, ownerID, oldName); err != nil {
		return fmt.Errorf("cascade rename to transactions: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE budgets SET category = ? WHERE owner_id = ? AND category = ?`,
		newName, ownerID, oldName); err != nil {
		return fmt.Errorf("cascade rename to budgets: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit rename category: %w", err)
	}
	slog.InfoContext(ctx, "Category renamed", "old", oldName, "new", newName)
	return nil
}

// DeleteCategory removes a category and cascades to its budgets. The
// in-use guard (count check) is the caller's responsibility.
func (r *SQLiteRepository) DeleteCategory(ctx context.Context, ownerID, name string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete category: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`DELETE FROM categories WHERE owner_id = ? AND name = ?`, ownerID, name)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM budgets WHERE owner_id = ? AND category = ?`, ownerID, name); err != nil {
		return fmt.Errorf("cascade delete budgets: %w", err)
	}

	return tx.Commit()
}

// --- budgets ---

// ListBudgets returns an owner's budget rows for one month.
func (r *SQLiteRepository) ListBudgets(ctx context.Context, ownerID, month string) ([]core.Budget, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, owner_id, month, category, amount, created_at FROM budgets
		 WHERE owner_id = ? AND month = ? ORDER BY created_at ASC`, ownerID, month)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()
	return scanBudgets(rows)
}

// ListAllBudgets returns every budget row of an owner, ordered by month.
func (r *SQLiteRepository) ListAllBudgets(ctx context.Context, ownerID string) ([]core.Budget, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, owner_id, month, category, amount, created_at FROM budgets
		 WHERE owner_id = ? ORDER BY month ASC, created_at ASC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list all budgets: %w", err)
	}
	defer rows.Close()
	return scanBudgets(rows)
}

// UpsertBudget inserts or updates by the (owner, month, category) natural key.
func (r *SQLiteRepository) UpsertBudget(ctx context.Context, b core.Budget) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO budgets (id, owner_id, month, category, amount, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (owner_id, month, category) DO UPDATE SET amount = excluded.amount`,
		b.ID, b.OwnerID, b.Month, b.Category, b.Amount, b.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert budget: %w", err)
	}
	return nil
}

// DeleteBudgets removes all of an owner's budget rows for a month.
func (r *SQLiteRepository) DeleteBudgets(ctx context.Context, ownerID, month string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM budgets WHERE owner_id = ? AND month = ?`, ownerID, month)
	if err != nil {
		return fmt.Errorf("delete budgets: %w", err)
	}
	return nil
}

// DeleteBudget removes a single budget row by its natural key.
func (r *SQLiteRepository) DeleteBudget(ctx context.Context, ownerID, month, category string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM budgets WHERE owner_id = ? AND month = ? AND category = ?`,
		ownerID, month, category)
	if err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	return nil
}

// ReplaceBudgets deletes the target month's rows and inserts the given set
// in one transaction: a full replace, never a merge.
func (r *SQLiteRepository) ReplaceBudgets(ctx context.Context, ownerID, month string, budgets []core.Budget) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace budgets: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM budgets WHERE owner_id = ? AND month = ?`, ownerID, month); err != nil {
		return fmt.Errorf("clear target month: %w", err)
	}

	now := time.Now().UTC()
	for _, b := range budgets {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO budgets (id, owner_id, month, category, amount, created_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			uuid.NewString(), ownerID, month, b.Category, b.Amount, now); err != nil {
			return fmt.Errorf("insert budget %q: %w", b.Category, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace budgets: %w", err)
	}
	slog.InfoContext(ctx, "Budgets replaced", "month", month, "count", len(budgets))
	return nil
}

// --- sync queue ---

// PendingSyncTransaction is the minimal row handed to the mirror worker.
type PendingSyncTransaction struct {
	ID        string
	OwnerID   string
	CreatedAt time.Time
}

// GetPendingSyncTransactions returns transactions not yet mirrored.
func (r *SQLiteRepository) GetPendingSyncTransactions(ctx context.Context, limit int) ([]PendingSyncTransaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, owner_id, created_at FROM transactions
		 WHERE synced = 0 ORDER BY created_at ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("get pending sync transactions: %w", err)
	}
	defer rows.Close()

	var out []PendingSyncTransaction
	for rows.Next() {
		var p PendingSyncTransaction
		if err := rows.Scan(&p.ID, &p.OwnerID, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan pending transaction: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetTransactionAnyOwner fetches a transaction by id alone. Only the worker
// uses this; owner scoping on the serving path goes through GetTransaction.
func (r *SQLiteRepository) GetTransactionAnyOwner(ctx context.Context, id string) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, owner_id, date, amount, type, purpose, category, note, created_at
		 FROM transactions WHERE id = ?`, id)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return t, nil
}

// MarkTransactionSynced marks a transaction as successfully mirrored.
func (r *SQLiteRepository) MarkTransactionSynced(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET synced = 1 WHERE id = ?`, id); err != nil {
		return fmt.Errorf("mark transaction synced: %w", err)
	}
	slog.InfoContext(ctx, "Transaction marked as synced", "id", id)
	return nil
}

// --- scanning helpers ---

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var t core.Transaction
	var typ, purpose string
	if err := row.Scan(&t.ID, &t.OwnerID, &t.Date, &t.Amount, &typ, &purpose, &t.Category, &t.Note, &t.CreatedAt); err != nil {
		return core.Transaction{}, err
	}
	t.Type = core.TxType(typ)
	t.Purpose = core.Purpose(purpose)
	return t, nil
}

func scanTransactions(rows *sql.Rows) ([]core.Transaction, error) {
	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func scanBudgets(rows *sql.Rows) ([]core.Budget, error) {
	var out []core.Budget
	for rows.Next() {
		var b core.Budget
		if err := rows.Scan(&b.ID, &b.OwnerID, &b.Month, &b.Category, &b.Amount, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
