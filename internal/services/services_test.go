package services

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kakeibo/internal/core"
	"kakeibo/internal/storage"
)

const testOwner = "owner-1"

func newTestRepo(t *testing.T) *storage.SQLiteRepository {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func seedCategories(t *testing.T, repo *storage.SQLiteRepository, names ...string) {
	t.Helper()
	require.NoError(t, NewCategoryService(repo).Seed(context.Background(), testOwner, names))
}

func TestTransactionService_Create(t *testing.T) {
	repo := newTestRepo(t)
	seedCategories(t, repo, "食費", "給料")
	svc := NewTransactionService(repo, nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, core.Transaction{
		OwnerID:  testOwner,
		Date:     "2026-08-15",
		Amount:   -1200,
		Type:     core.Expense,
		Purpose:  core.Waste,
		Category: "食費",
		Note:     "コンビニ",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, int64(1200), created.Amount, "amount should be stored as absolute value")

	listed, err := svc.List(ctx, testOwner, core.Filter{})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, core.Waste, listed[0].Purpose)
}

func TestTransactionService_CreateUnknownCategory(t *testing.T) {
	repo := newTestRepo(t)
	seedCategories(t, repo, "食費")
	svc := NewTransactionService(repo, nil)

	_, err := svc.Create(context.Background(), core.Transaction{
		OwnerID:  testOwner,
		Date:     "2026-08-15",
		Amount:   500,
		Type:     core.Expense,
		Category: "趣味",
	})
	assert.ErrorIs(t, err, core.ErrUnknownCategory)
}

func TestTransactionService_ListFiltered(t *testing.T) {
	repo := newTestRepo(t)
	seedCategories(t, repo, "食費", "交通費", "給料")
	svc := NewTransactionService(repo, nil)
	ctx := context.Background()

	rows := []core.Transaction{
		{OwnerID: testOwner, Date: "2026-08-01", Amount: 500, Type: core.Expense, Purpose: core.Consumption, Category: "食費"},
		{OwnerID: testOwner, Date: "2026-08-02", Amount: 300, Type: core.Expense, Purpose: core.Waste, Category: "交通費"},
		{OwnerID: testOwner, Date: "2026-08-25", Amount: 250000, Type: core.Income, Category: "給料"},
	}
	for _, r := range rows {
		_, err := svc.Create(ctx, r)
		require.NoError(t, err)
	}

	got, err := svc.List(ctx, testOwner, core.Filter{Type: core.Expense})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = svc.List(ctx, testOwner, core.Filter{Purpose: core.Waste})
	require.NoError(t, err)
	require.Len(t, got, 2, "purpose filter must not exclude income rows")

	got, err = svc.List(ctx, testOwner, core.Filter{Type: core.Expense, Purpose: core.Waste})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "交通費", got[0].Category)
}

func TestCategoryService_DeleteGuard(t *testing.T) {
	repo := newTestRepo(t)
	seedCategories(t, repo, "食費", "趣味")
	cats := NewCategoryService(repo)
	txs := NewTransactionService(repo, nil)
	ctx := context.Background()

	_, err := txs.Create(ctx, core.Transaction{
		OwnerID: testOwner, Date: "2026-08-01", Amount: 500,
		Type: core.Expense, Category: "食費",
	})
	require.NoError(t, err)

	err = cats.Delete(ctx, testOwner, "食費")
	assert.ErrorIs(t, err, ErrCategoryInUse)

	require.NoError(t, cats.Delete(ctx, testOwner, "趣味"))
	reg, err := cats.Registry(ctx, testOwner)
	require.NoError(t, err)
	assert.Equal(t, []string{"食費"}, reg.Names())
}

func TestCategoryService_RenameCascades(t *testing.T) {
	repo := newTestRepo(t)
	seedCategories(t, repo, "食費")
	cats := NewCategoryService(repo)
	txs := NewTransactionService(repo, nil)
	budgets := NewBudgetService(repo)
	ctx := context.Background()

	_, err := txs.Create(ctx, core.Transaction{
		OwnerID: testOwner, Date: "2026-08-01", Amount: 500,
		Type: core.Expense, Category: "食費",
	})
	require.NoError(t, err)
	require.NoError(t, budgets.Save(ctx, testOwner, "2026-08", "食費", 30000))

	require.NoError(t, cats.Rename(ctx, testOwner, "食費", "食料品"))

	listed, err := txs.List(ctx, testOwner, core.Filter{})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "食料品", listed[0].Category)

	m, err := budgets.ListMonth(ctx, testOwner, "2026-08")
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"食料品": 30000}, m)
}

func TestCategoryService_EmptyName(t *testing.T) {
	repo := newTestRepo(t)
	cats := NewCategoryService(repo)
	ctx := context.Background()

	_, err := cats.Create(ctx, testOwner, "   ")
	assert.ErrorIs(t, err, ErrEmptyName)
	assert.ErrorIs(t, cats.Rename(ctx, testOwner, "a", ""), ErrEmptyName)
}

func TestBudgetService_RolloverPromptOnce(t *testing.T) {
	repo := newTestRepo(t)
	seedCategories(t, repo, "食費")
	budgets := NewBudgetService(repo)
	ctx := context.Background()

	require.NoError(t, budgets.Save(ctx, testOwner, "2026-07", "食費", 30000))

	got, err := budgets.LoadMonth(ctx, testOwner, "2026-08")
	require.NoError(t, err)
	assert.True(t, got.PromptRollover)
	assert.Empty(t, got.Budgets)

	// Second load of the same month must not prompt again.
	got, err = budgets.LoadMonth(ctx, testOwner, "2026-08")
	require.NoError(t, err)
	assert.False(t, got.PromptRollover)
}

func TestBudgetService_RolloverNoPreviousBudgets(t *testing.T) {
	repo := newTestRepo(t)
	budgets := NewBudgetService(repo)

	got, err := budgets.LoadMonth(context.Background(), testOwner, "2026-08")
	require.NoError(t, err)
	assert.False(t, got.PromptRollover)
}

func TestBudgetService_AcceptRollover(t *testing.T) {
	repo := newTestRepo(t)
	seedCategories(t, repo, "食費", "交通費")
	budgets := NewBudgetService(repo)
	ctx := context.Background()

	require.NoError(t, budgets.Save(ctx, testOwner, "2026-07", "食費", 30000))
	require.NoError(t, budgets.Save(ctx, testOwner, "2026-07", "交通費", 10000))

	require.NoError(t, budgets.AcceptRollover(ctx, testOwner, "2026-08"))

	m, err := budgets.ListMonth(ctx, testOwner, "2026-08")
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"食費": 30000, "交通費": 10000}, m)

	// Accepting latches the flag, no further prompt.
	got, err := budgets.LoadMonth(ctx, testOwner, "2026-08")
	require.NoError(t, err)
	assert.False(t, got.PromptRollover)
}

func TestBudgetService_CopyFrom(t *testing.T) {
	repo := newTestRepo(t)
	budgets := NewBudgetService(repo)
	ctx := context.Background()

	require.NoError(t, budgets.Save(ctx, testOwner, "2026-03", "食費", 30000))
	require.NoError(t, budgets.Save(ctx, testOwner, "2026-03", "交通費", 10000))
	// Target month starts with its own plan that must be fully replaced.
	require.NoError(t, budgets.Save(ctx, testOwner, "2026-08", "趣味", 5000))

	require.NoError(t, budgets.CopyFrom(ctx, testOwner, "2026-03", "2026-08"))

	m, err := budgets.ListMonth(ctx, testOwner, "2026-08")
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"食費": 30000, "交通費": 10000}, m)

	assert.ErrorIs(t, budgets.CopyFrom(ctx, testOwner, "bad", "2026-08"), core.ErrInvalidMonth)
}

func TestBudgetService_SaveZeroClears(t *testing.T) {
	repo := newTestRepo(t)
	budgets := NewBudgetService(repo)
	ctx := context.Background()

	require.NoError(t, budgets.Save(ctx, testOwner, "2026-08", "食費", 30000))
	require.NoError(t, budgets.Save(ctx, testOwner, "2026-08", "食費", 0))

	m, err := budgets.ListMonth(ctx, testOwner, "2026-08")
	require.NoError(t, err)
	assert.Empty(t, m)
}

func TestBudgetService_InvalidMonth(t *testing.T) {
	repo := newTestRepo(t)
	budgets := NewBudgetService(repo)

	_, err := budgets.LoadMonth(context.Background(), testOwner, "2026-8")
	assert.ErrorIs(t, err, core.ErrInvalidMonth)
}

func newCSVStack(t *testing.T) (*CSVService, *TransactionService, *CategoryService, *BudgetService) {
	repo := newTestRepo(t)
	txs := NewTransactionService(repo, nil)
	cats := NewCategoryService(repo)
	budgets := NewBudgetService(repo)
	return NewCSVService(txs, cats, budgets), txs, cats, budgets
}

func TestCSVService_ImportTransactionsSeedsCategories(t *testing.T) {
	csv, txs, cats, _ := newCSVStack(t)
	ctx := context.Background()

	input := strings.Join([]string{
		"日付,種別,分類,カテゴリ,メモ,金額",
		"2026-08-15,支出,消費,食費,スーパー,3200",
		"2026-08-25,収入,収入,給料,,250000",
	}, "\n")

	res, err := csv.ImportTransactions(ctx, testOwner, input)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Imported)
	assert.Equal(t, 0, res.Dropped)
	assert.ElementsMatch(t, []string{"食費", "給料"}, res.SeededCategories)

	reg, err := cats.Registry(ctx, testOwner)
	require.NoError(t, err)
	assert.True(t, reg.Has("食費"))

	listed, err := txs.List(ctx, testOwner, core.Filter{})
	require.NoError(t, err)
	assert.Len(t, listed, 2)
}

func TestCSVService_ImportTransactionsReportsDropped(t *testing.T) {
	csv, _, _, _ := newCSVStack(t)

	input := strings.Join([]string{
		"日付,種別,分類,カテゴリ,メモ,金額",
		"2026-08-15,支出,消費,食費,ok,3200",
		"not-a-date,支出,消費,食費,bad,100",
		"2026-08-16,支出,消費,食費,ok,abc",
	}, "\n")

	res, err := csv.ImportTransactions(context.Background(), testOwner, input)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Imported)
	assert.Equal(t, 2, res.Dropped)
}

func TestCSVService_ExportTransactionsRoundTrip(t *testing.T) {
	csv, txs, cats, _ := newCSVStack(t)
	ctx := context.Background()

	require.NoError(t, cats.Seed(ctx, testOwner, []string{"食費"}))
	_, err := txs.Create(ctx, core.Transaction{
		OwnerID: testOwner, Date: "2026-08-15", Amount: 3200,
		Type: core.Expense, Purpose: core.Consumption, Category: "食費", Note: "スーパー",
	})
	require.NoError(t, err)

	out, err := csv.ExportTransactions(ctx, testOwner, core.Filter{DateFrom: "2026-08-01", DateTo: "2026-08-31"}, "2026-08")
	require.NoError(t, err)
	assert.Equal(t, "kakeibo-transactions-2026-08.csv", out.Filename)
	assert.Contains(t, out.Content, `"食費"`)

	res, err := csv.ImportTransactions(ctx, "owner-2", out.Content)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Imported)
}

func TestCSVService_ImportBudgetsReplacesMonth(t *testing.T) {
	csv, _, _, budgets := newCSVStack(t)
	ctx := context.Background()

	require.NoError(t, budgets.Save(ctx, testOwner, "2026-08", "趣味", 5000))

	input := strings.Join([]string{
		"月,カテゴリ,予算",
		"2026-08,食費,30000",
		"2026-08,交通費,10000",
		"2026-09,食費,28000",
	}, "\n")

	res, err := csv.ImportBudgets(ctx, testOwner, input)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Imported)

	aug, err := budgets.ListMonth(ctx, testOwner, "2026-08")
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"食費": 30000, "交通費": 10000}, aug, "import replaces the month, old rows go")

	sep, err := budgets.ListMonth(ctx, testOwner, "2026-09")
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"食費": 28000}, sep)
}

func TestCSVService_ExportBudgetsMonth(t *testing.T) {
	csv, _, cats, budgets := newCSVStack(t)
	ctx := context.Background()

	require.NoError(t, cats.Seed(ctx, testOwner, []string{"食費", "交通費"}))
	require.NoError(t, budgets.Save(ctx, testOwner, "2026-08", "食費", 30000))

	out, err := csv.ExportBudgets(ctx, testOwner, "2026-08")
	require.NoError(t, err)
	assert.Equal(t, "kakeibo-budgets-2026-08.csv", out.Filename)
	assert.Contains(t, out.Content, `"30000"`)
}

func TestCSVService_ExportCategories(t *testing.T) {
	csv, _, cats, _ := newCSVStack(t)
	ctx := context.Background()

	require.NoError(t, cats.Seed(ctx, testOwner, []string{"食費", "交通費"}))

	out, err := csv.ExportCategories(ctx, testOwner)
	require.NoError(t, err)
	assert.Equal(t, "kakeibo-categories-all.csv", out.Filename)
	assert.Contains(t, out.Content, "カテゴリ")
}
