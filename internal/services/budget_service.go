package services

import (
	"context"
	"fmt"
	"sync"

	"kakeibo/internal/core"
	"kakeibo/internal/storage"
)

// MonthBudgets is what the budget screen renders for one month: the
// stored amounts plus whether a rollover prompt should be shown.
type MonthBudgets struct {
	Month          string
	Budgets        map[string]int64
	PromptRollover bool
}

// BudgetService manages per-month category budgets and the once-per-month
// rollover prompt. Prompt flags live in process memory so a dismissed
// prompt stays dismissed for the life of the process but reappears after
// a restart, which is acceptable for a single-user tool.
type BudgetService struct {
	storage *storage.SQLiteRepository

	mu    sync.Mutex
	flags map[string]core.RolloverFlag // keyed owner|month
}

func NewBudgetService(storage *storage.SQLiteRepository) *BudgetService {
	return &BudgetService{
		storage: storage,
		flags:   make(map[string]core.RolloverFlag),
	}
}

func flagKey(ownerID, month string) string {
	return ownerID + "|" + month
}

func budgetMap(rows []core.Budget) map[string]int64 {
	m := make(map[string]int64, len(rows))
	for _, b := range rows {
		m[b.Category] = b.Amount
	}
	return m
}

// LoadMonth returns the month's budgets and decides, at most once per
// month, whether to prompt the user to copy the previous month's plan.
func (s *BudgetService) LoadMonth(ctx context.Context, ownerID, month string) (MonthBudgets, error) {
	if !core.ValidMonth(month) {
		return MonthBudgets{}, core.ErrInvalidMonth
	}

	currentRows, err := s.storage.ListBudgets(ctx, ownerID, month)
	if err != nil {
		return MonthBudgets{}, fmt.Errorf("list budgets: %w", err)
	}
	prevRows, err := s.storage.ListBudgets(ctx, ownerID, core.PrevMonth(month))
	if err != nil {
		return MonthBudgets{}, fmt.Errorf("list previous budgets: %w", err)
	}
	current, prev := budgetMap(currentRows), budgetMap(prevRows)

	s.mu.Lock()
	key := flagKey(ownerID, month)
	flag, prompt := core.DecideRollover(s.flags[key], current, prev)
	s.flags[key] = flag
	s.mu.Unlock()

	return MonthBudgets{Month: month, Budgets: current, PromptRollover: prompt}, nil
}

// DismissRollover records that the user declined the prompt. The flag is
// already latched by LoadMonth, so this only matters when a prompt is
// dismissed without a reload.
func (s *BudgetService) DismissRollover(ownerID, month string) {
	s.mu.Lock()
	s.flags[flagKey(ownerID, month)] = core.RolloverPrompted
	s.mu.Unlock()
}

// AcceptRollover copies the previous month's budgets into the target
// month, overwriting any amounts already set there.
func (s *BudgetService) AcceptRollover(ctx context.Context, ownerID, month string) error {
	if !core.ValidMonth(month) {
		return core.ErrInvalidMonth
	}
	prev, err := s.storage.ListBudgets(ctx, ownerID, core.PrevMonth(month))
	if err != nil {
		return fmt.Errorf("list previous budgets: %w", err)
	}
	for _, b := range prev {
		copied := core.Budget{OwnerID: ownerID, Month: month, Category: b.Category, Amount: b.Amount}
		if err := s.storage.UpsertBudget(ctx, copied); err != nil {
			return fmt.Errorf("copy budget %q: %w", b.Category, err)
		}
	}
	s.mu.Lock()
	s.flags[flagKey(ownerID, month)] = core.RolloverChecked
	s.mu.Unlock()
	return nil
}

// CopyFrom replaces the target month's budget set with the rows of an
// arbitrary source month. Unlike AcceptRollover it is a full replace and
// ignores the prompt state.
func (s *BudgetService) CopyFrom(ctx context.Context, ownerID, fromMonth, toMonth string) error {
	if !core.ValidMonth(fromMonth) || !core.ValidMonth(toMonth) {
		return core.ErrInvalidMonth
	}
	source, err := s.storage.ListBudgets(ctx, ownerID, fromMonth)
	if err != nil {
		return fmt.Errorf("list source budgets: %w", err)
	}
	copied := make([]core.Budget, len(source))
	for i, b := range source {
		copied[i] = core.Budget{OwnerID: ownerID, Month: toMonth, Category: b.Category, Amount: b.Amount}
	}
	if err := s.storage.ReplaceBudgets(ctx, ownerID, toMonth, copied); err != nil {
		return fmt.Errorf("copy budgets: %w", err)
	}
	return nil
}

// Save sets one category's budget for a month. A zero amount removes the
// row rather than storing an empty budget.
func (s *BudgetService) Save(ctx context.Context, ownerID, month, category string, amount int64) error {
	b := core.Budget{OwnerID: ownerID, Month: month, Category: category, Amount: amount}
	if amount != 0 {
		if err := b.Validate(); err != nil {
			return err
		}
		if err := s.storage.UpsertBudget(ctx, b); err != nil {
			return fmt.Errorf("save budget: %w", err)
		}
		return nil
	}
	if !core.ValidMonth(month) {
		return core.ErrInvalidMonth
	}
	if err := s.storage.DeleteBudget(ctx, ownerID, month, category); err != nil {
		return fmt.Errorf("clear budget: %w", err)
	}
	return nil
}

// ListMonth returns the stored budgets for a month without touching the
// rollover state.
func (s *BudgetService) ListMonth(ctx context.Context, ownerID, month string) (map[string]int64, error) {
	if !core.ValidMonth(month) {
		return nil, core.ErrInvalidMonth
	}
	rows, err := s.storage.ListBudgets(ctx, ownerID, month)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	return budgetMap(rows), nil
}

// ListAll returns every stored budget row for the owner, for export.
func (s *BudgetService) ListAll(ctx context.Context, ownerID string) ([]core.Budget, error) {
	budgets, err := s.storage.ListAllBudgets(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list all budgets: %w", err)
	}
	return budgets, nil
}

// Replace swaps the full budget set for a month, used by CSV import.
func (s *BudgetService) Replace(ctx context.Context, ownerID, month string, budgets []core.Budget) error {
	if !core.ValidMonth(month) {
		return core.ErrInvalidMonth
	}
	for i := range budgets {
		budgets[i].OwnerID = ownerID
		budgets[i].Month = month
		if err := budgets[i].Validate(); err != nil {
			return err
		}
	}
	if err := s.storage.ReplaceBudgets(ctx, ownerID, month, budgets); err != nil {
		return fmt.Errorf("replace budgets: %w", err)
	}
	return nil
}
