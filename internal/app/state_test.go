package app

import (
	"errors"
	"testing"

	"kakeibo/internal/core"
)

func registry(names ...string) core.Registry {
	return core.NewRegistry(names)
}

func TestSignInAndOut(t *testing.T) {
	s := SignIn("owner-1", "2026-08")
	if s.OwnerID != "owner-1" || s.Month != "2026-08" {
		t.Fatalf("SignIn = %+v", s)
	}

	s = s.WithTransactions([]core.Transaction{{ID: "a"}})
	s = s.SignOut()
	if s.OwnerID != "" || s.Transactions != nil {
		t.Errorf("SignOut should clear all state, got %+v", s)
	}
}

func TestSetMonthDropsMonthScopedData(t *testing.T) {
	s := SignIn("owner-1", "2026-08")
	s = s.WithBudgets(map[string]int64{"食費": 30000}, true)

	s = s.SetMonth("2026-09")
	if s.Budgets != nil {
		t.Error("SetMonth should drop the previous month's budgets")
	}
	if s.PromptRollover {
		t.Error("SetMonth should reset the rollover prompt")
	}
}

func TestNonExpenseTypeClearsPurposeFilter(t *testing.T) {
	s := SignIn("owner-1", "2026-08").WithCategories(registry("食費"))
	s = s.SetTypeFilter(core.Expense)
	s = s.SetPurposeFilter(core.Waste)

	s = s.SetTypeFilter(core.Income)
	if s.Filter.Purpose != "" {
		t.Errorf("Purpose filter = %q, want cleared for non-expense type", s.Filter.Purpose)
	}

	s = s.SetTypeFilter("")
	s = s.SetPurposeFilter(core.Waste)
	if s.Filter.Purpose != "" {
		t.Error("Purpose filter should not stick while type filter is not expense")
	}
}

func TestCategoryRemovalClearsCategoryFilter(t *testing.T) {
	s := SignIn("owner-1", "2026-08").WithCategories(registry("食費", "趣味"))
	s = s.SetCategoryFilter("趣味")

	s = s.WithCategories(registry("食費"))
	if s.Filter.Category != "" {
		t.Errorf("Category filter = %q, want cleared after removal", s.Filter.Category)
	}

	// Unrelated transitions leave a valid selection alone.
	s = s.SetCategoryFilter("食費").SetQueryFilter("coffee")
	if s.Filter.Category != "食費" {
		t.Error("valid category selection should survive unrelated transitions")
	}
}

func TestBeginRejectsConcurrentAction(t *testing.T) {
	s := SignIn("owner-1", "2026-08")

	s, ok := s.Begin()
	if !ok || !s.Loading {
		t.Fatal("first Begin should start the action")
	}

	_, ok = s.Begin()
	if ok {
		t.Error("second Begin should be rejected while loading")
	}

	s = s.Finish(nil)
	if s.Loading || s.Status != "" {
		t.Errorf("Finish(nil) = %+v, want idle with empty status", s)
	}
}

func TestFinishErrorKeepsPriorData(t *testing.T) {
	s := SignIn("owner-1", "2026-08")
	s = s.WithTransactions([]core.Transaction{{ID: "a", Date: "2026-08-01", Amount: 500, Type: core.Expense, Category: "食費"}})

	s, _ = s.Begin()
	s = s.Finish(errors.New("insert failed"))

	if s.Status != "insert failed" {
		t.Errorf("Status = %q, want error message", s.Status)
	}
	if len(s.Transactions) != 1 {
		t.Error("a failed action must leave prior data untouched")
	}
}

func TestVisibleAndTotals(t *testing.T) {
	s := SignIn("owner-1", "2026-08").WithCategories(registry("食費", "給料"))
	s = s.WithTransactions([]core.Transaction{
		{ID: "a", Date: "2026-08-01", Amount: 1200, Type: core.Expense, Purpose: core.Consumption, Category: "食費"},
		{ID: "b", Date: "2026-08-25", Amount: 50000, Type: core.Income, Category: "給料"},
	})

	got := s.Totals()
	want := core.Totals{Income: 50000, Expense: 1200, Balance: 48800}
	if got != want {
		t.Errorf("Totals() = %+v, want %+v", got, want)
	}

	s = s.SetTypeFilter(core.Expense)
	if n := len(s.Visible()); n != 1 {
		t.Errorf("Visible() len = %d, want 1", n)
	}

	s = s.ClearFilters()
	if n := len(s.Visible()); n != 2 {
		t.Errorf("Visible() after ClearFilters len = %d, want 2", n)
	}
}
