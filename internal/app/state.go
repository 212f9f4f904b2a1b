// Package app models the per-session application state as an explicit
// value passed through pure transitions. Each user action maps to one
// transition function returning the next state; nothing mutates in
// place, and every transition that could break a filter invariant
// restores it before returning.
package app

import (
	"kakeibo/internal/core"
)

// State is everything a signed-in session displays and edits. The zero
// value is the signed-out state.
type State struct {
	OwnerID string
	Month   string

	Transactions []core.Transaction
	Categories   core.Registry
	Budgets      map[string]int64

	Filter         core.Filter
	PromptRollover bool

	// Loading guards against duplicate concurrent submissions of the
	// same action. Begin sets it, Finish clears it.
	Loading bool
	// Status holds the last user-visible message, usually an error.
	Status string
}

// SignIn starts a fresh session for an owner. All data fields start
// empty and are filled by load transitions.
func SignIn(ownerID, month string) State {
	return State{OwnerID: ownerID, Month: month}
}

// SignOut clears all in-memory state.
func (s State) SignOut() State {
	return State{}
}

// SetMonth switches the selected month and drops month-scoped data so
// stale budgets are never shown against the new month.
func (s State) SetMonth(month string) State {
	s.Month = month
	s.Budgets = nil
	s.PromptRollover = false
	return s
}

// WithTransactions replaces the transaction list after a load.
func (s State) WithTransactions(items []core.Transaction) State {
	s.Transactions = items
	return s
}

// WithCategories replaces the category registry. Filters referencing a
// category that no longer exists are corrected here.
func (s State) WithCategories(registry core.Registry) State {
	s.Categories = registry
	return s.restoreFilterInvariants()
}

// WithBudgets replaces the month's budgets and the rollover prompt flag.
func (s State) WithBudgets(budgets map[string]int64, promptRollover bool) State {
	s.Budgets = budgets
	s.PromptRollover = promptRollover
	return s
}

// DismissRollover hides the rollover prompt without copying anything.
func (s State) DismissRollover() State {
	s.PromptRollover = false
	return s
}

// SetTypeFilter changes the type filter. Purpose only applies to
// expenses, so any other type clears it.
func (s State) SetTypeFilter(t core.TxType) State {
	s.Filter.Type = t
	return s.restoreFilterInvariants()
}

func (s State) SetPurposeFilter(p core.Purpose) State {
	s.Filter.Purpose = p
	return s.restoreFilterInvariants()
}

func (s State) SetCategoryFilter(category string) State {
	s.Filter.Category = category
	return s.restoreFilterInvariants()
}

func (s State) SetQueryFilter(query string) State {
	s.Filter.Query = query
	return s
}

func (s State) SetDateRangeFilter(from, to string) State {
	s.Filter.DateFrom = from
	s.Filter.DateTo = to
	return s
}

// ClearFilters resets every filter dimension to pass-all.
func (s State) ClearFilters() State {
	s.Filter = core.Filter{}
	return s
}

// Begin marks an action in flight. It reports false when another action
// is already running, in which case the submission must be ignored.
func (s State) Begin() (State, bool) {
	if s.Loading {
		return s, false
	}
	s.Loading = true
	s.Status = ""
	return s, true
}

// Finish completes the in-flight action. A non-nil error becomes the
// status message and leaves all data fields untouched.
func (s State) Finish(err error) State {
	s.Loading = false
	if err != nil {
		s.Status = err.Error()
	}
	return s
}

// Visible returns the transactions the current filter selects.
func (s State) Visible() []core.Transaction {
	return s.Filter.Apply(s.Transactions)
}

// Totals aggregates the currently visible transactions.
func (s State) Totals() core.Totals {
	return core.Sum(s.Visible())
}

func (s State) restoreFilterInvariants() State {
	s.Filter = s.Filter.Corrected(s.Categories)
	return s
}
