package core

import "strings"

// Filter is a conjunction of independent predicates over transactions.
// Zero-valued fields pass everything, so the zero Filter matches all items.
// Filters are transient view state and are never persisted.
type Filter struct {
	Type     TxType  // "" matches both types
	Purpose  Purpose // "" matches every purpose
	Category string  // "" matches every category
	Query    string  // case-insensitive substring match on the note
	DateFrom string  // inclusive lower bound, YYYY-MM-DD
	DateTo   string  // inclusive upper bound, YYYY-MM-DD
}

// Matches reports whether a single transaction passes every active predicate.
func (f Filter) Matches(t Transaction) bool {
	if f.Type != "" && t.Type != f.Type {
		return false
	}
	// Purpose only discriminates expenses; income rows are exempt even
	// when a purpose filter is set.
	if f.Purpose != "" && t.Type == Expense && t.EffectivePurpose() != f.Purpose {
		return false
	}
	if f.Category != "" && t.Category != f.Category {
		return false
	}
	if f.Query != "" && !strings.Contains(strings.ToLower(t.Note), strings.ToLower(f.Query)) {
		return false
	}
	// ISO dates compare lexicographically in chronological order.
	if f.DateFrom != "" && t.Date < f.DateFrom {
		return false
	}
	if f.DateTo != "" && t.Date > f.DateTo {
		return false
	}
	return true
}

// Apply returns the subset of items matching the filter, preserving order.
func (f Filter) Apply(items []Transaction) []Transaction {
	if f.IsZero() {
		out := make([]Transaction, len(items))
		copy(out, items)
		return out
	}
	var out []Transaction
	for _, t := range items {
		if f.Matches(t) {
			out = append(out, t)
		}
	}
	return out
}

// IsZero reports whether no predicate is active.
func (f Filter) IsZero() bool {
	return f == Filter{}
}

// Corrected restores the filter invariants after a state change:
// a non-expense type filter forces the purpose filter back to pass-all,
// and a category selection that left the registry resets to pass-all.
// It must be called whenever the type filter or the category list changes.
func (f Filter) Corrected(registry Registry) Filter {
	if f.Type != Expense {
		f.Purpose = ""
	}
	if f.Category != "" && !registry.Has(f.Category) {
		f.Category = ""
	}
	return f
}
