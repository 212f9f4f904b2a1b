package core

import "testing"

func sampleItems() []Transaction {
	return []Transaction{
		tx("2024-01-05", 1200, Expense, Consumption, "食費", "スーパーで買い物"),
		tx("2024-01-08", 3000, Expense, Waste, "娯楽", "ゲーム"),
		tx("2024-01-10", 50000, Income, Consumption, "労働", "給料"),
		tx("2024-01-15", 800, Expense, Investment, "書籍", "Go本"),
		tx("2024-02-01", 400, Expense, Consumption, "食費", ""),
	}
}

func TestFilterZeroMatchesAll(t *testing.T) {
	items := sampleItems()
	got := (Filter{}).Apply(items)
	if len(got) != len(items) {
		t.Fatalf("zero filter dropped items: %d != %d", len(got), len(items))
	}
}

func TestFilterPredicates(t *testing.T) {
	items := sampleItems()
	cases := []struct {
		name string
		f    Filter
		want int
	}{
		{"type expense", Filter{Type: Expense}, 4},
		{"type income", Filter{Type: Income}, 1},
		{"purpose waste", Filter{Type: Expense, Purpose: Waste}, 1},
		{"category", Filter{Category: "食費"}, 2},
		{"query is case-insensitive", Filter{Query: "go本"}, 1},
		{"date from", Filter{DateFrom: "2024-01-10"}, 3},
		{"date to", Filter{DateTo: "2024-01-10"}, 3},
		{"date range inclusive", Filter{DateFrom: "2024-01-08", DateTo: "2024-01-15"}, 3},
		{"conjunction", Filter{Type: Expense, Category: "食費", DateTo: "2024-01-31"}, 1},
	}
	for _, tc := range cases {
		if got := tc.f.Apply(items); len(got) != tc.want {
			t.Fatalf("%s: expected %d, got %d", tc.name, tc.want, len(got))
		}
	}
}

func TestFilterPurposeExemptsIncome(t *testing.T) {
	items := sampleItems()
	// a purpose filter alone must not hide income rows
	got := (Filter{Purpose: Waste}).Apply(items)
	foundIncome := false
	for _, it := range got {
		if it.Type == Income {
			foundIncome = true
		}
		if it.Type == Expense && it.EffectivePurpose() != Waste {
			t.Fatalf("expense with wrong purpose passed: %+v", it)
		}
	}
	if !foundIncome {
		t.Fatalf("income row was filtered by a purpose predicate")
	}
}

func TestFilterMonotonicity(t *testing.T) {
	items := sampleItems()
	full := Filter{Type: Expense, Category: "食費", Query: "買い物", DateFrom: "2024-01-01", DateTo: "2024-12-31"}
	base := full.Apply(items)

	relaxed := []Filter{
		{Category: "食費", Query: "買い物", DateFrom: "2024-01-01", DateTo: "2024-12-31"},
		{Type: Expense, Query: "買い物", DateFrom: "2024-01-01", DateTo: "2024-12-31"},
		{Type: Expense, Category: "食費", DateFrom: "2024-01-01", DateTo: "2024-12-31"},
		{Type: Expense, Category: "食費", Query: "買い物"},
	}
	for i, f := range relaxed {
		got := f.Apply(items)
		if len(got) < len(base) {
			t.Fatalf("relaxing predicate %d shrank the result: %d < %d", i, len(got), len(base))
		}
	}
	if len(base) > len(items) {
		t.Fatalf("filter produced more items than input")
	}
}

func TestFilterCorrected(t *testing.T) {
	reg := NewRegistry([]string{"食費", "交通費"})

	// non-expense type forces purpose back to pass-all
	f := Filter{Type: Income, Purpose: Waste}.Corrected(reg)
	if f.Purpose != "" {
		t.Fatalf("purpose not reset for income filter: %+v", f)
	}
	f = Filter{Type: "", Purpose: Waste}.Corrected(reg)
	if f.Purpose != "" {
		t.Fatalf("purpose not reset for pass-all type: %+v", f)
	}
	f = Filter{Type: Expense, Purpose: Waste}.Corrected(reg)
	if f.Purpose != Waste {
		t.Fatalf("purpose must survive for expense filter: %+v", f)
	}

	// vanished category resets to pass-all
	f = Filter{Category: "娯楽"}.Corrected(reg)
	if f.Category != "" {
		t.Fatalf("unknown category not reset: %+v", f)
	}
	f = Filter{Category: "食費"}.Corrected(reg)
	if f.Category != "食費" {
		t.Fatalf("known category must survive: %+v", f)
	}
}
