package core

import (
	"math"
	"time"
)

// BudgetSummary is the evaluated state of one month's budgets under the
// currently active filter.
type BudgetSummary struct {
	BudgetTotal  int64
	ExpenseTotal int64
	Remaining    int64 // BudgetTotal - ExpenseTotal, negative when over
	Percent      int   // round-half-up of ExpenseTotal/BudgetTotal*100
	DaysLeft     int   // days remaining, only for the current month
}

// BudgetChartRow is one bar of the per-category budget chart.
type BudgetChartRow struct {
	Name      string
	Budget    int64
	Spent     int64
	Remaining int64 // max(Budget-Spent, 0)
	Over      int64 // max(Spent-Budget, 0)
}

// EvaluateBudgets computes the budget summary for a month. budgets maps
// category name to budgeted amount for the selected month, items is the
// month-filtered and further-filtered transaction set, and f is the filter
// that produced it. Budgets never apply to income: an income type filter
// yields a zero budget total. A concrete category filter restricts the
// budget total to that single category.
func EvaluateBudgets(budgets map[string]int64, items []Transaction, f Filter, month string, now time.Time) BudgetSummary {
	var s BudgetSummary

	switch {
	case f.Type == Income:
		// no applicable categories
	case f.Category != "":
		s.BudgetTotal = budgets[f.Category]
	default:
		for _, amount := range budgets {
			s.BudgetTotal += amount
		}
	}

	for _, t := range items {
		if t.Type == Expense {
			s.ExpenseTotal += t.Amount
		}
	}

	s.Remaining = s.BudgetTotal - s.ExpenseTotal
	if s.BudgetTotal > 0 {
		s.Percent = int(math.Round(float64(s.ExpenseTotal) / float64(s.BudgetTotal) * 100))
	}
	s.DaysLeft = DaysLeft(month, now)
	return s
}

// BudgetChartRows builds one row per category in display order, combining
// budgeted and spent amounts. Rows where neither a budget nor any spend
// exists are suppressed.
func BudgetChartRows(categories []string, budgets, spent map[string]int64) []BudgetChartRow {
	var rows []BudgetChartRow
	for _, name := range categories {
		budget := budgets[name]
		sp := spent[name]
		if budget <= 0 && sp <= 0 {
			continue
		}
		row := BudgetChartRow{Name: name, Budget: budget, Spent: sp}
		if d := budget - sp; d > 0 {
			row.Remaining = d
		}
		if d := sp - budget; d > 0 {
			row.Over = d
		}
		rows = append(rows, row)
	}
	return rows
}
