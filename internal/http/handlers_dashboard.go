package http

import (
	"log/slog"
	"net/http"
	"sort"
	"time"

	"kakeibo/internal/core"
)

type breakdownRow struct {
	Name   string
	Amount string
	Width  int // percent of the month's largest entry, for bar scaling
}

type chartRow struct {
	Name      string
	Budget    string
	Spent     string
	Remaining string
	Over      string
	OverRun   bool
}

type seriesPoint struct {
	Month   string
	Income  string
	Expense string
	Balance string
}

// handleOverview renders the dashboard partial for one month: totals,
// category and purpose breakdowns, the budget summary plus chart, and
// the all-history trend series.
func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request, ownerID string) {
	ctx := r.Context()
	month := parseMonth(r)

	registry, err := s.categories.Registry(ctx, ownerID)
	if err != nil {
		slog.ErrorContext(ctx, "Category registry load failed", "error", err)
		writeError(w, http.StatusInternalServerError, "カテゴリの読み込みに失敗しました")
		return
	}
	f := parseFilter(r.URL.Query()).Corrected(registry)

	all, err := s.ownerTransactions(ctx, ownerID)
	if err != nil {
		slog.ErrorContext(ctx, "Transaction list failed", "error", err)
		writeError(w, http.StatusInternalServerError, "取引の読み込みに失敗しました")
		return
	}

	monthItems := f.Apply(core.MonthItems(all, month))
	totals := core.Sum(monthItems)
	byCategory := core.CategoryBreakdown(monthItems)
	byPurpose := core.PurposeBreakdown(monthItems)

	budgets, err := s.budgets.ListMonth(ctx, ownerID, month)
	if err != nil {
		slog.ErrorContext(ctx, "Budget list failed", "error", err)
		writeError(w, http.StatusInternalServerError, "予算の読み込みに失敗しました")
		return
	}
	summary := core.EvaluateBudgets(budgets, monthItems, f, month, time.Now())
	chart := core.BudgetChartRows(registry.Names(), budgets, byCategory)

	data := struct {
		Month      string
		Income     string
		Expense    string
		Balance    string
		Categories []breakdownRow
		Purposes   []breakdownRow
		Budget     struct {
			Total     string
			Spent     string
			Remaining string
			Percent   int
			DaysLeft  int
			Over      bool
		}
		Chart  []chartRow
		Series []seriesPoint
	}{
		Month:      month,
		Income:     core.FormatYen(totals.Income),
		Expense:    core.FormatYen(totals.Expense),
		Balance:    core.FormatYen(totals.Balance),
		Categories: breakdownRows(byCategory),
		Purposes:   purposeRows(byPurpose),
	}

	data.Budget.Total = core.FormatYen(summary.BudgetTotal)
	data.Budget.Spent = core.FormatYen(summary.ExpenseTotal)
	data.Budget.Remaining = core.FormatYen(summary.Remaining)
	data.Budget.Percent = summary.Percent
	data.Budget.DaysLeft = summary.DaysLeft
	data.Budget.Over = summary.Remaining < 0

	for _, row := range chart {
		data.Chart = append(data.Chart, chartRow{
			Name:      row.Name,
			Budget:    core.FormatYen(row.Budget),
			Spent:     core.FormatYen(row.Spent),
			Remaining: core.FormatYen(row.Remaining),
			Over:      core.FormatYen(row.Over),
			OverRun:   row.Over > 0,
		})
	}

	for _, p := range core.MonthlySeries(f.Apply(all)) {
		data.Series = append(data.Series, seriesPoint{
			Month:   p.Month,
			Income:  core.FormatYen(p.Income),
			Expense: core.FormatYen(p.Expense),
			Balance: core.FormatYen(p.Balance),
		})
	}

	s.render(w, r, "overview.html", data)
}

// breakdownRows orders a breakdown by amount descending and scales bar
// widths against the largest entry.
func breakdownRows(byName map[string]int64) []breakdownRow {
	type kv struct {
		name   string
		amount int64
	}
	pairs := make([]kv, 0, len(byName))
	var max int64
	for name, amount := range byName {
		pairs = append(pairs, kv{name, amount})
		if amount > max {
			max = amount
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].amount != pairs[j].amount {
			return pairs[i].amount > pairs[j].amount
		}
		return pairs[i].name < pairs[j].name
	})

	rows := make([]breakdownRow, 0, len(pairs))
	for _, p := range pairs {
		rows = append(rows, breakdownRow{
			Name:   p.name,
			Amount: core.FormatYen(p.amount),
			Width:  barWidth(p.amount, max),
		})
	}
	return rows
}

func purposeRows(byPurpose map[core.Purpose]int64) []breakdownRow {
	// Fixed display order, not amount order: the three purposes always
	// read consumption, waste, investment.
	order := []core.Purpose{core.Consumption, core.Waste, core.Investment}
	var max int64
	for _, amount := range byPurpose {
		if amount > max {
			max = amount
		}
	}
	var rows []breakdownRow
	for _, p := range order {
		amount, ok := byPurpose[p]
		if !ok {
			continue
		}
		rows = append(rows, breakdownRow{
			Name:   p.Label(),
			Amount: core.FormatYen(amount),
			Width:  barWidth(amount, max),
		})
	}
	return rows
}

func barWidth(amount, max int64) int {
	if max <= 0 || amount <= 0 {
		return 0
	}
	width := int((amount*100 + max/2) / max)
	if width < 2 {
		width = 2
	}
	if width > 100 {
		width = 100
	}
	return width
}
