package core

import "sort"

// Totals holds the exact integer sums for one set of transactions.
type Totals struct {
	Income  int64
	Expense int64
	Balance int64 // Income - Expense
}

// MonthPoint is one step of the full-history trend series.
type MonthPoint struct {
	Month   string // YYYY-MM
	Income  int64
	Expense int64
	Balance int64
}

// MonthItems returns the subset of txns dated inside the given month key.
// The input is never mutated and its order is preserved.
func MonthItems(txns []Transaction, month string) []Transaction {
	var out []Transaction
	for _, t := range txns {
		if MonthOf(t.Date) == month {
			out = append(out, t)
		}
	}
	return out
}

// Sum computes income, expense and balance over absolute amounts.
func Sum(items []Transaction) Totals {
	var tot Totals
	for _, t := range items {
		switch t.Type {
		case Income:
			tot.Income += t.Amount
		default:
			tot.Expense += t.Amount
		}
	}
	tot.Balance = tot.Income - tot.Expense
	return tot
}

// CategoryBreakdown maps category name to summed expense amount.
// Income rows are excluded.
func CategoryBreakdown(items []Transaction) map[string]int64 {
	out := make(map[string]int64)
	for _, t := range items {
		if t.Type != Expense {
			continue
		}
		out[t.Category] += t.Amount
	}
	return out
}

// PurposeBreakdown maps purpose to summed expense amount. Income rows are
// excluded; expenses with a missing or invalid purpose count as consumption.
func PurposeBreakdown(items []Transaction) map[Purpose]int64 {
	out := make(map[Purpose]int64)
	for _, t := range items {
		if t.Type != Expense {
			continue
		}
		out[t.EffectivePurpose()] += t.Amount
	}
	return out
}

// MonthlySeries groups the full transaction history by month key into a
// trend series sorted ascending. Month keys sort lexicographically in
// chronological order, so a plain string sort is enough.
func MonthlySeries(all []Transaction) []MonthPoint {
	byMonth := make(map[string]*MonthPoint)
	for _, t := range all {
		key := MonthOf(t.Date)
		p, ok := byMonth[key]
		if !ok {
			p = &MonthPoint{Month: key}
			byMonth[key] = p
		}
		if t.Type == Income {
			p.Income += t.Amount
		} else {
			p.Expense += t.Amount
		}
	}

	series := make([]MonthPoint, 0, len(byMonth))
	for _, p := range byMonth {
		p.Balance = p.Income - p.Expense
		series = append(series, *p)
	}
	sort.Slice(series, func(i, j int) bool { return series[i].Month < series[j].Month })
	return series
}
