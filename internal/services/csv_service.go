package services

import (
	"context"
	"fmt"
	"log/slog"

	"kakeibo/internal/core"
	"kakeibo/internal/csvio"
)

// ImportResult reports what an import actually did. Dropped counts rows
// the decoder skipped as malformed.
type ImportResult struct {
	Imported int
	Dropped  int
	// SeededCategories lists categories created on the fly because an
	// imported transaction referenced a name not yet in the registry.
	SeededCategories []string
}

// Export bundles a download: the suggested filename and the CSV body.
type Export struct {
	Filename string
	Content  string
}

// CSVService wires the codec to the services layer: imports go through
// the same validation and sync pipeline as manual entry, exports read
// whatever the filters select.
type CSVService struct {
	transactions *TransactionService
	categories   *CategoryService
	budgets      *BudgetService
}

func NewCSVService(transactions *TransactionService, categories *CategoryService, budgets *BudgetService) *CSVService {
	return &CSVService{
		transactions: transactions,
		categories:   categories,
		budgets:      budgets,
	}
}

// ImportTransactions decodes and inserts transaction rows. Categories the
// file references but the owner does not have yet are created first, so a
// file exported elsewhere imports cleanly.
func (s *CSVService) ImportTransactions(ctx context.Context, ownerID, input string) (ImportResult, error) {
	txns, dropped, err := csvio.DecodeTransactions(input)
	if err != nil {
		return ImportResult{}, err
	}

	registry, err := s.categories.Registry(ctx, ownerID)
	if err != nil {
		return ImportResult{}, err
	}

	var seeded []string
	seen := make(map[string]bool)
	for _, tx := range txns {
		if !registry.Has(tx.Category) && !seen[tx.Category] {
			seen[tx.Category] = true
			seeded = append(seeded, tx.Category)
		}
	}
	if len(seeded) > 0 {
		if err := s.categories.Seed(ctx, ownerID, seeded); err != nil {
			return ImportResult{}, err
		}
	}

	imported := 0
	for _, tx := range txns {
		tx.OwnerID = ownerID
		if _, err := s.transactions.Create(ctx, tx); err != nil {
			return ImportResult{Imported: imported, Dropped: dropped, SeededCategories: seeded},
				fmt.Errorf("import row %d: %w", imported+1, err)
		}
		imported++
	}

	slog.InfoContext(ctx, "Transactions imported",
		"imported", imported, "dropped", dropped, "seeded", len(seeded))
	return ImportResult{Imported: imported, Dropped: dropped, SeededCategories: seeded}, nil
}

// ImportCategories seeds categories from a one-column file. Existing
// names are skipped, order in the file becomes creation order.
func (s *CSVService) ImportCategories(ctx context.Context, ownerID, input string) (ImportResult, error) {
	names, dropped, err := csvio.DecodeCategories(input)
	if err != nil {
		return ImportResult{}, err
	}
	if err := s.categories.Seed(ctx, ownerID, names); err != nil {
		return ImportResult{}, err
	}
	return ImportResult{Imported: len(names), Dropped: dropped}, nil
}

// ImportBudgets replaces each month's budget set with the file's rows.
// Months absent from the file are left untouched.
func (s *CSVService) ImportBudgets(ctx context.Context, ownerID, input string) (ImportResult, error) {
	rows, dropped, err := csvio.DecodeBudgets(input)
	if err != nil {
		return ImportResult{}, err
	}

	byMonth := make(map[string][]core.Budget)
	for _, b := range rows {
		byMonth[b.Month] = append(byMonth[b.Month], b)
	}
	for month, budgets := range byMonth {
		if err := s.budgets.Replace(ctx, ownerID, month, budgets); err != nil {
			return ImportResult{}, err
		}
	}
	return ImportResult{Imported: len(rows), Dropped: dropped}, nil
}

// ExportTransactions exports the rows the filter selects. The period in
// the filename is the filter's month when one is set, "all" otherwise.
func (s *CSVService) ExportTransactions(ctx context.Context, ownerID string, f core.Filter, period string) (Export, error) {
	txns, err := s.transactions.List(ctx, ownerID, f)
	if err != nil {
		return Export{}, err
	}
	if period == "" {
		period = csvio.AllTime
	}
	return Export{
		Filename: csvio.ExportFilename("transactions", period),
		Content:  csvio.EncodeTransactions(txns),
	}, nil
}

func (s *CSVService) ExportCategories(ctx context.Context, ownerID string) (Export, error) {
	registry, err := s.categories.Registry(ctx, ownerID)
	if err != nil {
		return Export{}, err
	}
	return Export{
		Filename: csvio.ExportFilename("categories", csvio.AllTime),
		Content:  csvio.EncodeCategories(registry.Names()),
	}, nil
}

// ExportBudgets exports one month's budgets, or every stored month when
// month is empty.
func (s *CSVService) ExportBudgets(ctx context.Context, ownerID, month string) (Export, error) {
	var rows []core.Budget
	period := csvio.AllTime
	if month != "" {
		if !core.ValidMonth(month) {
			return Export{}, core.ErrInvalidMonth
		}
		budgets, err := s.budgets.ListMonth(ctx, ownerID, month)
		if err != nil {
			return Export{}, err
		}
		registry, err := s.categories.Registry(ctx, ownerID)
		if err != nil {
			return Export{}, err
		}
		for _, name := range registry.Names() {
			if amount, ok := budgets[name]; ok {
				rows = append(rows, core.Budget{Month: month, Category: name, Amount: amount})
			}
		}
		period = month
	} else {
		all, err := s.budgets.ListAll(ctx, ownerID)
		if err != nil {
			return Export{}, err
		}
		rows = all
	}
	return Export{
		Filename: csvio.ExportFilename("budgets", period),
		Content:  csvio.EncodeBudgets(rows),
	}, nil
}
