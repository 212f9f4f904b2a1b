// Package csvio encodes and decodes the application's CSV interchange
// formats: transaction, category and budget rows with Japanese headers.
//
// The decoder is deliberately not encoding/csv: imports come from
// hand-edited spreadsheets, so it splits on bare line breaks, drops blank
// lines, honors doubled-quote escaping and trims whitespace around every
// decoded field. The encoder quotes every field unconditionally.
package csvio

import (
	"errors"
	"strconv"
	"strings"

	"kakeibo/internal/core"
)

const (
	TransactionsHeader = "日付,種別,分類,カテゴリ,メモ,金額"
	CategoriesHeader   = "カテゴリ"
	BudgetsHeader      = "月,カテゴリ,予算"
)

var (
	// ErrHeaderMismatch means the first row does not name the expected
	// format; the file is likely of a different kind.
	ErrHeaderMismatch = errors.New("csv header does not match the selected format")

	// ErrNothingToImport means no row of the batch survived validation.
	ErrNothingToImport = errors.New("nothing to import")
)

// splitLines splits input on \n or \r\n and drops fully blank lines.
func splitLines(input string) []string {
	raw := strings.Split(input, "\n")
	var lines []string
	for _, l := range raw {
		l = strings.TrimSuffix(l, "\r")
		if strings.TrimSpace(l) == "" {
			continue
		}
		lines = append(lines, l)
	}
	return lines
}

// parseLine decodes one comma-separated line honoring double-quote
// escaping: quotes toggle quoting state, a doubled quote inside a quoted
// field decodes to a literal quote, and an unquoted comma ends a field.
// Every decoded field is trimmed of surrounding whitespace.
func parseLine(line string) []string {
	var fields []string
	var b strings.Builder
	quoted := false

	for i := 0; i < len(line); i++ {
		ch := line[i]
		switch {
		case ch == '"':
			if quoted && i+1 < len(line) && line[i+1] == '"' {
				b.WriteByte('"')
				i++
			} else {
				quoted = !quoted
			}
		case ch == ',' && !quoted:
			fields = append(fields, strings.TrimSpace(b.String()))
			b.Reset()
		default:
			b.WriteByte(ch)
		}
	}
	fields = append(fields, strings.TrimSpace(b.String()))
	return fields
}

// encodeLine joins fields with commas, wrapping every field in double
// quotes and doubling embedded quotes.
func encodeLine(fields []string) string {
	quoted := make([]string, len(fields))
	for i, f := range fields {
		quoted[i] = `"` + strings.ReplaceAll(f, `"`, `""`) + `"`
	}
	return strings.Join(quoted, ",")
}

func headerMatches(line, want string) bool {
	fields := parseLine(line)
	wantFirst := strings.SplitN(want, ",", 2)[0]
	return len(fields) > 0 && fields[0] == wantFirst
}

// DecodeTransactions parses a transactions CSV. Rows failing a
// required-field or number-parse check are dropped from the batch, not
// reported as errors; the count of dropped rows is returned so callers can
// surface it. An empty surviving batch yields ErrNothingToImport.
func DecodeTransactions(input string) ([]core.Transaction, int, error) {
	lines := splitLines(input)
	if len(lines) == 0 || !headerMatches(lines[0], TransactionsHeader) {
		return nil, 0, ErrHeaderMismatch
	}

	var txns []core.Transaction
	dropped := 0
	for _, line := range lines[1:] {
		f := parseLine(line)
		if len(f) != 6 {
			dropped++
			continue
		}
		date, typeLabel, purposeLabel, category, note, amountStr := f[0], f[1], f[2], f[3], f[4], f[5]

		typ, ok := core.ParseTypeLabel(typeLabel)
		if !ok || !core.ValidDate(date) || category == "" {
			dropped++
			continue
		}
		amount, err := core.ParseYen(amountStr)
		if err != nil {
			dropped++
			continue
		}

		purpose := core.Consumption
		if typ == core.Expense {
			if p, ok := core.ParsePurposeLabel(purposeLabel); ok {
				purpose = p
			}
		}

		txns = append(txns, core.Transaction{
			Date:     date,
			Amount:   amount,
			Type:     typ,
			Purpose:  purpose,
			Category: category,
			Note:     note,
		}.Normalize())
	}

	if len(txns) == 0 {
		return nil, dropped, ErrNothingToImport
	}
	return txns, dropped, nil
}

// EncodeTransactions renders transactions as CSV. Income rows carry the
// income label in the purpose column.
func EncodeTransactions(txns []core.Transaction) string {
	rows := make([]string, 0, len(txns)+1)
	rows = append(rows, encodeLine(strings.Split(TransactionsHeader, ",")))
	for _, t := range txns {
		purposeLabel := t.EffectivePurpose().Label()
		if t.Type == core.Income {
			purposeLabel = core.Income.Label()
		}
		rows = append(rows, encodeLine([]string{
			t.Date,
			t.Type.Label(),
			purposeLabel,
			t.Category,
			t.Note,
			strconv.FormatInt(t.Amount, 10),
		}))
	}
	return strings.Join(rows, "\n")
}

// DecodeCategories parses a category-list CSV into names.
func DecodeCategories(input string) ([]string, int, error) {
	lines := splitLines(input)
	if len(lines) == 0 || !headerMatches(lines[0], CategoriesHeader) {
		return nil, 0, ErrHeaderMismatch
	}

	var names []string
	dropped := 0
	for _, line := range lines[1:] {
		f := parseLine(line)
		if len(f) < 1 || f[0] == "" {
			dropped++
			continue
		}
		names = append(names, f[0])
	}
	if len(names) == 0 {
		return nil, dropped, ErrNothingToImport
	}
	return names, dropped, nil
}

// EncodeCategories renders a category list as CSV.
func EncodeCategories(names []string) string {
	rows := make([]string, 0, len(names)+1)
	rows = append(rows, encodeLine([]string{CategoriesHeader}))
	for _, n := range names {
		rows = append(rows, encodeLine([]string{n}))
	}
	return strings.Join(rows, "\n")
}

// DecodeBudgets parses a budgets CSV into budget rows.
func DecodeBudgets(input string) ([]core.Budget, int, error) {
	lines := splitLines(input)
	if len(lines) == 0 || !headerMatches(lines[0], BudgetsHeader) {
		return nil, 0, ErrHeaderMismatch
	}

	var budgets []core.Budget
	dropped := 0
	for _, line := range lines[1:] {
		f := parseLine(line)
		if len(f) != 3 {
			dropped++
			continue
		}
		month, category, amountStr := f[0], f[1], f[2]
		if !core.ValidMonth(month) || category == "" {
			dropped++
			continue
		}
		amount, err := core.ParseYen(amountStr)
		if err != nil {
			dropped++
			continue
		}
		budgets = append(budgets, core.Budget{Month: month, Category: category, Amount: amount})
	}
	if len(budgets) == 0 {
		return nil, dropped, ErrNothingToImport
	}
	return budgets, dropped, nil
}

// EncodeBudgets renders budget rows as CSV.
func EncodeBudgets(budgets []core.Budget) string {
	rows := make([]string, 0, len(budgets)+1)
	rows = append(rows, encodeLine(strings.Split(BudgetsHeader, ",")))
	for _, b := range budgets {
		rows = append(rows, encodeLine([]string{b.Month, b.Category, strconv.FormatInt(b.Amount, 10)}))
	}
	return strings.Join(rows, "\n")
}
