package csvio

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kakeibo/internal/core"
)

func TestParseLineQuoting(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{`a,b,c`, []string{"a", "b", "c"}},
		{`"a","b"`, []string{"a", "b"}},
		{`"a,b",c`, []string{"a,b", "c"}},
		{`"say ""hi""",x`, []string{`say "hi"`, "x"}},
		{` a , b `, []string{"a", "b"}},
		{`a,,c`, []string{"a", "", "c"}},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, parseLine(tc.in), "line %q", tc.in)
	}
}

func TestSplitLines(t *testing.T) {
	got := splitLines("a\r\n\nb\n   \nc")
	assert.Equal(t, []string{"a", "b", "c"}, got)
}

func TestTransactionsRoundTrip(t *testing.T) {
	txns := []core.Transaction{
		{Date: "2024-01-05", Amount: 1200, Type: core.Expense, Purpose: core.Consumption, Category: "食費", Note: "スーパー"},
		{Date: "2024-01-08", Amount: 3000, Type: core.Expense, Purpose: core.Waste, Category: "娯楽", Note: `say "hi", twice`},
		{Date: "2024-01-10", Amount: 50000, Type: core.Income, Purpose: core.Consumption, Category: "労働", Note: ""},
	}

	out := EncodeTransactions(txns)
	require.True(t, strings.HasPrefix(out, `"日付"`))

	got, dropped, err := DecodeTransactions(out)
	require.NoError(t, err)
	assert.Zero(t, dropped)
	require.Len(t, got, len(txns))

	for i := range txns {
		assert.Equal(t, txns[i].Date, got[i].Date)
		assert.Equal(t, txns[i].Type, got[i].Type)
		assert.Equal(t, txns[i].Category, got[i].Category)
		assert.Equal(t, txns[i].Note, got[i].Note)
		assert.Equal(t, txns[i].Amount, got[i].Amount)
		if txns[i].Type == core.Expense {
			assert.Equal(t, txns[i].Purpose, got[i].Purpose, "purpose mismatch row %d", i)
		}
	}
}

func TestTransactionsRoundTripNormalizedNote(t *testing.T) {
	// A raw note may carry line breaks; Normalize flattens it so the
	// line-split decode gets the row back intact.
	raw := core.Transaction{
		Date: "2024-01-05", Amount: 1200, Type: core.Expense,
		Purpose: core.Consumption, Category: "食費", Note: "line one\nline two",
	}
	stored := raw.Normalize()

	got, dropped, err := DecodeTransactions(EncodeTransactions([]core.Transaction{stored}))
	require.NoError(t, err)
	assert.Zero(t, dropped)
	require.Len(t, got, 1)
	assert.Equal(t, "line one line two", got[0].Note)
	assert.Equal(t, stored.Amount, got[0].Amount)
}

func TestEncodeIncomePurposeColumn(t *testing.T) {
	out := EncodeTransactions([]core.Transaction{
		{Date: "2024-01-10", Amount: 50000, Type: core.Income, Category: "労働"},
	})
	lines := splitLines(out)
	require.Len(t, lines, 2)
	// income rows always carry 収入 in the purpose column
	assert.Equal(t, "収入", parseLine(lines[1])[2])
}

func TestDecodeTransactionsHeaderMismatch(t *testing.T) {
	_, _, err := DecodeTransactions("カテゴリ\n食費")
	assert.ErrorIs(t, err, ErrHeaderMismatch)

	_, _, err = DecodeTransactions("")
	assert.ErrorIs(t, err, ErrHeaderMismatch)
}

func TestDecodeTransactionsSilentDrop(t *testing.T) {
	input := strings.Join([]string{
		TransactionsHeader,
		`"2024-01-05","支出","消費","食費","ok","1200"`,
		`"bad-date","支出","消費","食費","","100"`,
		`"2024-01-06","振替","消費","食費","","100"`, // unknown type label
		`"2024-01-07","支出","消費","","","100"`,     // missing category
		`"2024-01-08","支出","消費","食費","","12.5"`, // unparsable amount
		`"2024-01-09","支出","謎","食費","","300"`,    // unknown purpose -> consumption
	}, "\n")

	got, dropped, err := DecodeTransactions(input)
	require.NoError(t, err)
	assert.Equal(t, 4, dropped)
	require.Len(t, got, 2)
	assert.Equal(t, core.Consumption, got[1].Purpose)
}

func TestDecodeTransactionsNothingToImport(t *testing.T) {
	input := TransactionsHeader + "\n" + `"bad","支出","消費","食費","","x"`
	_, dropped, err := DecodeTransactions(input)
	assert.ErrorIs(t, err, ErrNothingToImport)
	assert.Equal(t, 1, dropped)

	// header only
	_, _, err = DecodeTransactions(TransactionsHeader)
	assert.ErrorIs(t, err, ErrNothingToImport)
}

func TestCategoriesRoundTrip(t *testing.T) {
	out := EncodeCategories([]string{"食費", "交通費"})
	got, dropped, err := DecodeCategories(out)
	require.NoError(t, err)
	assert.Zero(t, dropped)
	assert.Equal(t, []string{"食費", "交通費"}, got)
}

func TestBudgetsRoundTrip(t *testing.T) {
	budgets := []core.Budget{
		{Month: "2024-01", Category: "食費", Amount: 10000},
		{Month: "2024-01", Category: "交通費", Amount: 5000},
	}
	out := EncodeBudgets(budgets)
	got, dropped, err := DecodeBudgets(out)
	require.NoError(t, err)
	assert.Zero(t, dropped)
	require.Len(t, got, 2)
	for i := range budgets {
		assert.Equal(t, budgets[i].Month, got[i].Month)
		assert.Equal(t, budgets[i].Category, got[i].Category)
		assert.Equal(t, budgets[i].Amount, got[i].Amount)
	}
}

func TestDecodeBudgetsValidation(t *testing.T) {
	input := strings.Join([]string{
		BudgetsHeader,
		`"2024-01","食費","10000"`,
		`"2024-13","食費","10000"`, // invalid month
		`"2024-01","","10000"`,    // missing category
	}, "\n")
	got, dropped, err := DecodeBudgets(input)
	require.NoError(t, err)
	assert.Equal(t, 2, dropped)
	assert.Len(t, got, 1)
}

func TestExportFilename(t *testing.T) {
	assert.Equal(t, "kakeibo-transactions-2024-01.csv", ExportFilename("transactions", "2024-01"))
	assert.Equal(t, "kakeibo-budgets-all.csv", ExportFilename("budgets", AllTime))
	assert.Equal(t, "kakeibo-categories-all.csv", ExportFilename("categories", ""))
}
