package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Expense TxType = "expense"
	Income  TxType = "income"

	Consumption Purpose = "consumption"
	Waste       Purpose = "waste"
	Investment  Purpose = "investment"
)

type (
	// TxType classifies a transaction as money out or money in.
	TxType string

	// Purpose classifies an expense as ordinary consumption, wasteful
	// spending, or investment. It carries no meaning for income rows.
	Purpose string

	Transaction struct {
		ID        string
		OwnerID   string
		Date      string // calendar day, YYYY-MM-DD
		Amount    int64  // whole yen, always >= 0
		Type      TxType
		Purpose   Purpose
		Category  string
		Note      string
		CreatedAt time.Time
	}

	Category struct {
		ID        string
		OwnerID   string
		Name      string
		CreatedAt time.Time // defines display order
	}

	Budget struct {
		ID        string
		OwnerID   string
		Month     string // YYYY-MM
		Category  string
		Amount    int64 // whole yen, >= 0
		CreatedAt time.Time
	}
)

var (
	ErrInvalidDate     = errors.New("invalid date")
	ErrInvalidMonth    = errors.New("invalid month")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidType     = errors.New("invalid transaction type")
	ErrEmptyCategory   = errors.New("empty category")
	ErrUnknownCategory = errors.New("unknown category")
)

func (t TxType) IsValid() bool {
	return t == Expense || t == Income
}

// Label returns the Japanese display label used in exports and the UI.
func (t TxType) Label() string {
	if t == Income {
		return "収入"
	}
	return "支出"
}

// ParseTypeLabel maps a display label back to a TxType.
func ParseTypeLabel(s string) (TxType, bool) {
	switch strings.TrimSpace(s) {
	case "収入":
		return Income, true
	case "支出":
		return Expense, true
	}
	return "", false
}

func (p Purpose) IsValid() bool {
	return p == Consumption || p == Waste || p == Investment
}

func (p Purpose) Label() string {
	switch p {
	case Waste:
		return "浪費"
	case Investment:
		return "投資"
	default:
		return "消費"
	}
}

// ParsePurposeLabel maps a display label back to a Purpose.
func ParsePurposeLabel(s string) (Purpose, bool) {
	switch strings.TrimSpace(s) {
	case "消費":
		return Consumption, true
	case "浪費":
		return Waste, true
	case "投資":
		return Investment, true
	}
	return "", false
}

// EffectivePurpose resolves the purpose actually used for aggregation:
// income rows and rows with a missing or invalid purpose count as consumption.
func (t Transaction) EffectivePurpose() Purpose {
	if t.Type != Expense {
		return Consumption
	}
	if !t.Purpose.IsValid() {
		return Consumption
	}
	return t.Purpose
}

var noteLineBreaks = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

// Normalize forces the documented storage invariants onto a transaction:
// the amount is stored as an absolute value, income rows always carry
// the consumption purpose, and notes are single line so CSV exports
// decode back to the same rows.
func (t Transaction) Normalize() Transaction {
	if t.Amount < 0 {
		t.Amount = -t.Amount
	}
	t.Type = TxType(strings.TrimSpace(string(t.Type)))
	t.Purpose = t.EffectivePurpose()
	t.Category = strings.TrimSpace(t.Category)
	t.Note = noteLineBreaks.Replace(strings.TrimSpace(t.Note))
	return t
}

func (t Transaction) Validate() error {
	if !ValidDate(t.Date) {
		return ErrInvalidDate
	}
	if t.Amount < 0 {
		return ErrInvalidAmount
	}
	if !t.Type.IsValid() {
		return ErrInvalidType
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	return nil
}

func (b Budget) Validate() error {
	if !ValidMonth(b.Month) {
		return ErrInvalidMonth
	}
	if b.Amount < 0 {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(b.Category) == "" {
		return ErrEmptyCategory
	}
	return nil
}

// Registry is the validated set of category names for one owner, in
// display order. Lookups are case-sensitive exact matches.
type Registry struct {
	names []string
	index map[string]struct{}
}

func NewRegistry(names []string) Registry {
	r := Registry{index: make(map[string]struct{}, len(names))}
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if _, dup := r.index[n]; dup {
			continue
		}
		r.index[n] = struct{}{}
		r.names = append(r.names, n)
	}
	return r
}

func (r Registry) Has(name string) bool {
	_, ok := r.index[name]
	return ok
}

// Names returns the category names in display order.
func (r Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

func (r Registry) Len() int {
	return len(r.names)
}
