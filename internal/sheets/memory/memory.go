package memory

import (
	"context"
	"fmt"
	"sync"

	"kakeibo/internal/core"
)

// Ledger is an in-memory LedgerAppender used when no spreadsheet is
// configured and in worker tests.
type Ledger struct {
	mu    sync.Mutex
	items []core.Transaction

	// FailNext makes the next Append return an error, for testing
	// requeue behavior.
	FailNext bool
}

func New() *Ledger {
	return &Ledger{}
}

// Append stores the transaction and returns a synthetic row reference.
func (l *Ledger) Append(_ context.Context, t core.Transaction) (string, error) {
	if err := t.Validate(); err != nil {
		return "", err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.FailNext {
		l.FailNext = false
		return "", fmt.Errorf("append unavailable")
	}
	l.items = append(l.items, t)
	return fmt.Sprintf("mem:%d", len(l.items)), nil
}

// Items returns a copy of everything appended so far.
func (l *Ledger) Items() []core.Transaction {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]core.Transaction(nil), l.items...)
}
