package sheets

import (
	"context"

	"kakeibo/internal/core"
)

// LedgerAppender mirrors a transaction into an external ledger sheet.
type LedgerAppender interface {
	Append(ctx context.Context, t core.Transaction) (rowRef string, err error)
}
