package http

import (
	"errors"
	"log/slog"
	"net/http"

	"kakeibo/internal/core"
	"kakeibo/internal/storage"
)

type transactionRow struct {
	ID       string
	Date     string
	Type     string
	Purpose  string
	Category string
	Note     string
	Amount   string
}

func toRows(items []core.Transaction) []transactionRow {
	rows := make([]transactionRow, 0, len(items))
	for _, t := range items {
		row := transactionRow{
			ID:       t.ID,
			Date:     t.Date,
			Type:     t.Type.Label(),
			Category: t.Category,
			Note:     t.Note,
			Amount:   core.FormatYen(t.Amount),
		}
		if t.Type == core.Expense {
			row.Purpose = t.EffectivePurpose().Label()
		}
		rows = append(rows, row)
	}
	return rows
}

// handleListTransactions renders the filtered transaction list partial.
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request, ownerID string) {
	registry, err := s.categories.Registry(r.Context(), ownerID)
	if err != nil {
		slog.ErrorContext(r.Context(), "Category registry load failed", "error", err)
		writeError(w, http.StatusInternalServerError, "カテゴリの読み込みに失敗しました")
		return
	}

	f := parseFilter(r.URL.Query()).Corrected(registry)

	items, err := s.ownerTransactions(r.Context(), ownerID)
	if err != nil {
		slog.ErrorContext(r.Context(), "Transaction list failed", "error", err)
		writeError(w, http.StatusInternalServerError, "取引の読み込みに失敗しました")
		return
	}
	visible := f.Apply(items)
	totals := core.Sum(visible)

	data := struct {
		Rows     []transactionRow
		Income   string
		Expense  string
		Balance  string
		Filtered bool
	}{
		Rows:     toRows(visible),
		Income:   core.FormatYen(totals.Income),
		Expense:  core.FormatYen(totals.Expense),
		Balance:  core.FormatYen(totals.Balance),
		Filtered: !f.IsZero(),
	}
	s.render(w, r, "transactions.html", data)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request, ownerID string) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "リクエストの形式が正しくありません")
		return
	}

	amount, err := core.ParseYen(r.Form.Get("amount"))
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "金額が正しくありません")
		return
	}

	t := core.Transaction{
		OwnerID:  ownerID,
		Date:     sanitizeInput(r.Form.Get("date")),
		Amount:   amount,
		Type:     core.TxType(sanitizeInput(r.Form.Get("type"))),
		Purpose:  core.Purpose(sanitizeInput(r.Form.Get("purpose"))),
		Category: sanitizeInput(r.Form.Get("category")),
		Note:     sanitizeInput(r.Form.Get("note")),
	}

	created, err := s.transactions.Create(r.Context(), t)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrUnknownCategory):
			writeError(w, http.StatusUnprocessableEntity, "カテゴリが登録されていません")
		case errors.Is(err, core.ErrInvalidDate),
			errors.Is(err, core.ErrInvalidType),
			errors.Is(err, core.ErrInvalidAmount),
			errors.Is(err, core.ErrEmptyCategory):
			writeError(w, http.StatusUnprocessableEntity, "入力内容を確認してください")
		default:
			slog.ErrorContext(r.Context(), "Transaction create failed", "error", err)
			writeError(w, http.StatusInternalServerError, "保存に失敗しました")
		}
		return
	}

	s.invalidateOwner(ownerID)
	w.Header().Set("HX-Trigger", `{"transaction:created": {"month": "`+core.MonthOf(created.Date)+`"}}`)
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`<div class="success">記録しました</div>`))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request, ownerID string) {
	id := r.PathValue("id")
	if err := s.transactions.Delete(r.Context(), ownerID, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "取引が見つかりません")
			return
		}
		slog.ErrorContext(r.Context(), "Transaction delete failed", "error", err, "transaction_id", id)
		writeError(w, http.StatusInternalServerError, "削除に失敗しました")
		return
	}

	s.invalidateOwner(ownerID)
	w.Header().Set("HX-Trigger", `{"transaction:deleted": {}}`)
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`<div class="success">削除しました</div>`))
}
