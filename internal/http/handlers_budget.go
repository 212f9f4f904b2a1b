package http

import (
	"errors"
	"log/slog"
	"net/http"

	"kakeibo/internal/core"
)

type budgetEditRow struct {
	Category string
	Amount   int64
}

// handleBudgets renders the budget editor partial for a month, including
// the one-time rollover prompt when last month has a plan and this month
// has none.
func (s *Server) handleBudgets(w http.ResponseWriter, r *http.Request, ownerID string) {
	month := parseMonth(r)

	loaded, err := s.budgets.LoadMonth(r.Context(), ownerID, month)
	if err != nil {
		slog.ErrorContext(r.Context(), "Budget month load failed", "error", err, "month", month)
		writeError(w, http.StatusInternalServerError, "予算の読み込みに失敗しました")
		return
	}

	registry, err := s.categories.Registry(r.Context(), ownerID)
	if err != nil {
		slog.ErrorContext(r.Context(), "Category registry load failed", "error", err)
		writeError(w, http.StatusInternalServerError, "カテゴリの読み込みに失敗しました")
		return
	}

	// One row per registered category in display order, zero when unset.
	rows := make([]budgetEditRow, 0, registry.Len())
	for _, name := range registry.Names() {
		rows = append(rows, budgetEditRow{Category: name, Amount: loaded.Budgets[name]})
	}

	data := struct {
		Month          string
		PrevMonth      string
		Rows           []budgetEditRow
		PromptRollover bool
	}{
		Month:          month,
		PrevMonth:      core.PrevMonth(month),
		Rows:           rows,
		PromptRollover: loaded.PromptRollover,
	}
	s.render(w, r, "budgets.html", data)
}

func (s *Server) handleSaveBudget(w http.ResponseWriter, r *http.Request, ownerID string) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "リクエストの形式が正しくありません")
		return
	}

	month := sanitizeInput(r.Form.Get("month"))
	category := sanitizeInput(r.Form.Get("category"))

	var amount int64
	if v := sanitizeInput(r.Form.Get("amount")); v != "" {
		parsed, err := core.ParseYen(v)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "金額が正しくありません")
			return
		}
		amount = parsed
	}

	if err := s.budgets.Save(r.Context(), ownerID, month, category, amount); err != nil {
		switch {
		case errors.Is(err, core.ErrInvalidMonth), errors.Is(err, core.ErrEmptyCategory):
			writeError(w, http.StatusUnprocessableEntity, "入力内容を確認してください")
		default:
			slog.ErrorContext(r.Context(), "Budget save failed", "error", err, "month", month, "category", category)
			writeError(w, http.StatusInternalServerError, "保存に失敗しました")
		}
		return
	}

	w.Header().Set("HX-Trigger", `{"budget:saved": {"month": "`+month+`"}}`)
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`<div class="success">予算を保存しました</div>`))
}

// handleCopyBudgets replaces the month's full plan with another month's,
// regardless of rollover prompt state.
func (s *Server) handleCopyBudgets(w http.ResponseWriter, r *http.Request, ownerID string) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "リクエストの形式が正しくありません")
		return
	}
	from := sanitizeInput(r.Form.Get("from"))
	month := sanitizeInput(r.Form.Get("month"))

	if err := s.budgets.CopyFrom(r.Context(), ownerID, from, month); err != nil {
		if errors.Is(err, core.ErrInvalidMonth) {
			writeError(w, http.StatusUnprocessableEntity, "月の指定が正しくありません")
			return
		}
		slog.ErrorContext(r.Context(), "Budget copy failed", "error", err, "from", from, "month", month)
		writeError(w, http.StatusInternalServerError, "予算のコピーに失敗しました")
		return
	}

	w.Header().Set("HX-Trigger", `{"budget:saved": {"month": "`+month+`"}}`)
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`<div class="success">` + from + `の予算をコピーしました</div>`))
}

func (s *Server) handleAcceptRollover(w http.ResponseWriter, r *http.Request, ownerID string) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "リクエストの形式が正しくありません")
		return
	}
	month := sanitizeInput(r.Form.Get("month"))

	if err := s.budgets.AcceptRollover(r.Context(), ownerID, month); err != nil {
		if errors.Is(err, core.ErrInvalidMonth) {
			writeError(w, http.StatusUnprocessableEntity, "月の指定が正しくありません")
			return
		}
		slog.ErrorContext(r.Context(), "Budget rollover failed", "error", err, "month", month)
		writeError(w, http.StatusInternalServerError, "先月の予算のコピーに失敗しました")
		return
	}

	w.Header().Set("HX-Trigger", `{"budget:saved": {"month": "`+month+`"}}`)
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`<div class="success">先月の予算をコピーしました</div>`))
}

func (s *Server) handleDismissRollover(w http.ResponseWriter, r *http.Request, ownerID string) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "リクエストの形式が正しくありません")
		return
	}
	month := sanitizeInput(r.Form.Get("month"))
	if !core.ValidMonth(month) {
		writeError(w, http.StatusUnprocessableEntity, "月の指定が正しくありません")
		return
	}

	s.budgets.DismissRollover(ownerID, month)
	w.WriteHeader(http.StatusOK)
}
