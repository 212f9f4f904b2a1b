package http

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"kakeibo/internal/csvio"
	"kakeibo/internal/services"
)

// maxImportSize caps uploaded CSV files at 5 MiB.
const maxImportSize = 5 << 20

func (s *Server) handleImportCSV(w http.ResponseWriter, r *http.Request, ownerID string) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportSize)
	if err := r.ParseMultipartForm(maxImportSize); err != nil {
		writeError(w, http.StatusBadRequest, "ファイルのアップロードに失敗しました")
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "ファイルが選択されていません")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "ファイルの読み込みに失敗しました")
		return
	}
	input := string(content)

	kind := sanitizeInput(r.Form.Get("kind"))
	var result services.ImportResult
	switch kind {
	case "transactions":
		result, err = s.csv.ImportTransactions(r.Context(), ownerID, input)
	case "categories":
		result, err = s.csv.ImportCategories(r.Context(), ownerID, input)
	case "budgets":
		result, err = s.csv.ImportBudgets(r.Context(), ownerID, input)
	default:
		writeError(w, http.StatusBadRequest, "インポートの種類が正しくありません")
		return
	}
	if err != nil {
		switch {
		case errors.Is(err, csvio.ErrHeaderMismatch):
			writeError(w, http.StatusUnprocessableEntity, "CSVのヘッダーが正しくありません")
		case errors.Is(err, csvio.ErrNothingToImport):
			writeError(w, http.StatusUnprocessableEntity, "インポートできる行がありません")
		default:
			slog.ErrorContext(r.Context(), "CSV import failed", "error", err, "kind", kind)
			writeError(w, http.StatusInternalServerError, "インポートに失敗しました")
		}
		return
	}

	s.invalidateOwner(ownerID)
	w.Header().Set("HX-Trigger", `{"transaction:created": {}, "category:changed": {}}`)
	w.WriteHeader(http.StatusOK)

	msg := fmt.Sprintf(`<div class="success">%d件をインポートしました`, result.Imported)
	if result.Dropped > 0 {
		msg += fmt.Sprintf("（%d行をスキップ）", result.Dropped)
	}
	msg += `</div>`
	w.Write([]byte(msg))
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request, ownerID string) {
	ctx := r.Context()
	kind := sanitizeInput(r.URL.Query().Get("kind"))

	var export services.Export
	var err error
	switch kind {
	case "transactions":
		f := parseFilter(r.URL.Query())
		period := ""
		if m := r.URL.Query().Get("month"); m != "" {
			period = parseMonth(r)
			f.DateFrom = period + "-01"
			f.DateTo = period + "-31"
		}
		export, err = s.csv.ExportTransactions(ctx, ownerID, f, period)
	case "categories":
		export, err = s.csv.ExportCategories(ctx, ownerID)
	case "budgets":
		month := ""
		if r.URL.Query().Get("month") != "" {
			month = parseMonth(r)
		}
		export, err = s.csv.ExportBudgets(ctx, ownerID, month)
	default:
		writeError(w, http.StatusBadRequest, "エクスポートの種類が正しくありません")
		return
	}
	if err != nil {
		slog.ErrorContext(ctx, "CSV export failed", "error", err, "kind", kind)
		writeError(w, http.StatusInternalServerError, "エクスポートに失敗しました")
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.Filename+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(export.Content))
}
