package http

import (
	"errors"
	"log/slog"
	"net/http"

	"kakeibo/internal/services"
)

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request, ownerID string) {
	cats, err := s.categories.List(r.Context(), ownerID)
	if err != nil {
		slog.ErrorContext(r.Context(), "Category list failed", "error", err)
		writeError(w, http.StatusInternalServerError, "カテゴリの読み込みに失敗しました")
		return
	}

	names := make([]string, 0, len(cats))
	for _, c := range cats {
		names = append(names, c.Name)
	}
	s.render(w, r, "categories.html", struct{ Names []string }{Names: names})
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request, ownerID string) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "リクエストの形式が正しくありません")
		return
	}

	name := sanitizeInput(r.Form.Get("name"))
	if _, err := s.categories.Create(r.Context(), ownerID, name); err != nil {
		if errors.Is(err, services.ErrEmptyName) {
			writeError(w, http.StatusUnprocessableEntity, "カテゴリ名を入力してください")
			return
		}
		slog.ErrorContext(r.Context(), "Category create failed", "error", err, "name", name)
		writeError(w, http.StatusInternalServerError, "カテゴリの作成に失敗しました")
		return
	}

	w.Header().Set("HX-Trigger", `{"category:changed": {}}`)
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`<div class="success">カテゴリを追加しました</div>`))
}

func (s *Server) handleRenameCategory(w http.ResponseWriter, r *http.Request, ownerID string) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "リクエストの形式が正しくありません")
		return
	}

	oldName := sanitizeInput(r.Form.Get("old_name"))
	newName := sanitizeInput(r.Form.Get("new_name"))
	if err := s.categories.Rename(r.Context(), ownerID, oldName, newName); err != nil {
		if errors.Is(err, services.ErrEmptyName) {
			writeError(w, http.StatusUnprocessableEntity, "カテゴリ名を入力してください")
			return
		}
		slog.ErrorContext(r.Context(), "Category rename failed", "error", err, "old", oldName, "new", newName)
		writeError(w, http.StatusInternalServerError, "カテゴリ名の変更に失敗しました")
		return
	}

	// Renames cascade into transactions, drop the cached list.
	s.invalidateOwner(ownerID)
	w.Header().Set("HX-Trigger", `{"category:changed": {}}`)
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`<div class="success">カテゴリ名を変更しました</div>`))
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request, ownerID string) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "リクエストの形式が正しくありません")
		return
	}

	name := sanitizeInput(r.Form.Get("name"))
	if err := s.categories.Delete(r.Context(), ownerID, name); err != nil {
		if errors.Is(err, services.ErrCategoryInUse) {
			writeError(w, http.StatusConflict, "このカテゴリは取引で使用されているため削除できません")
			return
		}
		slog.ErrorContext(r.Context(), "Category delete failed", "error", err, "name", name)
		writeError(w, http.StatusInternalServerError, "カテゴリの削除に失敗しました")
		return
	}

	w.Header().Set("HX-Trigger", `{"category:changed": {}}`)
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`<div class="success">カテゴリを削除しました</div>`))
}
