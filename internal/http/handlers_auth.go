package http

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"kakeibo/internal/auth"
)

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := s.sessionOwner(r)
	if !ok {
		s.render(w, r, "login.html", nil)
		return
	}

	registry, err := s.categories.Registry(r.Context(), ownerID)
	if err != nil {
		slog.ErrorContext(r.Context(), "Category registry load failed", "error", err)
		writeError(w, http.StatusInternalServerError, "カテゴリの読み込みに失敗しました")
		return
	}

	data := struct {
		Owner      string
		Month      string
		Categories []string
	}{
		Owner:      ownerID,
		Month:      parseMonth(r),
		Categories: registry.Names(),
	}
	s.render(w, r, "index.html", data)
}

func (s *Server) handleRequestLink(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "リクエストの形式が正しくありません")
		return
	}

	email := sanitizeInput(r.Form.Get("email"))
	if err := s.auth.RequestLink(r.Context(), email); err != nil {
		if errors.Is(err, auth.ErrInvalidEmail) {
			writeError(w, http.StatusUnprocessableEntity, "メールアドレスが正しくありません")
			return
		}
		slog.ErrorContext(r.Context(), "Sign-in link request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "リンクの送信に失敗しました")
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`<div class="success">ログインリンクを送信しました。メールをご確認ください。</div>`))
}

func (s *Server) handleRedeem(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	session, ownerID, err := s.auth.Redeem(r.Context(), token)
	if err != nil {
		s.metrics.recordRejectedLogin()
		slog.WarnContext(r.Context(), "Link redemption failed", "error", err)
		writeError(w, http.StatusUnauthorized, "リンクが無効か期限切れです。もう一度お試しください。")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    session,
		Path:     "/",
		Expires:  time.Now().Add(s.auth.SessionTTL()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	slog.InfoContext(r.Context(), "Session cookie issued", "owner", ownerID)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
