package profile

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Ezizuardo/Trilink/config"
)

// SetTheme: GET /set-theme/{theme} — light|dark, всё прочее сводится к light.
func (h *Handler) SetTheme(w http.ResponseWriter, r *http.Request) {
	theme := chi.URLParam(r, "theme")
	if theme != "light" && theme != "dark" {
		theme = "light"
	}
	sess, _ := config.Store.Get(r, config.SessionName)
	sess.Values["theme"] = theme
	_ = sess.Save(r, w)
	w.WriteHeader(http.StatusNoContent)
}

// SetLang: GET /set-lang/{lang} — ru|en.
func (h *Handler) SetLang(w http.ResponseWriter, r *http.Request) {
	lang := chi.URLParam(r, "lang")
	if lang != "ru" && lang != "en" {
		lang = "ru"
	}
	sess, _ := config.Store.Get(r, config.SessionName)
	sess.Values["lang"] = lang
	_ = sess.Save(r, w)
	w.WriteHeader(http.StatusNoContent)
}
