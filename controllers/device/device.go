package device

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Ezizuardo/Trilink/config"
	"github.com/Ezizuardo/Trilink/controllers/authentication"
	"github.com/Ezizuardo/Trilink/services/deviceguard"
)

type Handler struct {
	Guard *deviceguard.Guard
}

// Resolve: POST /device-alert/{action} — dismiss оставляет сессию
// активной, terminate удаляет её и разлогинивает держателя.
func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request) {
	p := authentication.CurrentPrincipal(r)
	if !p.User.IsStudent() {
		writeError(w, http.StatusForbidden, "только для студентов")
		return
	}

	switch chi.URLParam(r, "action") {
	case "dismiss":
		err := h.Guard.Dismiss(p.User.ID, p.DeviceToken)
		if errors.Is(err, deviceguard.ErrStale) {
			writeError(w, http.StatusBadRequest, "сессия не найдена")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	case "terminate":
		err := h.Guard.Terminate(p.User.ID, p.DeviceToken)
		if errors.Is(err, deviceguard.ErrStale) {
			writeError(w, http.StatusBadRequest, "сессия не найдена")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		sess, _ := config.Store.Get(r, config.SessionName)
		sess.Values = map[any]any{}
		_ = sess.Save(r, w)
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "redirect": "/"})
	default:
		writeError(w, http.StatusBadRequest, "unknown action")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
