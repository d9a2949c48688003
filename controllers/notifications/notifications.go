package notifications

import (
	"encoding/json"
	"net/http"

	"github.com/Ezizuardo/Trilink/controllers/authentication"
	model "github.com/Ezizuardo/Trilink/models/notifications"
	"github.com/Ezizuardo/Trilink/services/notify"
)

type Handler struct {
	Notify *notify.Service
}

// List: GET /notifications — новые сверху; просмотр гасит всё, кроме
// заявок на покупку: те остаются непрочитанными до approve/decline.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	p := authentication.CurrentPrincipal(r)
	list, err := h.Notify.ListFor(p.User.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	type item struct {
		model.Notification
		Payload any `json:"payload,omitempty"`
	}
	out := make([]item, 0, len(list))
	for i := range list {
		payload, _ := list[i].DecodePayload()
		out = append(out, item{Notification: list[i], Payload: payload})
	}
	writeJSON(w, http.StatusOK, map[string]any{"notifications": out})
}

// UnreadCount: GET /notifications/unread-count.
func (h *Handler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	p := authentication.CurrentPrincipal(r)
	count, err := h.Notify.UnreadCount(p.User.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": count})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
