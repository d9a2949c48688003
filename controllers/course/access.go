package course

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"

	"github.com/Ezizuardo/Trilink/controllers/authentication"
	"github.com/Ezizuardo/Trilink/services/access"
)

// RequestAccess: POST /courses/{id}/request-access — заявка студента.
func (h *Handler) RequestAccess(w http.ResponseWriter, r *http.Request) {
	p := authentication.CurrentPrincipal(r)
	c, ok := h.loadCourse(w, r)
	if !ok {
		return
	}
	state, err := h.Access.Request(c, p.User)
	switch {
	case errors.Is(err, access.ErrSelfAccess):
		writeError(w, http.StatusBadRequest, "это ваш собственный курс")
	case errors.Is(err, access.ErrWrongRole):
		writeJSON(w, http.StatusForbidden, map[string]any{
			"error":            "заявки могут подавать только студенты",
			"requires_student": true,
		})
	case err != nil:
		writeError(w, http.StatusInternalServerError, "internal error")
	default:
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "state": state})
	}
}

// ResolveRequest: POST /courses/requests/{id}/{action} — решение
// владельца; успех уводит на страницу уведомлений.
func (h *Handler) ResolveRequest(w http.ResponseWriter, r *http.Request) {
	p := authentication.CurrentPrincipal(r)
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 32)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request id")
		return
	}
	action := chi.URLParam(r, "action")

	err = h.Access.Resolve(uint(id), p.User, action)
	switch {
	case errors.Is(err, access.ErrInvalidAction):
		writeError(w, http.StatusBadRequest, "unknown action")
	case errors.Is(err, access.ErrForbidden):
		writeError(w, http.StatusForbidden, "решение принимает владелец курса")
	case errors.Is(err, access.ErrAlreadyApproved):
		writeError(w, http.StatusBadRequest, "заявка уже одобрена")
	case errors.Is(err, gorm.ErrRecordNotFound):
		writeError(w, http.StatusNotFound, "request not found")
	case err != nil:
		writeError(w, http.StatusInternalServerError, "internal error")
	default:
		http.Redirect(w, r, "/notifications", http.StatusSeeOther)
	}
}
