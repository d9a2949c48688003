package authentication

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/Ezizuardo/Trilink/config"
	"github.com/Ezizuardo/Trilink/models/users"
	"github.com/Ezizuardo/Trilink/services/deviceguard"
	"github.com/Ezizuardo/Trilink/services/verify"
)

type Handler struct {
	DB    *gorm.DB
	Guard *deviceguard.Guard
	Codes verify.Store
}

type registerInput struct {
	Stage    string `json:"stage"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Confirm  string `json:"confirm"`
	Code     string `json:"code"`
}

// pendingUser — снимок незавершённой регистрации в cookie-сессии.
// Пароль хранится уже захэшированным.
type pendingUser struct {
	Email        string `json:"email"`
	PasswordHash string `json:"password_hash"`
	Role         string `json:"role"`
}

// Register: POST /register/{role}. Первый вызов проверяет форму и
// выдаёт код подтверждения (код пишется в лог — отправка почты вне
// зоны ответственности), вызов со stage=verify создаёт пользователя.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	role := strings.ToLower(chi.URLParam(r, "role"))
	if role != users.RoleStudent && role != users.RoleSpecialist {
		writeError(w, http.StatusNotFound, "unknown role")
		return
	}

	var in registerInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid input")
		return
	}
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))

	sess, _ := config.Store.Get(r, config.SessionName)

	if in.Stage == "verify" {
		h.verifyStage(w, r, sess, role, in)
		return
	}

	if in.Password != in.Confirm {
		writeError(w, http.StatusBadRequest, "пароли не совпадают")
		return
	}
	if in.Email == "" || in.Password == "" {
		writeError(w, http.StatusBadRequest, "укажите почту и пароль")
		return
	}
	var existing users.User
	if err := h.DB.Where("email = ?", in.Email).First(&existing).Error; err == nil {
		writeError(w, http.StatusConflict, "почта уже зарегистрирована")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	code := verify.NewCode()
	if err := h.Codes.Put(r.Context(), in.Email, code); err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	log.Printf("[TriLink] Verification code for %s: %s", in.Email, code)

	raw, _ := json.Marshal(pendingUser{Email: in.Email, PasswordHash: string(hash), Role: role})
	sess.Values["pending_user"] = string(raw)
	if err := sess.Save(r, w); err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "stage": "verify", "email": in.Email})
}

func (h *Handler) verifyStage(w http.ResponseWriter, r *http.Request, sess *sessions.Session, role string, in registerInput) {
	rawPending, _ := sess.Values["pending_user"].(string)
	var pending pendingUser
	if rawPending == "" || json.Unmarshal([]byte(rawPending), &pending) != nil || pending.Role != role {
		writeError(w, http.StatusBadRequest, "сессия подтверждения истекла")
		return
	}
	code, err := h.Codes.Get(r.Context(), pending.Email)
	if err != nil || strings.TrimSpace(in.Code) != code {
		writeError(w, http.StatusBadRequest, "неверный код подтверждения")
		return
	}
	var existing users.User
	if err := h.DB.Where("email = ?", pending.Email).First(&existing).Error; err == nil {
		delete(sess.Values, "pending_user")
		_ = sess.Save(r, w)
		writeError(w, http.StatusConflict, "почта уже зарегистрирована")
		return
	}

	user := users.User{
		Email:        pending.Email,
		PasswordHash: pending.PasswordHash,
		Role:         role,
		Provider:     "local",
	}
	if role == users.RoleStudent {
		user.Student = &users.StudentProfile{}
	} else {
		user.Specialist = &users.SpecialistProfile{}
	}
	if err := h.DB.Create(&user).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	_ = h.Codes.Delete(r.Context(), pending.Email)

	token, err := h.Guard.Register(&user, deviceguard.ClientIP(r), r.UserAgent())
	if err != nil {
		// свежий пользователь активной сессии иметь не может
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	delete(sess.Values, "pending_user")
	sess.Values["user_id"] = user.ID
	sess.Values["device_token"] = token
	if err := sess.Save(r, w); err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "user_id": user.ID})
}

type loginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Remember bool   `json:"remember"`
}

// Login: POST /login. Студенты проходят через страж устройств: при
// живой сессии на другом устройстве вход не происходит, ответ всегда
// одинаковый «single device only».
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	user, token, ok := h.authenticate(w, r)
	if !ok {
		return
	}
	sess, _ := config.Store.Get(r, config.SessionName)
	sess.Values["user_id"] = user.ID
	sess.Values["device_token"] = token
	if err := sess.Save(r, w); err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "user_id": user.ID, "role": user.Role})
}

// APILogin: POST /api/login — те же учётные данные, ответ с JWT.
func (h *Handler) APILogin(w http.ResponseWriter, r *http.Request) {
	user, deviceToken, ok := h.authenticate(w, r)
	if !ok {
		return
	}
	token, err := IssueToken(user, deviceToken)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"token": token})
}

func (h *Handler) authenticate(w http.ResponseWriter, r *http.Request) (*users.User, string, bool) {
	var in loginInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid input")
		return nil, "", false
	}
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))

	var user users.User
	if err := h.DB.Where("email = ? AND provider = ?", in.Email, "local").First(&user).Error; err != nil {
		writeError(w, http.StatusUnauthorized, "неверная пара email/пароль")
		return nil, "", false
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		writeError(w, http.StatusUnauthorized, "неверная пара email/пароль")
		return nil, "", false
	}

	token, err := h.Guard.Register(&user, deviceguard.ClientIP(r), r.UserAgent())
	if errors.Is(err, deviceguard.ErrActiveSession) {
		writeError(w, http.StatusForbidden, "single device only")
		return nil, "", false
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return nil, "", false
	}
	return &user, token, true
}

// Logout: GET /logout — удаляет сессию устройства и чистит cookie.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if p := CurrentPrincipal(r); p != nil {
		_ = h.Guard.Logout(p.User.ID, p.DeviceToken)
	}
	sess, _ := config.Store.Get(r, config.SessionName)
	sess.Values = map[any]any{}
	_ = sess.Save(r, w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
