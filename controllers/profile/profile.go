package profile

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"github.com/Ezizuardo/Trilink/config"
	"github.com/Ezizuardo/Trilink/controllers/authentication"
	"github.com/Ezizuardo/Trilink/models/users"
	"github.com/Ezizuardo/Trilink/services/notify"
)

// Аватары по умолчанию, как в первой версии приложения.
var defaultAvatars = map[string]string{
	users.RoleStudent:    "/static/img/lion_student.svg",
	users.RoleSpecialist: "/static/img/lion_teacher.svg",
}

var allowedImg = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".webp": true,
}

type Handler struct {
	DB     *gorm.DB
	Notify *notify.Service
}

// AvatarURL — единая точка получения URL аватара.
func AvatarURL(u *users.User) string {
	if u == nil {
		return defaultAvatars[users.RoleStudent]
	}
	if u.Avatar != "" {
		return u.Avatar
	}
	if url, ok := defaultAvatars[u.Role]; ok {
		return url
	}
	return defaultAvatars[users.RoleStudent]
}

// Get: GET /profile — свой профиль плюс сквозные данные страницы:
// счётчик непрочитанного и ожидающая тревога устройства.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	p := authentication.CurrentPrincipal(r)
	prefs := authentication.CurrentPrefs(r)

	unread, _ := h.Notify.UnreadCount(p.User.ID)

	resp := map[string]any{
		"user":         p.User,
		"avatar":       AvatarURL(p.User),
		"unread_count": unread,
		"lang":         prefs.Lang,
		"theme":        prefs.Theme,
	}
	if p.DeviceAlert != nil {
		resp["device_alert"] = p.DeviceAlert
	}
	writeJSON(w, http.StatusOK, resp)
}

// Update: POST /profile/update — вкладка «о себе» (multipart: поля + аватар).
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	p := authentication.CurrentPrincipal(r)
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form")
		return
	}
	u := p.User

	u.FirstName = strings.TrimSpace(r.FormValue("first_name"))
	u.LastName = strings.TrimSpace(r.FormValue("last_name"))

	nickname := strings.TrimSpace(r.FormValue("nickname"))
	if nickname != "" {
		var existing users.User
		if err := h.DB.Where("nickname = ? AND id <> ?", nickname, u.ID).First(&existing).Error; err == nil {
			writeError(w, http.StatusConflict, "никнейм уже занят")
			return
		}
		u.Nickname = &nickname
	} else {
		u.Nickname = nil
	}

	if ageVal := strings.TrimSpace(r.FormValue("age")); ageVal != "" {
		age, err := strconv.Atoi(ageVal)
		if err != nil {
			writeError(w, http.StatusBadRequest, "возраст должен быть числом")
			return
		}
		u.Age = &age
	} else {
		u.Age = nil
	}

	u.Education = strings.TrimSpace(r.FormValue("education"))
	grad := strings.TrimSpace(r.FormValue("graduation_year"))
	if grad != "" && (!isDigits(grad) || (len(grad) != 2 && len(grad) != 4)) {
		writeError(w, http.StatusBadRequest, "год выпуска должен состоять из цифр")
		return
	}
	u.GraduationYear = grad

	telegram := strings.TrimSpace(r.FormValue("telegram"))
	if telegram == "" {
		writeError(w, http.StatusBadRequest, "укажите ник в Telegram")
		return
	}
	u.Telegram = telegram

	if avatar, err := h.saveAvatar(r, u.ID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	} else if avatar != "" {
		u.Avatar = avatar
	}

	if err := h.DB.Save(u).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "user": u})
}

// saveAvatar сохраняет файл из поля avatar; пустое поле — не ошибка.
func (h *Handler) saveAvatar(r *http.Request, userID uint) (string, error) {
	file, header, err := r.FormFile("avatar")
	if err != nil {
		return "", nil
	}
	defer file.Close()
	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedImg[ext] {
		return "", errInvalidFormat
	}
	dir := filepath.Join(config.App.UploadDir, "avatars")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	name := "user" + strconv.FormatUint(uint64(userID), 10) + "_avatar" + ext
	dst, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return "", err
	}
	defer dst.Close()
	if _, err := io.Copy(dst, file); err != nil {
		return "", err
	}
	return "/uploads/avatars/" + name, nil
}

var errInvalidFormat = errors.New("неподдерживаемый формат файла")

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
