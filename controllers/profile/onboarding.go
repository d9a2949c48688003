package profile

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/Ezizuardo/Trilink/controllers/authentication"
	"github.com/Ezizuardo/Trilink/models/users"
)

// Никнеймы, запрещённые к регистрации.
var deniedNicknames = map[string]bool{
	"admin": true, "support": true, "moderator": true, "romie": true,
	"trilink": true, "superuser": true, "help": true, "owner": true,
}

type nameInput struct {
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	University string `json:"university"`
}

// OnboardingName: POST /onboarding/name — имя и, для студентов, ВУЗ.
func (h *Handler) OnboardingName(w http.ResponseWriter, r *http.Request) {
	p := authentication.CurrentPrincipal(r)
	var in nameInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid input")
		return
	}
	u := p.User
	u.FirstName = strings.TrimSpace(in.FirstName)
	u.LastName = strings.TrimSpace(in.LastName)
	if err := h.DB.Save(u).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if u.IsStudent() {
		uni := strings.TrimSpace(in.University)
		var sp users.StudentProfile
		if err := h.DB.Where("user_id = ?", u.ID).First(&sp).Error; err != nil {
			sp = users.StudentProfile{UserID: u.ID, LookingFor: uni}
			if err := h.DB.Create(&sp).Error; err != nil {
				writeError(w, http.StatusInternalServerError, "internal error")
				return
			}
		} else {
			if err := h.DB.Model(&sp).Update("looking_for", uni).Error; err != nil {
				writeError(w, http.StatusInternalServerError, "internal error")
				return
			}
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "next": "/onboarding/avatar"})
}

// OnboardingAvatar: POST /onboarding/avatar — multipart с полем avatar.
func (h *Handler) OnboardingAvatar(w http.ResponseWriter, r *http.Request) {
	p := authentication.CurrentPrincipal(r)
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form")
		return
	}
	avatar, err := h.saveAvatar(r, p.User.ID)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if avatar != "" {
		if err := h.DB.Model(p.User).Update("avatar", avatar).Error; err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		p.User.Avatar = avatar
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":     true,
		"avatar": AvatarURL(p.User),
		"next":   "/onboarding/nickname",
	})
}

// OnboardingNicknameSuggest: GET /onboarding/nickname — варианты ника
// по транслитерации имени.
func (h *Handler) OnboardingNicknameSuggest(w http.ResponseWriter, r *http.Request) {
	p := authentication.CurrentPrincipal(r)
	first := translit(p.User.FirstName)
	if first == "" {
		first = "user"
	}
	last := translit(p.User.LastName)
	if last == "" {
		last = "new"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"suggestions": []string{first + "-" + last, first + "." + last + "1", last + first},
	})
}

type nicknameInput struct {
	Nickname string `json:"nickname"`
}

// OnboardingNickname: POST /onboarding/nickname.
func (h *Handler) OnboardingNickname(w http.ResponseWriter, r *http.Request) {
	p := authentication.CurrentPrincipal(r)
	var in nicknameInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid input")
		return
	}
	nick := strings.TrimSpace(in.Nickname)
	if nick == "" || deniedNicknames[strings.ToLower(nick)] {
		writeError(w, http.StatusBadRequest, "введите уникальный ник")
		return
	}
	var existing users.User
	if err := h.DB.Where("nickname = ? AND id <> ?", nick, p.User.ID).First(&existing).Error; err == nil {
		writeError(w, http.StatusBadRequest, "введите уникальный ник")
		return
	}
	if err := h.DB.Model(p.User).Update("nickname", nick).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "next": "/welcome"})
}

var translitTable = map[rune]string{
	'а': "a", 'б': "b", 'в': "v", 'г': "g", 'д': "d", 'е': "e", 'ё': "e",
	'ж': "zh", 'з': "z", 'и': "i", 'й': "y", 'к': "k", 'л': "l", 'м': "m",
	'н': "n", 'о': "o", 'п': "p", 'р': "r", 'с': "s", 'т': "t", 'у': "u",
	'ф': "f", 'х': "h", 'ц': "c", 'ч': "ch", 'ш': "sh", 'щ': "sch",
	'ъ': "", 'ы': "y", 'ь': "", 'э': "e", 'ю': "yu", 'я': "ya",
}

func translit(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if out, ok := translitTable[r]; ok {
			b.WriteString(out)
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}
