package authentication

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/Ezizuardo/Trilink/config"
	"github.com/Ezizuardo/Trilink/models/users"
	"github.com/Ezizuardo/Trilink/services/deviceguard"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

func (h *Handler) googleConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     config.App.GoogleID,
		ClientSecret: config.App.GoogleSecret,
		RedirectURL:  config.App.GoogleURL,
		Scopes: []string{
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		},
		Endpoint: google.Endpoint,
	}
}

// GoogleEnabled — вход через Google настроен в окружении.
func GoogleEnabled() bool {
	return config.App.GoogleID != "" && config.App.GoogleSecret != "" && config.App.GoogleURL != ""
}

// HandleGoogleLogin initiates Google OAuth login
func (h *Handler) HandleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	url := h.googleConfig().AuthCodeURL("google")
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

type googleUserInfo struct {
	Email     string `json:"email"`
	GivenName string `json:"given_name"`
	LastName  string `json:"family_name"`
	Picture   string `json:"picture"`
}

// HandleGoogleCallback обменивает код, забирает профиль и логинит
// (или создаёт) пользователя. Google-аккаунты регистрируются студентами
// и проходят тот же страж устройств.
func (h *Handler) HandleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	if r.FormValue("state") != "google" {
		log.Println("Invalid OAuth state")
		http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
		return
	}
	conf := h.googleConfig()
	token, err := conf.Exchange(r.Context(), r.FormValue("code"))
	if err != nil {
		log.Printf("OAuth exchange failed: %v", err)
		http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
		return
	}

	resp, err := conf.Client(r.Context(), token).Get(googleUserInfoURL)
	if err != nil {
		writeError(w, http.StatusBadGateway, "failed to fetch user info")
		return
	}
	defer resp.Body.Close()
	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil || info.Email == "" {
		writeError(w, http.StatusBadGateway, "failed to decode user info")
		return
	}

	var user users.User
	err = h.DB.Where("email = ?", info.Email).First(&user).Error
	if err != nil {
		user = users.User{
			Email:        info.Email,
			PasswordHash: "-", // вход только через Google
			Role:         users.RoleStudent,
			FirstName:    info.GivenName,
			LastName:     info.LastName,
			Avatar:       info.Picture,
			Provider:     "google",
			Student:      &users.StudentProfile{},
		}
		if err := h.DB.Create(&user).Error; err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
	}

	deviceToken, err := h.Guard.Register(&user, deviceguard.ClientIP(r), r.UserAgent())
	if errors.Is(err, deviceguard.ErrActiveSession) {
		writeError(w, http.StatusForbidden, "single device only")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	sess, _ := config.Store.Get(r, config.SessionName)
	sess.Values["user_id"] = user.ID
	sess.Values["device_token"] = deviceToken
	if err := sess.Save(r, w); err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	http.Redirect(w, r, "/profile", http.StatusSeeOther)
}
