package authentication

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/sessions"
	"gorm.io/gorm"

	"github.com/Ezizuardo/Trilink/config"
	"github.com/Ezizuardo/Trilink/models/users"
	"github.com/Ezizuardo/Trilink/services/deviceguard"
)

type contextKey string

const (
	principalKey contextKey = "principal"
	prefsKey     contextKey = "prefs"
)

// Principal — явный контекст запроса вместо глобального current_user.
type Principal struct {
	User        *users.User
	DeviceToken string
	DeviceAlert *deviceguard.Alert
}

// Prefs — язык и тема из сессии, пробрасываются в каждый запрос.
type Prefs struct {
	Lang  string
	Theme string
}

// Middleware восстанавливает пользователя из cookie-сессии или
// Bearer-токена и кладёт Principal в контекст запроса.
type Middleware struct {
	DB    *gorm.DB
	Guard *deviceguard.Guard
}

func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, _ := config.Store.Get(r, config.SessionName)

		prefs := Prefs{Lang: "ru", Theme: "dark"}
		if v, ok := sess.Values["lang"].(string); ok && v != "" {
			prefs.Lang = v
		}
		if v, ok := sess.Values["theme"].(string); ok && v != "" {
			prefs.Theme = v
		}
		ctx := context.WithValue(r.Context(), prefsKey, prefs)

		var (
			userID      uint
			deviceToken string
		)
		if v, ok := sess.Values["user_id"].(uint); ok {
			userID = v
		}
		if v, ok := sess.Values["device_token"].(string); ok {
			deviceToken = v
		}
		if userID == 0 {
			if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
				claims, err := ParseToken(strings.TrimPrefix(auth, "Bearer "))
				if err == nil {
					userID = claims.UserID
					deviceToken = claims.DeviceToken
				}
			}
		}
		if userID == 0 {
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		var user users.User
		if err := m.DB.First(&user, userID).Error; err != nil {
			clearSession(w, r, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		p := &Principal{User: &user, DeviceToken: deviceToken}
		if user.IsStudent() {
			if deviceToken == "" {
				// студент без сессии устройства не аутентифицирован
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}
			alert, err := m.Guard.Touch(user.ID, deviceToken)
			if errors.Is(err, deviceguard.ErrStale) {
				// токен больше не действует — молча сбрасываем
				clearSession(w, r, sess)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}
			if err == nil {
				p.DeviceAlert = alert
			}
		}

		next.ServeHTTP(w, r.WithContext(NewContext(ctx, p)))
	})
}

// NewContext кладёт Principal в контекст запроса.
func NewContext(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// RequireAuth пропускает только аутентифицированные запросы.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if CurrentPrincipal(r) == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"error": "authentication required"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// CurrentPrincipal возвращает пользователя запроса, nil для анонима.
func CurrentPrincipal(r *http.Request) *Principal {
	p, _ := r.Context().Value(principalKey).(*Principal)
	return p
}

// CurrentPrefs возвращает язык и тему запроса.
func CurrentPrefs(r *http.Request) Prefs {
	if p, ok := r.Context().Value(prefsKey).(Prefs); ok {
		return p
	}
	return Prefs{Lang: "ru", Theme: "dark"}
}

func clearSession(w http.ResponseWriter, r *http.Request, sess *sessions.Session) {
	delete(sess.Values, "user_id")
	delete(sess.Values, "device_token")
	_ = sess.Save(r, w)
}
