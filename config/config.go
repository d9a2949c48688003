package config

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/gorilla/sessions"
	"github.com/joho/godotenv"
)

// SessionName — имя cookie-сессии приложения.
const SessionName = "trilink-session"

type Settings struct {
	Port         string
	DatabaseURL  string // postgres DSN; пусто — используем sqlite
	DataDir      string
	UploadDir    string
	SessionKey   string
	JWTSecret    string
	DecoyPath    string // заглушка вместо защищённого видео
	RedisAddr    string
	GoogleID     string
	GoogleSecret string
	GoogleURL    string
}

var (
	App   Settings
	Store *sessions.CookieStore
)

// Load читает .env (если есть) и переменные окружения.
func Load() Settings {
	_ = godotenv.Load()

	App = Settings{
		Port:         getenv("PORT", "8080"),
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		DataDir:      getenv("DATA_DIR", "."),
		UploadDir:    getenv("UPLOAD_DIR", "uploads"),
		SessionKey:   getenv("SESSION_SECRET", "dev"),
		JWTSecret:    getenv("JWT_SECRET", "dev"),
		DecoyPath:    getenv("DECOY_PATH", filepath.Join("static", "img", "access_denied.png")),
		RedisAddr:    os.Getenv("REDIS_ADDR"),
		GoogleID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		GoogleURL:    os.Getenv("GOOGLE_REDIRECT_URL"),
	}

	Store = sessions.NewCookieStore([]byte(App.SessionKey))
	Store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   3600 * 24 * 7,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}

	return App
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
