package main

import (
	"log"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/Ezizuardo/Trilink/config"
	"github.com/Ezizuardo/Trilink/controllers/authentication"
	chatctl "github.com/Ezizuardo/Trilink/controllers/chat"
	"github.com/Ezizuardo/Trilink/controllers/course"
	"github.com/Ezizuardo/Trilink/controllers/device"
	"github.com/Ezizuardo/Trilink/controllers/httpCors"
	notifctl "github.com/Ezizuardo/Trilink/controllers/notifications"
	"github.com/Ezizuardo/Trilink/controllers/profile"
	"github.com/Ezizuardo/Trilink/models/chat"
	"github.com/Ezizuardo/Trilink/models/courses"
	"github.com/Ezizuardo/Trilink/models/notifications"
	"github.com/Ezizuardo/Trilink/models/users"
	"github.com/Ezizuardo/Trilink/services/access"
	"github.com/Ezizuardo/Trilink/services/deviceguard"
	"github.com/Ezizuardo/Trilink/services/notify"
	"github.com/Ezizuardo/Trilink/services/verify"
)

func main() {
	cfg := config.Load()

	if err := config.InitDB(); err != nil {
		log.Fatalf("Ошибка инициализации базы данных: %v", err)
	}

	err := config.DB.AutoMigrate(
		&users.User{},
		&users.StudentProfile{},
		&users.SpecialistProfile{},
		&users.DeviceSession{},
		&courses.Course{},
		&courses.CourseVideo{},
		&courses.AccessRequest{},
		&notifications.Notification{},
		&chat.Conversation{},
		&chat.ConversationMember{},
		&chat.Message{},
	)
	if err != nil {
		log.Fatalf("Ошибка миграции базы данных: %v", err)
	}

	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		log.Fatalf("Ошибка создания каталога загрузок: %v", err)
	}
	// Без заглушки защищённый шлюз не работает вовсе.
	if _, err := os.Stat(cfg.DecoyPath); err != nil {
		log.Printf("ВНИМАНИЕ: файл-заглушка %s недоступен: %v", cfg.DecoyPath, err)
	}

	notifySvc := notify.New(config.DB)
	accessSvc := access.New(config.DB, notifySvc)
	guard := deviceguard.New(config.DB)

	var codes verify.Store = verify.NewMemoryStore()
	if cfg.RedisAddr != "" {
		codes = verify.NewRedisStore(cfg.RedisAddr)
	}

	authHandler := &authentication.Handler{DB: config.DB, Guard: guard, Codes: codes}
	profileHandler := &profile.Handler{DB: config.DB, Notify: notifySvc}
	courseHandler := &course.Handler{DB: config.DB, Access: accessSvc}
	notifHandler := &notifctl.Handler{Notify: notifySvc}
	deviceHandler := &device.Handler{Guard: guard}
	chatHandler := &chatctl.Handler{DB: config.DB}
	mw := &authentication.Middleware{DB: config.DB, Guard: guard}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(httpCors.CorsSettings().Handler)
	r.Use(mw.Handler)

	r.Post("/register/{role}", authHandler.Register)
	r.Post("/login", authHandler.Login)
	r.Post("/api/login", authHandler.APILogin)
	r.Get("/logout", authHandler.Logout)
	if authentication.GoogleEnabled() {
		r.Get("/login/google", authHandler.HandleGoogleLogin)
		r.Get("/callback/google", authHandler.HandleGoogleCallback)
	}

	r.Get("/set-theme/{theme}", profileHandler.SetTheme)
	r.Get("/set-lang/{lang}", profileHandler.SetLang)

	r.Get("/uploads/*", courseHandler.Uploads)
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir("static"))))

	// видеошлюз сам решает, что отдать анониму
	r.Get("/courses/{id}/videos/{videoID}", courseHandler.StreamVideo)

	r.Group(func(r chi.Router) {
		r.Use(authentication.RequireAuth)

		r.Get("/profile", profileHandler.Get)
		r.Post("/profile/update", profileHandler.Update)
		r.Post("/onboarding/name", profileHandler.OnboardingName)
		r.Post("/onboarding/avatar", profileHandler.OnboardingAvatar)
		r.Get("/onboarding/nickname", profileHandler.OnboardingNicknameSuggest)
		r.Post("/onboarding/nickname", profileHandler.OnboardingNickname)
		r.Get("/users/search", profileHandler.Search)
		r.Get("/people/{id}", profileHandler.PublicProfile)

		r.Get("/courses", courseHandler.List)
		r.Post("/courses", courseHandler.Create)
		r.Get("/courses/purchased", courseHandler.Purchased)
		r.Get("/courses/{id}", courseHandler.Detail)
		r.Post("/courses/{id}/request-access", courseHandler.RequestAccess)
		r.Post("/courses/requests/{id}/{action}", courseHandler.ResolveRequest)

		r.Get("/notifications", notifHandler.List)
		r.Get("/notifications/unread-count", notifHandler.UnreadCount)

		r.Post("/device-alert/{action}", deviceHandler.Resolve)

		r.Get("/chat", chatHandler.Index)
		r.Get("/chat/with/{id}", chatHandler.With)
		r.Post("/chat/with/{id}", chatHandler.With)
	})

	log.Printf("Сервер запущен на порту %s", cfg.Port)
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		log.Fatalf("Ошибка запуска сервера: %v", err)
	}
}
