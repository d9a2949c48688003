package deviceguard

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Ezizuardo/Trilink/models/users"
)

var (
	// ErrActiveSession — у студента уже есть активная сессия устройства;
	// новая попытка входа не аутентифицируется.
	ErrActiveSession = errors.New("deviceguard: single device only")
	// ErrStale — токен больше не соответствует строке сессии.
	ErrStale = errors.New("deviceguard: session not found")
)

// Alert — снимок чужой попытки входа, показывается держателю
// активной сессии.
type Alert struct {
	IP          string    `json:"ip"`
	UserAgent   string    `json:"user_agent"`
	Device      string    `json:"device"`
	AttemptedAt time.Time `json:"attempted_at"`
	MapURL      string    `json:"map_url"`
}

const lockStripes = 64

// Guard — одна активная сессия устройства на студента. Проверка
// «есть ли активная сессия» и последующая вставка/пометка выполняются
// под полосатым мьютексом по пользователю; uniqueIndex по user_id
// в базе перехватывает гонку между процессами.
type Guard struct {
	db *gorm.DB
	mu [lockStripes]sync.Mutex
}

func New(db *gorm.DB) *Guard {
	return &Guard{db: db}
}

func (g *Guard) lock(userID uint) *sync.Mutex {
	return &g.mu[userID%lockStripes]
}

// Register обрабатывает попытку входа. Не-студентам сессия устройства
// не нужна — возвращается пустой токен. Для студента либо создаётся
// новая сессия, либо существующая помечается тревогой и вход отклоняется.
func (g *Guard) Register(user *users.User, ip, userAgent string) (string, error) {
	if !user.IsStudent() {
		return "", nil
	}
	l := g.lock(user.ID)
	l.Lock()
	defer l.Unlock()

	var existing users.DeviceSession
	err := g.db.Where("user_id = ? AND is_active = ?", user.ID, true).First(&existing).Error
	if err == nil {
		return "", g.raiseAlert(&existing, ip, userAgent)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", fmt.Errorf("lookup device session: %w", err)
	}

	sess := users.DeviceSession{
		UserID:     user.ID,
		Token:      uuid.NewString(),
		IP:         ip,
		UserAgent:  userAgent,
		IsActive:   true,
		LastSeenAt: time.Now().UTC(),
	}
	if err := g.db.Create(&sess).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Строка появилась между проверкой и вставкой (другой процесс).
			if e := g.db.Where("user_id = ?", user.ID).First(&existing).Error; e == nil {
				return "", g.raiseAlert(&existing, ip, userAgent)
			}
		}
		return "", fmt.Errorf("create device session: %w", err)
	}
	return sess.Token, nil
}

func (g *Guard) raiseAlert(sess *users.DeviceSession, ip, userAgent string) error {
	now := time.Now().UTC()
	alert := Alert{
		IP:          ip,
		UserAgent:   userAgent,
		Device:      deviceLabel(userAgent),
		AttemptedAt: now,
		MapURL:      "https://ipinfo.io/" + ip,
	}
	raw, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}
	if err := g.db.Model(sess).Updates(map[string]any{
		"pending_alert": true,
		"alert_payload": string(raw),
		"alert_at":      now,
	}).Error; err != nil {
		return fmt.Errorf("stamp alert: %w", err)
	}
	return ErrActiveSession
}

// Touch обновляет last_seen и возвращает ожидающую тревогу, если она
// есть. Протухший токен (сессия удалена в другом месте) — ErrStale,
// вызывающая сторона молча сбрасывает его.
func (g *Guard) Touch(userID uint, token string) (*Alert, error) {
	var sess users.DeviceSession
	err := g.db.Where("user_id = ? AND token = ?", userID, token).First(&sess).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrStale
	}
	if err != nil {
		return nil, fmt.Errorf("lookup device session: %w", err)
	}
	if err := g.db.Model(&sess).Update("last_seen_at", time.Now().UTC()).Error; err != nil {
		return nil, fmt.Errorf("touch device session: %w", err)
	}
	if !sess.PendingAlert {
		return nil, nil
	}
	var alert Alert
	if sess.AlertPayload != "" {
		if err := json.Unmarshal([]byte(sess.AlertPayload), &alert); err != nil {
			return nil, fmt.Errorf("decode alert payload: %w", err)
		}
	}
	// Недостающие поля добиваем из самой строки сессии.
	if alert.IP == "" {
		alert.IP = sess.IP
	}
	if alert.UserAgent == "" {
		alert.UserAgent = sess.UserAgent
	}
	if alert.AttemptedAt.IsZero() && sess.AlertAt != nil {
		alert.AttemptedAt = *sess.AlertAt
	}
	return &alert, nil
}

// Dismiss снимает тревогу, сессия остаётся активной.
func (g *Guard) Dismiss(userID uint, token string) error {
	res := g.db.Model(&users.DeviceSession{}).
		Where("user_id = ? AND token = ?", userID, token).
		Updates(map[string]any{
			"pending_alert": false,
			"alert_payload": "",
			"alert_at":      nil,
		})
	if res.Error != nil {
		return fmt.Errorf("dismiss alert: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrStale
	}
	return nil
}

// Terminate удаляет сессию целиком: держатель сбрасывает своё
// устройство и выходит.
func (g *Guard) Terminate(userID uint, token string) error {
	res := g.db.Where("user_id = ? AND token = ?", userID, token).
		Delete(&users.DeviceSession{})
	if res.Error != nil {
		return fmt.Errorf("terminate session: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrStale
	}
	return nil
}

// Logout удаляет сессию по токену из браузерной сессии, если она ещё есть.
func (g *Guard) Logout(userID uint, token string) error {
	if token == "" {
		return nil
	}
	return g.db.Where("user_id = ? AND token = ?", userID, token).
		Delete(&users.DeviceSession{}).Error
}

// ClientIP — адрес клиента: первый hop X-Forwarded-For, иначе RemoteAddr.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			fwd = fwd[:i]
		}
		return strings.TrimSpace(fwd)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func deviceLabel(userAgent string) string {
	ua := strings.ToLower(userAgent)
	switch {
	case strings.Contains(ua, "iphone"), strings.Contains(ua, "ipad"):
		return "iOS"
	case strings.Contains(ua, "android"):
		return "Android"
	case strings.Contains(ua, "windows"):
		return "Windows"
	case strings.Contains(ua, "mac os"), strings.Contains(ua, "macintosh"):
		return "macOS"
	case strings.Contains(ua, "linux"):
		return "Linux"
	default:
		return "Неизвестное устройство"
	}
}
