package users

import "time"

// DeviceSession — единственная активная сессия устройства студента.
// uniqueIndex по UserID гарантирует на уровне базы, что второй логин
// не создаст вторую активную строку даже при гонке (проверка в коде
// остаётся, индекс — страховка).
type DeviceSession struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	UserID       uint       `gorm:"uniqueIndex;not null" json:"user_id"`
	Token        string     `gorm:"uniqueIndex;not null" json:"-"`
	IP           string     `json:"ip"`
	UserAgent    string     `json:"user_agent"`
	IsActive     bool       `gorm:"default:true" json:"is_active"`
	PendingAlert bool       `gorm:"default:false" json:"pending_alert"`
	AlertPayload string     `gorm:"type:text" json:"-"`
	AlertAt      *time.Time `json:"alert_at"`
	LastSeenAt   time.Time  `json:"last_seen_at"`
	CreatedAt    time.Time  `json:"created_at"`
}
