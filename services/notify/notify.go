package notify

import (
	"encoding/json"
	"fmt"

	"gorm.io/gorm"

	"github.com/Ezizuardo/Trilink/models/notifications"
)

// Service — ящик уведомлений: только добавление и отметка о прочтении.
type Service struct {
	DB *gorm.DB
}

func New(db *gorm.DB) *Service {
	return &Service{DB: db}
}

// Enqueue добавляет уведомление. tx передаётся снаружи, чтобы запись
// попала в ту же транзакцию, что и вызвавший её переход состояния.
func (s *Service) Enqueue(tx *gorm.DB, userID uint, title, message, category string, payload any, requestID *uint) error {
	raw := ""
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal payload: %w", err)
		}
		raw = string(b)
	}
	n := notifications.Notification{
		UserID:          userID,
		Title:           title,
		Message:         message,
		Category:        category,
		Payload:         raw,
		AccessRequestID: requestID,
	}
	if err := tx.Create(&n).Error; err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

// ListFor возвращает уведомления пользователя, новые сверху. Всё, кроме
// purchase_request, помечается прочитанным одним UPDATE: заявки на покупку
// гасятся только явным approve/decline.
func (s *Service) ListFor(userID uint) ([]notifications.Notification, error) {
	var list []notifications.Notification
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).
			Order("created_at DESC, id DESC").
			Find(&list).Error; err != nil {
			return err
		}
		var ids []uint
		for i := range list {
			if !list[i].IsRead && list[i].Category != notifications.CategoryPurchaseRequest {
				ids = append(ids, list[i].ID)
				list[i].IsRead = true
			}
		}
		if len(ids) == 0 {
			return nil
		}
		return tx.Model(&notifications.Notification{}).
			Where("id IN ?", ids).
			Update("is_read", true).Error
	})
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return list, nil
}

// UnreadCount считается на каждый запрос для активного пользователя.
func (s *Service) UnreadCount(userID uint) (int64, error) {
	var count int64
	err := s.DB.Model(&notifications.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	return count, err
}

// MarkRequestRead гасит уведомления получателя, привязанные к заявке.
func (s *Service) MarkRequestRead(tx *gorm.DB, userID, requestID uint) error {
	return tx.Model(&notifications.Notification{}).
		Where("user_id = ? AND access_request_id = ?", userID, requestID).
		Update("is_read", true).Error
}
