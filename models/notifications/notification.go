package notifications

import (
	"encoding/json"
	"time"
)

// Категории уведомлений.
const (
	CategoryGeneral          = "general"
	CategoryPurchaseRequest  = "purchase_request"
	CategoryPurchaseApproved = "purchase_approved"
	CategoryPurchaseDeclined = "purchase_declined"
)

// Notification — запись в ящике уведомлений. Строки не удаляются,
// только помечаются прочитанными. purchase_request не гасится простым
// просмотром списка — только явным approve/decline.
type Notification struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	UserID          uint      `gorm:"index;not null" json:"user_id"`
	Title           string    `json:"title"`
	Message         string    `gorm:"type:text" json:"message"`
	Category        string    `gorm:"not null;default:general" json:"category"`
	Payload         string    `gorm:"type:text" json:"-"`
	AccessRequestID *uint     `gorm:"index" json:"access_request_id,omitempty"`
	IsRead          bool      `gorm:"default:false" json:"is_read"`
	CreatedAt       time.Time `json:"created_at"`
}

// PurchaseRequestPayload — снимок данных заявки на момент создания
// уведомления, чтобы не делать join при отрисовке.
type PurchaseRequestPayload struct {
	CourseID        uint   `json:"course_id"`
	CourseTitle     string `json:"course_title"`
	StudentID       uint   `json:"student_id"`
	StudentName     string `json:"student_name"`
	StudentNickname string `json:"student_nickname,omitempty"`
}

// PurchaseDecisionPayload — снимок решения владельца курса.
type PurchaseDecisionPayload struct {
	CourseID    uint   `json:"course_id"`
	CourseTitle string `json:"course_title"`
	Approved    bool   `json:"approved"`
}

// DecodePayload разбирает Payload в типизированную структуру по категории.
func (n *Notification) DecodePayload() (any, error) {
	switch n.Category {
	case CategoryPurchaseRequest:
		var p PurchaseRequestPayload
		if err := json.Unmarshal([]byte(n.Payload), &p); err != nil {
			return nil, err
		}
		return p, nil
	case CategoryPurchaseApproved, CategoryPurchaseDeclined:
		var p PurchaseDecisionPayload
		if err := json.Unmarshal([]byte(n.Payload), &p); err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, nil
	}
}
