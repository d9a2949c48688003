package chat

import "time"

type Conversation struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

type ConversationMember struct {
	ID             uint `gorm:"primaryKey" json:"id"`
	ConversationID uint `gorm:"index;not null" json:"conversation_id"`
	UserID         uint `gorm:"index;not null" json:"user_id"`
}

type Message struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	ConversationID uint      `gorm:"index;not null" json:"conversation_id"`
	SenderID       uint      `gorm:"not null" json:"sender_id"`
	Text           string    `gorm:"type:text;not null" json:"text"`
	CreatedAt      time.Time `json:"created_at"`
}
