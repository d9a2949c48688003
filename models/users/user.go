package users

import (
	"time"

	"github.com/Ezizuardo/Trilink/models/courses"
	"github.com/Ezizuardo/Trilink/models/notifications"
)

// Роли пользователей.
const (
	RoleStudent    = "student"
	RoleSpecialist = "specialist"
)

type User struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Email          string    `gorm:"unique;not null" json:"email"`
	PasswordHash   string    `gorm:"not null" json:"-"`
	Role           string    `gorm:"not null;default:student" json:"role"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	Nickname       *string   `gorm:"unique" json:"nickname"`
	Avatar         string    `json:"avatar"`
	Age            *int      `json:"age"`
	Education      string    `json:"education"`
	GraduationYear string    `json:"graduation_year"`
	Telegram       string    `json:"telegram"`
	Provider       string    `gorm:"default:local" json:"provider"`
	CreatedAt      time.Time `json:"created_at"`

	Student        *StudentProfile              `gorm:"constraint:OnDelete:CASCADE" json:"student,omitempty"`
	Specialist     *SpecialistProfile           `gorm:"constraint:OnDelete:CASCADE" json:"specialist,omitempty"`
	Courses        []courses.Course             `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	AccessRequests []courses.AccessRequest      `gorm:"foreignKey:StudentID;constraint:OnDelete:CASCADE" json:"-"`
	DeviceSessions []DeviceSession              `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Notifications  []notifications.Notification `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// StudentProfile — анкета студента.
type StudentProfile struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	UserID     uint   `gorm:"uniqueIndex;not null" json:"user_id"`
	LookingFor string `gorm:"type:text" json:"looking_for"`
}

// SpecialistProfile — анкета специалиста.
type SpecialistProfile struct {
	ID              uint   `gorm:"primaryKey" json:"id"`
	UserID          uint   `gorm:"uniqueIndex;not null" json:"user_id"`
	EducationDegree string `json:"education_degree"`
	Workplace       string `json:"workplace"`
	Keywords        string `gorm:"type:text" json:"keywords"`
}

// DisplayName — имя для показа в уведомлениях и чате.
func (u *User) DisplayName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	case u.Nickname != nil && *u.Nickname != "":
		return *u.Nickname
	default:
		return u.Email
	}
}

func (u *User) IsStudent() bool    { return u.Role == RoleStudent }
func (u *User) IsSpecialist() bool { return u.Role == RoleSpecialist }
