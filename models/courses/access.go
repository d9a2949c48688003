package courses

import "time"

// Статусы заявки на доступ к курсу.
const (
	RequestStatusPending  = "pending"
	RequestStatusApproved = "approved"
	RequestStatusDeclined = "declined"
)

// AccessRequest — заявка студента на доступ к курсу. Одна строка на пару
// (курс, студент); после отказа заявку можно подать заново, после
// одобрения статус финальный.
type AccessRequest struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CourseID  uint      `gorm:"uniqueIndex:idx_course_student;not null" json:"course_id"`
	StudentID uint      `gorm:"uniqueIndex:idx_course_student;not null" json:"student_id"`
	Status    string    `gorm:"not null;default:pending" json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (r *AccessRequest) IsPending() bool  { return r.Status == RequestStatusPending }
func (r *AccessRequest) IsApproved() bool { return r.Status == RequestStatusApproved }
func (r *AccessRequest) IsDeclined() bool { return r.Status == RequestStatusDeclined }
