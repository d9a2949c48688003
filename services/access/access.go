package access

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/Ezizuardo/Trilink/models/courses"
	"github.com/Ezizuardo/Trilink/models/notifications"
	"github.com/Ezizuardo/Trilink/models/users"
	"github.com/Ezizuardo/Trilink/services/notify"
)

// Действия владельца курса над заявкой.
const (
	ActionApprove = "approve"
	ActionDecline = "decline"
)

var (
	ErrSelfAccess      = errors.New("access: cannot request own course")
	ErrWrongRole       = errors.New("access: only students can request access")
	ErrForbidden       = errors.New("access: not the course owner")
	ErrAlreadyApproved = errors.New("access: request already approved")
	ErrInvalidAction   = errors.New("access: unknown action")
)

// Service — конечный автомат заявок на доступ к курсу:
// absent → pending → {approved, declined}; declined → pending;
// approved — финальное состояние без отзыва.
type Service struct {
	db     *gorm.DB
	notify *notify.Service
}

func New(db *gorm.DB, n *notify.Service) *Service {
	return &Service{db: db, notify: n}
}

// Request создаёт или возобновляет заявку студента. Повторный вызов при
// pending/approved идемпотентен: возвращает текущий статус без нового
// уведомления владельцу.
func (s *Service) Request(course *courses.Course, student *users.User) (string, error) {
	if course.UserID == student.ID {
		return "", ErrSelfAccess
	}
	if !student.IsStudent() {
		return "", ErrWrongRole
	}

	var status string
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var req courses.AccessRequest
		err := tx.Where("course_id = ? AND student_id = ?", course.ID, student.ID).First(&req).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			req = courses.AccessRequest{
				CourseID:  course.ID,
				StudentID: student.ID,
				Status:    courses.RequestStatusPending,
			}
			if err := tx.Create(&req).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					// Гонка двух одновременных заявок: строка уже есть,
					// считаем её ожидающей.
					status = courses.RequestStatusPending
					return nil
				}
				return err
			}
		case err != nil:
			return err
		default:
			if req.IsPending() || req.IsApproved() {
				status = req.Status
				return nil
			}
			// declined → pending: заявку можно подать заново
			if err := tx.Model(&req).Updates(map[string]any{
				"status":     courses.RequestStatusPending,
				"updated_at": time.Now().UTC(),
			}).Error; err != nil {
				return err
			}
		}

		status = courses.RequestStatusPending
		payload := notifications.PurchaseRequestPayload{
			CourseID:    course.ID,
			CourseTitle: course.Title,
			StudentID:   student.ID,
			StudentName: student.DisplayName(),
		}
		if student.Nickname != nil {
			payload.StudentNickname = *student.Nickname
		}
		msg := fmt.Sprintf("%s запрашивает доступ к курсу «%s»", student.DisplayName(), course.Title)
		return s.notify.Enqueue(tx, course.UserID, "Новая заявка", msg,
			notifications.CategoryPurchaseRequest, payload, &req.ID)
	})
	if err != nil {
		return "", fmt.Errorf("request access: %w", err)
	}
	return status, nil
}

// Resolve — решение владельца по заявке. approved финален: повторное
// решение по одобренной заявке отклоняется.
func (s *Service) Resolve(requestID uint, resolver *users.User, action string) error {
	if action != ActionApprove && action != ActionDecline {
		return ErrInvalidAction
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		var req courses.AccessRequest
		if err := tx.First(&req, requestID).Error; err != nil {
			return err
		}
		var course courses.Course
		if err := tx.First(&course, req.CourseID).Error; err != nil {
			return err
		}
		if course.UserID != resolver.ID {
			return ErrForbidden
		}
		if req.IsApproved() {
			return ErrAlreadyApproved
		}

		status := courses.RequestStatusDeclined
		category := notifications.CategoryPurchaseDeclined
		title := "Заявка отклонена"
		msg := fmt.Sprintf("Доступ к курсу «%s» отклонён", course.Title)
		if action == ActionApprove {
			status = courses.RequestStatusApproved
			category = notifications.CategoryPurchaseApproved
			title = "Заявка одобрена"
			msg = fmt.Sprintf("Доступ к курсу «%s» открыт", course.Title)
		}
		if err := tx.Model(&req).Updates(map[string]any{
			"status":     status,
			"updated_at": time.Now().UTC(),
		}).Error; err != nil {
			return err
		}

		payload := notifications.PurchaseDecisionPayload{
			CourseID:    course.ID,
			CourseTitle: course.Title,
			Approved:    action == ActionApprove,
		}
		if err := s.notify.Enqueue(tx, req.StudentID, title, msg, category, payload, &req.ID); err != nil {
			return err
		}
		return s.notify.MarkRequestRead(tx, resolver.ID, req.ID)
	})
}

// HasAccess: владелец или одобренная заявка.
func (s *Service) HasAccess(course *courses.Course, userID uint) (bool, error) {
	if course.UserID == userID {
		return true, nil
	}
	var count int64
	err := s.db.Model(&courses.AccessRequest{}).
		Where("course_id = ? AND student_id = ? AND status = ?",
			course.ID, userID, courses.RequestStatusApproved).
		Count(&count).Error
	return count > 0, err
}

// PurchasedCourses — курсы с одобренным доступом, свежие одобрения сверху.
func (s *Service) PurchasedCourses(studentID uint) ([]courses.Course, error) {
	var list []courses.Course
	err := s.db.
		Joins("JOIN access_requests ON access_requests.course_id = courses.id").
		Where("access_requests.student_id = ? AND access_requests.status = ?",
			studentID, courses.RequestStatusApproved).
		Order("access_requests.updated_at DESC").
		Preload("Videos").
		Find(&list).Error
	if err != nil {
		return nil, fmt.Errorf("purchased courses: %w", err)
	}
	return list, nil
}
