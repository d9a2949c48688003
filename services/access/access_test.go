package access

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/Ezizuardo/Trilink/models/courses"
	"github.com/Ezizuardo/Trilink/models/notifications"
	"github.com/Ezizuardo/Trilink/models/users"
	"github.com/Ezizuardo/Trilink/services/notify"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&users.User{},
		&users.StudentProfile{},
		&users.SpecialistProfile{},
		&users.DeviceSession{},
		&courses.Course{},
		&courses.CourseVideo{},
		&courses.AccessRequest{},
		&notifications.Notification{},
	))
	return db
}

func newService(t *testing.T) (*Service, *gorm.DB) {
	db := newTestDB(t)
	return New(db, notify.New(db)), db
}

func seedUsers(t *testing.T, db *gorm.DB) (owner, student *users.User) {
	t.Helper()
	owner = &users.User{Email: "owner@test.dev", PasswordHash: "x", Role: users.RoleSpecialist}
	student = &users.User{Email: "student@test.dev", PasswordHash: "x", Role: users.RoleStudent, FirstName: "Аня"}
	require.NoError(t, db.Create(owner).Error)
	require.NoError(t, db.Create(student).Error)
	return owner, student
}

func seedCourse(t *testing.T, db *gorm.DB, ownerID uint) *courses.Course {
	t.Helper()
	c := &courses.Course{UserID: ownerID, Title: "Линал с нуля"}
	require.NoError(t, db.Create(c).Error)
	return c
}

func ownerNotifications(t *testing.T, db *gorm.DB, userID uint) []notifications.Notification {
	t.Helper()
	var list []notifications.Notification
	require.NoError(t, db.Where("user_id = ?", userID).Order("id").Find(&list).Error)
	return list
}

func TestRequestCreatesPendingAndNotifiesOwner(t *testing.T) {
	svc, db := newService(t)
	owner, student := seedUsers(t, db)
	c := seedCourse(t, db, owner.ID)

	state, err := svc.Request(c, student)
	require.NoError(t, err)
	require.Equal(t, courses.RequestStatusPending, state)

	var req courses.AccessRequest
	require.NoError(t, db.Where("course_id = ? AND student_id = ?", c.ID, student.ID).First(&req).Error)
	require.True(t, req.IsPending())

	list := ownerNotifications(t, db, owner.ID)
	require.Len(t, list, 1)
	require.Equal(t, notifications.CategoryPurchaseRequest, list[0].Category)
	require.False(t, list[0].IsRead)

	payload, err := list[0].DecodePayload()
	require.NoError(t, err)
	snap := payload.(notifications.PurchaseRequestPayload)
	require.Equal(t, c.ID, snap.CourseID)
	require.Equal(t, "Линал с нуля", snap.CourseTitle)
	require.Equal(t, student.ID, snap.StudentID)
	require.Equal(t, "Аня", snap.StudentName)
}

func TestRequestIdempotentWhilePending(t *testing.T) {
	svc, db := newService(t)
	owner, student := seedUsers(t, db)
	c := seedCourse(t, db, owner.ID)

	_, err := svc.Request(c, student)
	require.NoError(t, err)
	state, err := svc.Request(c, student)
	require.NoError(t, err)
	require.Equal(t, courses.RequestStatusPending, state)

	var count int64
	require.NoError(t, db.Model(&courses.AccessRequest{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
	require.Len(t, ownerNotifications(t, db, owner.ID), 1)
}

func TestRequestAfterDeclineResubmits(t *testing.T) {
	svc, db := newService(t)
	owner, student := seedUsers(t, db)
	c := seedCourse(t, db, owner.ID)

	_, err := svc.Request(c, student)
	require.NoError(t, err)
	var req courses.AccessRequest
	require.NoError(t, db.First(&req).Error)
	require.NoError(t, svc.Resolve(req.ID, owner, ActionDecline))

	state, err := svc.Request(c, student)
	require.NoError(t, err)
	require.Equal(t, courses.RequestStatusPending, state)

	var count int64
	require.NoError(t, db.Model(&courses.AccessRequest{}).Count(&count).Error)
	require.EqualValues(t, 1, count, "повторная заявка не создаёт вторую строку")

	// два уведомления владельцу: исходная заявка и повторная
	var requests int64
	require.NoError(t, db.Model(&notifications.Notification{}).
		Where("user_id = ? AND category = ?", owner.ID, notifications.CategoryPurchaseRequest).
		Count(&requests).Error)
	require.EqualValues(t, 2, requests)
}

func TestRequestSelfAndWrongRole(t *testing.T) {
	svc, db := newService(t)
	owner, _ := seedUsers(t, db)
	c := seedCourse(t, db, owner.ID)

	_, err := svc.Request(c, owner)
	require.ErrorIs(t, err, ErrSelfAccess)

	other := &users.User{Email: "spec2@test.dev", PasswordHash: "x", Role: users.RoleSpecialist}
	require.NoError(t, db.Create(other).Error)
	_, err = svc.Request(c, other)
	require.ErrorIs(t, err, ErrWrongRole)
}

func TestResolveApproveGrantsAccess(t *testing.T) {
	svc, db := newService(t)
	owner, student := seedUsers(t, db)
	c := seedCourse(t, db, owner.ID)

	_, err := svc.Request(c, student)
	require.NoError(t, err)
	var req courses.AccessRequest
	require.NoError(t, db.First(&req).Error)

	require.NoError(t, svc.Resolve(req.ID, owner, ActionApprove))

	ok, err := svc.HasAccess(c, student.ID)
	require.NoError(t, err)
	require.True(t, ok)

	// студенту ушло ровно одно purchase_approved
	var approvals []notifications.Notification
	require.NoError(t, db.Where("user_id = ? AND category = ?",
		student.ID, notifications.CategoryPurchaseApproved).Find(&approvals).Error)
	require.Len(t, approvals, 1)

	// уведомление-заявка у владельца погашено
	list := ownerNotifications(t, db, owner.ID)
	require.Len(t, list, 1)
	require.True(t, list[0].IsRead)
}

func TestResolveForbiddenForNonOwner(t *testing.T) {
	svc, db := newService(t)
	owner, student := seedUsers(t, db)
	c := seedCourse(t, db, owner.ID)

	_, err := svc.Request(c, student)
	require.NoError(t, err)
	var req courses.AccessRequest
	require.NoError(t, db.First(&req).Error)

	require.ErrorIs(t, svc.Resolve(req.ID, student, ActionApprove), ErrForbidden)
	require.ErrorIs(t, svc.Resolve(req.ID, owner, "revoke"), ErrInvalidAction)
}

func TestApprovedIsTerminal(t *testing.T) {
	svc, db := newService(t)
	owner, student := seedUsers(t, db)
	c := seedCourse(t, db, owner.ID)

	_, err := svc.Request(c, student)
	require.NoError(t, err)
	var req courses.AccessRequest
	require.NoError(t, db.First(&req).Error)
	require.NoError(t, svc.Resolve(req.ID, owner, ActionApprove))

	require.ErrorIs(t, svc.Resolve(req.ID, owner, ActionDecline), ErrAlreadyApproved)

	// повторная заявка после одобрения идемпотентна
	state, err := svc.Request(c, student)
	require.NoError(t, err)
	require.Equal(t, courses.RequestStatusApproved, state)
}

func TestHasAccessOwnerAndStranger(t *testing.T) {
	svc, db := newService(t)
	owner, student := seedUsers(t, db)
	c := seedCourse(t, db, owner.ID)

	ok, err := svc.HasAccess(c, owner.ID)
	require.NoError(t, err)
	require.True(t, ok, "владелец всегда с доступом")

	ok, err = svc.HasAccess(c, student.ID)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestPurchasedCoursesIncludesCourseOnce(t *testing.T) {
	svc, db := newService(t)
	owner, student := seedUsers(t, db)
	c := seedCourse(t, db, owner.ID)

	_, err := svc.Request(c, student)
	require.NoError(t, err)
	var req courses.AccessRequest
	require.NoError(t, db.First(&req).Error)
	require.NoError(t, svc.Resolve(req.ID, owner, ActionApprove))

	list, err := svc.PurchasedCourses(student.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, c.ID, list[0].ID)
}
