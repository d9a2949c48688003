package deviceguard

import (
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/Ezizuardo/Trilink/models/users"
)

func newTestGuard(t *testing.T) (*Guard, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&users.DeviceSession{}))
	return New(db), db
}

func student(id uint) *users.User {
	return &users.User{ID: id, Email: "s@test.dev", Role: users.RoleStudent}
}

func TestRegisterCreatesSessionForStudent(t *testing.T) {
	g, db := newTestGuard(t)

	token, err := g.Register(student(1), "203.0.113.7", "Mozilla/5.0 (Windows NT 10.0)")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	var sess users.DeviceSession
	require.NoError(t, db.First(&sess).Error)
	require.Equal(t, uint(1), sess.UserID)
	require.Equal(t, "203.0.113.7", sess.IP)
	require.True(t, sess.IsActive)
	require.False(t, sess.PendingAlert)
}

func TestRegisterSpecialistExempt(t *testing.T) {
	g, db := newTestGuard(t)

	token, err := g.Register(&users.User{ID: 2, Role: users.RoleSpecialist}, "1.2.3.4", "ua")
	require.NoError(t, err)
	require.Empty(t, token)

	var count int64
	require.NoError(t, db.Model(&users.DeviceSession{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestSecondLoginRaisesAlertNotSecondSession(t *testing.T) {
	g, db := newTestGuard(t)
	u := student(1)

	_, err := g.Register(u, "203.0.113.7", "Mozilla/5.0 (Windows NT 10.0)")
	require.NoError(t, err)

	token, err := g.Register(u, "198.51.100.9", "Mozilla/5.0 (Android 14)")
	require.ErrorIs(t, err, ErrActiveSession)
	require.Empty(t, token)

	var count int64
	require.NoError(t, db.Model(&users.DeviceSession{}).Where("user_id = ?", u.ID).Count(&count).Error)
	require.EqualValues(t, 1, count, "вторая активная строка не создаётся")

	var sess users.DeviceSession
	require.NoError(t, db.First(&sess).Error)
	require.True(t, sess.PendingAlert)
	require.NotNil(t, sess.AlertAt)
	require.Contains(t, sess.AlertPayload, "198.51.100.9")
	require.Contains(t, sess.AlertPayload, "Android")
	require.Contains(t, sess.AlertPayload, "https://ipinfo.io/198.51.100.9")
}

func TestConcurrentLoginsOneWinner(t *testing.T) {
	g, db := newTestGuard(t)
	u := student(5)

	const attempts = 8
	tokens := make([]string, attempts)
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tokens[i], errs[i] = g.Register(u, "10.0.0.1", "ua")
		}(i)
	}
	wg.Wait()

	issued := 0
	for i := range tokens {
		if tokens[i] != "" {
			issued++
			require.NoError(t, errs[i])
		} else {
			require.ErrorIs(t, errs[i], ErrActiveSession)
		}
	}
	require.Equal(t, 1, issued, "токен получает ровно одна попытка")

	var count int64
	require.NoError(t, db.Model(&users.DeviceSession{}).Where("user_id = ?", u.ID).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestTouchReturnsAlertWithBackfill(t *testing.T) {
	g, db := newTestGuard(t)
	u := student(1)

	token, err := g.Register(u, "203.0.113.7", "desktop-ua")
	require.NoError(t, err)
	_, err = g.Register(u, "", "")
	require.ErrorIs(t, err, ErrActiveSession)

	alert, err := g.Touch(u.ID, token)
	require.NoError(t, err)
	require.NotNil(t, alert)
	// пустые ip/ua добиты из строки сессии
	require.Equal(t, "203.0.113.7", alert.IP)
	require.Equal(t, "desktop-ua", alert.UserAgent)
	require.False(t, alert.AttemptedAt.IsZero())

	var sess users.DeviceSession
	require.NoError(t, db.First(&sess).Error)
	require.False(t, sess.LastSeenAt.IsZero())
}

func TestTouchNoAlert(t *testing.T) {
	g, _ := newTestGuard(t)
	u := student(1)
	token, err := g.Register(u, "1.1.1.1", "ua")
	require.NoError(t, err)

	alert, err := g.Touch(u.ID, token)
	require.NoError(t, err)
	require.Nil(t, alert)
}

func TestTouchStaleToken(t *testing.T) {
	g, _ := newTestGuard(t)
	_, err := g.Touch(1, "no-such-token")
	require.ErrorIs(t, err, ErrStale)
}

func TestDismissKeepsSessionActive(t *testing.T) {
	g, db := newTestGuard(t)
	u := student(1)
	token, err := g.Register(u, "1.1.1.1", "ua")
	require.NoError(t, err)
	_, err = g.Register(u, "2.2.2.2", "ua2")
	require.ErrorIs(t, err, ErrActiveSession)

	require.NoError(t, g.Dismiss(u.ID, token))

	var sess users.DeviceSession
	require.NoError(t, db.First(&sess).Error)
	require.True(t, sess.IsActive)
	require.False(t, sess.PendingAlert)
	require.Empty(t, sess.AlertPayload)

	alert, err := g.Touch(u.ID, token)
	require.NoError(t, err)
	require.Nil(t, alert)
}

func TestTerminateDeletesSession(t *testing.T) {
	g, db := newTestGuard(t)
	u := student(1)
	token, err := g.Register(u, "1.1.1.1", "ua")
	require.NoError(t, err)

	require.NoError(t, g.Terminate(u.ID, token))

	var count int64
	require.NoError(t, db.Model(&users.DeviceSession{}).Count(&count).Error)
	require.Zero(t, count)

	// после удаления токен протух
	_, err = g.Touch(u.ID, token)
	require.ErrorIs(t, err, ErrStale)
	require.ErrorIs(t, g.Terminate(u.ID, token), ErrStale)

	// и студент может войти заново
	token2, err := g.Register(u, "3.3.3.3", "ua")
	require.NoError(t, err)
	require.NotEmpty(t, token2)
}

func TestLogoutQuiet(t *testing.T) {
	g, _ := newTestGuard(t)
	u := student(1)
	token, err := g.Register(u, "1.1.1.1", "ua")
	require.NoError(t, err)

	require.NoError(t, g.Logout(u.ID, token))
	require.NoError(t, g.Logout(u.ID, token), "повторный выход не ошибка")
	require.NoError(t, g.Logout(u.ID, ""))
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "192.0.2.1:54321"
	require.Equal(t, "192.0.2.1", ClientIP(r))

	r.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	require.Equal(t, "203.0.113.7", ClientIP(r))
}
