package media

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/Ezizuardo/Trilink/models/courses"
	"github.com/Ezizuardo/Trilink/models/users"
)

// Decision — итог проверки запроса на просмотр видео.
type Decision int

const (
	Reject Decision = iota
	ServeDecoy
	ServeReal
)

// Signals — признаки запроса, по которым отличается встроенное
// воспроизведение от попытки выкачать файл.
type Signals struct {
	Download  bool   // явный ?download=1
	FetchMode string // заголовок Sec-Fetch-Mode
}

func SignalsFromRequest(r *http.Request) Signals {
	return Signals{
		Download:  r.URL.Query().Get("download") == "1",
		FetchMode: r.Header.Get("Sec-Fetch-Mode"),
	}
}

// Authorizer отвечает на вопрос «есть ли у пользователя доступ к курсу».
type Authorizer interface {
	HasAccess(course *courses.Course, userID uint) (bool, error)
}

// Policy решает, что отдавать: настоящие байты, заглушку или отказ.
// Вынесена из потокового пути, чтобы тестироваться отдельно.
type Policy struct {
	Access Authorizer
}

// Decide: неаутентифицированный запрос отклоняется; скачивание и
// top-level навигация получают заглушку даже при полном доступе —
// настоящие байты уходят только встроенному плееру; дальше владелец
// курса проходит всегда, не-студенты и студенты без одобренной заявки
// получают заглушку. Все варианты отказа снаружи неразличимы.
func (p *Policy) Decide(viewer *users.User, course *courses.Course, sig Signals) (Decision, error) {
	if viewer == nil {
		return Reject, nil
	}
	if sig.Download || sig.FetchMode == "navigate" {
		return ServeDecoy, nil
	}
	if course.UserID == viewer.ID {
		return ServeReal, nil
	}
	if !viewer.IsStudent() {
		return ServeDecoy, nil
	}
	ok, err := p.Access.HasAccess(course, viewer.ID)
	if err != nil {
		return Reject, err
	}
	if !ok {
		return ServeDecoy, nil
	}
	return ServeReal, nil
}

var videoExt = map[string]bool{
	".mp4":  true,
	".mov":  true,
	".avi":  true,
	".mkv":  true,
	".webm": true,
}

// IsVideoPath: видеофайлы никогда не отдаются общим файловым роутом —
// только через защищённый шлюз.
func IsVideoPath(path string) bool {
	return videoExt[strings.ToLower(filepath.Ext(path))]
}
