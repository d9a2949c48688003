package course

import (
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Ezizuardo/Trilink/config"
	"github.com/Ezizuardo/Trilink/controllers/authentication"
	"github.com/Ezizuardo/Trilink/models/courses"
	"github.com/Ezizuardo/Trilink/models/users"
	"github.com/Ezizuardo/Trilink/services/media"
)

var videoContentTypes = map[string]string{
	".mp4":  "video/mp4",
	".mov":  "video/quicktime",
	".avi":  "video/x-msvideo",
	".mkv":  "video/x-matroska",
	".webm": "video/webm",
}

// StreamVideo: GET /courses/{id}/videos/{videoID} — защищённый шлюз.
// Настоящие байты уходят только встроенному плееру с подтверждённым
// доступом; любой отказ выглядит одинаково — как заглушка.
func (h *Handler) StreamVideo(w http.ResponseWriter, r *http.Request) {
	courseID, err1 := strconv.ParseUint(chi.URLParam(r, "id"), 10, 32)
	videoID, err2 := strconv.ParseUint(chi.URLParam(r, "videoID"), 10, 32)
	if err1 != nil || err2 != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var video courses.CourseVideo
	if err := h.DB.Where("id = ? AND course_id = ?", uint(videoID), uint(courseID)).
		First(&video).Error; err != nil {
		writeError(w, http.StatusNotFound, "video not found")
		return
	}
	var c courses.Course
	if err := h.DB.First(&c, video.CourseID).Error; err != nil {
		writeError(w, http.StatusNotFound, "course not found")
		return
	}

	// Строка видео обязана ссылаться на существующий файл; если файла
	// нет, инвариант нарушен — 404 независимо от прав.
	path := uploadFilePath(video.FilePath)
	if _, err := os.Stat(path); err != nil {
		writeError(w, http.StatusNotFound, "video not found")
		return
	}

	var viewer *users.User
	p := authentication.CurrentPrincipal(r)
	if p != nil {
		viewer = p.User
	}

	policy := media.Policy{Access: h.Access}
	decision, err := policy.Decide(viewer, &c, media.SignalsFromRequest(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	switch decision {
	case media.Reject:
		writeError(w, http.StatusForbidden, "forbidden")
	case media.ServeDecoy:
		ServeDecoy(w, r)
	case media.ServeReal:
		contentType := videoContentTypes[strings.ToLower(filepath.Ext(path))]
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		if err := media.ServeFileRange(w, r, path, contentType); err != nil {
			// файл мог исчезнуть под ногами — поток просто обрывается
			log.Printf("stream %s: %v", video.FilePath, err)
		}
	}
}

// ServeDecoy отдаёт фиксированную картинку-заглушку. Её отсутствие —
// ошибка конфигурации, и шлюз без неё не работает.
func ServeDecoy(w http.ResponseWriter, r *http.Request) {
	f, err := os.Open(config.App.DecoyPath)
	if err != nil {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	defer f.Close()
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, f)
}

// uploadFilePath переводит публичный /uploads-путь в путь на диске.
func uploadFilePath(public string) string {
	rel := strings.TrimPrefix(public, "/uploads/")
	rel = filepath.Clean("/" + rel) // нормализуем, отсекаем ../
	return filepath.Join(config.App.UploadDir, rel)
}
