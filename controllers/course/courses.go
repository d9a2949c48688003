package course

import (
	"encoding/json"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Ezizuardo/Trilink/config"
	"github.com/Ezizuardo/Trilink/controllers/authentication"
	"github.com/Ezizuardo/Trilink/models/courses"
	"github.com/Ezizuardo/Trilink/services/access"
	"github.com/Ezizuardo/Trilink/services/media"
)

var allowedImg = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".webp": true,
}

type Handler struct {
	DB     *gorm.DB
	Access *access.Service
}

// List: GET /courses — свои курсы, новые сверху.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	p := authentication.CurrentPrincipal(r)
	var list []courses.Course
	if err := h.DB.Where("user_id = ?", p.User.ID).
		Order("created_at DESC").Preload("Videos").Find(&list).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	type row struct {
		Course     courses.Course `json:"course"`
		VideoCount int            `json:"video_count"`
	}
	out := make([]row, 0, len(list))
	for _, c := range list {
		n := len(c.Videos)
		c.Videos = nil
		out = append(out, row{Course: c, VideoCount: n})
	}
	writeJSON(w, http.StatusOK, map[string]any{"courses": out})
}

// Purchased: GET /courses/purchased — курсы с одобренным доступом.
func (h *Handler) Purchased(w http.ResponseWriter, r *http.Request) {
	p := authentication.CurrentPrincipal(r)
	list, err := h.Access.PurchasedCourses(p.User.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	type row struct {
		Course  courses.Course   `json:"course"`
		Lessons []courses.Lesson `json:"lessons"`
	}
	out := make([]row, 0, len(list))
	for _, c := range list {
		lessons := courses.GroupLessons(c.Videos)
		c.Videos = nil
		out = append(out, row{Course: c, Lessons: lessons})
	}
	writeJSON(w, http.StatusOK, map[string]any{"courses": out})
}

// Detail: GET /courses/{id} — курс, уроки и доступ текущего пользователя.
func (h *Handler) Detail(w http.ResponseWriter, r *http.Request) {
	p := authentication.CurrentPrincipal(r)
	c, ok := h.loadCourse(w, r)
	if !ok {
		return
	}
	hasAccess, err := h.Access.HasAccess(c, p.User.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	state := ""
	var req courses.AccessRequest
	if err := h.DB.Where("course_id = ? AND student_id = ?", c.ID, p.User.ID).
		First(&req).Error; err == nil {
		state = req.Status
	}

	lessons := courses.GroupLessons(c.Videos)
	c.Videos = nil
	writeJSON(w, http.StatusOK, map[string]any{
		"course":        c,
		"lessons":       lessons,
		"has_access":    hasAccess,
		"request_state": state,
	})
}

// Create: POST /courses — только специалисты; multipart с обложкой,
// необязательным превью и списком видео с названием и качеством.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	p := authentication.CurrentPrincipal(r)
	if !p.User.IsSpecialist() {
		writeError(w, http.StatusForbidden, "добавлять курсы могут только специалисты")
		return
	}
	if err := r.ParseMultipartForm(512 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form")
		return
	}

	title := strings.TrimSpace(r.FormValue("title"))
	if title == "" {
		writeError(w, http.StatusBadRequest, "укажите заголовок курса")
		return
	}
	priceRaw := strings.TrimSpace(r.FormValue("price"))
	if priceRaw == "" {
		writeError(w, http.StatusBadRequest, "укажите цену интенсива")
		return
	}
	priceFloat, err := strconv.ParseFloat(strings.ReplaceAll(priceRaw, ",", "."), 64)
	if err != nil || priceFloat < 0 {
		writeError(w, http.StatusBadRequest, "цена должна быть числом")
		return
	}
	price := int(math.Round(priceFloat))

	cover, coverHeader, err := r.FormFile("cover_image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "загрузите изображение интенсива")
		return
	}
	defer cover.Close()
	coverExt := strings.ToLower(filepath.Ext(coverHeader.Filename))
	if !allowedImg[coverExt] {
		writeError(w, http.StatusBadRequest, "формат изображения не поддерживается")
		return
	}

	form := r.MultipartForm
	videoFiles := form.File["video_file[]"]
	videoTitles := form.Value["video_title[]"]
	videoQualities := form.Value["video_quality[]"]
	if len(videoFiles) == 0 {
		writeError(w, http.StatusBadRequest, "добавьте хотя бы одно видео")
		return
	}
	for _, fh := range videoFiles {
		if !media.IsVideoPath(fh.Filename) {
			writeError(w, http.StatusBadRequest, "формат видео "+fh.Filename+" не поддерживается")
			return
		}
	}

	previewFiles := form.File["preview_clip"]
	if len(previewFiles) > 0 && !media.IsVideoPath(previewFiles[0].Filename) {
		writeError(w, http.StatusBadRequest, "формат файла превью не поддерживается")
		return
	}

	c := courses.Course{
		UserID:      p.User.ID,
		Title:       title,
		Subject:     strings.TrimSpace(r.FormValue("subject")),
		Topic:       strings.TrimSpace(r.FormValue("topic")),
		Description: strings.TrimSpace(r.FormValue("description")),
		Price:       &price,
	}

	err = h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&c).Error; err != nil {
			return err
		}
		base := courseDir(p.User.ID, c.ID)
		if err := os.MkdirAll(filepath.Join(base, "videos"), 0o755); err != nil {
			return err
		}

		coverPath, err := saveUpload(cover, filepath.Join(base, "cover"+coverExt))
		if err != nil {
			return err
		}
		c.CoverImage = coverPath

		if len(previewFiles) > 0 {
			f, err := previewFiles[0].Open()
			if err != nil {
				return err
			}
			defer f.Close()
			ext := strings.ToLower(filepath.Ext(previewFiles[0].Filename))
			previewPath, err := saveUpload(f, filepath.Join(base, "preview"+ext))
			if err != nil {
				return err
			}
			c.PreviewClip = previewPath
		}
		if err := tx.Save(&c).Error; err != nil {
			return err
		}

		for order, fh := range videoFiles {
			f, err := fh.Open()
			if err != nil {
				return err
			}
			ext := strings.ToLower(filepath.Ext(fh.Filename))
			name := "video" + strconv.Itoa(order+1) + "_" + uuid.NewString() + ext
			rel, err := saveUpload(f, filepath.Join(base, "videos", name))
			f.Close()
			if err != nil {
				return err
			}

			vTitle := "Урок " + strconv.Itoa(order+1)
			if order < len(videoTitles) && strings.TrimSpace(videoTitles[order]) != "" {
				vTitle = strings.TrimSpace(videoTitles[order])
			}
			quality := "Оригинал"
			if order < len(videoQualities) && strings.TrimSpace(videoQualities[order]) != "" {
				quality = strings.TrimSpace(videoQualities[order])
			}
			video := courses.CourseVideo{
				CourseID:     c.ID,
				Title:        vTitle,
				FilePath:     rel,
				QualityLabel: quality,
				OrderIndex:   order,
			}
			if err := tx.Create(&video).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"ok": true, "course_id": c.ID})
}

func (h *Handler) loadCourse(w http.ResponseWriter, r *http.Request) (*courses.Course, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 32)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid course id")
		return nil, false
	}
	var c courses.Course
	if err := h.DB.Preload("Videos").First(&c, uint(id)).Error; err != nil {
		writeError(w, http.StatusNotFound, "course not found")
		return nil, false
	}
	return &c, true
}

// courseDir — каталог файлов курса на диске.
func courseDir(userID, courseID uint) string {
	return filepath.Join(config.App.UploadDir, "courses",
		"user"+strconv.FormatUint(uint64(userID), 10),
		"course"+strconv.FormatUint(uint64(courseID), 10))
}

// saveUpload пишет файл и возвращает его публичный /uploads-путь.
func saveUpload(src multipart.File, dst string) (string, error) {
	out, err := os.Create(dst)
	if err != nil {
		return "", err
	}
	defer out.Close()
	if _, err := io.Copy(out, src); err != nil {
		return "", err
	}
	rel, err := filepath.Rel(config.App.UploadDir, dst)
	if err != nil {
		return "", err
	}
	return "/uploads/" + filepath.ToSlash(rel), nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
