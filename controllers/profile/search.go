package profile

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Ezizuardo/Trilink/models/courses"
	"github.com/Ezizuardo/Trilink/models/users"
)

// Search: GET /users/search?q= — поиск по имени, нику, роли и ключевым
// словам анкеты.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(r.URL.Query().Get("q"), "@")))

	var people []users.User
	if err := h.DB.Preload("Student").Preload("Specialist").
		Order("created_at DESC").Find(&people).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if q != "" {
		filtered := people[:0]
		for _, p := range people {
			hay := []string{p.FirstName, p.LastName, p.Role}
			if p.Nickname != nil {
				hay = append(hay, *p.Nickname)
			}
			if p.Specialist != nil {
				hay = append(hay, p.Specialist.Keywords)
			}
			if p.Student != nil {
				hay = append(hay, p.Student.LookingFor)
			}
			if strings.Contains(strings.ToLower(strings.Join(hay, " ")), q) {
				filtered = append(filtered, p)
			}
		}
		people = filtered
	}

	type person struct {
		users.User
		Avatar string `json:"avatar_url"`
	}
	out := make([]person, 0, len(people))
	for i := range people {
		out = append(out, person{User: people[i], Avatar: AvatarURL(&people[i])})
	}
	writeJSON(w, http.StatusOK, map[string]any{"people": out, "q": q})
}

// PublicProfile: GET /people/{id} — чужой профиль с курсами; видео
// сгруппированы в уроки по названию.
func (h *Handler) PublicProfile(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 32)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	var person users.User
	if err := h.DB.Preload("Student").Preload("Specialist").First(&person, uint(id)).Error; err != nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}

	var courseRows []courses.Course
	if err := h.DB.Where("user_id = ?", person.ID).
		Order("created_at DESC").Preload("Videos").Find(&courseRows).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	type coursePayload struct {
		Course     courses.Course   `json:"course"`
		Lessons    []courses.Lesson `json:"lessons"`
		VideoTotal int              `json:"video_total"`
	}
	payload := make([]coursePayload, 0, len(courseRows))
	for _, c := range courseRows {
		lessons := courses.GroupLessons(c.Videos)
		total := len(c.Videos)
		c.Videos = nil // пути к файлам наружу не уходят
		payload = append(payload, coursePayload{Course: c, Lessons: lessons, VideoTotal: total})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"person":  person,
		"avatar":  AvatarURL(&person),
		"courses": payload,
	})
}
