package courses

import (
	"sort"
	"strconv"
	"time"
)

type Course struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"index;not null" json:"user_id"`
	Title       string    `gorm:"not null" json:"title"`
	Subject     string    `json:"subject"`
	Topic       string    `json:"topic"`
	Description string    `gorm:"type:text" json:"description"`
	CoverImage  string    `json:"cover_image"`
	PreviewClip string    `json:"preview_clip"`
	Price       *int      `json:"price"`
	CreatedAt   time.Time `json:"created_at"`

	Videos         []CourseVideo   `gorm:"constraint:OnDelete:CASCADE" json:"videos,omitempty"`
	AccessRequests []AccessRequest `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// CourseVideo — один файл урока. Видео с одинаковым Title группируются
// в один урок с несколькими качествами.
type CourseVideo struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	CourseID     uint   `gorm:"index;not null" json:"course_id"`
	Title        string `json:"title"`
	FilePath     string `gorm:"not null" json:"-"`
	QualityLabel string `json:"quality_label"`
	OrderIndex   int    `gorm:"default:0" json:"order_index"`
}

// LessonSource — один источник (качество) внутри урока.
type LessonSource struct {
	VideoID uint   `json:"video_id"`
	Quality string `json:"quality"`
}

// Lesson — сгруппированные по названию видео курса.
type Lesson struct {
	Order   int            `json:"order"`
	Title   string         `json:"title"`
	Sources []LessonSource `json:"sources"`
}

// GroupLessons группирует видео в уроки: по возрастанию OrderIndex,
// при равенстве — по ID; порядок появления названия определяет порядок урока.
func GroupLessons(videos []CourseVideo) []Lesson {
	ordered := make([]CourseVideo, len(videos))
	copy(ordered, videos)
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].OrderIndex != ordered[j].OrderIndex {
			return ordered[i].OrderIndex < ordered[j].OrderIndex
		}
		return ordered[i].ID < ordered[j].ID
	})

	var lessons []Lesson
	index := map[string]int{}
	for _, v := range ordered {
		title := v.Title
		if title == "" {
			title = "Урок " + strconv.Itoa(len(lessons)+1)
		}
		pos, ok := index[title]
		if !ok {
			lessons = append(lessons, Lesson{Order: len(lessons) + 1, Title: title})
			pos = len(lessons) - 1
			index[title] = pos
		}
		quality := v.QualityLabel
		if quality == "" {
			quality = "Оригинал"
		}
		lessons[pos].Sources = append(lessons[pos].Sources, LessonSource{VideoID: v.ID, Quality: quality})
	}
	return lessons
}
