package courses

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGroupLessonsByTitle(t *testing.T) {
	videos := []CourseVideo{
		{ID: 1, Title: "Введение", QualityLabel: "720p", OrderIndex: 0},
		{ID: 2, Title: "Введение", QualityLabel: "1080p", OrderIndex: 0},
		{ID: 3, Title: "Практика", QualityLabel: "720p", OrderIndex: 1},
	}

	lessons := GroupLessons(videos)
	require.Len(t, lessons, 2)

	require.Equal(t, 1, lessons[0].Order)
	require.Equal(t, "Введение", lessons[0].Title)
	require.Equal(t, []LessonSource{
		{VideoID: 1, Quality: "720p"},
		{VideoID: 2, Quality: "1080p"},
	}, lessons[0].Sources)

	require.Equal(t, 2, lessons[1].Order)
	require.Equal(t, "Практика", lessons[1].Title)
}

func TestGroupLessonsOrdering(t *testing.T) {
	// порядок на входе перемешан, сортируем по OrderIndex, затем по ID
	videos := []CourseVideo{
		{ID: 9, Title: "Третий", OrderIndex: 2},
		{ID: 4, Title: "Первый", OrderIndex: 0},
		{ID: 7, Title: "Второй", OrderIndex: 1},
	}

	lessons := GroupLessons(videos)
	require.Len(t, lessons, 3)
	require.Equal(t, "Первый", lessons[0].Title)
	require.Equal(t, "Второй", lessons[1].Title)
	require.Equal(t, "Третий", lessons[2].Title)
}

func TestGroupLessonsTieBreakByID(t *testing.T) {
	videos := []CourseVideo{
		{ID: 5, Title: "Б", OrderIndex: 0},
		{ID: 2, Title: "А", OrderIndex: 0},
	}

	lessons := GroupLessons(videos)
	require.Len(t, lessons, 2)
	require.Equal(t, "А", lessons[0].Title)
	require.Equal(t, "Б", lessons[1].Title)
}

func TestGroupLessonsFallbacks(t *testing.T) {
	videos := []CourseVideo{
		{ID: 1, Title: "", QualityLabel: ""},
	}

	lessons := GroupLessons(videos)
	require.Len(t, lessons, 1)
	require.Equal(t, "Урок 1", lessons[0].Title)
	require.Equal(t, "Оригинал", lessons[0].Sources[0].Quality)
}

func TestGroupLessonsEmpty(t *testing.T) {
	require.Empty(t, GroupLessons(nil))
}
