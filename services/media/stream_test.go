package media

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeTempFile(t *testing.T, size int) string {
	t.Helper()
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i % 251)
	}
	path := filepath.Join(t.TempDir(), "video.mp4")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func serve(t *testing.T, path string, mutate func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	r := httptest.NewRequest("GET", "/stream", nil)
	if mutate != nil {
		mutate(r)
	}
	w := httptest.NewRecorder()
	require.NoError(t, ServeFileRange(w, r, path, "video/mp4"))
	return w
}

func TestServeFullFile(t *testing.T) {
	path := writeTempFile(t, 1000)
	w := serve(t, path, nil)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "bytes", w.Header().Get("Accept-Ranges"))
	require.Equal(t, "video/mp4", w.Header().Get("Content-Type"))
	require.Equal(t, "1000", w.Header().Get("Content-Length"))
	require.NotEmpty(t, w.Header().Get("ETag"))
	require.Len(t, w.Body.Bytes(), 1000)
}

func TestServeRangeWindow(t *testing.T) {
	path := writeTempFile(t, 1000)
	w := serve(t, path, func(r *http.Request) {
		r.Header.Set("Range", "bytes=100-199")
	})

	require.Equal(t, http.StatusPartialContent, w.Code)
	require.Equal(t, "bytes 100-199/1000", w.Header().Get("Content-Range"))
	require.Equal(t, "100", w.Header().Get("Content-Length"))

	body := w.Body.Bytes()
	require.Len(t, body, 100)
	want := make([]byte, 100)
	for i := range want {
		want[i] = byte((100 + i) % 251)
	}
	require.True(t, bytes.Equal(want, body), "возвращается ровно запрошенное окно")
}

func TestServeRangeOpenEnd(t *testing.T) {
	path := writeTempFile(t, 1000)
	w := serve(t, path, func(r *http.Request) {
		r.Header.Set("Range", "bytes=950-")
	})

	require.Equal(t, http.StatusPartialContent, w.Code)
	require.Equal(t, "bytes 950-999/1000", w.Header().Get("Content-Range"))
	require.Len(t, w.Body.Bytes(), 50)
}

func TestServeRangeBeyondEOF(t *testing.T) {
	path := writeTempFile(t, 1000)
	w := serve(t, path, func(r *http.Request) {
		r.Header.Set("Range", "bytes=1000-")
	})

	require.Equal(t, http.StatusRequestedRangeNotSatisfiable, w.Code)
	require.Equal(t, "bytes */1000", w.Header().Get("Content-Range"))
}

func TestServeInvalidRangeFallsBackToFull(t *testing.T) {
	path := writeTempFile(t, 1000)
	w := serve(t, path, func(r *http.Request) {
		r.Header.Set("Range", "bytes=0-1,5-6")
	})

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, w.Body.Bytes(), 1000)
}

func TestConditionalRevalidation(t *testing.T) {
	path := writeTempFile(t, 1000)
	first := serve(t, path, nil)
	etag := first.Header().Get("ETag")
	require.NotEmpty(t, etag)

	second := serve(t, path, func(r *http.Request) {
		r.Header.Set("If-None-Match", etag)
	})
	require.Equal(t, http.StatusNotModified, second.Code)
	require.Empty(t, second.Body.Bytes())

	lastMod := first.Header().Get("Last-Modified")
	third := serve(t, path, func(r *http.Request) {
		r.Header.Set("If-Modified-Since", lastMod)
	})
	require.Equal(t, http.StatusNotModified, third.Code)
}

func TestServeMissingFile(t *testing.T) {
	r := httptest.NewRequest("GET", "/stream", nil)
	w := httptest.NewRecorder()
	err := ServeFileRange(w, r, filepath.Join(t.TempDir(), "gone.mp4"), "video/mp4")
	require.Error(t, err)
	require.True(t, os.IsNotExist(err))
}
