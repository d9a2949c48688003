package media

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"
)

// ServeFileRange отдаёт файл с поддержкой одиночного Range-запроса и
// условной перепроверкой ETag/Last-Modified для полных ответов.
// Диапазонный ответ читает только запрошенное окно, не весь файл.
func ServeFileRange(w http.ResponseWriter, r *http.Request, path, contentType string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return err
	}
	size := fi.Size()

	w.Header().Set("Accept-Ranges", "bytes")
	w.Header().Set("Content-Type", contentType)

	rng, err := ParseRange(r.Header.Get("Range"), size)
	if errors.Is(err, ErrUnsatisfiable) {
		w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", size))
		w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
		return nil
	}
	if err != nil {
		rng = nil // нечитаемый Range игнорируем
	}

	if rng == nil {
		etag := fmt.Sprintf(`"%x-%x"`, fi.ModTime().UTC().Unix(), size)
		w.Header().Set("ETag", etag)
		w.Header().Set("Last-Modified", fi.ModTime().UTC().Format(http.TimeFormat))
		if notModified(r, etag, fi.ModTime()) {
			w.WriteHeader(http.StatusNotModified)
			return nil
		}
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
		if r.Method == http.MethodHead {
			return nil
		}
		_, err = io.Copy(w, f)
		return err
	}

	w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", rng.Start, rng.End, size))
	w.Header().Set("Content-Length", strconv.FormatInt(rng.Length(), 10))
	w.WriteHeader(http.StatusPartialContent)
	if r.Method == http.MethodHead {
		return nil
	}
	if _, err := f.Seek(rng.Start, io.SeekStart); err != nil {
		return err
	}
	_, err = io.CopyN(w, f, rng.Length())
	return err
}

func notModified(r *http.Request, etag string, modTime time.Time) bool {
	if match := r.Header.Get("If-None-Match"); match != "" {
		return match == etag
	}
	if ims := r.Header.Get("If-Modified-Since"); ims != "" {
		if t, err := http.ParseTime(ims); err == nil {
			return !modTime.Truncate(time.Second).After(t)
		}
	}
	return false
}
