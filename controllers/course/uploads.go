package course

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Ezizuardo/Trilink/config"
	"github.com/Ezizuardo/Trilink/services/media"
)

// Uploads: GET /uploads/* — обложки, аватары и прочая статика из
// каталога загрузок. Видеофайлы этим роутом не отдаются никогда:
// вместо них уходит заглушка, байты видео доступны только через
// защищённый шлюз.
func (h *Handler) Uploads(w http.ResponseWriter, r *http.Request) {
	rel := chi.URLParam(r, "*")
	if rel == "" || strings.Contains(rel, "..") {
		writeError(w, http.StatusBadRequest, "invalid path")
		return
	}
	if media.IsVideoPath(rel) {
		ServeDecoy(w, r)
		return
	}
	path := filepath.Join(config.App.UploadDir, filepath.Clean("/"+rel))
	http.ServeFile(w, r, path)
}
