package files

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"LeadDesk/internal/lib/api/response"
	"LeadDesk/internal/lib/sl"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

// Download streams an archived image. Access is granted by the signed link
// so <img> tags can load it without a bearer token.
func Download(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.files")

		fileID := chi.URLParam(r, "file_id")
		logger := log.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("file_id", fileID),
		)

		if handler == nil {
			render.Status(r, http.StatusServiceUnavailable)
			render.JSON(w, r, response.Error("Files not available"))
			return
		}

		q := r.URL.Query()
		file, err := handler.OpenFile(r.Context(), fileID, q.Get("expires"), q.Get("sig"))
		if err != nil {
			logger.Debug("open file", sl.Err(err))
			render.Status(r, response.StatusFor(err))
			render.JSON(w, r, response.Error(http.StatusText(response.StatusFor(err))))
			return
		}
		defer file.Body.Close()

		if file.MimeType != "" {
			w.Header().Set("Content-Type", file.MimeType)
		} else {
			w.Header().Set("Content-Type", "application/octet-stream")
		}
		w.Header().Set("Content-Disposition", fmt.Sprintf(`inline; filename=%q`, file.Name))
		w.Header().Set("Cache-Control", "private, max-age=3600")

		if _, err = io.Copy(w, file.Body); err != nil {
			logger.Warn("stream file", sl.Err(err))
		}
	}
}
