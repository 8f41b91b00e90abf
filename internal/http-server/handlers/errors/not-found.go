package errors

import (
	"log/slog"
	"net/http"

	"LeadDesk/internal/lib/api/response"
	"LeadDesk/internal/lib/sl"

	"github.com/go-chi/render"
)

func NotFound(log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.With(sl.Module("http.handlers.errors")).Debug("route not found",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)

		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, response.Error("Requested resource not found"))
	}
}
