package overview

import (
	"fmt"
	"log/slog"
	"net/http"

	"LeadDesk/internal/lib/api/response"
	"LeadDesk/internal/lib/sl"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

func Stats(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.overview")

		logger := log.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		if handler == nil {
			logger.Error("stats not available")
			render.Status(r, http.StatusServiceUnavailable)
			render.JSON(w, r, response.Error("Stats not available"))
			return
		}

		stats, err := handler.GeneralStats(r.Context())
		if err != nil {
			logger.Error("general stats", sl.Err(err))
			render.Status(r, response.StatusFor(err))
			render.JSON(w, r, response.Error(fmt.Sprintf("General stats: %v", err)))
			return
		}

		render.JSON(w, r, response.Ok(stats))
	}
}
