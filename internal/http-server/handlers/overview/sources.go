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

func Sources(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.overview")

		logger := log.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		if handler == nil {
			logger.Error("sources not available")
			render.Status(r, http.StatusServiceUnavailable)
			render.JSON(w, r, response.Error("Sources not available"))
			return
		}

		sources, err := handler.ListSources(r.Context())
		if err != nil {
			logger.Error("list sources", sl.Err(err))
			render.Status(r, response.StatusFor(err))
			render.JSON(w, r, response.Error(fmt.Sprintf("List sources: %v", err)))
			return
		}

		render.JSON(w, r, response.Ok(sources))
	}
}
