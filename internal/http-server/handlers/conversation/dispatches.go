package conversation

import (
	"log/slog"
	"net/http"

	"LeadDesk/internal/lib/api/response"
	"LeadDesk/internal/lib/sl"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

func Dispatches(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.conversation")

		logger := log.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		if handler == nil {
			render.Status(r, http.StatusServiceUnavailable)
			render.JSON(w, r, response.Error("Dispatch history not available"))
			return
		}

		sessionID := chi.URLParam(r, "session_id")

		records, err := handler.DispatchHistory(r.Context(), sessionID)
		if err != nil {
			logger.Error("dispatch history", slog.String("session_id", sessionID), sl.Err(err))
			render.Status(r, response.StatusFor(err))
			render.JSON(w, r, response.Error(err.Error()))
			return
		}

		render.JSON(w, r, response.Ok(records))
	}
}
