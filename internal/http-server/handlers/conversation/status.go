package conversation

import (
	"log/slog"
	"net/http"

	"LeadDesk/entity"
	"LeadDesk/internal/lib/api/response"
	"LeadDesk/internal/lib/sl"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

func ChangeStatus(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.conversation")

		logger := log.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		if handler == nil {
			logger.Error("lead updates not available")
			render.Status(r, http.StatusServiceUnavailable)
			render.JSON(w, r, response.Error("Lead updates not available"))
			return
		}

		var req entity.StatusChange
		if err := render.Bind(r, &req); err != nil {
			logger.Debug("bad request", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error(err.Error()))
			return
		}

		sessionID := chi.URLParam(r, "session_id")
		logger = logger.With(slog.String("session_id", sessionID))

		from, err := handler.ChangeStatus(r.Context(), sessionID, req.Status)
		if err != nil {
			logger.Warn("change status",
				slog.String("from", string(from)),
				slog.String("to", string(req.Status)),
				sl.Err(err),
			)
			render.Status(r, response.StatusFor(err))
			render.JSON(w, r, response.Error(err.Error()))
			return
		}

		logger.Info("status changed",
			slog.String("from", string(from)),
			slog.String("to", string(req.Status)),
		)
		render.JSON(w, r, response.Ok(req))
	}
}
