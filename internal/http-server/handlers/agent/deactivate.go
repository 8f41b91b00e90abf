package agent

import (
	"log/slog"
	"net/http"
	"strconv"

	"LeadDesk/internal/lib/api/cont"
	"LeadDesk/internal/lib/api/response"
	"LeadDesk/internal/lib/sl"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

func Deactivate(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.agent")

		logger := log.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		if handler == nil {
			logger.Error("agents not available")
			render.Status(r, http.StatusServiceUnavailable)
			render.JSON(w, r, response.Error("Agents not available"))
			return
		}

		user, err := cont.GetUser(r.Context())
		if err != nil {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, response.Error("Unauthorized"))
			return
		}

		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil || id <= 0 {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("Invalid agent id"))
			return
		}

		if err = handler.DeactivateAgent(r.Context(), user.Username, id); err != nil {
			logger.Error("deactivate agent", slog.Int64("id", id), sl.Err(err))
			render.Status(r, response.StatusFor(err))
			render.JSON(w, r, response.Error(err.Error()))
			return
		}

		logger.Info("agent deactivated", slog.Int64("id", id))
		render.JSON(w, r, response.Ok(nil))
	}
}
