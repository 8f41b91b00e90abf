package agent

import (
	"log/slog"
	"net/http"

	"LeadDesk/entity"
	"LeadDesk/internal/lib/api/cont"
	"LeadDesk/internal/lib/api/response"
	"LeadDesk/internal/lib/sl"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

func Create(log *slog.Logger, handler Core) http.HandlerFunc {
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

		var req entity.NewAgent
		if err = render.Bind(r, &req); err != nil {
			logger.Debug("bad request", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error(err.Error()))
			return
		}

		agent, err := handler.CreateAgent(r.Context(), user.Username, req)
		if err != nil {
			logger.Error("create agent", sl.Err(err))
			render.Status(r, response.StatusFor(err))
			render.JSON(w, r, response.Error(err.Error()))
			return
		}

		logger.Info("agent created",
			slog.Int64("id", agent.ID),
			slog.String("user", user.Username),
		)

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, response.Ok(agent))
	}
}
