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

// Current answers with null data when no agent is selected.
func Current(log *slog.Logger, handler Core) http.HandlerFunc {
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

		agent, err := handler.CurrentAgent(r.Context(), user.Username)
		if err != nil {
			logger.Error("current agent", sl.Err(err))
			render.Status(r, response.StatusFor(err))
			render.JSON(w, r, response.Error(err.Error()))
			return
		}

		render.JSON(w, r, response.Ok(agent))
	}
}

func Select(log *slog.Logger, handler Core) http.HandlerFunc {
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

		var req entity.SelectAgent
		if err = render.Bind(r, &req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error(err.Error()))
			return
		}

		agent, err := handler.SelectAgent(r.Context(), user.Username, req.ID)
		if err != nil {
			logger.Warn("select agent", slog.Int64("id", req.ID), sl.Err(err))
			render.Status(r, response.StatusFor(err))
			render.JSON(w, r, response.Error(err.Error()))
			return
		}

		logger.Info("agent selected",
			slog.Int64("id", agent.ID),
			slog.String("user", user.Username),
		)
		render.JSON(w, r, response.Ok(agent))
	}
}

func Clear(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.agent")

		logger := log.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		if handler == nil {
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

		if err = handler.ClearAgent(r.Context(), user.Username); err != nil {
			logger.Error("clear agent", sl.Err(err))
			render.Status(r, response.StatusFor(err))
			render.JSON(w, r, response.Error(err.Error()))
			return
		}

		render.JSON(w, r, response.Ok(nil))
	}
}
