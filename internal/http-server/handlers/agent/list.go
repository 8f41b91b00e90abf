package agent

import (
	"fmt"
	"log/slog"
	"net/http"

	"LeadDesk/internal/lib/api/response"
	"LeadDesk/internal/lib/sl"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

func List(log *slog.Logger, handler Core) http.HandlerFunc {
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

		agents, err := handler.ListAgents(r.Context())
		if err != nil {
			logger.Error("list agents", sl.Err(err))
			render.Status(r, response.StatusFor(err))
			render.JSON(w, r, response.Error(fmt.Sprintf("List agents: %v", err)))
			return
		}

		render.JSON(w, r, response.Ok(agents))
	}
}
