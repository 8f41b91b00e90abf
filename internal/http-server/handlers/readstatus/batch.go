package readstatus

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

// Batch answers read info for the listed conversations, keyed by session id.
func Batch(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.readstatus")

		logger := log.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		if handler == nil {
			logger.Error("read status not available")
			render.Status(r, http.StatusServiceUnavailable)
			render.JSON(w, r, response.Error("Read status not available"))
			return
		}

		user, err := cont.GetUser(r.Context())
		if err != nil {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, response.Error("Unauthorized"))
			return
		}

		var req entity.ReadStatusRequest
		if err = render.Bind(r, &req); err != nil {
			logger.Debug("bad request", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error(err.Error()))
			return
		}

		infos, err := handler.ReadStatus(r.Context(), user.Username, req.Conversations)
		if err != nil {
			logger.Error("read status", slog.Int("count", len(req.Conversations)), sl.Err(err))
			render.Status(r, response.StatusFor(err))
			render.JSON(w, r, response.Error(err.Error()))
			return
		}

		render.JSON(w, r, response.Ok(infos))
	}
}
