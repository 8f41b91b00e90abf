package conversation

import (
	"log/slog"
	"net/http"

	"LeadDesk/internal/lib/api/cont"
	"LeadDesk/internal/lib/api/response"
	"LeadDesk/internal/lib/sl"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

func MarkRead(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.conversation")

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

		sessionID := chi.URLParam(r, "session_id")

		info, err := handler.MarkAsRead(r.Context(), user.Username, sessionID)
		if err != nil {
			logger.Error("mark as read",
				slog.String("session_id", sessionID),
				sl.Err(err),
			)
			render.Status(r, response.StatusFor(err))
			render.JSON(w, r, response.Error(err.Error()))
			return
		}

		render.JSON(w, r, response.Ok(info))
	}
}
