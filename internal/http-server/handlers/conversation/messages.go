package conversation

import (
	"fmt"
	"log/slog"
	"net/http"

	"LeadDesk/internal/lib/api/response"
	"LeadDesk/internal/lib/sl"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

func Messages(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.conversation")

		logger := log.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		if handler == nil {
			logger.Error("messages not available")
			render.Status(r, http.StatusServiceUnavailable)
			render.JSON(w, r, response.Error("Messages not available"))
			return
		}

		sessionID := chi.URLParam(r, "session_id")
		sender := r.URL.Query().Get("sender")

		messages, err := handler.GetMessages(r.Context(), sessionID, sender)
		if err != nil {
			logger.Error("get messages",
				slog.String("session_id", sessionID),
				sl.Err(err),
			)
			render.Status(r, response.StatusFor(err))
			render.JSON(w, r, response.Error(fmt.Sprintf("Get messages: %v", err)))
			return
		}

		render.JSON(w, r, response.Ok(messages))
	}
}
