package conversation

import (
	"errors"
	"log/slog"
	"net/http"

	"LeadDesk/entity"
	"LeadDesk/internal/lib/api/cont"
	"LeadDesk/internal/lib/api/response"
	"LeadDesk/internal/lib/sl"
	"LeadDesk/internal/service/dispatch"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

// SendFailure is returned with a failed send so the client can drop its
// optimistic copy and restore the composer text.
type SendFailure struct {
	TempID   string `json:"temp_id,omitempty"`
	Text     string `json:"text,omitempty"`
	Category string `json:"category,omitempty"`
}

func Send(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.conversation")

		logger := log.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		if handler == nil {
			logger.Error("sending not available")
			render.Status(r, http.StatusServiceUnavailable)
			render.JSON(w, r, response.Error("Sending not available"))
			return
		}

		user, err := cont.GetUser(r.Context())
		if err != nil {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, response.Error("Unauthorized"))
			return
		}

		var out entity.Outbound
		if err = render.Bind(r, &out); err != nil {
			logger.Debug("bad message", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.ErrorWithData(err.Error(), SendFailure{
				TempID:   out.TempID,
				Text:     out.Text,
				Category: string(dispatch.CategoryValidation),
			}))
			return
		}
		out.SessionID = chi.URLParam(r, "session_id")

		logger = logger.With(
			slog.String("session_id", out.SessionID),
			slog.String("user", user.Username),
		)

		result, err := handler.SendMessage(r.Context(), user.Username, out)
		if err != nil {
			failure := SendFailure{TempID: out.TempID, Text: out.Text}
			status := response.StatusFor(err)
			message := err.Error()

			var de *dispatch.Error
			if errors.As(err, &de) {
				failure.Category = string(de.Category)
				message = de.Message()
				if de.Category != dispatch.CategoryValidation {
					status = http.StatusBadGateway
				}
			}

			logger.Error("send message", slog.String("category", failure.Category), sl.Err(err))
			render.Status(r, status)
			render.JSON(w, r, response.ErrorWithData(message, failure))
			return
		}

		logger.Info("message sent",
			slog.String("route", string(result.Route)),
			slog.Bool("fallback", result.ViaFallback),
			slog.Int("images", len(out.Images)),
		)

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, response.Ok(result))
	}
}
