package conversation

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"LeadDesk/entity"
	"LeadDesk/internal/lib/api/cont"
	"LeadDesk/internal/lib/api/response"
	"LeadDesk/internal/lib/sl"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

const maxPerPage = 100

func List(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.conversation")

		logger := log.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		if handler == nil {
			logger.Error("conversations not available")
			render.Status(r, http.StatusServiceUnavailable)
			render.JSON(w, r, response.Error("Conversations not available"))
			return
		}

		user, err := cont.GetUser(r.Context())
		if err != nil {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, response.Error("Unauthorized"))
			return
		}

		filter, err := parseFilter(r.URL.Query())
		if err != nil {
			logger.Debug("bad query", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error(err.Error()))
			return
		}

		page, err := handler.ListConversations(r.Context(), user.Username, filter)
		if err != nil {
			logger.Error("list conversations", sl.Err(err))
			render.Status(r, response.StatusFor(err))
			render.JSON(w, r, response.Error(fmt.Sprintf("List conversations: %v", err)))
			return
		}

		logger.Debug("conversations listed",
			slog.String("user", user.Username),
			slog.Int("total", page.Total),
			slog.Int("page", page.Page),
		)

		render.JSON(w, r, response.Ok(page))
	}
}

func parseFilter(q url.Values) (entity.ConversationFilter, error) {
	filter := entity.ConversationFilter{
		Sender: q.Get("sender"),
		Query:  q.Get("q"),
	}

	var err error
	if v := q.Get("unread_only"); v != "" {
		if filter.UnreadOnly, err = strconv.ParseBool(v); err != nil {
			return filter, fmt.Errorf("unread_only: %q is not a boolean", v)
		}
	}
	if filter.Page, err = queryInt(q, "page"); err != nil {
		return filter, err
	}
	if filter.PerPage, err = queryInt(q, "per_page"); err != nil {
		return filter, err
	}
	if filter.PerPage > maxPerPage {
		filter.PerPage = maxPerPage
	}
	return filter, nil
}

func queryInt(q url.Values, key string) (int, error) {
	v := q.Get(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s: %q is not a valid number", key, v)
	}
	return n, nil
}
