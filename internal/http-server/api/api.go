package api

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"LeadDesk/entity"
	"LeadDesk/internal/config"
	"LeadDesk/internal/http-server/handlers/agent"
	"LeadDesk/internal/http-server/handlers/conversation"
	"LeadDesk/internal/http-server/handlers/errors"
	"LeadDesk/internal/http-server/handlers/files"
	"LeadDesk/internal/http-server/handlers/overview"
	"LeadDesk/internal/http-server/handlers/readstatus"
	"LeadDesk/internal/http-server/middleware/authenticate"
	"LeadDesk/internal/http-server/middleware/cors"
	"LeadDesk/internal/lib/sl"
	"LeadDesk/internal/ws"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

const (
	requestTimeout  = 15 * time.Second
	shutdownTimeout = 10 * time.Second
)

type Server struct {
	conf       *config.Config
	httpServer *http.Server
	log        *slog.Logger
}

type Handler interface {
	conversation.Core
	readstatus.Core
	overview.Core
	agent.Core
	files.Core
}

type Auth interface {
	authenticate.Authenticate
	ws.Authenticator
}

// New serves the API until ctx is done, then drains open requests.
func New(ctx context.Context, conf *config.Config, log *slog.Logger, handler Handler, auth Auth, hub *ws.Hub) error {

	server := Server{
		conf: conf,
		log:  log.With(sl.Module("api.server")),
	}

	router := NewRouter(conf, log, handler, auth, hub)

	httpLog := slog.NewLogLogger(log.Handler(), slog.LevelError)
	server.httpServer = &http.Server{
		Handler:           router,
		ErrorLog:          httpLog,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverAddress := fmt.Sprintf("%s:%s", conf.Listen.BindIP, conf.Listen.Port)
	listener, err := net.Listen("tcp", serverAddress)
	if err != nil {
		return err
	}

	server.log.Info("starting api server", slog.String("address", serverAddress))

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.httpServer.Shutdown(shutdownCtx); err != nil {
			server.log.Error("api server shutdown", sl.Err(err))
		}
	}()

	err = server.httpServer.Serve(listener)
	if stderrors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// NewRouter builds the dashboard routes. The websocket endpoint authenticates
// with a query token and file links carry their own signature, so both stay
// outside the bearer middleware.
func NewRouter(conf *config.Config, log *slog.Logger, handler Handler, auth Auth, hub *ws.Hub) http.Handler {
	// a send may post every image separately before it answers
	sendTimeout := conf.Gateway.Timeout * time.Duration(entity.MaxImages+1)
	if sendTimeout < requestTimeout {
		sendTimeout = requestTimeout
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(cors.New(log, conf.Listen.CorsOrigins))

	router.NotFound(errors.NotFound(log))
	router.MethodNotAllowed(errors.NotAllowed(log))

	router.Route("/api/v1", func(v1 chi.Router) {
		v1.Get("/ws", func(w http.ResponseWriter, r *http.Request) {
			ws.ServeWs(hub, auth, log, w, r)
		})
		v1.With(middleware.Timeout(requestTimeout)).Get("/files/{file_id}", files.Download(log, handler))

		v1.Group(func(r chi.Router) {
			r.Use(render.SetContentType(render.ContentTypeJSON))
			r.Use(authenticate.New(log, auth))

			short := r.With(middleware.Timeout(requestTimeout))

			short.Get("/conversations", conversation.List(log, handler))
			r.Route("/conversations/{session_id}", func(r chi.Router) {
				r.With(middleware.Timeout(sendTimeout)).Post("/messages", conversation.Send(log, handler))

				r.Group(func(r chi.Router) {
					r.Use(middleware.Timeout(requestTimeout))
					r.Get("/messages", conversation.Messages(log, handler))
					r.Post("/read", conversation.MarkRead(log, handler))
					r.Post("/ai", conversation.ToggleAI(log, handler))
					r.Post("/status", conversation.ChangeStatus(log, handler))
					r.Get("/dispatches", conversation.Dispatches(log, handler))
				})
			})
			short.Post("/read-status", readstatus.Batch(log, handler))
			short.Get("/sources", overview.Sources(log, handler))
			short.Get("/stats", overview.Stats(log, handler))
			r.Route("/agents", func(r chi.Router) {
				r.Use(middleware.Timeout(requestTimeout))
				r.Get("/", agent.List(log, handler))
				r.Post("/", agent.Create(log, handler))
				r.Get("/current", agent.Current(log, handler))
				r.Put("/current", agent.Select(log, handler))
				r.Delete("/current", agent.Clear(log, handler))
				r.Delete("/{id}", agent.Deactivate(log, handler))
			})
		})
	})

	return router
}
