package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/IdiegeA21/chat-app/internal/app/server/handlers"
	"github.com/IdiegeA21/chat-app/internal/config"
	"github.com/IdiegeA21/chat-app/pkg/middleware"
)

// Deps are the handlers and auth hook the server routes to.
type Deps struct {
	Auth     middleware.Authenticator
	Users    handlers.UserService
	Rooms    handlers.RoomService
	Messages handlers.MessageService
	Hub      handlers.ClientRegistry
	Engine   handlers.EventHandler
	Health   handlers.HealthSources
	Checks   map[string]handlers.Check
}

type Server struct {
	log  *slog.Logger
	app  string
	cfg  config.HTTPConfig
	mux  *http.ServeMux
	srv  *http.Server
	deps Deps

	authHandler    *handlers.AuthHandler
	roomHandler    *handlers.RoomHandler
	messageHandler *handlers.MessageHandler
	healthHandler  *handlers.HealthHandler
	wsHandler      *handlers.WSHandler
}

func NewServer(log *slog.Logger, app, addr string, cfg config.HTTPConfig, deps Deps) *Server {
	s := &Server{
		log:            log,
		app:            app,
		cfg:            cfg,
		mux:            http.NewServeMux(),
		deps:           deps,
		authHandler:    handlers.NewAuthHandler(deps.Users),
		roomHandler:    handlers.NewRoomHandler(deps.Rooms),
		messageHandler: handlers.NewMessageHandler(deps.Messages),
		healthHandler:  handlers.NewHealthHandler(app, deps.Health, deps.Checks),
		wsHandler:      handlers.NewWSHandler(deps.Hub, deps.Engine, cfg.ClientURL),
	}
	s.routes()
	s.srv = &http.Server{
		Addr:         addr,
		Handler:      s.handler(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

func (s *Server) routes() {
	// 1. Initialize Middleware
	auth := middleware.AuthMiddleware(s.deps.Auth)
	apiLimit := middleware.NewIPRateLimiter(s.cfg.APIRatePerMin).Middleware
	authLimit := middleware.NewIPRateLimiter(s.cfg.AuthRatePerMin).Middleware
	protected := func(h http.HandlerFunc) http.Handler { return apiLimit(auth(h)) }

	// 2. Public Routes
	s.mux.HandleFunc("GET /{$}", s.healthHandler.Index)
	s.mux.HandleFunc("GET /api", s.healthHandler.API)
	s.mux.HandleFunc("GET /health", s.healthHandler.Health)
	s.mux.Handle("POST /api/auth/register", authLimit(http.HandlerFunc(s.authHandler.Register)))
	s.mux.Handle("POST /api/auth/login", authLimit(http.HandlerFunc(s.authHandler.Login)))

	// 3. Protected Routes
	s.mux.Handle("POST /api/auth/logout", protected(s.authHandler.Logout))
	s.mux.Handle("GET /api/auth/profile", protected(s.authHandler.Profile))

	s.mux.Handle("POST /api/rooms", protected(s.roomHandler.Create))
	s.mux.Handle("POST /api/rooms/join", protected(s.roomHandler.Join))
	s.mux.Handle("GET /api/rooms", protected(s.roomHandler.List))
	s.mux.Handle("GET /api/rooms/{roomId}/members", protected(s.roomHandler.Members))
	s.mux.Handle("DELETE /api/rooms/{roomId}/leave", protected(s.roomHandler.Leave))

	s.mux.Handle("GET /api/messages/room/{roomId}", protected(s.messageHandler.History))
	s.mux.Handle("POST /api/messages", protected(s.messageHandler.Post))

	// 4. Realtime. Authentication happens on the socket itself.
	s.mux.HandleFunc("GET /ws", s.wsHandler.Handler)
}

// handler wraps the mux: tracing outermost so the request logger sees the span.
func (s *Server) handler() http.Handler {
	var h http.Handler = s.mux
	h = middleware.RequestLogger(s.log)(h)
	h = middleware.CORS(s.cfg.ClientURL)(h)
	h = middleware.TracerMiddleware(s.app)(h)
	return h
}

func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// Start blocks until the server stops. A clean Shutdown returns nil.
func (s *Server) Start() error {
	s.log.Info("server - start - listening", "addr", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("server - shutdown - draining")
	return s.srv.Shutdown(ctx)
}
