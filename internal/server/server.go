package server

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
	"github.com/vocaciona/apiserver/config"
	"github.com/vocaciona/apiserver/internal/auth"
	"github.com/vocaciona/apiserver/internal/db"
	"github.com/vocaciona/apiserver/internal/handlers"
	"github.com/vocaciona/apiserver/internal/mq"
	"github.com/vocaciona/apiserver/internal/services"
	"github.com/vocaciona/apiserver/internal/store"
)

// Server wraps the HTTP server and its owned resources.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	events     *mq.MQ
	log        *logrus.Logger
}

// New constructs a Server: it opens the database pool, builds every
// repository and service, and mounts the routes. All dependencies are
// constructed here and injected; nothing reads the environment after this.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	events, err := mq.NewFromConfig(ctx, cfg.MQ)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	issuer, err := auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}
	bridge := auth.NewGoogleClient(cfg.Google.Timeout, cfg.Google.UserInfoURL)

	userRepo := store.NewUserRepository(dbConn)
	resultRepo := store.NewTestResultRepository(dbConn)
	followRepo := store.NewFollowRepository(dbConn)

	var publisher services.EventPublisher
	if events != nil {
		publisher = events
	}

	authService := services.NewAuthService(userRepo, issuer, bridge, log.WithField("servicio", "auth"))
	userService := services.NewUserService(userRepo, followRepo, resultRepo, log.WithField("servicio", "usuario"))
	resultService := services.NewTestResultService(resultRepo, userRepo, followRepo, publisher, cfg.MQ.Channel, log.WithField("servicio", "tests"))

	authMiddleware := handlers.RequireAuth(issuer)
	optionalAuthMiddleware := handlers.OptionalAuth(issuer)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Route("/auth", func(r chi.Router) {
		handlers.AuthRouter(r, authService, authMiddleware, optionalAuthMiddleware)
	})
	router.Route("/usuario", func(r chi.Router) {
		handlers.UserRouter(r, userService, authMiddleware)
	})
	router.Route("/tests", func(r chi.Router) {
		handlers.TestsRouter(r, resultService, authMiddleware)
	})
	router.Route("/vocacional", func(r chi.Router) {
		handlers.VocationalRouter(r, resultService, authMiddleware)
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		events:     events,
		log:        log,
	}, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	s.log.WithField("addr", s.httpServer.Addr).Info("server listening")
	return s.httpServer.ListenAndServe()
}

// Shutdown releases owned resources.
func (s *Server) Shutdown() error {
	if s.events != nil {
		_ = s.events.Close()
	}
	if s.db != nil {
		_ = s.db.Close()
	}
	return s.httpServer.Close()
}
