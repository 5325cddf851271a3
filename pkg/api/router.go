package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/marmos91/remotefs/internal/logger"
	"github.com/marmos91/remotefs/pkg/api/handlers"
	apimiddleware "github.com/marmos91/remotefs/pkg/api/middleware"
	"github.com/marmos91/remotefs/pkg/credential"
	"github.com/marmos91/remotefs/pkg/session"
	"github.com/marmos91/remotefs/pkg/token"
)

// NewRouter builds the chi router for the remote filesystem's HTTP surface:
// auth, list, files, mkdir, lookup, plus the health and metrics endpoints.
func NewRouter(users *credential.Store, tokens *token.Service, sessions *session.Manager) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(metricsMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	health := handlers.NewHealthHandler()
	r.Route("/health", func(r chi.Router) {
		r.Get("/", health.Liveness)
		r.Get("/ready", health.Readiness)
	})
	r.Handle("/metrics", MetricsHandler())

	auth := handlers.NewAuthHandler(users, tokens, sessions)
	r.Post("/auth/register", auth.Register)
	r.Post("/auth/login", auth.Login)

	fs := handlers.NewFSHandler(sessions, users)
	r.Group(func(r chi.Router) {
		r.Use(apimiddleware.BearerAuth(tokens))

		r.Get("/list", fs.List)
		r.Get("/list/*", fs.List)
		r.Get("/files/*", fs.GetFile)
		r.Put("/files/*", fs.PutFile)
		r.Delete("/files/*", fs.DeleteFile)
		r.Post("/mkdir/*", fs.Mkdir)
		r.Get("/lookup/*", fs.Lookup)
	})

	return r
}

// requestLogger logs request start/completion via internal/logger.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := middleware.GetReqID(r.Context())

		logger.Debug("request started",
			logger.KeyRequestID, requestID,
			logger.KeyMethod, r.Method,
			logger.KeyPath, r.URL.Path,
		)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		logger.Info("request completed",
			logger.KeyRequestID, requestID,
			logger.KeyMethod, r.Method,
			logger.KeyPath, r.URL.Path,
			logger.KeyStatus, ww.Status(),
			logger.KeyDuration, time.Since(start).String(),
		)
	})
}
