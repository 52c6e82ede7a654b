package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/secmon-lab/argus/pkg/domain/model/auth"
	"github.com/secmon-lab/argus/pkg/usecase"
	"github.com/secmon-lab/argus/pkg/utils/logging"
)

// TokenVerifier turns a bearer credential into a principal
type TokenVerifier interface {
	Verify(ctx context.Context, raw string) (*auth.Principal, error)
}

type Server struct {
	router         *chi.Mux
	uc             *usecase.UseCases
	verifier       TokenVerifier
	metricsHandler http.Handler
}

type Options func(*Server)

func WithTokenVerifier(v TokenVerifier) Options {
	return func(s *Server) {
		s.verifier = v
	}
}

func WithMetricsHandler(h http.Handler) Options {
	return func(s *Server) {
		s.metricsHandler = h
	}
}

func New(uc *usecase.UseCases, opts ...Options) *Server {
	r := chi.NewRouter()

	s := &Server{
		router: r,
		uc:     uc,
	}
	for _, opt := range opts {
		opt(s)
	}

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(accessLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", healthHandler)
	if s.metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", s.metricsHandler)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(authMiddleware(s.verifier))

		r.Route("/documents", func(r chi.Router) {
			r.Post("/", s.ingestDocument)
			r.Get("/{id}", s.getDocument)
		})

		r.Route("/insights", func(r chi.Router) {
			r.Get("/", s.listInsights)
			r.Post("/", s.createInsight)
			r.Get("/{id}", s.getInsight)
			r.Patch("/{id}", s.updateInsight)
			r.Delete("/{id}", s.deleteInsight)
		})

		r.Route("/competitors", func(r chi.Router) {
			r.Get("/", s.listCompetitors)
			r.Post("/", s.createCompetitor)
			r.Get("/{id}", s.getCompetitor)
			r.Get("/{id}/trials", s.listTrials)
			r.Post("/{id}/trials", s.addTrial)
		})

		r.Route("/subscriptions", func(r chi.Router) {
			r.Get("/", s.listMySubscriptions)
			r.Post("/", s.createSubscription)
			r.Get("/all", s.listAllSubscriptions)
			r.Delete("/{id}", s.deleteSubscription)
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", s.listMyNotifications)
			r.Get("/all", s.listAllNotifications)
			r.Post("/trigger", s.triggerNotifications)
			r.Post("/send", s.sendNotification)
			r.Post("/{id}/read", s.markNotificationRead)
		})
	})

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// accessLogger is a middleware that logs HTTP requests
func accessLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			logging.Default().Info("access",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"remote", r.RemoteAddr,
				"request_id", middleware.GetReqID(r.Context()),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, http.StatusOK, map[string]string{"status": "ok"})
}
